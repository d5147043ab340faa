package handlers

import (
	"net/http"

	"cleaning-calculator/internal/logger"
)

// ActivityHandler отдаёт журнал действий.
type ActivityHandler struct {
	log      *logger.Logger
	activity ActivityLog
}

func NewActivityHandler(activity ActivityLog, log *logger.Logger) *ActivityHandler {
	return &ActivityHandler{activity: activity, log: log}
}

func (h *ActivityHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	entries, err := h.activity.List(r.Context(), limit, offset)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to load activity log")
		return
	}
	writeSuccess(w, http.StatusOK, entries)
}
