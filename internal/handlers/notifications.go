package handlers

import (
	"net/http"

	"cleaning-calculator/internal/logger"

	"github.com/go-chi/chi/v5"
)

// NotificationHandler позволяет проверить каналы уведомлений из админки.
type NotificationHandler struct {
	notifier NotificationTester
	log      *logger.Logger
}

func NewNotificationHandler(notifier NotificationTester, log *logger.Logger) *NotificationHandler {
	return &NotificationHandler{notifier: notifier, log: log}
}

// Channels возвращает включенные каналы.
func (h *NotificationHandler) Channels(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, map[string]interface{}{"channels": h.notifier.Channels()})
}

// Test отправляет тестовую заявку в выбранный канал.
func (h *NotificationHandler) Test(w http.ResponseWriter, r *http.Request) {
	channel := chi.URLParam(r, "channel")
	if err := h.notifier.Test(r.Context(), channel); err != nil {
		writeServiceError(w, h.log, err, "Failed to send test notification")
		return
	}
	writeMessage(w, http.StatusOK, "Test notification sent via "+channel)
}
