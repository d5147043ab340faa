package handlers

import (
	"net/http"

	"cleaning-calculator/internal/logger"
	"cleaning-calculator/internal/models"

	"github.com/go-chi/chi/v5"
)

// RoomTypeHandler управляет типами помещений в админке.
type RoomTypeHandler struct {
	service RoomTypeService
	log     *logger.Logger
}

// NewRoomTypeHandler создает обработчик типов помещений.
func NewRoomTypeHandler(service RoomTypeService, log *logger.Logger) *RoomTypeHandler {
	return &RoomTypeHandler{service: service, log: log}
}

// List возвращает все типы помещений, включая отключенные.
func (h *RoomTypeHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListRoomTypes(r.Context(), false)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to load room types")
		return
	}
	writeSuccess(w, http.StatusOK, list)
}

// Save заменяет список типов помещений.
func (h *RoomTypeHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req models.SaveRoomTypesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	saved, err := h.service.SaveRoomTypes(r.Context(), req.RoomTypes)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to save room types")
		return
	}
	writeSuccess(w, http.StatusOK, saved)
}

// Delete удаляет тип помещения.
func (h *RoomTypeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.DeleteRoomType(r.Context(), id); err != nil {
		writeServiceError(w, h.log, err, "Failed to delete room type")
		return
	}
	writeMessage(w, http.StatusOK, "Room type deleted")
}
