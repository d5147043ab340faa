package handlers

import (
	"net/http"

	"cleaning-calculator/internal/logger"
	"cleaning-calculator/internal/models"

	"github.com/go-chi/chi/v5"
)

// SettingsHandler управляет настройками калькулятора и группами строк.
type SettingsHandler struct {
	service SettingsService
	log     *logger.Logger
}

// NewSettingsHandler создает обработчик настроек.
func NewSettingsHandler(service SettingsService, log *logger.Logger) *SettingsHandler {
	return &SettingsHandler{service: service, log: log}
}

func (h *SettingsHandler) GetCalculator(w http.ResponseWriter, r *http.Request) {
	settings, err := h.service.CalculatorSettings(r.Context())
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to load settings")
		return
	}
	writeSuccess(w, http.StatusOK, settings)
}

func (h *SettingsHandler) SaveCalculator(w http.ResponseWriter, r *http.Request) {
	var req models.CalculatorSettings
	if err := decodeJSON(w, r, &req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	saved, err := h.service.SaveCalculatorSettings(r.Context(), &req)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to save settings")
		return
	}
	writeSuccess(w, http.StatusOK, saved)
}

// GetGroup возвращает группу customization или translations.
func (h *SettingsHandler) GetGroup(w http.ResponseWriter, r *http.Request) {
	values, err := h.service.Group(r.Context(), chi.URLParam(r, "group"))
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to load settings")
		return
	}
	writeSuccess(w, http.StatusOK, values)
}

// SaveGroup заменяет значения группы.
func (h *SettingsHandler) SaveGroup(w http.ResponseWriter, r *http.Request) {
	var values map[string]string
	if err := decodeJSON(w, r, &values); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	saved, err := h.service.SaveGroup(r.Context(), chi.URLParam(r, "group"), values)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to save settings")
		return
	}
	writeSuccess(w, http.StatusOK, saved)
}
