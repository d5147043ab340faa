package handlers

import (
	"net/http"

	"cleaning-calculator/internal/logger"
	"cleaning-calculator/internal/models"
)

// DiscountHandler обрабатывает правила скидок.
type DiscountHandler struct {
	service DiscountService
	log     *logger.Logger
}

// NewDiscountHandler создаёт обработчик правил скидок.
func NewDiscountHandler(service DiscountService, log *logger.Logger) *DiscountHandler {
	return &DiscountHandler{service: service, log: log}
}

// List возвращает правила скидок.
func (h *DiscountHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	rules, err := h.service.ListRules(r.Context(), limit, offset)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to list discount rules")
		return
	}
	writeSuccess(w, http.StatusOK, rules)
}

// Create создаёт правило.
func (h *DiscountHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.DiscountRuleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	rule, err := h.service.CreateRule(r.Context(), &req)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to create discount rule")
		return
	}
	writeSuccess(w, http.StatusCreated, rule)
}

// Get возвращает правило по id.
func (h *DiscountHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	rule, err := h.service.GetRule(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to get discount rule")
		return
	}
	writeSuccess(w, http.StatusOK, rule)
}

// Update заменяет поля правила.
func (h *DiscountHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	var req models.DiscountRuleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	rule, err := h.service.UpdateRule(r.Context(), id, &req)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to update discount rule")
		return
	}
	writeSuccess(w, http.StatusOK, rule)
}

// Delete удаляет правило.
func (h *DiscountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.service.DeleteRule(r.Context(), id); err != nil {
		writeServiceError(w, h.log, err, "Failed to delete discount rule")
		return
	}
	writeMessage(w, http.StatusOK, "Discount rule deleted")
}

// Export отдаёт правила файлом JSON, пригодным для Import.
func (h *DiscountHandler) Export(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ExportRules(r.Context())
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to export discount rules")
		return
	}

	w.Header().Set("Content-Disposition", "attachment; filename=discount-rules.json")
	writeJSONResponse(w, http.StatusOK, items)
}

// Import создаёт правила из экспортированного файла; все они отключены.
func (h *DiscountHandler) Import(w http.ResponseWriter, r *http.Request) {
	var items []models.ExportedDiscountRule
	if err := decodeJSON(w, r, &items); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(items) == 0 {
		writeErrorResponse(w, http.StatusBadRequest, "Nothing to import")
		return
	}

	rules, err := h.service.ImportRules(r.Context(), items)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to import discount rules")
		return
	}
	writeSuccess(w, http.StatusCreated, rules)
}
