package handlers

import (
	"net/http"

	"cleaning-calculator/internal/logger"
	"cleaning-calculator/internal/models"
)

// CalculatorHandler обслуживает публичную форму калькулятора.
type CalculatorHandler struct {
	calculator Calculator
	roomTypes  RoomTypeService
	log        *logger.Logger
}

// NewCalculatorHandler создает обработчик калькулятора.
func NewCalculatorHandler(calculator Calculator, roomTypes RoomTypeService, log *logger.Logger) *CalculatorHandler {
	return &CalculatorHandler{
		calculator: calculator,
		roomTypes:  roomTypes,
		log:        log,
	}
}

// ListRoomTypes возвращает активные типы помещений для формы.
func (h *CalculatorHandler) ListRoomTypes(w http.ResponseWriter, r *http.Request) {
	list, err := h.roomTypes.ListRoomTypes(r.Context(), true)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to load room types")
		return
	}
	writeSuccess(w, http.StatusOK, list)
}

// Calculate считает стоимость по списку помещений.
func (h *CalculatorHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req models.CalculateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.calculator.Calculate(r.Context(), &req)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to calculate price")
		return
	}
	writeSuccess(w, http.StatusOK, result)
}

// ValidateCode проверяет промокод на текущем наборе помещений.
func (h *CalculatorHandler) ValidateCode(w http.ResponseWriter, r *http.Request) {
	var req models.ValidateCodeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	validation, err := h.calculator.ValidateCode(r.Context(), req.Code, req.Rooms)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to validate discount code")
		return
	}
	writeSuccess(w, http.StatusOK, validation)
}
