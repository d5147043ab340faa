package handlers

import (
	"net/http"
	"strings"
	"time"

	"cleaning-calculator/internal/logger"
	"cleaning-calculator/internal/models"
	"cleaning-calculator/internal/services"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// QuoteHandler представляет обработчик заявок
type QuoteHandler struct {
	service  QuoteService
	producer EventProducer
	log      *logger.Logger
}

// NewQuoteHandler создает новый обработчик заявок
func NewQuoteHandler(service QuoteService, producer EventProducer, log *logger.Logger) *QuoteHandler {
	return &QuoteHandler{
		service:  service,
		producer: producer,
		log:      log,
	}
}

// quoteReceipt: ответ клиенту после отправки заявки
type quoteReceipt struct {
	ID          uuid.UUID                `json:"id"`
	Status      models.QuoteStatus       `json:"status"`
	TotalPrice  decimal.Decimal          `json:"total_price"`
	Calculation models.CalculationResult `json:"calculation"`
	CreatedAt   time.Time                `json:"created_at"`
}

// CreateQuote принимает заявку из публичной формы
func (h *QuoteHandler) CreateQuote(w http.ResponseWriter, r *http.Request) {
	var req models.CreateQuoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	req.IPAddress = services.ExtractClientIP(r)

	quote, err := h.service.CreateQuote(r.Context(), &req)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to create quote")
		return
	}

	// Уведомления уходят через Kafka; заявка уже сохранена
	if h.producer != nil {
		if err := h.producer.PublishQuoteCreated(quote); err != nil {
			h.log.WithError(err).WithField("quote_id", quote.ID).Error("Failed to publish quote created event")
		}
	}

	writeJSONResponse(w, http.StatusCreated, Response{
		Success: true,
		Message: "Quote submitted",
		Data: quoteReceipt{
			ID:          quote.ID,
			Status:      quote.Status,
			TotalPrice:  quote.TotalPrice,
			Calculation: quote.Calculation,
			CreatedAt:   quote.CreatedAt,
		},
	})
}

// ListQuotes возвращает заявки с фильтром по статусу
func (h *QuoteHandler) ListQuotes(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	filter := models.QuoteFilter{Limit: limit, Offset: offset}
	if s := strings.TrimSpace(r.URL.Query().Get("status")); s != "" {
		status := models.QuoteStatus(s)
		filter.Status = &status
	}

	quotes, err := h.service.ListQuotes(r.Context(), filter)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to list quotes")
		return
	}
	writeSuccess(w, http.StatusOK, quotes)
}

// GetQuote возвращает заявку со снимком расчёта
func (h *QuoteHandler) GetQuote(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	quote, err := h.service.GetQuote(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to get quote")
		return
	}
	writeSuccess(w, http.StatusOK, quote)
}

// UpdateQuoteStatus меняет статус заявки
func (h *QuoteHandler) UpdateQuoteStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	var req models.UpdateQuoteStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	change, err := h.service.UpdateQuoteStatus(r.Context(), id, &req)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to update quote status")
		return
	}

	if h.producer != nil {
		if err := h.producer.PublishQuoteStatusChanged(change); err != nil {
			h.log.WithError(err).WithField("quote_id", id).Error("Failed to publish quote status changed event")
		}
	}

	writeSuccess(w, http.StatusOK, change)
}

// DeleteQuote удаляет заявку
func (h *QuoteHandler) DeleteQuote(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.service.DeleteQuote(r.Context(), id); err != nil {
		writeServiceError(w, h.log, err, "Failed to delete quote")
		return
	}

	if h.producer != nil {
		if err := h.producer.PublishQuoteDeleted(id); err != nil {
			h.log.WithError(err).WithField("quote_id", id).Error("Failed to publish quote deleted event")
		}
	}

	writeMessage(w, http.StatusOK, "Quote deleted")
}
