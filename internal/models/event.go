package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType тип доменного события
type EventType string

const (
	EventTypeQuoteCreated       EventType = "quote.created"
	EventTypeQuoteStatusChanged EventType = "quote.status_changed"
	EventTypeQuoteDeleted       EventType = "quote.deleted"
)

// Event: сообщение, публикуемое в Kafka
type Event struct {
	ID        uuid.UUID       `json:"id"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// QuoteStatusChangedData: данные события смены статуса
type QuoteStatusChangedData struct {
	QuoteID   uuid.UUID   `json:"quote_id"`
	OldStatus QuoteStatus `json:"old_status"`
	NewStatus QuoteStatus `json:"new_status"`
}

// QuoteDeletedData: данные события удаления заявки
type QuoteDeletedData struct {
	QuoteID uuid.UUID `json:"quote_id"`
}
