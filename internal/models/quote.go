package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// QuoteStatus представляет статус заявки
type QuoteStatus string

const (
	QuoteStatusPending  QuoteStatus = "pending"
	QuoteStatusApproved QuoteStatus = "approved"
	QuoteStatusRejected QuoteStatus = "rejected"
)

// Valid проверяет, что статус известен
func (s QuoteStatus) Valid() bool {
	switch s {
	case QuoteStatusPending, QuoteStatusApproved, QuoteStatusRejected:
		return true
	default:
		return false
	}
}

// Quote: заявка клиента со снимком расчёта
type Quote struct {
	ID             uuid.UUID         `json:"id" db:"id"`
	ClientName     string            `json:"client_name" db:"client_name"`
	ClientEmail    string            `json:"client_email" db:"client_email"`
	ClientPhone    string            `json:"client_phone" db:"client_phone"`
	ClientAddress  *string           `json:"client_address,omitempty" db:"client_address"`
	PreferredDate  *Date             `json:"preferred_date,omitempty" db:"preferred_date"`
	Message        *string           `json:"message,omitempty" db:"message"`
	DiscountCode   *string           `json:"discount_code,omitempty" db:"discount_code"`
	Calculation    CalculationResult `json:"calculation" db:"calculation"`
	Subtotal       decimal.Decimal   `json:"subtotal" db:"subtotal"`
	TotalArea      decimal.Decimal   `json:"total_area" db:"total_area"`
	DiscountAmount decimal.Decimal   `json:"discount_amount" db:"discount_amount"`
	TotalPrice     decimal.Decimal   `json:"total_price" db:"total_price"`
	Status         QuoteStatus       `json:"status" db:"status"`
	IPAddress      *string           `json:"ip_address,omitempty" db:"ip_address"`
	CreatedAt      time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at" db:"updated_at"`
}

// CreateQuoteRequest: заявка из публичной формы
type CreateQuoteRequest struct {
	ClientName    string      `json:"client_name" validate:"required,max=255"`
	ClientEmail   string      `json:"client_email" validate:"required,email,max=255"`
	ClientPhone   string      `json:"client_phone" validate:"required,max=64"`
	ClientAddress *string     `json:"client_address,omitempty" validate:"omitempty,max=1000"`
	PreferredDate *Date       `json:"preferred_date,omitempty"`
	Message       *string     `json:"message,omitempty" validate:"omitempty,max=5000"`
	DiscountCode  *string     `json:"discount_code,omitempty" validate:"omitempty,max=64"`
	Rooms         []RoomInput `json:"rooms" validate:"required,min=1,dive"`
	IPAddress     string      `json:"-"`
}

// UpdateQuoteStatusRequest: смена статуса заявки администратором
type UpdateQuoteStatusRequest struct {
	Status QuoteStatus `json:"status" validate:"required,oneof=pending approved rejected"`
}

// QuoteFilter: фильтр списка заявок
type QuoteFilter struct {
	Status *QuoteStatus
	Limit  int
	Offset int
}

// QuoteStats: сводка по заявкам за период
type QuoteStats struct {
	From          time.Time           `json:"from"`
	To            time.Time           `json:"to"`
	TotalQuotes   int                 `json:"total_quotes"`
	ByStatus      map[QuoteStatus]int `json:"by_status"`
	TotalValue    decimal.Decimal     `json:"total_value"`
	AverageValue  decimal.Decimal     `json:"average_value"`
	ApprovedValue decimal.Decimal     `json:"approved_value"`
	TotalArea     decimal.Decimal     `json:"total_area"`
	GeneratedAt   time.Time           `json:"generated_at"`
}
