package models

import (
	"database/sql/driver"

	"github.com/shopspring/decimal"
)

// CalculateRequest: запрос на расчёт стоимости
type CalculateRequest struct {
	Rooms        []RoomInput `json:"rooms" validate:"required,min=1,dive"`
	DiscountCode string      `json:"discount_code,omitempty" validate:"omitempty,max=64"`
}

// FormattedTotals: итоговые суммы, отформатированные по настройкам валюты
type FormattedTotals struct {
	Subtotal       string `json:"subtotal"`
	DiscountAmount string `json:"discount_amount"`
	TotalPrice     string `json:"total_price"`
}

// CalculationResult: результат расчёта стоимости уборки
type CalculationResult struct {
	Rooms            []RoomCalc        `json:"rooms"`
	Errors           []RoomError       `json:"errors,omitempty"`
	Subtotal         decimal.Decimal   `json:"subtotal"`
	TotalArea        decimal.Decimal   `json:"total_area"`
	DiscountAmount   decimal.Decimal   `json:"discount_amount"`
	AppliedDiscounts []AppliedDiscount `json:"applied_discounts"`
	TotalPrice       decimal.Decimal   `json:"total_price"`
	Formatted        FormattedTotals   `json:"formatted"`
}

// RoomTypeIDs возвращает идентификаторы типов успешно рассчитанных помещений
func (r *CalculationResult) RoomTypeIDs() []string {
	ids := make([]string, 0, len(r.Rooms))
	for _, room := range r.Rooms {
		ids = append(ids, room.TypeID)
	}
	return ids
}

// Scan реализует sql.Scanner (снимок расчёта в заявке)
func (r *CalculationResult) Scan(src interface{}) error { return scanJSON(src, r) }

// Value реализует driver.Valuer
func (r CalculationResult) Value() (driver.Value, error) { return valueJSON(r) }
