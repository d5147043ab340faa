package models

import (
	"database/sql/driver"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DiscountType описывает тип скидки
type DiscountType string

const (
	DiscountTypePercentage DiscountType = "percentage"
	DiscountTypeFixed      DiscountType = "fixed"
)

// DiscountMode определяет, как комбинируются подходящие правила
type DiscountMode string

const (
	// DiscountModeFirst применяет первое подходящее правило по приоритету
	DiscountModeFirst DiscountMode = "first"
	// DiscountModeBest применяет одно правило с максимальной скидкой
	DiscountModeBest DiscountMode = "best"
	// DiscountModeStack суммирует все подходящие правила
	DiscountModeStack DiscountMode = "stack"
)

// DiscountConditions: условия применения правила (хранятся в JSONB)
type DiscountConditions struct {
	MinArea     *decimal.Decimal `json:"min_area,omitempty"`
	MinRooms    *int             `json:"min_rooms,omitempty"`
	MinSubtotal *decimal.Decimal `json:"min_subtotal,omitempty"`
	RoomTypes   []string         `json:"room_types,omitempty"`
}

// Scan реализует sql.Scanner
func (c *DiscountConditions) Scan(src interface{}) error { return scanJSON(src, c) }

// Value реализует driver.Valuer
func (c DiscountConditions) Value() (driver.Value, error) { return valueJSON(c) }

// Weekdays: дни недели (0 = воскресенье ... 6 = суббота)
type Weekdays []int

// Scan реализует sql.Scanner
func (w *Weekdays) Scan(src interface{}) error { return scanJSON(src, w) }

// Value реализует driver.Valuer
func (w Weekdays) Value() (driver.Value, error) {
	if w == nil {
		return "[]", nil
	}
	return valueJSON([]int(w))
}

// Contains проверяет, входит ли день недели в список
func (w Weekdays) Contains(day time.Weekday) bool {
	for _, d := range w {
		if d == int(day) {
			return true
		}
	}
	return false
}

// DiscountRule: правило скидки
type DiscountRule struct {
	ID            uuid.UUID          `json:"id"`
	RuleName      string             `json:"rule_name"`
	DiscountType  DiscountType       `json:"discount_type"`
	DiscountValue decimal.Decimal    `json:"discount_value"`
	Conditions    DiscountConditions `json:"conditions"`
	DateStart     *Date              `json:"date_start,omitempty"`
	DateEnd       *Date              `json:"date_end,omitempty"`
	DaysOfWeek    Weekdays           `json:"days_of_week"`
	Priority      int                `json:"priority"`
	Stackable     bool               `json:"stackable"`
	DiscountCode  *string            `json:"discount_code,omitempty"`
	UsageLimit    *int               `json:"usage_limit,omitempty"`
	UsageCount    int                `json:"usage_count"`
	Active        bool               `json:"active"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// HasCode сообщает, привязано ли правило к промокоду
func (r *DiscountRule) HasCode() bool {
	return r.DiscountCode != nil && strings.TrimSpace(*r.DiscountCode) != ""
}

// CodeMatches сравнивает промокод без учёта регистра
func (r *DiscountRule) CodeMatches(code string) bool {
	return r.HasCode() && strings.EqualFold(strings.TrimSpace(*r.DiscountCode), strings.TrimSpace(code))
}

// DiscountRuleRequest: создание/обновление правила
type DiscountRuleRequest struct {
	RuleName      string             `json:"rule_name" validate:"required,max=255"`
	DiscountType  DiscountType       `json:"discount_type" validate:"required,oneof=percentage fixed"`
	DiscountValue decimal.Decimal    `json:"discount_value"`
	Conditions    DiscountConditions `json:"conditions"`
	DateStart     *Date              `json:"date_start,omitempty"`
	DateEnd       *Date              `json:"date_end,omitempty"`
	DaysOfWeek    Weekdays           `json:"days_of_week" validate:"dive,min=0,max=6"`
	Priority      int                `json:"priority"`
	Stackable     bool               `json:"stackable"`
	DiscountCode  *string            `json:"discount_code,omitempty" validate:"omitempty,max=64"`
	UsageLimit    *int               `json:"usage_limit,omitempty" validate:"omitempty,min=0"`
	Active        bool               `json:"active"`
}

// ExportedDiscountRule: правило в формате экспорта (без id и счётчика использования)
type ExportedDiscountRule struct {
	RuleName      string             `json:"rule_name"`
	DiscountType  DiscountType       `json:"discount_type"`
	DiscountValue decimal.Decimal    `json:"discount_value"`
	Conditions    DiscountConditions `json:"conditions"`
	DateStart     *Date              `json:"date_start,omitempty"`
	DateEnd       *Date              `json:"date_end,omitempty"`
	DaysOfWeek    Weekdays           `json:"days_of_week"`
	Priority      int                `json:"priority"`
	Stackable     bool               `json:"stackable"`
	DiscountCode  *string            `json:"discount_code,omitempty"`
	UsageLimit    *int               `json:"usage_limit,omitempty"`
}

// AppliedDiscount: скидка, применённая к расчёту
type AppliedDiscount struct {
	RuleID        uuid.UUID       `json:"rule_id"`
	RuleName      string          `json:"rule_name"`
	DiscountType  DiscountType    `json:"discount_type"`
	DiscountValue decimal.Decimal `json:"discount_value"`
	Amount        decimal.Decimal `json:"amount"`
	Code          *string         `json:"code,omitempty"`
}

// ValidateCodeRequest: проверка промокода на наборе помещений
type ValidateCodeRequest struct {
	Code  string      `json:"code" validate:"required,max=64"`
	Rooms []RoomInput `json:"rooms" validate:"required,min=1,dive"`
}

// CodeValidation: результат проверки промокода
type CodeValidation struct {
	Valid          bool               `json:"valid"`
	Reason         string             `json:"reason,omitempty"`
	Message        string             `json:"message"`
	DiscountAmount decimal.Decimal    `json:"discount_amount"`
	Rule           *DiscountRule      `json:"rule,omitempty"`
	Calculation    *CalculationResult `json:"calculation,omitempty"`
}
