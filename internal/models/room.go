package models

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var roomTypeIDPattern = regexp.MustCompile(`^[a-z0-9_-]{1,64}$`)

// RoomType описывает тип помещения и цену уборки за м²
type RoomType struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	PricePerM2 decimal.Decimal `json:"price_per_m2"`
	Active     bool            `json:"active"`
	Order      int             `json:"order"`
}

// Validate проверяет идентификатор, название и цену.
// Возвращает ошибки по полям (ключ = имя JSON поля).
func (rt *RoomType) Validate() map[string]string {
	fields := make(map[string]string)
	if !roomTypeIDPattern.MatchString(rt.ID) {
		fields["id"] = "must match [a-z0-9_-], 1-64 characters"
	}
	name := strings.TrimSpace(rt.Name)
	switch {
	case name == "":
		fields["name"] = "is required"
	case len(name) > 255:
		fields["name"] = fmt.Sprintf("must be at most %d characters", 255)
	}
	if rt.PricePerM2.IsNegative() {
		fields["price_per_m2"] = "must be greater than or equal to 0"
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

// RoomInput: помещение из запроса на расчёт
type RoomInput struct {
	TypeID string          `json:"type_id" validate:"required,max=64"`
	Area   decimal.Decimal `json:"area"`
}

// RoomCalc: результат расчёта одного помещения
type RoomCalc struct {
	TypeID     string          `json:"type_id"`
	Name       string          `json:"name"`
	Area       decimal.Decimal `json:"area"`
	PricePerM2 decimal.Decimal `json:"price_per_m2"`
	Subtotal   decimal.Decimal `json:"subtotal"`
}

// RoomError описывает помещение, которое не удалось рассчитать
type RoomError struct {
	Index   int    `json:"index"`
	TypeID  string `json:"type_id"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SaveRoomTypesRequest заменяет список типов помещений целиком
type SaveRoomTypesRequest struct {
	RoomTypes []RoomType `json:"room_types"`
}
