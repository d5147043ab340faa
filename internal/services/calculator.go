package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cleaning-calculator/internal/apperror"
	"cleaning-calculator/internal/logger"
	"cleaning-calculator/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrEmptyInput       = errors.New("no rooms provided")
	ErrInvalidArea      = errors.New("area must be greater than zero")
	ErrUnknownRoomType  = errors.New("unknown room type")
	ErrInactiveRoomType = errors.New("room type is inactive")
)

// Коды ошибок по отдельным помещениям
const (
	RoomErrorInvalidInput     = "invalid_input"
	RoomErrorUnknownRoomType  = "unknown_room_type"
	RoomErrorInactiveRoomType = "inactive_room_type"
)

// RoomTypeLookup ищет тип помещения по идентификатору.
type RoomTypeLookup interface {
	LookupRoomType(ctx context.Context, id string) (*models.RoomType, error)
}

// RuleSource отдаёт правила скидок калькулятору.
type RuleSource interface {
	ActiveRules(ctx context.Context) ([]*models.DiscountRule, error)
	GetRuleByCode(ctx context.Context, code string) (*models.DiscountRule, error)
}

// SettingsSource отдаёт текущие настройки калькулятора.
type SettingsSource interface {
	CalculatorSettings(ctx context.Context) (*models.CalculatorSettings, error)
}

// CalculatorService рассчитывает стоимость уборки по помещениям и применяет скидки.
type CalculatorService struct {
	roomTypes RoomTypeLookup
	rules     RuleSource
	settings  SettingsSource
	log       *logger.Logger
	now       func() time.Time
}

// NewCalculatorService создаёт калькулятор.
func NewCalculatorService(roomTypes RoomTypeLookup, rules RuleSource, settings SettingsSource, log *logger.Logger) *CalculatorService {
	return &CalculatorService{
		roomTypes: roomTypes,
		rules:     rules,
		settings:  settings,
		log:       log,
		now:       time.Now,
	}
}

// CalculateRoom считает стоимость одного помещения: area * price_per_m2 без округления.
func (s *CalculatorService) CalculateRoom(ctx context.Context, in models.RoomInput) (*models.RoomCalc, error) {
	if !in.Area.IsPositive() {
		return nil, apperror.Validation(ErrInvalidArea.Error(), ErrInvalidArea)
	}

	rt, err := s.roomTypes.LookupRoomType(ctx, in.TypeID)
	if err != nil {
		if apperror.Is(err, apperror.KindNotFound) {
			return nil, apperror.Validation(fmt.Sprintf("unknown room type %q", in.TypeID), ErrUnknownRoomType)
		}
		return nil, fmt.Errorf("failed to lookup room type: %w", err)
	}
	if !rt.Active {
		return nil, apperror.Validation(fmt.Sprintf("room type %q is inactive", in.TypeID), ErrInactiveRoomType)
	}

	return &models.RoomCalc{
		TypeID:     rt.ID,
		Name:       rt.Name,
		Area:       in.Area,
		PricePerM2: rt.PricePerM2,
		Subtotal:   in.Area.Mul(rt.PricePerM2),
	}, nil
}

// Calculate проверяет запрос из формы и считает стоимость.
func (s *CalculatorService) Calculate(ctx context.Context, req *models.CalculateRequest) (*models.CalculationResult, error) {
	if req == nil {
		return nil, apperror.Validation("request body is required", nil)
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	return s.CalculateTotal(ctx, req.Rooms, strings.TrimSpace(req.DiscountCode))
}

// CalculateTotal считает все помещения, суммирует и применяет скидки.
// Помещения с ошибками попадают в result.Errors; если не удалось рассчитать ни одно, возвращается ошибка валидации.
func (s *CalculatorService) CalculateTotal(ctx context.Context, rooms []models.RoomInput, discountCode string) (*models.CalculationResult, error) {
	if len(rooms) == 0 {
		return nil, apperror.ValidationFields(ErrEmptyInput.Error(), map[string]string{"rooms": "must contain at least 1 item(s)"})
	}

	settings, err := s.settings.CalculatorSettings(ctx)
	if err != nil {
		return nil, err
	}

	result := &models.CalculationResult{
		Rooms:            make([]models.RoomCalc, 0, len(rooms)),
		Subtotal:         decimal.Zero,
		TotalArea:        decimal.Zero,
		DiscountAmount:   decimal.Zero,
		AppliedDiscounts: []models.AppliedDiscount{},
	}

	for i, room := range rooms {
		calc, err := s.CalculateRoom(ctx, room)
		if err != nil {
			code := roomErrorCode(err)
			if code == "" {
				return nil, err
			}
			result.Errors = append(result.Errors, models.RoomError{
				Index:   i,
				TypeID:  room.TypeID,
				Code:    code,
				Message: err.Error(),
			})
			continue
		}
		result.Rooms = append(result.Rooms, *calc)
		result.Subtotal = result.Subtotal.Add(calc.Subtotal)
		result.TotalArea = result.TotalArea.Add(calc.Area)
	}

	if len(result.Rooms) == 0 {
		return nil, apperror.ValidationFields("no valid rooms to calculate", RoomErrorFields(result.Errors))
	}

	rules, err := s.rules.ActiveRules(ctx)
	if err != nil {
		return nil, err
	}

	applied, discount := EvaluateDiscounts(rules, NewMatchInput(s.now(), result), discountCode, settings.DiscountMode)
	result.AppliedDiscounts = applied
	result.DiscountAmount = discount
	result.TotalPrice = result.Subtotal.Sub(discount)
	if result.TotalPrice.IsNegative() {
		result.TotalPrice = decimal.Zero
	}

	result.Formatted = models.FormattedTotals{
		Subtotal:       FormatPrice(result.Subtotal, settings),
		DiscountAmount: FormatPrice(result.DiscountAmount, settings),
		TotalPrice:     FormatPrice(result.TotalPrice, settings),
	}

	s.log.WithFields(map[string]interface{}{
		"rooms":       len(result.Rooms),
		"failed":      len(result.Errors),
		"subtotal":    result.Subtotal.String(),
		"discount":    result.DiscountAmount.String(),
		"total_price": result.TotalPrice.String(),
	}).Debug("Price calculated")

	return result, nil
}

// ValidateCode проверяет промокод на расчёте переданных помещений.
// Отказ по условиям правила не является ошибкой: возвращается Valid=false с причиной.
func (s *CalculatorService) ValidateCode(ctx context.Context, code string, rooms []models.RoomInput) (*models.CodeValidation, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, apperror.ValidationFields("discount code is required", map[string]string{"code": "is required"})
	}

	rule, err := s.rules.GetRuleByCode(ctx, code)
	if err != nil {
		if apperror.Is(err, apperror.KindNotFound) {
			return &models.CodeValidation{Valid: false, Reason: "not_found", Message: "discount code not found", DiscountAmount: decimal.Zero}, nil
		}
		return nil, err
	}

	calc, err := s.CalculateTotal(ctx, rooms, code)
	if err != nil {
		return nil, err
	}

	if err := CheckRule(rule, NewMatchInput(s.now(), calc)); err != nil {
		var rejection *RuleRejection
		if errors.As(err, &rejection) {
			return &models.CodeValidation{Valid: false, Reason: rejection.Code, Message: rejection.Message, DiscountAmount: decimal.Zero, Calculation: calc}, nil
		}
		return nil, err
	}

	// Правило подходит, но режим скидок может его не применить (first/stack)
	applied := appliedDiscountFor(calc, rule.ID)
	if applied == nil {
		return &models.CodeValidation{
			Valid:          false,
			Reason:         ErrRuleNotApplicable.Code,
			Message:        ErrRuleNotApplicable.Message,
			DiscountAmount: decimal.Zero,
			Calculation:    calc,
		}, nil
	}

	return &models.CodeValidation{
		Valid:          true,
		Message:        "discount code applied",
		DiscountAmount: applied.Amount,
		Rule:           rule,
		Calculation:    calc,
	}, nil
}

func appliedDiscountFor(calc *models.CalculationResult, ruleID uuid.UUID) *models.AppliedDiscount {
	for i := range calc.AppliedDiscounts {
		if calc.AppliedDiscounts[i].RuleID == ruleID {
			return &calc.AppliedDiscounts[i]
		}
	}
	return nil
}

// RoomErrorFields переводит ошибки помещений в ошибки по полям запроса.
func RoomErrorFields(errs []models.RoomError) map[string]string {
	fields := make(map[string]string, len(errs))
	for _, e := range errs {
		key := fmt.Sprintf("rooms[%d].type_id", e.Index)
		if e.Code == RoomErrorInvalidInput {
			key = fmt.Sprintf("rooms[%d].area", e.Index)
		}
		fields[key] = e.Message
	}
	return fields
}

func roomErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidArea):
		return RoomErrorInvalidInput
	case errors.Is(err, ErrUnknownRoomType):
		return RoomErrorUnknownRoomType
	case errors.Is(err, ErrInactiveRoomType):
		return RoomErrorInactiveRoomType
	default:
		return ""
	}
}

// FormatPrice форматирует сумму: округление до decimals (половина от нуля),
// разделители разрядов и дробной части, позиция символа валюты.
func FormatPrice(amount decimal.Decimal, settings *models.CalculatorSettings) string {
	decimals := settings.Decimals
	if decimals < 0 {
		decimals = 0
	}

	rounded := amount.Round(int32(decimals))
	negative := rounded.IsNegative()
	fixed := rounded.Abs().StringFixed(int32(decimals))

	intPart, fracPart := fixed, ""
	if idx := strings.IndexByte(fixed, '.'); idx >= 0 {
		intPart, fracPart = fixed[:idx], fixed[idx+1:]
	}

	out := groupThousands(intPart, settings.ThousandSeparator)
	if decimals > 0 {
		out += settings.DecimalSeparator + fracPart
	}

	if symbol := settings.CurrencySymbol; symbol != "" {
		switch settings.CurrencyPosition {
		case models.CurrencyBefore:
			out = symbol + out
		case models.CurrencyAfter:
			out = out + symbol
		case models.CurrencyBeforeSpace:
			out = symbol + " " + out
		default:
			out = out + " " + symbol
		}
	}

	// знак ставится перед символом валюты: -€2,35
	if negative {
		out = "-" + out
	}
	return out
}

func groupThousands(digits, sep string) string {
	if sep == "" || len(digits) <= 3 {
		return digits
	}

	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteString(sep)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
