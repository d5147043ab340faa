package services

import (
	"sort"
	"time"

	"cleaning-calculator/internal/models"

	"github.com/shopspring/decimal"
)

// RuleRejection объясняет, почему правило скидки не применимо.
type RuleRejection struct {
	Code    string
	Message string
}

func (e *RuleRejection) Error() string {
	return e.Message
}

var (
	ErrRuleInactive       = &RuleRejection{Code: "inactive", Message: "discount is not active"}
	ErrRuleNotStarted     = &RuleRejection{Code: "not_started", Message: "discount is not valid yet"}
	ErrRuleExpired        = &RuleRejection{Code: "expired", Message: "discount has expired"}
	ErrRuleWrongDay       = &RuleRejection{Code: "wrong_day", Message: "discount is not valid on this day of the week"}
	ErrRuleUsageExhausted = &RuleRejection{Code: "usage_exhausted", Message: "discount usage limit reached"}
	ErrRuleConditions     = &RuleRejection{Code: "conditions_not_met", Message: "order does not meet the discount conditions"}
	ErrRuleNotApplicable  = &RuleRejection{Code: "not_applicable", Message: "discount cannot be combined with the discounts already applied"}
)

var hundred = decimal.NewFromInt(100)

// MatchInput: данные расчёта, по которым проверяются условия правила.
type MatchInput struct {
	Now         time.Time
	TotalArea   decimal.Decimal
	RoomCount   int
	Subtotal    decimal.Decimal
	RoomTypeIDs []string
}

// NewMatchInput собирает MatchInput из результата расчёта.
func NewMatchInput(now time.Time, calc *models.CalculationResult) MatchInput {
	return MatchInput{
		Now:         now,
		TotalArea:   calc.TotalArea,
		RoomCount:   len(calc.Rooms),
		Subtotal:    calc.Subtotal,
		RoomTypeIDs: calc.RoomTypeIDs(),
	}
}

// CheckRule проверяет применимость правила. Единственная точка проверки
// условий: её используют и калькулятор, и проверка промокода.
// Промокод здесь не сверяется.
func CheckRule(rule *models.DiscountRule, in MatchInput) error {
	if !rule.Active {
		return ErrRuleInactive
	}

	loc := in.Now.Location()
	if rule.DateStart != nil {
		start := time.Date(rule.DateStart.Year(), rule.DateStart.Month(), rule.DateStart.Day(), 0, 0, 0, 0, loc)
		if in.Now.Before(start) {
			return ErrRuleNotStarted
		}
	}
	if rule.DateEnd != nil {
		// date_end включительно, до конца дня
		end := time.Date(rule.DateEnd.Year(), rule.DateEnd.Month(), rule.DateEnd.Day()+1, 0, 0, 0, 0, loc)
		if !in.Now.Before(end) {
			return ErrRuleExpired
		}
	}

	if len(rule.DaysOfWeek) > 0 && !rule.DaysOfWeek.Contains(in.Now.Weekday()) {
		return ErrRuleWrongDay
	}

	if rule.UsageLimit != nil && *rule.UsageLimit > 0 && rule.UsageCount >= *rule.UsageLimit {
		return ErrRuleUsageExhausted
	}

	if !conditionsMet(&rule.Conditions, in) {
		return ErrRuleConditions
	}

	return nil
}

// RuleMatches сообщает, применимо ли правило.
func RuleMatches(rule *models.DiscountRule, in MatchInput) bool {
	return CheckRule(rule, in) == nil
}

func conditionsMet(c *models.DiscountConditions, in MatchInput) bool {
	if c.MinArea != nil && in.TotalArea.LessThan(*c.MinArea) {
		return false
	}
	if c.MinRooms != nil && in.RoomCount < *c.MinRooms {
		return false
	}
	if c.MinSubtotal != nil && in.Subtotal.LessThan(*c.MinSubtotal) {
		return false
	}
	if len(c.RoomTypes) > 0 && !intersects(c.RoomTypes, in.RoomTypeIDs) {
		return false
	}
	return true
}

func intersects(a, b []string) bool {
	set := make(map[string]struct{}, len(a))
	for _, v := range a {
		set[v] = struct{}{}
	}
	for _, v := range b {
		if _, ok := set[v]; ok {
			return true
		}
	}
	return false
}

// DiscountAmount считает сумму скидки правила от subtotal (округление до 2 знаков, без ограничения сверху).
func DiscountAmount(rule *models.DiscountRule, subtotal decimal.Decimal) decimal.Decimal {
	if rule.DiscountValue.IsNegative() {
		return decimal.Zero
	}
	switch rule.DiscountType {
	case models.DiscountTypePercentage:
		value := rule.DiscountValue
		if value.GreaterThan(hundred) {
			value = hundred
		}
		return subtotal.Mul(value).Div(hundred).Round(2)
	case models.DiscountTypeFixed:
		return rule.DiscountValue.Round(2)
	default:
		return decimal.Zero
	}
}

func clamp(amount, limit decimal.Decimal) decimal.Decimal {
	if limit.IsNegative() {
		return decimal.Zero
	}
	if amount.GreaterThan(limit) {
		return limit
	}
	return amount
}

// EvaluateDiscounts выбирает и применяет правила согласно режиму.
// Правила с промокодом участвуют только при совпадении кода.
// Сумма скидок никогда не превышает subtotal.
func EvaluateDiscounts(rules []*models.DiscountRule, in MatchInput, code string, mode models.DiscountMode) ([]models.AppliedDiscount, decimal.Decimal) {
	ordered := make([]*models.DiscountRule, len(rules))
	copy(ordered, rules)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority > ordered[j].Priority
	})

	var candidates []*models.DiscountRule
	for _, rule := range ordered {
		if rule.HasCode() && !rule.CodeMatches(code) {
			continue
		}
		if !RuleMatches(rule, in) {
			continue
		}
		candidates = append(candidates, rule)
	}

	applied := make([]models.AppliedDiscount, 0, len(candidates))
	if len(candidates) == 0 {
		return applied, decimal.Zero
	}

	switch mode {
	case models.DiscountModeBest:
		var (
			best       *models.DiscountRule
			bestAmount decimal.Decimal
		)
		for _, rule := range candidates {
			amount := clamp(DiscountAmount(rule, in.Subtotal), in.Subtotal)
			if best == nil || amount.GreaterThan(bestAmount) {
				best, bestAmount = rule, amount
			}
		}
		applied = append(applied, toApplied(best, bestAmount))
		return applied, bestAmount

	case models.DiscountModeStack:
		total := decimal.Zero
		for i, rule := range candidates {
			if i > 0 && !rule.Stackable {
				continue
			}
			remaining := in.Subtotal.Sub(total)
			if !remaining.IsPositive() {
				break
			}
			amount := clamp(DiscountAmount(rule, in.Subtotal), remaining)
			applied = append(applied, toApplied(rule, amount))
			total = total.Add(amount)
		}
		return applied, total

	default:
		rule := candidates[0]
		amount := clamp(DiscountAmount(rule, in.Subtotal), in.Subtotal)
		applied = append(applied, toApplied(rule, amount))
		return applied, amount
	}
}

func toApplied(rule *models.DiscountRule, amount decimal.Decimal) models.AppliedDiscount {
	return models.AppliedDiscount{
		RuleID:        rule.ID,
		RuleName:      rule.RuleName,
		DiscountType:  rule.DiscountType,
		DiscountValue: rule.DiscountValue,
		Amount:        amount,
		Code:          rule.DiscountCode,
	}
}
