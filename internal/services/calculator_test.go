package services

import (
	"context"
	"errors"
	"testing"

	"cleaning-calculator/internal/apperror"
	"cleaning-calculator/internal/models"
)

func TestCalculateRoom_SubtotalIsExactProduct(t *testing.T) {
	svc := newTestCalculator(nil, models.DiscountModeFirst)

	areas := []string{"0.01", "1", "12.5", "25", "33.333", "1000.75"}
	for _, area := range areas {
		calc, err := svc.CalculateRoom(context.Background(), models.RoomInput{TypeID: "living_room", Area: dec(area)})
		if err != nil {
			t.Fatalf("area %s: unexpected error: %v", area, err)
		}
		want := dec(area).Mul(dec("4.50"))
		if !calc.Subtotal.Equal(want) {
			t.Fatalf("area %s: expected subtotal %s, got %s", area, want, calc.Subtotal)
		}
		if calc.Name != "Living room" || !calc.PricePerM2.Equal(dec("4.50")) {
			t.Fatalf("unexpected echoed metadata: %+v", calc)
		}
	}
}

func TestCalculateRoom_Errors(t *testing.T) {
	svc := newTestCalculator(nil, models.DiscountModeFirst)

	cases := []struct {
		name string
		in   models.RoomInput
		want error
	}{
		{"zero area", models.RoomInput{TypeID: "bedroom", Area: dec("0")}, ErrInvalidArea},
		{"negative area", models.RoomInput{TypeID: "bedroom", Area: dec("-3")}, ErrInvalidArea},
		{"unknown type", models.RoomInput{TypeID: "garage", Area: dec("10")}, ErrUnknownRoomType},
		{"inactive type", models.RoomInput{TypeID: "sauna", Area: dec("10")}, ErrInactiveRoomType},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CalculateRoom(context.Background(), tc.in)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if !apperror.Is(err, apperror.KindValidation) {
				t.Fatalf("expected validation kind, got %v", err)
			}
		})
	}
}

func TestCalculateTotal_Scenario(t *testing.T) {
	svc := newTestCalculator(nil, models.DiscountModeFirst)

	result, err := svc.CalculateTotal(context.Background(), []models.RoomInput{
		{TypeID: "bedroom", Area: dec("25")},
		{TypeID: "bathroom", Area: dec("10")},
	}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !result.Subtotal.Equal(dec("205.00")) {
		t.Fatalf("expected subtotal 205, got %s", result.Subtotal)
	}
	if !result.TotalArea.Equal(dec("35")) {
		t.Fatalf("expected total area 35, got %s", result.TotalArea)
	}
	if !result.Rooms[0].Subtotal.Equal(dec("125")) || !result.Rooms[1].Subtotal.Equal(dec("80")) {
		t.Fatalf("unexpected room subtotals: %+v", result.Rooms)
	}
	if !result.TotalPrice.Equal(dec("205")) || !result.DiscountAmount.IsZero() {
		t.Fatalf("expected no discount, got %+v", result)
	}
	if result.Formatted.TotalPrice != "205,00 €" {
		t.Fatalf("unexpected formatted total: %q", result.Formatted.TotalPrice)
	}
}

func TestCalculateTotal_EmptyInput(t *testing.T) {
	svc := newTestCalculator(nil, models.DiscountModeFirst)

	_, err := svc.CalculateTotal(context.Background(), nil, "")
	if !apperror.Is(err, apperror.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCalculateTotal_CollectsRoomErrors(t *testing.T) {
	svc := newTestCalculator(nil, models.DiscountModeFirst)

	result, err := svc.CalculateTotal(context.Background(), []models.RoomInput{
		{TypeID: "bedroom", Area: dec("10")},
		{TypeID: "garage", Area: dec("10")},
		{TypeID: "kitchen", Area: dec("0")},
	}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Rooms) != 1 || !result.Subtotal.Equal(dec("50")) {
		t.Fatalf("expected only bedroom to be priced, got %+v", result)
	}
	if len(result.Errors) != 2 {
		t.Fatalf("expected 2 room errors, got %+v", result.Errors)
	}
	if result.Errors[0].Index != 1 || result.Errors[0].Code != RoomErrorUnknownRoomType {
		t.Fatalf("unexpected first error: %+v", result.Errors[0])
	}
	if result.Errors[1].Index != 2 || result.Errors[1].Code != RoomErrorInvalidInput {
		t.Fatalf("unexpected second error: %+v", result.Errors[1])
	}
}

func TestCalculateTotal_AllRoomsFail(t *testing.T) {
	svc := newTestCalculator(nil, models.DiscountModeFirst)

	_, err := svc.CalculateTotal(context.Background(), []models.RoomInput{
		{TypeID: "sauna", Area: dec("5")},
	}, "")
	if !apperror.Is(err, apperror.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	fields := apperror.FieldsOf(err)
	if _, ok := fields["rooms[0].type_id"]; !ok {
		t.Fatalf("expected field error for rooms[0].type_id, got %v", fields)
	}
}

func TestCalculateTotal_PercentageDiscount(t *testing.T) {
	svc := newTestCalculator([]*models.DiscountRule{percentRule("Ten percent", "10", 1)}, models.DiscountModeFirst)

	result, err := svc.CalculateTotal(context.Background(), []models.RoomInput{{TypeID: "bedroom", Area: dec("25")}}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !result.Subtotal.Equal(dec("125.00")) {
		t.Fatalf("expected subtotal 125, got %s", result.Subtotal)
	}
	if !result.DiscountAmount.Equal(dec("12.50")) {
		t.Fatalf("expected discount 12.50, got %s", result.DiscountAmount)
	}
	if !result.TotalPrice.Equal(dec("112.50")) {
		t.Fatalf("expected total 112.50, got %s", result.TotalPrice)
	}
	if len(result.AppliedDiscounts) != 1 || result.AppliedDiscounts[0].RuleName != "Ten percent" {
		t.Fatalf("unexpected applied discounts: %+v", result.AppliedDiscounts)
	}
}

func TestCalculateTotal_FixedDiscountClampedToSubtotal(t *testing.T) {
	values := []string{"80.01", "125", "500", "99999"}
	for _, v := range values {
		svc := newTestCalculator([]*models.DiscountRule{fixedRule("Big", v, 1)}, models.DiscountModeFirst)

		result, err := svc.CalculateTotal(context.Background(), []models.RoomInput{{TypeID: "bathroom", Area: dec("10")}}, "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.DiscountAmount.Equal(result.Subtotal) {
			t.Fatalf("value %s: expected discount == subtotal %s, got %s", v, result.Subtotal, result.DiscountAmount)
		}
		if !result.TotalPrice.IsZero() {
			t.Fatalf("value %s: expected zero total, got %s", v, result.TotalPrice)
		}
	}
}

func TestCalculateTotal_FirstModeAppliesHighestPriority(t *testing.T) {
	low := percentRule("Low", "5", 5)
	high := percentRule("High", "10", 10)
	svc := newTestCalculator([]*models.DiscountRule{low, high}, models.DiscountModeFirst)

	result, err := svc.CalculateTotal(context.Background(), []models.RoomInput{{TypeID: "bedroom", Area: dec("20")}}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.AppliedDiscounts) != 1 || result.AppliedDiscounts[0].RuleID != high.ID {
		t.Fatalf("expected only priority-10 rule, got %+v", result.AppliedDiscounts)
	}
	if !result.DiscountAmount.Equal(dec("10")) {
		t.Fatalf("expected discount 10, got %s", result.DiscountAmount)
	}
}

func TestCalculateTotal_StackMode(t *testing.T) {
	first := percentRule("First", "10", 10)
	stackable := fixedRule("Stackable", "20", 5)
	stackable.Stackable = true
	single := fixedRule("Not stackable", "30", 1)

	svc := newTestCalculator([]*models.DiscountRule{first, stackable, single}, models.DiscountModeStack)

	result, err := svc.CalculateTotal(context.Background(), []models.RoomInput{{TypeID: "bedroom", Area: dec("40")}}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 200 * 10% = 20, + 20 fixed
	if len(result.AppliedDiscounts) != 2 {
		t.Fatalf("expected 2 applied discounts, got %+v", result.AppliedDiscounts)
	}
	if !result.DiscountAmount.Equal(dec("40")) || !result.TotalPrice.Equal(dec("160")) {
		t.Fatalf("unexpected totals: discount %s total %s", result.DiscountAmount, result.TotalPrice)
	}
}

func TestCalculateTotal_StackModeNeverExceedsSubtotal(t *testing.T) {
	a := fixedRule("A", "70", 10)
	b := fixedRule("B", "70", 5)
	b.Stackable = true

	svc := newTestCalculator([]*models.DiscountRule{a, b}, models.DiscountModeStack)

	result, err := svc.CalculateTotal(context.Background(), []models.RoomInput{{TypeID: "bathroom", Area: dec("12.5")}}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !result.DiscountAmount.Equal(dec("100")) || !result.TotalPrice.IsZero() {
		t.Fatalf("expected discount clamped to 100, got %s / total %s", result.DiscountAmount, result.TotalPrice)
	}
	if !result.AppliedDiscounts[1].Amount.Equal(dec("30")) {
		t.Fatalf("expected second amount clamped to remaining 30, got %s", result.AppliedDiscounts[1].Amount)
	}
}

func TestCalculateTotal_BestMode(t *testing.T) {
	percent := percentRule("Percent", "10", 10)
	fixed := fixedRule("Fixed", "25", 1)

	svc := newTestCalculator([]*models.DiscountRule{percent, fixed}, models.DiscountModeBest)

	result, err := svc.CalculateTotal(context.Background(), []models.RoomInput{{TypeID: "bedroom", Area: dec("30")}}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.AppliedDiscounts) != 1 || result.AppliedDiscounts[0].RuleID != fixed.ID {
		t.Fatalf("expected fixed 25 to beat 10%% of 150, got %+v", result.AppliedDiscounts)
	}
}

func TestCalculateTotal_DateRangeExcludingNow(t *testing.T) {
	past := percentRule("Past", "50", 10)
	start, end := models.NewDate(2024, 1, 1), models.NewDate(2024, 6, 11)
	past.DateStart, past.DateEnd = &start, &end

	future := percentRule("Future", "50", 10)
	fStart := models.NewDate(2024, 6, 13)
	future.DateStart = &fStart

	svc := newTestCalculator([]*models.DiscountRule{past, future}, models.DiscountModeStack)

	result, err := svc.CalculateTotal(context.Background(), []models.RoomInput{{TypeID: "bedroom", Area: dec("30")}}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.AppliedDiscounts) != 0 {
		t.Fatalf("expected no discounts outside date range, got %+v", result.AppliedDiscounts)
	}
}

func TestCalculateTotal_CodeRuleRequiresCode(t *testing.T) {
	coded := percentRule("Coded", "20", 10)
	coded.DiscountCode = strPtr("SPRING")

	svc := newTestCalculator([]*models.DiscountRule{coded}, models.DiscountModeFirst)
	rooms := []models.RoomInput{{TypeID: "bedroom", Area: dec("20")}}

	result, err := svc.CalculateTotal(context.Background(), rooms, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.AppliedDiscounts) != 0 {
		t.Fatalf("coded rule must not apply without code")
	}

	result, err = svc.CalculateTotal(context.Background(), rooms, "spring")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.DiscountAmount.Equal(dec("20")) {
		t.Fatalf("expected 20 discount with matching code, got %s", result.DiscountAmount)
	}
}

func TestValidateCode(t *testing.T) {
	coded := fixedRule("Coded", "15", 10)
	coded.DiscountCode = strPtr("WELCOME")
	coded.Conditions.MinArea = decPtr("20")

	svc := newTestCalculator([]*models.DiscountRule{coded}, models.DiscountModeFirst)
	ctx := context.Background()

	res, err := svc.ValidateCode(ctx, "unknown", []models.RoomInput{{TypeID: "bedroom", Area: dec("30")}})
	if err != nil || res.Valid || res.Reason != "not_found" {
		t.Fatalf("expected not_found, got %+v err=%v", res, err)
	}

	res, err = svc.ValidateCode(ctx, "welcome", []models.RoomInput{{TypeID: "bedroom", Area: dec("10")}})
	if err != nil || res.Valid || res.Reason != ErrRuleConditions.Code {
		t.Fatalf("expected conditions rejection, got %+v err=%v", res, err)
	}

	res, err = svc.ValidateCode(ctx, "WELCOME", []models.RoomInput{{TypeID: "bedroom", Area: dec("30")}})
	if err != nil || !res.Valid {
		t.Fatalf("expected valid code, got %+v err=%v", res, err)
	}
	if !res.DiscountAmount.Equal(dec("15")) || !res.Calculation.TotalPrice.Equal(dec("135")) {
		t.Fatalf("unexpected amounts: %+v", res)
	}
}

func TestFormatPrice(t *testing.T) {
	base := models.CalculatorSettings{
		CurrencySymbol:    "€",
		DecimalSeparator:  ",",
		ThousandSeparator: ".",
		Decimals:          2,
	}

	cases := []struct {
		amount   string
		position string
		mutate   func(s *models.CalculatorSettings)
		want     string
	}{
		{"1234567.891", models.CurrencyAfterSpace, nil, "1.234.567,89 €"},
		{"0.005", models.CurrencyAfter, nil, "0,01€"},
		{"-2.345", models.CurrencyBefore, nil, "-€2,35"},
		{"999.999", models.CurrencyBeforeSpace, nil, "€ 1.000,00"},
		{"205", models.CurrencyAfterSpace, func(s *models.CalculatorSettings) { s.Decimals = 0 }, "205 €"},
		{"1234.5", models.CurrencyBefore, func(s *models.CalculatorSettings) {
			s.CurrencySymbol = "$"
			s.DecimalSeparator = "."
			s.ThousandSeparator = ","
		}, "$1,234.50"},
		{"1234.5", models.CurrencyAfterSpace, func(s *models.CalculatorSettings) { s.ThousandSeparator = "" }, "1234,50 €"},
		{"12", models.CurrencyAfterSpace, func(s *models.CalculatorSettings) { s.CurrencySymbol = "" }, "12,00"},
	}

	for _, tc := range cases {
		settings := base
		settings.CurrencyPosition = tc.position
		if tc.mutate != nil {
			tc.mutate(&settings)
		}
		if got := FormatPrice(dec(tc.amount), &settings); got != tc.want {
			t.Fatalf("FormatPrice(%s, %s) = %q, want %q", tc.amount, tc.position, got, tc.want)
		}
	}
}

func TestCalculate_ValidatesRequest(t *testing.T) {
	svc := newTestCalculator(nil, models.DiscountModeFirst)

	_, err := svc.Calculate(context.Background(), &models.CalculateRequest{Rooms: []models.RoomInput{{TypeID: "", Area: dec("10")}}})
	if !apperror.Is(err, apperror.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, ok := apperror.FieldsOf(err)["rooms[0].type_id"]; !ok {
		t.Fatalf("expected rooms[0].type_id field, got %v", apperror.FieldsOf(err))
	}

	res, err := svc.Calculate(context.Background(), &models.CalculateRequest{Rooms: []models.RoomInput{{TypeID: "bedroom", Area: dec("10")}}, DiscountCode: "  "})
	if err != nil || !res.TotalPrice.Equal(dec("50")) {
		t.Fatalf("unexpected result %+v err=%v", res, err)
	}
}

func TestValidateCode_NotApplicableWhenModeSkipsRule(t *testing.T) {
	auto := percentRule("Auto", "10", 10)
	coded := fixedRule("Save5", "5", 5)
	coded.DiscountCode = strPtr("SAVE5")
	rooms := []models.RoomInput{{TypeID: "bedroom", Area: dec("25")}}
	ctx := context.Background()

	// first: побеждает правило с большим приоритетом
	res, err := newTestCalculator([]*models.DiscountRule{auto, coded}, models.DiscountModeFirst).ValidateCode(ctx, "save5", rooms)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Valid || res.Reason != ErrRuleNotApplicable.Code || !res.DiscountAmount.IsZero() {
		t.Fatalf("expected not_applicable, got %+v", res)
	}
	if !res.Calculation.TotalPrice.Equal(dec("112.50")) {
		t.Fatalf("expected calculation with the automatic rule only, got %s", res.Calculation.TotalPrice)
	}

	// stack: второе правило без stackable не добавляется
	res, err = newTestCalculator([]*models.DiscountRule{auto, coded}, models.DiscountModeStack).ValidateCode(ctx, "SAVE5", rooms)
	if err != nil || res.Valid || res.Reason != ErrRuleNotApplicable.Code {
		t.Fatalf("expected not_applicable for non-stackable code, got %+v err=%v", res, err)
	}

	coded.Stackable = true
	res, err = newTestCalculator([]*models.DiscountRule{auto, coded}, models.DiscountModeStack).ValidateCode(ctx, "SAVE5", rooms)
	if err != nil || !res.Valid || !res.DiscountAmount.Equal(dec("5")) {
		t.Fatalf("expected stacked code to apply 5, got %+v err=%v", res, err)
	}
	if !res.Calculation.TotalPrice.Equal(dec("107.50")) {
		t.Fatalf("unexpected total %s", res.Calculation.TotalPrice)
	}
}
