package services

import (
	"context"
	"testing"
	"time"

	"cleaning-calculator/internal/apperror"
	"cleaning-calculator/internal/config"
	"cleaning-calculator/internal/database"
	"cleaning-calculator/internal/logger"
	"cleaning-calculator/internal/models"
	"cleaning-calculator/internal/redis"

	"github.com/DATA-DOG/go-sqlmock"
	miniredis "github.com/alicebob/miniredis/v2"
	goredis "github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Среда, 12 июня 2024
var testNow = time.Date(2024, 6, 12, 10, 0, 0, 0, time.UTC)

func newTestLogger() *logger.Logger {
	return logger.New(&config.LoggerConfig{Level: "error", Format: "json"})
}

func newMockDB(t *testing.T) (*database.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	return &database.DB{DB: db}, mock
}

func newTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return redis.New(rdb, newTestLogger()), mr
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func intPtr(v int) *int {
	return &v
}

func strPtr(s string) *string {
	return &s
}

type fakeRoomTypes map[string]models.RoomType

func (f fakeRoomTypes) LookupRoomType(_ context.Context, id string) (*models.RoomType, error) {
	rt, ok := f[id]
	if !ok {
		return nil, apperror.NotFound("room type not found", nil)
	}
	return &rt, nil
}

func defaultFakeRoomTypes() fakeRoomTypes {
	types := fakeRoomTypes{}
	for _, rt := range DefaultRoomTypes() {
		types[rt.ID] = rt
	}
	types["sauna"] = models.RoomType{ID: "sauna", Name: "Sauna", PricePerM2: dec("12.00"), Active: false}
	return types
}

type fakeRules struct {
	rules []*models.DiscountRule
	err   error
}

func (f *fakeRules) ActiveRules(context.Context) ([]*models.DiscountRule, error) {
	return f.rules, f.err
}

func (f *fakeRules) GetRuleByCode(_ context.Context, code string) (*models.DiscountRule, error) {
	for _, r := range f.rules {
		if r.CodeMatches(code) {
			return r, nil
		}
	}
	return nil, apperror.NotFound("discount code not found", nil)
}

type fakeSettings struct {
	settings models.CalculatorSettings
}

func (f *fakeSettings) CalculatorSettings(context.Context) (*models.CalculatorSettings, error) {
	s := f.settings
	return &s, nil
}

func euroSettings(mode models.DiscountMode) *fakeSettings {
	return &fakeSettings{settings: models.CalculatorSettings{
		CurrencySymbol:    "€",
		CurrencyPosition:  models.CurrencyAfterSpace,
		DecimalSeparator:  ",",
		ThousandSeparator: ".",
		Decimals:          2,
		DiscountMode:      mode,
	}}
}

func newTestCalculator(rules []*models.DiscountRule, mode models.DiscountMode) *CalculatorService {
	svc := NewCalculatorService(defaultFakeRoomTypes(), &fakeRules{rules: rules}, euroSettings(mode), newTestLogger())
	svc.now = func() time.Time { return testNow }
	return svc
}

func percentRule(name string, value string, priority int) *models.DiscountRule {
	return &models.DiscountRule{
		ID:            uuid.New(),
		RuleName:      name,
		DiscountType:  models.DiscountTypePercentage,
		DiscountValue: dec(value),
		Priority:      priority,
		Active:        true,
	}
}

func fixedRule(name string, value string, priority int) *models.DiscountRule {
	r := percentRule(name, value, priority)
	r.DiscountType = models.DiscountTypeFixed
	return r
}
