package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"cleaning-calculator/internal/config"
	"cleaning-calculator/internal/logger"
	"cleaning-calculator/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const testAdminToken = "admin-secret"

func newTestLogger() *logger.Logger {
	return logger.New(&config.LoggerConfig{Level: "error", Format: "json"})
}

type stubCalculator struct {
	result     *models.CalculationResult
	validation *models.CodeValidation
	err        error
	gotReq     *models.CalculateRequest
	gotCode    string
}

func (s *stubCalculator) Calculate(ctx context.Context, req *models.CalculateRequest) (*models.CalculationResult, error) {
	s.gotReq = req
	return s.result, s.err
}

func (s *stubCalculator) ValidateCode(ctx context.Context, code string, rooms []models.RoomInput) (*models.CodeValidation, error) {
	s.gotCode = code
	return s.validation, s.err
}

type stubRoomTypes struct {
	list       []models.RoomType
	err        error
	onlyActive bool
	saved      []models.RoomType
	deletedID  string
}

func (s *stubRoomTypes) ListRoomTypes(ctx context.Context, onlyActive bool) ([]models.RoomType, error) {
	s.onlyActive = onlyActive
	return s.list, s.err
}

func (s *stubRoomTypes) SaveRoomTypes(ctx context.Context, list []models.RoomType) ([]models.RoomType, error) {
	s.saved = list
	return list, s.err
}

func (s *stubRoomTypes) DeleteRoomType(ctx context.Context, id string) error {
	s.deletedID = id
	return s.err
}

type stubDiscounts struct {
	rule     *models.DiscountRule
	rules    []*models.DiscountRule
	exported []models.ExportedDiscountRule
	imported []models.ExportedDiscountRule
	err      error
}

func (s *stubDiscounts) CreateRule(ctx context.Context, req *models.DiscountRuleRequest) (*models.DiscountRule, error) {
	return s.rule, s.err
}
func (s *stubDiscounts) UpdateRule(ctx context.Context, id uuid.UUID, req *models.DiscountRuleRequest) (*models.DiscountRule, error) {
	return s.rule, s.err
}
func (s *stubDiscounts) DeleteRule(ctx context.Context, id uuid.UUID) error { return s.err }
func (s *stubDiscounts) GetRule(ctx context.Context, id uuid.UUID) (*models.DiscountRule, error) {
	return s.rule, s.err
}
func (s *stubDiscounts) ListRules(ctx context.Context, limit, offset int) ([]*models.DiscountRule, error) {
	return s.rules, s.err
}
func (s *stubDiscounts) ExportRules(ctx context.Context) ([]models.ExportedDiscountRule, error) {
	return s.exported, s.err
}
func (s *stubDiscounts) ImportRules(ctx context.Context, items []models.ExportedDiscountRule) ([]*models.DiscountRule, error) {
	s.imported = items
	return s.rules, s.err
}

type stubQuotes struct {
	quote     *models.Quote
	quotes    []*models.Quote
	change    *models.QuoteStatusChangedData
	err       error
	gotReq    *models.CreateQuoteRequest
	gotFilter models.QuoteFilter
	deletedID uuid.UUID
}

func (s *stubQuotes) CreateQuote(ctx context.Context, req *models.CreateQuoteRequest) (*models.Quote, error) {
	s.gotReq = req
	return s.quote, s.err
}
func (s *stubQuotes) GetQuote(ctx context.Context, id uuid.UUID) (*models.Quote, error) {
	return s.quote, s.err
}
func (s *stubQuotes) ListQuotes(ctx context.Context, filter models.QuoteFilter) ([]*models.Quote, error) {
	s.gotFilter = filter
	return s.quotes, s.err
}
func (s *stubQuotes) UpdateQuoteStatus(ctx context.Context, id uuid.UUID, req *models.UpdateQuoteStatusRequest) (*models.QuoteStatusChangedData, error) {
	return s.change, s.err
}
func (s *stubQuotes) DeleteQuote(ctx context.Context, id uuid.UUID) error {
	s.deletedID = id
	return s.err
}

type stubProducer struct {
	created, changed, deleted int
	err                       error
}

func (p *stubProducer) PublishQuoteCreated(quote *models.Quote) error {
	p.created++
	return p.err
}
func (p *stubProducer) PublishQuoteStatusChanged(change *models.QuoteStatusChangedData) error {
	p.changed++
	return p.err
}
func (p *stubProducer) PublishQuoteDeleted(quoteID uuid.UUID) error {
	p.deleted++
	return p.err
}

type stubStats struct {
	stats    *models.QuoteStats
	err      error
	from, to time.Time
}

func (s *stubStats) QuoteStats(ctx context.Context, from, to time.Time) (*models.QuoteStats, error) {
	s.from, s.to = from, to
	return s.stats, s.err
}

type stubSettings struct {
	settings *models.CalculatorSettings
	values   map[string]string
	group    string
	err      error
}

func (s *stubSettings) CalculatorSettings(ctx context.Context) (*models.CalculatorSettings, error) {
	return s.settings, s.err
}
func (s *stubSettings) SaveCalculatorSettings(ctx context.Context, settings *models.CalculatorSettings) (*models.CalculatorSettings, error) {
	return settings, s.err
}
func (s *stubSettings) Group(ctx context.Context, group string) (map[string]string, error) {
	s.group = group
	return s.values, s.err
}
func (s *stubSettings) SaveGroup(ctx context.Context, group string, values map[string]string) (map[string]string, error) {
	s.group = group
	return values, s.err
}

type stubActivity struct {
	entries       []*models.ActivityEntry
	limit, offset int
}

func (s *stubActivity) List(ctx context.Context, limit, offset int) ([]*models.ActivityEntry, error) {
	s.limit, s.offset = limit, offset
	return s.entries, nil
}

type stubNotifier struct {
	channels []string
	tested   string
	err      error
}

func (s *stubNotifier) Channels() []string { return s.channels }
func (s *stubNotifier) Test(ctx context.Context, channel string) error {
	s.tested = channel
	return s.err
}

type testDeps struct {
	calculator *stubCalculator
	roomTypes  *stubRoomTypes
	discounts  *stubDiscounts
	quotes     *stubQuotes
	producer   *stubProducer
	stats      *stubStats
	settings   *stubSettings
	activity   *stubActivity
	notifier   *stubNotifier

	quoteLimiter MiddlewareLimiter
}

func newTestDeps() *testDeps {
	return &testDeps{
		calculator: &stubCalculator{},
		roomTypes:  &stubRoomTypes{},
		discounts:  &stubDiscounts{},
		quotes:     &stubQuotes{},
		producer:   &stubProducer{},
		stats:      &stubStats{},
		settings:   &stubSettings{},
		activity:   &stubActivity{},
		notifier:   &stubNotifier{},
	}
}

func (d *testDeps) router(t *testing.T) http.Handler {
	t.Helper()
	log := newTestLogger()

	h := &Handlers{
		Calculator:    NewCalculatorHandler(d.calculator, d.roomTypes, log),
		RoomTypes:     NewRoomTypeHandler(d.roomTypes, log),
		Discounts:     NewDiscountHandler(d.discounts, log),
		Quotes:        NewQuoteHandler(d.quotes, d.producer, log),
		Stats:         NewStatsHandler(d.stats, log),
		Settings:      NewSettingsHandler(d.settings, log),
		Activity:      NewActivityHandler(d.activity, log),
		Notifications: NewNotificationHandler(d.notifier, log),
		Health:        NewHealthHandler(&stubDB{}, &stubRedisHealth{}, nil, func([]string) error { return nil }),
		RateLimit:     NewRateLimitHandler(nil, nil, log, &config.RateLimitConfig{}),
	}

	return NewRouter(h, RouterConfig{AdminToken: testAdminToken, QuoteLimiter: d.quoteLimiter}, log)
}

func sampleQuote() *models.Quote {
	ip := "203.0.113.5"
	return &models.Quote{
		ID:          uuid.New(),
		ClientName:  "Ana",
		ClientEmail: "ana@example.com",
		ClientPhone: "+34 600 000 000",
		Subtotal:    decimal.RequireFromString("205"),
		TotalPrice:  decimal.RequireFromString("179.50"),
		Status:      models.QuoteStatusPending,
		IPAddress:   &ip,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
}
