package handlers

import (
	"context"
	"time"

	"cleaning-calculator/internal/models"

	"github.com/google/uuid"
)

// ----- Calculator -----

type Calculator interface {
	Calculate(ctx context.Context, req *models.CalculateRequest) (*models.CalculationResult, error)
	ValidateCode(ctx context.Context, code string, rooms []models.RoomInput) (*models.CodeValidation, error)
}

type RoomTypeService interface {
	ListRoomTypes(ctx context.Context, onlyActive bool) ([]models.RoomType, error)
	SaveRoomTypes(ctx context.Context, list []models.RoomType) ([]models.RoomType, error)
	DeleteRoomType(ctx context.Context, id string) error
}

// ----- Discounts -----

type DiscountService interface {
	CreateRule(ctx context.Context, req *models.DiscountRuleRequest) (*models.DiscountRule, error)
	UpdateRule(ctx context.Context, id uuid.UUID, req *models.DiscountRuleRequest) (*models.DiscountRule, error)
	DeleteRule(ctx context.Context, id uuid.UUID) error
	GetRule(ctx context.Context, id uuid.UUID) (*models.DiscountRule, error)
	ListRules(ctx context.Context, limit, offset int) ([]*models.DiscountRule, error)
	ExportRules(ctx context.Context) ([]models.ExportedDiscountRule, error)
	ImportRules(ctx context.Context, items []models.ExportedDiscountRule) ([]*models.DiscountRule, error)
}

// ----- Quotes -----

type QuoteService interface {
	CreateQuote(ctx context.Context, req *models.CreateQuoteRequest) (*models.Quote, error)
	GetQuote(ctx context.Context, id uuid.UUID) (*models.Quote, error)
	ListQuotes(ctx context.Context, filter models.QuoteFilter) ([]*models.Quote, error)
	UpdateQuoteStatus(ctx context.Context, id uuid.UUID, req *models.UpdateQuoteStatusRequest) (*models.QuoteStatusChangedData, error)
	DeleteQuote(ctx context.Context, id uuid.UUID) error
}

type EventProducer interface {
	PublishQuoteCreated(quote *models.Quote) error
	PublishQuoteStatusChanged(change *models.QuoteStatusChangedData) error
	PublishQuoteDeleted(quoteID uuid.UUID) error
}

type QuoteStatsProvider interface {
	QuoteStats(ctx context.Context, from, to time.Time) (*models.QuoteStats, error)
}

// ----- Settings / activity / notifications -----

type SettingsService interface {
	CalculatorSettings(ctx context.Context) (*models.CalculatorSettings, error)
	SaveCalculatorSettings(ctx context.Context, settings *models.CalculatorSettings) (*models.CalculatorSettings, error)
	Group(ctx context.Context, group string) (map[string]string, error)
	SaveGroup(ctx context.Context, group string, values map[string]string) (map[string]string, error)
}

type ActivityLog interface {
	List(ctx context.Context, limit, offset int) ([]*models.ActivityEntry, error)
}

type NotificationTester interface {
	Channels() []string
	Test(ctx context.Context, channel string) error
}

// ----- Health -----

type DBHealth interface {
	Health() error
}

type RedisHealth interface {
	Health(ctx context.Context) error
}
