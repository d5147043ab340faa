package services

import (
	"context"
	"fmt"
	"time"

	"cleaning-calculator/internal/apperror"
	"cleaning-calculator/internal/config"
	"cleaning-calculator/internal/database"
	"cleaning-calculator/internal/logger"
	"cleaning-calculator/internal/models"
	"cleaning-calculator/internal/redis"

	"github.com/shopspring/decimal"
)

const (
	defaultStatsCacheTTL = 10 * time.Minute
	defaultStatsRange    = 30 * 24 * time.Hour
)

// QuoteStatsService агрегирует заявки за период и кеширует результат.
type QuoteStatsService struct {
	db       *database.DB
	redis    *redis.Client
	log      *logger.Logger
	cacheTTL time.Duration
	maxRange time.Duration
	now      func() time.Time
}

// NewQuoteStatsService создаёт сервис статистики.
func NewQuoteStatsService(db *database.DB, redisClient *redis.Client, log *logger.Logger, cfg *config.StatsConfig) *QuoteStatsService {
	cacheTTL := defaultStatsCacheTTL
	maxRange := 365 * 24 * time.Hour

	if cfg != nil {
		if cfg.CacheTTLMinutes > 0 {
			cacheTTL = time.Duration(cfg.CacheTTLMinutes) * time.Minute
		}
		if cfg.MaxRangeDays > 0 {
			maxRange = time.Duration(cfg.MaxRangeDays) * 24 * time.Hour
		}
	}

	return &QuoteStatsService{
		db:       db,
		redis:    redisClient,
		log:      log,
		cacheTTL: cacheTTL,
		maxRange: maxRange,
		now:      time.Now,
	}
}

// QuoteStats возвращает число заявок по статусам, сумму и средний чек.
// Нулевые from/to означают последние 30 дней.
func (s *QuoteStatsService) QuoteStats(ctx context.Context, from, to time.Time) (*models.QuoteStats, error) {
	if to.IsZero() {
		to = s.now()
	}
	if from.IsZero() {
		from = to.Add(-defaultStatsRange)
	}
	if from.After(to) {
		return nil, apperror.ValidationFields("invalid period", map[string]string{"from": "must not be after to"})
	}
	if to.Sub(from) > s.maxRange {
		return nil, apperror.ValidationFields("invalid period", map[string]string{"to": fmt.Sprintf("period must not exceed %d days", int(s.maxRange.Hours()/24))})
	}

	cacheKey := redis.GenerateKey(redis.KeyPrefixStats, fmt.Sprintf("quotes:%d:%d", from.Unix(), to.Unix()))

	var cached models.QuoteStats
	if s.tryGetFromCache(ctx, cacheKey, &cached) {
		return &cached, nil
	}

	query := `
		SELECT status,
		       COUNT(*) AS quotes_count,
		       COALESCE(SUM(total_price), 0) AS total_value,
		       COALESCE(SUM(total_area), 0) AS total_area
		FROM hcc_quotes
		WHERE created_at BETWEEN $1 AND $2
		GROUP BY status
	`
	rows, err := s.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load quote stats: %w", err)
	}
	defer rows.Close()

	stats := &models.QuoteStats{
		From: from,
		To:   to,
		ByStatus: map[models.QuoteStatus]int{
			models.QuoteStatusPending:  0,
			models.QuoteStatusApproved: 0,
			models.QuoteStatusRejected: 0,
		},
		TotalValue:    decimal.Zero,
		AverageValue:  decimal.Zero,
		ApprovedValue: decimal.Zero,
		TotalArea:     decimal.Zero,
	}

	for rows.Next() {
		var (
			status models.QuoteStatus
			count  int
			value  decimal.Decimal
			area   decimal.Decimal
		)
		if err := rows.Scan(&status, &count, &value, &area); err != nil {
			return nil, fmt.Errorf("failed to scan quote stats: %w", err)
		}
		stats.ByStatus[status] = count
		stats.TotalQuotes += count
		stats.TotalValue = stats.TotalValue.Add(value)
		stats.TotalArea = stats.TotalArea.Add(area)
		if status == models.QuoteStatusApproved {
			stats.ApprovedValue = value
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate quote stats: %w", err)
	}

	if stats.TotalQuotes > 0 {
		stats.AverageValue = stats.TotalValue.Div(decimal.NewFromInt(int64(stats.TotalQuotes))).Round(2)
	}
	stats.GeneratedAt = s.now()

	s.saveToCache(ctx, cacheKey, stats)
	return stats, nil
}

func (s *QuoteStatsService) tryGetFromCache(ctx context.Context, key string, dest interface{}) bool {
	if s.redis == nil {
		return false
	}

	if err := s.redis.Get(ctx, key, dest); err != nil {
		return false
	}
	return true
}

func (s *QuoteStatsService) saveToCache(ctx context.Context, key string, value interface{}) {
	if s.redis == nil {
		return
	}

	if err := s.redis.Set(ctx, key, value, s.cacheTTL); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("Failed to cache quote stats")
	}
}

// InvalidateCache сбрасывает все закешированные периоды статистики.
func (s *QuoteStatsService) InvalidateCache(ctx context.Context) {
	if s.redis == nil {
		return
	}
	if err := s.redis.DeleteByPrefix(ctx, redis.KeyPrefixStats); err != nil {
		s.log.WithError(err).Warn("Failed to invalidate quote stats cache")
	}
}
