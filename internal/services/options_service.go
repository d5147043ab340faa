package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"cleaning-calculator/internal/database"
	"cleaning-calculator/internal/logger"
	"cleaning-calculator/internal/redis"
)

const defaultOptionsTTL = time.Hour

// OptionsService: хранилище именованных JSON настроек (таблица hcc_options)
// с кешированием в Redis.
type OptionsService struct {
	db    *database.DB
	redis *redis.Client
	log   *logger.Logger
	ttl   time.Duration
}

// NewOptionsService создаёт хранилище настроек. redisClient может быть nil.
func NewOptionsService(db *database.DB, redisClient *redis.Client, log *logger.Logger, ttl time.Duration) *OptionsService {
	if ttl <= 0 {
		ttl = defaultOptionsTTL
	}
	return &OptionsService{
		db:    db,
		redis: redisClient,
		log:   log,
		ttl:   ttl,
	}
}

// Get читает настройку в dest. found=false, если настройка не сохранена.
func (s *OptionsService) Get(ctx context.Context, name string, dest interface{}) (bool, error) {
	key := redis.GenerateKey(redis.KeyPrefixOption, name)
	if s.redis != nil {
		if err := s.redis.Get(ctx, key, dest); err == nil {
			return true, nil
		}
	}

	var raw []byte
	err := s.db.QueryRowContext(ctx, "SELECT value FROM hcc_options WHERE name = $1", name).Scan(&raw)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("failed to get option %s: %w", name, err)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("failed to decode option %s: %w", name, err)
	}

	if s.redis != nil {
		if err := s.redis.Set(ctx, key, json.RawMessage(raw), s.ttl); err != nil {
			s.log.WithError(err).WithField("option", name).Warn("Failed to cache option")
		}
	}
	return true, nil
}

// Set сохраняет настройку (upsert) и сбрасывает кеш.
func (s *OptionsService) Set(ctx context.Context, name string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode option %s: %w", name, err)
	}

	query := `
		INSERT INTO hcc_options (name, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, name, string(data), time.Now()); err != nil {
		return fmt.Errorf("failed to save option %s: %w", name, err)
	}

	s.invalidate(ctx, name)
	return nil
}

// Delete удаляет настройку.
func (s *OptionsService) Delete(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM hcc_options WHERE name = $1", name); err != nil {
		return fmt.Errorf("failed to delete option %s: %w", name, err)
	}
	s.invalidate(ctx, name)
	return nil
}

func (s *OptionsService) invalidate(ctx context.Context, name string) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Delete(ctx, redis.GenerateKey(redis.KeyPrefixOption, name)); err != nil {
		s.log.WithError(err).WithField("option", name).Warn("Failed to invalidate option cache")
	}
}
