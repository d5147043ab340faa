package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cleaning-calculator/internal/config"
	"cleaning-calculator/internal/logger"

	_ "github.com/lib/pq"
)

// DB оборачивает пул соединений с PostgreSQL
type DB struct {
	*sql.DB
}

// Connect создает подключение к базе данных
func Connect(cfg *config.DatabaseConfig, log *logger.Logger) (*DB, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info("Successfully connected to database")

	return &DB{DB: sqlDB}, nil
}

// Close закрывает подключение к базе данных
func (db *DB) Close() error {
	if db == nil || db.DB == nil {
		return nil
	}
	return db.DB.Close()
}

// Health проверяет доступность базы данных
func (db *DB) Health() error {
	if db == nil || db.DB == nil {
		return errors.New("database is not initialized")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}

// schema описывает таблицы сервиса (создаются при старте, идемпотентно)
var schema = []string{
	`CREATE TABLE IF NOT EXISTS hcc_options (
		name       VARCHAR(191) PRIMARY KEY,
		value      JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS hcc_discount_rules (
		id             UUID PRIMARY KEY,
		rule_name      VARCHAR(255) NOT NULL,
		discount_type  VARCHAR(20) NOT NULL,
		discount_value NUMERIC(12,2) NOT NULL DEFAULT 0,
		conditions     JSONB NOT NULL DEFAULT '{}'::jsonb,
		date_start     DATE,
		date_end       DATE,
		days_of_week   JSONB NOT NULL DEFAULT '[]'::jsonb,
		priority       INTEGER NOT NULL DEFAULT 0,
		stackable      BOOLEAN NOT NULL DEFAULT FALSE,
		discount_code  VARCHAR(64) UNIQUE,
		usage_limit    INTEGER,
		usage_count    INTEGER NOT NULL DEFAULT 0,
		active         BOOLEAN NOT NULL DEFAULT TRUE,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_hcc_discount_rules_active ON hcc_discount_rules (active, priority DESC)`,
	`CREATE TABLE IF NOT EXISTS hcc_quotes (
		id              UUID PRIMARY KEY,
		client_name     VARCHAR(255) NOT NULL,
		client_email    VARCHAR(255) NOT NULL,
		client_phone    VARCHAR(64) NOT NULL,
		client_address  TEXT,
		preferred_date  DATE,
		message         TEXT,
		discount_code   VARCHAR(64),
		calculation     JSONB NOT NULL,
		subtotal        NUMERIC(12,2) NOT NULL,
		total_area      NUMERIC(12,2) NOT NULL,
		discount_amount NUMERIC(12,2) NOT NULL DEFAULT 0,
		total_price     NUMERIC(12,2) NOT NULL,
		status          VARCHAR(20) NOT NULL DEFAULT 'pending',
		ip_address      VARCHAR(64),
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_hcc_quotes_status ON hcc_quotes (status, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS hcc_activity_log (
		id          UUID PRIMARY KEY,
		action      VARCHAR(64) NOT NULL,
		object_type VARCHAR(64) NOT NULL,
		object_id   VARCHAR(191) NOT NULL,
		details     JSONB NOT NULL DEFAULT '{}'::jsonb,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// Migrate создает таблицы, если их ещё нет
func (db *DB) Migrate(ctx context.Context, log *logger.Logger) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement %d: %w", i, err)
		}
	}
	log.WithField("statements", len(schema)).Info("Database schema is up to date")
	return nil
}
