package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"cleaning-calculator/internal/database"
	"cleaning-calculator/internal/logger"
	"cleaning-calculator/internal/models"

	"github.com/google/uuid"
)

// execer выполняет запрос; реализуется *database.DB и *sql.Tx
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// ActivityService ведёт журнал действий (hcc_activity_log).
type ActivityService struct {
	db  *database.DB
	log *logger.Logger
}

// NewActivityService создаёт сервис журнала.
func NewActivityService(db *database.DB, log *logger.Logger) *ActivityService {
	return &ActivityService{db: db, log: log}
}

// Log записывает действие. exec позволяет писать в рамках транзакции, при nil запись идёт напрямую в БД.
func (s *ActivityService) Log(ctx context.Context, exec execer, action, objectType, objectID string, details interface{}) error {
	if exec == nil {
		exec = s.db
	}

	payload := []byte("{}")
	if details != nil {
		data, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("failed to encode activity details: %w", err)
		}
		payload = data
	}

	query := `
		INSERT INTO hcc_activity_log (id, action, object_type, object_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := exec.ExecContext(ctx, query, uuid.New(), action, objectType, objectID, string(payload), time.Now()); err != nil {
		return fmt.Errorf("failed to write activity log: %w", err)
	}
	return nil
}

// record пишет действие вне транзакции; ошибка только логируется.
func (s *ActivityService) record(ctx context.Context, action, objectType, objectID string, details interface{}) {
	if s == nil {
		return
	}
	if err := s.Log(ctx, nil, action, objectType, objectID, details); err != nil {
		s.log.WithError(err).WithField("action", action).Warn("Failed to record activity")
	}
}

// List возвращает последние записи журнала.
func (s *ActivityService) List(ctx context.Context, limit, offset int) ([]*models.ActivityEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, action, object_type, object_id, details, created_at
		FROM hcc_activity_log
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	defer rows.Close()

	entries := []*models.ActivityEntry{}
	for rows.Next() {
		e := &models.ActivityEntry{}
		var details []byte
		if err := rows.Scan(&e.ID, &e.Action, &e.ObjectType, &e.ObjectID, &details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity entry: %w", err)
		}
		if len(details) > 0 {
			e.Details = json.RawMessage(details)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate activity: %w", err)
	}

	return entries, nil
}
