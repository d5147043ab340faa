package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"cleaning-calculator/internal/apperror"
	"cleaning-calculator/internal/database"
	"cleaning-calculator/internal/logger"
	"cleaning-calculator/internal/models"

	"github.com/google/uuid"
)

const quoteColumns = `id, client_name, client_email, client_phone, client_address, preferred_date, message, discount_code,
		calculation, subtotal, total_area, discount_amount, total_price, status, ip_address, created_at, updated_at`

// QuoteService управляет заявками клиентов.
type QuoteService struct {
	db         *database.DB
	log        *logger.Logger
	calculator *CalculatorService
	discounts  *DiscountService
	activity   *ActivityService
}

// NewQuoteService создаёт сервис заявок.
func NewQuoteService(db *database.DB, log *logger.Logger, calculator *CalculatorService, discounts *DiscountService, activity *ActivityService) *QuoteService {
	return &QuoteService{
		db:         db,
		log:        log,
		calculator: calculator,
		discounts:  discounts,
		activity:   activity,
	}
}

// CreateQuote пересчитывает стоимость на сервере и сохраняет заявку.
// Счётчики применённых правил увеличиваются в той же транзакции.
func (s *QuoteService) CreateQuote(ctx context.Context, req *models.CreateQuoteRequest) (*models.Quote, error) {
	if req == nil {
		return nil, apperror.Validation("quote is required", nil)
	}
	req.ClientName = strings.TrimSpace(req.ClientName)
	req.ClientEmail = strings.TrimSpace(req.ClientEmail)
	req.ClientPhone = strings.TrimSpace(req.ClientPhone)
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	var code string
	if req.DiscountCode != nil {
		code = strings.TrimSpace(*req.DiscountCode)
	}

	calc, err := s.calculate(ctx, req, code)
	if err != nil {
		return nil, err
	}

	quote, err := s.saveQuote(ctx, req, calc)
	if apperror.Is(err, apperror.KindConflict) {
		// Кеш правил мог отдать устаревший usage_count: сбрасываем его и
		// пересчитываем один раз по свежим данным. Исчерпанное автоматическое
		// правило при этом просто не применится.
		s.discounts.InvalidateCache(ctx)
		s.log.WithError(err).Warn("Discount redemption conflict, recalculating with fresh rules")

		fresh, ferr := s.calculate(ctx, req, code)
		if ferr != nil {
			return nil, ferr
		}
		// Клиент ввёл код и рассчитывал на него: не сохраняем заявку молча без скидки
		if appliedCode(calc) != nil && appliedCode(fresh) == nil {
			return nil, apperror.Conflict("discount code usage limit reached", nil)
		}

		quote, err = s.saveQuote(ctx, req, fresh)
		if apperror.Is(err, apperror.KindConflict) {
			s.discounts.InvalidateCache(ctx)
		}
	}
	if err != nil {
		return nil, err
	}

	s.log.WithFields(map[string]interface{}{
		"quote_id":    quote.ID,
		"client_name": quote.ClientName,
		"total_price": quote.TotalPrice.String(),
		"discounts":   len(quote.Calculation.AppliedDiscounts),
	}).Info("Quote created successfully")

	return quote, nil
}

// calculate считает заявку и отклоняет её, если хотя бы одно помещение не рассчитано.
func (s *QuoteService) calculate(ctx context.Context, req *models.CreateQuoteRequest, code string) (*models.CalculationResult, error) {
	calc, err := s.calculator.CalculateTotal(ctx, req.Rooms, code)
	if err != nil {
		return nil, err
	}
	if len(calc.Errors) > 0 {
		return nil, apperror.ValidationFields("some rooms could not be calculated", RoomErrorFields(calc.Errors))
	}
	return calc, nil
}

// saveQuote в одной транзакции списывает использования правил, сохраняет заявку и пишет журнал.
func (s *QuoteService) saveQuote(ctx context.Context, req *models.CreateQuoteRequest, calc *models.CalculationResult) (*models.Quote, error) {
	now := time.Now()
	quote := &models.Quote{
		ID:             uuid.New(),
		ClientName:     req.ClientName,
		ClientEmail:    req.ClientEmail,
		ClientPhone:    req.ClientPhone,
		ClientAddress:  trimmedOrNil(req.ClientAddress),
		PreferredDate:  req.PreferredDate,
		Message:        trimmedOrNil(req.Message),
		DiscountCode:   appliedCode(calc),
		Calculation:    *calc,
		Subtotal:       calc.Subtotal,
		TotalArea:      calc.TotalArea,
		DiscountAmount: calc.DiscountAmount,
		TotalPrice:     calc.TotalPrice,
		Status:         models.QuoteStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if req.IPAddress != "" {
		ip := req.IPAddress
		quote.IPAddress = &ip
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	ruleIDs := make([]uuid.UUID, 0, len(calc.AppliedDiscounts))
	for _, d := range calc.AppliedDiscounts {
		ruleIDs = append(ruleIDs, d.RuleID)
	}
	if len(ruleIDs) > 0 {
		if err := s.discounts.RedeemWithTx(ctx, tx, ruleIDs); err != nil {
			return nil, err
		}
	}

	query := `
		INSERT INTO hcc_quotes (id, client_name, client_email, client_phone, client_address, preferred_date, message, discount_code,
			calculation, subtotal, total_area, discount_amount, total_price, status, ip_address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	_, err = tx.ExecContext(ctx, query,
		quote.ID, quote.ClientName, quote.ClientEmail, quote.ClientPhone, quote.ClientAddress, quote.PreferredDate, quote.Message, quote.DiscountCode,
		quote.Calculation, quote.Subtotal, quote.TotalArea, quote.DiscountAmount, quote.TotalPrice, quote.Status, quote.IPAddress,
		quote.CreatedAt, quote.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create quote: %w", err)
	}

	if s.activity != nil {
		details := map[string]string{"client_name": quote.ClientName, "total_price": quote.TotalPrice.String()}
		if err := s.activity.Log(ctx, tx, models.ActivityQuoteCreated, "quote", quote.ID.String(), details); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if len(ruleIDs) > 0 {
		s.discounts.InvalidateCache(ctx)
	}
	return quote, nil
}

// appliedCode возвращает промокод, если скидка по нему действительно применена.
func appliedCode(calc *models.CalculationResult) *string {
	for _, d := range calc.AppliedDiscounts {
		if d.Code != nil && *d.Code != "" {
			code := *d.Code
			return &code
		}
	}
	return nil
}

// GetQuote получает заявку по ID
func (s *QuoteService) GetQuote(ctx context.Context, id uuid.UUID) (*models.Quote, error) {
	query := "SELECT " + quoteColumns + " FROM hcc_quotes WHERE id = $1"
	quote, err := scanQuote(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("quote not found", err)
		}
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}
	return quote, nil
}

// ListQuotes получает список заявок с фильтрацией по статусу
func (s *QuoteService) ListQuotes(ctx context.Context, filter models.QuoteFilter) ([]*models.Quote, error) {
	query := "SELECT " + quoteColumns + " FROM hcc_quotes WHERE 1=1"
	args := []interface{}{}
	argIndex := 1

	if filter.Status != nil {
		if !filter.Status.Valid() {
			return nil, apperror.ValidationFields("invalid status", map[string]string{"status": "must be one of: pending, approved, rejected"})
		}
		query += fmt.Sprintf(" AND status = $%d", argIndex)
		args = append(args, *filter.Status)
		argIndex++
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, filter.Limit)
		argIndex++
	}

	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIndex)
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get quotes: %w", err)
	}
	defer rows.Close()

	quotes := []*models.Quote{}
	for rows.Next() {
		quote, err := scanQuote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan quote: %w", err)
		}
		quotes = append(quotes, quote)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate quotes: %w", err)
	}

	return quotes, nil
}

// UpdateQuoteStatus меняет статус заявки. Переходы не ограничены.
func (s *QuoteService) UpdateQuoteStatus(ctx context.Context, id uuid.UUID, req *models.UpdateQuoteStatusRequest) (*models.QuoteStatusChangedData, error) {
	if req == nil {
		return nil, apperror.Validation("status is required", nil)
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var current models.QuoteStatus
	selectQuery := `
		SELECT status
		FROM hcc_quotes
		WHERE id = $1
		FOR UPDATE
	`
	if err := tx.QueryRowContext(ctx, selectQuery, id).Scan(&current); err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("quote not found", err)
		}
		return nil, fmt.Errorf("failed to fetch quote status: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "UPDATE hcc_quotes SET status = $1, updated_at = $2 WHERE id = $3", req.Status, time.Now(), id); err != nil {
		return nil, fmt.Errorf("failed to update quote status: %w", err)
	}

	change := &models.QuoteStatusChangedData{QuoteID: id, OldStatus: current, NewStatus: req.Status}
	if s.activity != nil {
		if err := s.activity.Log(ctx, tx, models.ActivityQuoteStatusChanged, "quote", id.String(), change); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit quote status update: %w", err)
	}

	s.log.WithFields(map[string]interface{}{
		"quote_id":   id,
		"old_status": current,
		"new_status": req.Status,
	}).Info("Quote status updated")

	return change, nil
}

// DeleteQuote удаляет заявку
func (s *QuoteService) DeleteQuote(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM hcc_quotes WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete quote: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("quote not found", nil)
	}

	s.activity.record(ctx, models.ActivityQuoteDeleted, "quote", id.String(), nil)
	s.log.WithField("quote_id", id).Info("Quote deleted")
	return nil
}

func scanQuote(row rowScanner) (*models.Quote, error) {
	q := &models.Quote{}
	err := row.Scan(
		&q.ID, &q.ClientName, &q.ClientEmail, &q.ClientPhone, &q.ClientAddress, &q.PreferredDate, &q.Message, &q.DiscountCode,
		&q.Calculation, &q.Subtotal, &q.TotalArea, &q.DiscountAmount, &q.TotalPrice, &q.Status, &q.IPAddress, &q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return q, nil
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
