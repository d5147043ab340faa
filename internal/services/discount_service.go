package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"cleaning-calculator/internal/apperror"
	"cleaning-calculator/internal/database"
	"cleaning-calculator/internal/logger"
	"cleaning-calculator/internal/models"
	"cleaning-calculator/internal/redis"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const defaultRulesCacheTTL = time.Hour

const ruleColumns = `id, rule_name, discount_type, discount_value, conditions, date_start, date_end, days_of_week,
		priority, stackable, discount_code, usage_limit, usage_count, active, created_at, updated_at`

// DiscountService управляет правилами скидок и учётом их использования.
type DiscountService struct {
	db       *database.DB
	redis    *redis.Client
	activity *ActivityService
	log      *logger.Logger
	cacheTTL time.Duration
}

// NewDiscountService создаёт сервис правил скидок. redisClient может быть nil.
func NewDiscountService(db *database.DB, redisClient *redis.Client, activity *ActivityService, log *logger.Logger, cacheTTL time.Duration) *DiscountService {
	if cacheTTL <= 0 {
		cacheTTL = defaultRulesCacheTTL
	}
	return &DiscountService{
		db:       db,
		redis:    redisClient,
		activity: activity,
		log:      log,
		cacheTTL: cacheTTL,
	}
}

// CreateRule создаёт правило скидки.
func (s *DiscountService) CreateRule(ctx context.Context, req *models.DiscountRuleRequest) (*models.DiscountRule, error) {
	if err := validateRulePayload(req); err != nil {
		return nil, err
	}

	now := time.Now()
	rule := ruleFromRequest(req)
	rule.ID = uuid.New()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	if err := s.insertRule(ctx, s.db, rule); err != nil {
		return nil, err
	}

	s.InvalidateCache(ctx)
	s.activity.record(ctx, models.ActivityRuleSaved, "discount_rule", rule.ID.String(), map[string]string{"rule_name": rule.RuleName})
	s.log.WithFields(map[string]interface{}{
		"rule_id":   rule.ID,
		"rule_name": rule.RuleName,
	}).Info("Discount rule created")

	return rule, nil
}

func (s *DiscountService) insertRule(ctx context.Context, exec execer, rule *models.DiscountRule) error {
	query := `
		INSERT INTO hcc_discount_rules (id, rule_name, discount_type, discount_value, conditions, date_start, date_end, days_of_week,
			priority, stackable, discount_code, usage_limit, usage_count, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err := exec.ExecContext(ctx, query,
		rule.ID, rule.RuleName, rule.DiscountType, rule.DiscountValue, rule.Conditions, rule.DateStart, rule.DateEnd, rule.DaysOfWeek,
		rule.Priority, rule.Stackable, rule.DiscountCode, rule.UsageLimit, rule.UsageCount, rule.Active, rule.CreatedAt, rule.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("discount code already exists", err)
		}
		return fmt.Errorf("failed to create discount rule: %w", err)
	}
	return nil
}

// UpdateRule обновляет правило; счётчик использования сохраняется.
func (s *DiscountService) UpdateRule(ctx context.Context, id uuid.UUID, req *models.DiscountRuleRequest) (*models.DiscountRule, error) {
	if err := validateRulePayload(req); err != nil {
		return nil, err
	}

	rule := ruleFromRequest(req)
	query := `
		UPDATE hcc_discount_rules
		SET rule_name = $1, discount_type = $2, discount_value = $3, conditions = $4, date_start = $5, date_end = $6,
			days_of_week = $7, priority = $8, stackable = $9, discount_code = $10, usage_limit = $11, active = $12, updated_at = $13
		WHERE id = $14
	`
	result, err := s.db.ExecContext(ctx, query,
		rule.RuleName, rule.DiscountType, rule.DiscountValue, rule.Conditions, rule.DateStart, rule.DateEnd,
		rule.DaysOfWeek, rule.Priority, rule.Stackable, rule.DiscountCode, rule.UsageLimit, rule.Active, time.Now(), id)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperror.Conflict("discount code already exists", err)
		}
		return nil, fmt.Errorf("failed to update discount rule: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return nil, apperror.NotFound("discount rule not found", nil)
	}

	s.InvalidateCache(ctx)
	s.activity.record(ctx, models.ActivityRuleSaved, "discount_rule", id.String(), map[string]string{"rule_name": rule.RuleName})

	return s.GetRule(ctx, id)
}

// DeleteRule удаляет правило.
func (s *DiscountService) DeleteRule(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM hcc_discount_rules WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete discount rule: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("discount rule not found", nil)
	}

	s.InvalidateCache(ctx)
	s.activity.record(ctx, models.ActivityRuleDeleted, "discount_rule", id.String(), nil)
	s.log.WithField("rule_id", id).Info("Discount rule deleted")
	return nil
}

// GetRule возвращает правило по id.
func (s *DiscountService) GetRule(ctx context.Context, id uuid.UUID) (*models.DiscountRule, error) {
	query := "SELECT " + ruleColumns + " FROM hcc_discount_rules WHERE id = $1"
	rule, err := scanRule(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("discount rule not found", err)
		}
		return nil, fmt.Errorf("failed to get discount rule: %w", err)
	}
	return rule, nil
}

// GetRuleByCode ищет правило по промокоду без учёта регистра.
func (s *DiscountService) GetRuleByCode(ctx context.Context, code string) (*models.DiscountRule, error) {
	query := "SELECT " + ruleColumns + " FROM hcc_discount_rules WHERE UPPER(discount_code) = $1"
	rule, err := scanRule(s.db.QueryRowContext(ctx, query, normalizeCode(code)))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("discount code not found", err)
		}
		return nil, fmt.Errorf("failed to get discount rule by code: %w", err)
	}
	return rule, nil
}

// ListRules возвращает правила по приоритету.
func (s *DiscountService) ListRules(ctx context.Context, limit, offset int) ([]*models.DiscountRule, error) {
	if limit <= 0 {
		limit = 50
	}
	query := "SELECT " + ruleColumns + `
		FROM hcc_discount_rules
		ORDER BY priority DESC, created_at ASC
		LIMIT $1 OFFSET $2
	`
	return s.queryRules(ctx, query, limit, offset)
}

// ActiveRules возвращает активные правила (priority DESC, затем по дате создания).
// Результат кешируется в Redis и сбрасывается при любом изменении правил.
func (s *DiscountService) ActiveRules(ctx context.Context) ([]*models.DiscountRule, error) {
	key := redis.GenerateKey(redis.KeyPrefixDiscountRules, "active")
	if s.redis != nil {
		var cached []*models.DiscountRule
		if err := s.redis.Get(ctx, key, &cached); err == nil {
			return cached, nil
		}
	}

	query := "SELECT " + ruleColumns + `
		FROM hcc_discount_rules
		WHERE active = TRUE
		ORDER BY priority DESC, created_at ASC
	`
	rules, err := s.queryRules(ctx, query)
	if err != nil {
		return nil, err
	}

	if s.redis != nil {
		if err := s.redis.Set(ctx, key, rules, s.cacheTTL); err != nil {
			s.log.WithError(err).Warn("Failed to cache active discount rules")
		}
	}
	return rules, nil
}

// RedeemWithTx увеличивает счётчик использования правил в рамках транзакции.
// Обновление атомарно проверяет лимит; если лимит исчерпан, возвращается Conflict.
func (s *DiscountService) RedeemWithTx(ctx context.Context, tx *sql.Tx, ruleIDs []uuid.UUID) error {
	query := `
		UPDATE hcc_discount_rules
		SET usage_count = usage_count + 1, updated_at = $1
		WHERE id = $2 AND (usage_limit IS NULL OR usage_limit = 0 OR usage_count < usage_limit)
	`
	for _, id := range ruleIDs {
		result, err := tx.ExecContext(ctx, query, time.Now(), id)
		if err != nil {
			return fmt.Errorf("failed to update discount usage: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			return apperror.Conflict("discount usage limit reached", nil)
		}
	}
	return nil
}

// ExportRules выгружает все правила без id и счётчика использования.
func (s *DiscountService) ExportRules(ctx context.Context) ([]models.ExportedDiscountRule, error) {
	query := "SELECT " + ruleColumns + " FROM hcc_discount_rules ORDER BY priority DESC, created_at ASC"
	rules, err := s.queryRules(ctx, query)
	if err != nil {
		return nil, err
	}

	exported := make([]models.ExportedDiscountRule, 0, len(rules))
	for _, r := range rules {
		exported = append(exported, models.ExportedDiscountRule{
			RuleName:      r.RuleName,
			DiscountType:  r.DiscountType,
			DiscountValue: r.DiscountValue,
			Conditions:    r.Conditions,
			DateStart:     r.DateStart,
			DateEnd:       r.DateEnd,
			DaysOfWeek:    r.DaysOfWeek,
			Priority:      r.Priority,
			Stackable:     r.Stackable,
			DiscountCode:  r.DiscountCode,
			UsageLimit:    r.UsageLimit,
		})
	}
	return exported, nil
}

// ImportRules создаёт правила из экспорта в одной транзакции.
// Импортированные правила неактивны и имеют нулевой счётчик использования.
func (s *DiscountService) ImportRules(ctx context.Context, items []models.ExportedDiscountRule) ([]*models.DiscountRule, error) {
	if len(items) == 0 {
		return nil, apperror.Validation("nothing to import", nil)
	}

	var fields map[string]string
	rules := make([]*models.DiscountRule, 0, len(items))
	now := time.Now()
	for i, item := range items {
		req := &models.DiscountRuleRequest{
			RuleName:      item.RuleName,
			DiscountType:  item.DiscountType,
			DiscountValue: item.DiscountValue,
			Conditions:    item.Conditions,
			DateStart:     item.DateStart,
			DateEnd:       item.DateEnd,
			DaysOfWeek:    item.DaysOfWeek,
			Priority:      item.Priority,
			Stackable:     item.Stackable,
			DiscountCode:  item.DiscountCode,
			UsageLimit:    item.UsageLimit,
			Active:        false,
		}
		if err := validateRulePayload(req); err != nil {
			fields = mergeFields(fields, apperror.FieldsOf(err), fmt.Sprintf("rules[%d].", i))
			continue
		}

		rule := ruleFromRequest(req)
		rule.ID = uuid.New()
		rule.CreatedAt = now
		rule.UpdatedAt = now
		rules = append(rules, rule)
	}
	if len(fields) > 0 {
		return nil, apperror.ValidationFields("invalid discount rules", fields)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, rule := range rules {
		if err := s.insertRule(ctx, tx, rule); err != nil {
			return nil, err
		}
	}
	if s.activity != nil {
		if err := s.activity.Log(ctx, tx, models.ActivityRulesImported, "discount_rule", "import", map[string]int{"count": len(rules)}); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit import: %w", err)
	}

	s.InvalidateCache(ctx)
	s.log.WithField("count", len(rules)).Info("Discount rules imported")
	return rules, nil
}

// InvalidateCache сбрасывает кеш активных правил.
func (s *DiscountService) InvalidateCache(ctx context.Context) {
	if s.redis == nil {
		return
	}
	if err := s.redis.DeleteByPrefix(ctx, redis.KeyPrefixDiscountRules); err != nil {
		s.log.WithError(err).Warn("Failed to invalidate discount rules cache")
	}
}

func (s *DiscountService) queryRules(ctx context.Context, query string, args ...interface{}) ([]*models.DiscountRule, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list discount rules: %w", err)
	}
	defer rows.Close()

	rules := []*models.DiscountRule{}
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan discount rule: %w", err)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate discount rules: %w", err)
	}
	return rules, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRule(row rowScanner) (*models.DiscountRule, error) {
	r := &models.DiscountRule{}
	err := row.Scan(
		&r.ID, &r.RuleName, &r.DiscountType, &r.DiscountValue, &r.Conditions, &r.DateStart, &r.DateEnd, &r.DaysOfWeek,
		&r.Priority, &r.Stackable, &r.DiscountCode, &r.UsageLimit, &r.UsageCount, &r.Active, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func ruleFromRequest(req *models.DiscountRuleRequest) *models.DiscountRule {
	rule := &models.DiscountRule{
		RuleName:      strings.TrimSpace(req.RuleName),
		DiscountType:  req.DiscountType,
		DiscountValue: req.DiscountValue,
		Conditions:    req.Conditions,
		DateStart:     req.DateStart,
		DateEnd:       req.DateEnd,
		DaysOfWeek:    req.DaysOfWeek,
		Priority:      req.Priority,
		Stackable:     req.Stackable,
		UsageLimit:    req.UsageLimit,
		Active:        req.Active,
	}
	if rule.DaysOfWeek == nil {
		rule.DaysOfWeek = models.Weekdays{}
	}
	if req.DiscountCode != nil {
		if code := normalizeCode(*req.DiscountCode); code != "" {
			rule.DiscountCode = &code
		}
	}
	return rule
}

// normalizeCode приводит промокод к верхнему регистру: уникальность и поиск без учёта регистра
func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func validateRulePayload(req *models.DiscountRuleRequest) error {
	if req == nil {
		return apperror.Validation("discount rule is required", nil)
	}
	if err := validateStruct(req); err != nil {
		return err
	}

	fields := make(map[string]string)
	if strings.TrimSpace(req.RuleName) == "" {
		fields["rule_name"] = "is required"
	}
	if req.DiscountValue.IsNegative() {
		fields["discount_value"] = "must be greater than or equal to 0"
	} else if req.DiscountType == models.DiscountTypePercentage && req.DiscountValue.GreaterThan(hundred) {
		fields["discount_value"] = "percentage must be between 0 and 100"
	}
	if req.DateStart != nil && req.DateEnd != nil && req.DateEnd.Before(req.DateStart.Time) {
		fields["date_end"] = "must not be before date_start"
	}

	c := req.Conditions
	if c.MinArea != nil && c.MinArea.IsNegative() {
		fields["conditions.min_area"] = "must be greater than or equal to 0"
	}
	if c.MinRooms != nil && *c.MinRooms < 0 {
		fields["conditions.min_rooms"] = "must be greater than or equal to 0"
	}
	if c.MinSubtotal != nil && c.MinSubtotal.IsNegative() {
		fields["conditions.min_subtotal"] = "must be greater than or equal to 0"
	}

	if len(fields) > 0 {
		return apperror.ValidationFields("invalid discount rule", fields)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
