package services

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"cleaning-calculator/internal/config"
	"cleaning-calculator/internal/logger"
	"cleaning-calculator/internal/redis"
)

// RateLimiter ограничивает число запросов клиента (IP) в фиксированном окне.
// Счётчики разных групп маршрутов (scope) независимы.
type RateLimiter struct {
	redis   rateRedis
	log     *logger.Logger
	enabled bool
	limit   int64
	window  time.Duration
	prefix  string
}

type rateRedis interface {
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	TTL(ctx context.Context, key string) (time.Duration, error)
	GetInt(ctx context.Context, key string) (int64, error)
}

// NewRateLimiter создаёт rate limiter для публичных маршрутов.
// Без Redis или с выключенной настройкой лимит не применяется.
func NewRateLimiter(redisClient *redis.Client, log *logger.Logger, cfg *config.RateLimitConfig) *RateLimiter {
	if redisClient == nil || cfg == nil || !cfg.Enabled || cfg.Requests <= 0 || cfg.WindowSeconds <= 0 {
		return &RateLimiter{enabled: false}
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "hcc:ratelimit"
	}

	return &RateLimiter{
		redis:   redisClient,
		log:     log,
		enabled: true,
		limit:   int64(cfg.Requests),
		window:  time.Duration(cfg.WindowSeconds) * time.Second,
		prefix:  prefix,
	}
}

// Scoped возвращает limiter с отдельным счётчиком и собственным лимитом (при limit <= 0 лимит не меняется).
// Используется, например, для отправки заявок, где лимит строже, чем для расчёта.
func (r *RateLimiter) Scoped(scope string, limit int) *RateLimiter {
	scoped := *r
	scoped.prefix = fmt.Sprintf("%s:%s", r.prefix, scope)
	if limit > 0 {
		scoped.limit = int64(limit)
	}
	return &scoped
}

// Allow регистрирует запрос и возвращает признак разрешения, остаток и время сброса окна.
func (r *RateLimiter) Allow(ctx context.Context, key string) (allowed bool, remaining int64, resetAt time.Time, err error) {
	if !r.enabled {
		return true, r.limit, time.Time{}, nil
	}

	redisKey := r.makeKey(key)
	count, err := r.redis.Incr(ctx, redisKey)
	if err != nil {
		return false, 0, time.Time{}, fmt.Errorf("rate limiter incr failed: %w", err)
	}

	// Окно начинается с первого запроса
	if count == 1 {
		if err := r.redis.Expire(ctx, redisKey, r.window); err != nil {
			r.log.WithError(err).WithField("key", redisKey).Warn("failed to set rate limit ttl")
		}
	}

	ttl, ttlErr := r.redis.TTL(ctx, redisKey)
	if ttlErr != nil || ttl <= 0 {
		if ttlErr != nil {
			r.log.WithError(ttlErr).WithField("key", redisKey).Warn("failed to get rate limit ttl")
		}
		ttl = r.window
	}

	return count <= r.limit, nonNegative(r.limit - count), time.Now().Add(ttl), nil
}

// Usage возвращает число запросов в текущем окне без его изменения.
func (r *RateLimiter) Usage(ctx context.Context, key string) (used int64, remaining int64, resetAt *time.Time, err error) {
	if !r.enabled {
		return 0, r.limit, nil, nil
	}

	redisKey := r.makeKey(key)
	count, err := r.redis.GetInt(ctx, redisKey)
	if err != nil {
		// окна ещё нет
		return 0, r.limit, nil, nil
	}

	ttl, ttlErr := r.redis.TTL(ctx, redisKey)
	if ttlErr != nil {
		r.log.WithError(ttlErr).WithField("key", redisKey).Warn("failed to get rate limit ttl")
	} else if ttl > 0 {
		reset := time.Now().Add(ttl)
		resetAt = &reset
	}

	return count, nonNegative(r.limit - count), resetAt, nil
}

func (r *RateLimiter) makeKey(key string) string {
	return fmt.Sprintf("%s:%s", r.prefix, strings.ReplaceAll(key, ":", "_"))
}

// Limit возвращает лимит для окна.
func (r *RateLimiter) Limit() int64 {
	return r.limit
}

// Window возвращает длительность окна.
func (r *RateLimiter) Window() time.Duration {
	return r.window
}

// Enabled сообщает, включён ли rate limiting.
func (r *RateLimiter) Enabled() bool {
	return r.enabled
}

func nonNegative(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}

// ExtractClientIP получает IP клиента из X-Real-IP, X-Forwarded-For или RemoteAddr.
func ExtractClientIP(r *http.Request) string {
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" && net.ParseIP(ip) != nil {
		return ip
	}
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first := strings.TrimSpace(strings.Split(forwarded, ",")[0])
		if net.ParseIP(first) != nil {
			return first
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
