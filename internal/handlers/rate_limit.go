package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"cleaning-calculator/internal/config"
	"cleaning-calculator/internal/logger"
	"cleaning-calculator/internal/services"
)

// Группы маршрутов с отдельными счётчиками
const (
	RateScopeAPI    = "api"
	RateScopeQuotes = "quotes"
)

// RateLimitHandler показывает клиенту остаток лимита по расчётам и по отправке заявок.
type RateLimitHandler struct {
	api    RateLimitStatusProvider
	quotes RateLimitStatusProvider
	log    *logger.Logger
	cfg    *config.RateLimitConfig
}

// NewRateLimitHandler создает новый RateLimitHandler.
// quotes может быть nil, тогда в ответе есть только общий лимит.
func NewRateLimitHandler(api, quotes RateLimitStatusProvider, log *logger.Logger, cfg *config.RateLimitConfig) *RateLimitHandler {
	return &RateLimitHandler{
		api:    api,
		quotes: quotes,
		log:    log,
		cfg:    cfg,
	}
}

// rateScopeStatus: состояние одного счётчика
type rateScopeStatus struct {
	Limit     int64   `json:"limit"`
	Used      int64   `json:"used"`
	Remaining int64   `json:"remaining"`
	ResetAt   *string `json:"reset_at,omitempty"`
}

// Status возвращает текущие значения лимитов для IP клиента.
func (h *RateLimitHandler) Status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if h.api == nil || h.cfg == nil || !h.cfg.Enabled || !h.api.Enabled() {
		writeJSONResponse(w, http.StatusOK, map[string]interface{}{
			"enabled": false,
		})
		return
	}

	client := services.ExtractClientIP(r)
	scopes := make(map[string]rateScopeStatus, 2)
	for name, limiter := range map[string]RateLimitStatusProvider{RateScopeAPI: h.api, RateScopeQuotes: h.quotes} {
		if limiter == nil {
			continue
		}
		status, err := scopeStatus(r.Context(), limiter, client)
		if err != nil {
			h.log.WithError(err).WithFields(map[string]interface{}{
				"scope":  name,
				"client": client,
			}).Error("Failed to fetch rate limit usage")
			writeErrorResponse(w, http.StatusInternalServerError, "Failed to fetch rate limit usage")
			return
		}
		scopes[name] = status
	}

	writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"enabled":        true,
		"client":         client,
		"window_seconds": h.cfg.WindowSeconds,
		"scopes":         scopes,
	})
}

func scopeStatus(ctx context.Context, limiter RateLimitStatusProvider, client string) (rateScopeStatus, error) {
	used, remaining, resetAt, err := limiter.Usage(ctx, client)
	if err != nil {
		return rateScopeStatus{}, err
	}
	status := rateScopeStatus{Limit: limiter.Limit(), Used: used, Remaining: remaining}
	if resetAt != nil {
		v := resetAt.UTC().Format(time.RFC3339)
		status.ResetAt = &v
	}
	return status, nil
}

// MiddlewareLimiter описывает контракт для rate limiter.
type MiddlewareLimiter interface {
	Allow(ctx context.Context, key string) (bool, int64, time.Time, error)
	Enabled() bool
	Limit() int64
}

// RateLimitStatusProvider расширяет интерфейс для эндпоинта статуса.
type RateLimitStatusProvider interface {
	MiddlewareLimiter
	Usage(ctx context.Context, key string) (int64, int64, *time.Time, error)
}

// RateLimitMiddleware считает запросы клиента по IP и отвечает 429 сверх лимита.
func RateLimitMiddleware(limiter MiddlewareLimiter, log *logger.Logger, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if limiter == nil || !limiter.Enabled() {
			next(w, r)
			return
		}

		client := services.ExtractClientIP(r)
		allowed, remaining, resetAt, err := limiter.Allow(r.Context(), client)
		if err != nil {
			log.WithError(err).WithFields(map[string]interface{}{
				"client": client,
				"path":   r.URL.Path,
			}).Error("Rate limiter failed")
			writeErrorResponse(w, http.StatusInternalServerError, "Rate limiter error")
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(limiter.Limit(), 10))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		if !resetAt.IsZero() {
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
		}

		if !allowed {
			if !resetAt.IsZero() {
				retry := int64(time.Until(resetAt).Seconds()) + 1
				w.Header().Set("Retry-After", strconv.FormatInt(retry, 10))
			}
			log.WithFields(map[string]interface{}{
				"client": client,
				"path":   r.URL.Path,
			}).Warn("Rate limit exceeded")
			writeErrorResponse(w, http.StatusTooManyRequests, "Too many requests, please try again later")
			return
		}

		next(w, r)
	}
}
