package handlers

import (
	"crypto/subtle"
	"net/http"
	"time"

	"cleaning-calculator/internal/logger"

	"github.com/go-chi/chi/v5/middleware"
)

// AdminTokenHeader: заголовок с токеном администратора
const AdminTokenHeader = "X-Admin-Token"

// AdminAuth пропускает запрос только с корректным X-Admin-Token.
// Пустой token отключает админские маршруты полностью.
func AdminAuth(token string, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				writeErrorResponse(w, http.StatusForbidden, "Admin API is disabled")
				return
			}

			provided := r.Header.Get(AdminTokenHeader)
			if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
				log.WithField("path", r.URL.Path).Warn("Rejected admin request with invalid token")
				writeErrorResponse(w, http.StatusUnauthorized, "Invalid admin token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit адаптирует RateLimitMiddleware к цепочке chi.
func RateLimit(limiter MiddlewareLimiter, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return RateLimitMiddleware(limiter, log, next.ServeHTTP)
	}
}

// CORS разрешает запросы формы с других доменов
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+AdminTokenHeader)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RequestLogger пишет в лог метод, путь, статус и длительность запроса
func RequestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			log.WithFields(map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      ww.Status(),
				"bytes":       ww.BytesWritten(),
				"duration_ms": time.Since(start).Milliseconds(),
				"request_id":  middleware.GetReqID(r.Context()),
			}).Debug("HTTP request")
		})
	}
}
