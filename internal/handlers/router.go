package handlers

import (
	"net/http"

	"cleaning-calculator/internal/logger"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Handlers: набор обработчиков, из которых собирается роутер
type Handlers struct {
	Calculator    *CalculatorHandler
	RoomTypes     *RoomTypeHandler
	Discounts     *DiscountHandler
	Quotes        *QuoteHandler
	Stats         *StatsHandler
	Settings      *SettingsHandler
	Activity      *ActivityHandler
	Notifications *NotificationHandler
	Health        *HealthHandler
	RateLimit     *RateLimitHandler
}

// RouterConfig задаёт токен админки и лимитеры
type RouterConfig struct {
	AdminToken   string
	Limiter      MiddlewareLimiter
	QuoteLimiter MiddlewareLimiter
}

// NewRouter настраивает маршруты HTTP сервера
func NewRouter(h *Handlers, cfg RouterConfig, log *logger.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(log))
	r.Use(CORS)

	// Health check endpoints
	r.HandleFunc("/health", h.Health.Health)
	r.HandleFunc("/health/readiness", h.Health.Readiness)
	r.HandleFunc("/health/liveness", h.Health.Liveness)

	r.Route("/api", func(r chi.Router) {
		// Публичные маршруты формы
		r.Group(func(r chi.Router) {
			r.Use(RateLimit(cfg.Limiter, log))

			r.Get("/room-types", h.Calculator.ListRoomTypes)
			r.Post("/calculate", h.Calculator.Calculate)
			r.Post("/discounts/validate", h.Calculator.ValidateCode)
			r.With(RateLimit(cfg.QuoteLimiter, log)).Post("/quotes", h.Quotes.CreateQuote)
			r.HandleFunc("/rate-limit/status", h.RateLimit.Status)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(AdminAuth(cfg.AdminToken, log))

			r.Get("/room-types", h.RoomTypes.List)
			r.Put("/room-types", h.RoomTypes.Save)
			r.Delete("/room-types/{id}", h.RoomTypes.Delete)

			r.Route("/discounts", func(r chi.Router) {
				r.Get("/", h.Discounts.List)
				r.Post("/", h.Discounts.Create)
				r.Get("/export", h.Discounts.Export)
				r.Post("/import", h.Discounts.Import)
				r.Get("/{id}", h.Discounts.Get)
				r.Put("/{id}", h.Discounts.Update)
				r.Delete("/{id}", h.Discounts.Delete)
			})

			r.Route("/quotes", func(r chi.Router) {
				r.Get("/", h.Quotes.ListQuotes)
				r.Get("/stats", h.Stats.QuoteStats)
				r.Get("/{id}", h.Quotes.GetQuote)
				r.Delete("/{id}", h.Quotes.DeleteQuote)
				r.Put("/{id}/status", h.Quotes.UpdateQuoteStatus)
			})

			r.Get("/settings/calculator", h.Settings.GetCalculator)
			r.Put("/settings/calculator", h.Settings.SaveCalculator)
			r.Get("/settings/{group}", h.Settings.GetGroup)
			r.Put("/settings/{group}", h.Settings.SaveGroup)

			r.Get("/activity", h.Activity.List)

			r.Get("/notifications", h.Notifications.Channels)
			r.Post("/notifications/test/{channel}", h.Notifications.Test)
		})
	})

	return r
}
