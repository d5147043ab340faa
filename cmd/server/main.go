package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cleaning-calculator/internal/config"
	"cleaning-calculator/internal/database"
	"cleaning-calculator/internal/handlers"
	"cleaning-calculator/internal/kafka"
	"cleaning-calculator/internal/logger"
	"cleaning-calculator/internal/models"
	"cleaning-calculator/internal/notify"
	"cleaning-calculator/internal/redis"
	"cleaning-calculator/internal/services"

	_ "github.com/joho/godotenv/autoload"
)

// Фабричные функции для подключения внешних сервисов (подменяемые в тестах).
var (
	dbConnect        = database.Connect
	redisConnect     = redis.Connect
	newKafkaProducer = kafka.NewProducer
	newKafkaConsumer = kafka.NewConsumer
	kafkaHealthCheck = handlers.CheckKafkaHealth
	loadConfig       = config.Load
	newLogger        = logger.New
)

// application агрегирует собранные зависимости.
type application struct {
	cfg      *config.Config
	log      *logger.Logger
	db       *database.DB
	redis    *redis.Client
	producer *kafka.Producer
	consumer *kafka.Consumer
	server   *http.Server
}

// quoteNotifier рассылает уведомления о новой заявке
type quoteNotifier interface {
	NotifyQuote(ctx context.Context, quote *models.Quote) error
}

// statsCache сбрасывается при любом изменении заявок
type statsCache interface {
	InvalidateCache(ctx context.Context)
}

func main() {
	app, err := buildApplication()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build app: %v\n", err)
		os.Exit(1)
	}
	app.log.Info("Starting cleaning calculator server...")

	go func() {
		app.log.WithField("address", app.server.Addr).Info("HTTP server starting")
		if err := app.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	app.log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := app.server.Shutdown(ctx); err != nil {
		app.log.WithError(err).Error("Server forced to shutdown")
	}
	_ = app.consumer.Stop()
	_ = app.producer.Close()
	_ = app.redis.Close()
	_ = app.db.Close()
	app.log.Info("Server exited")
}

// buildApplication создает все зависимости (подменяемые в тестах).
func buildApplication() (*application, error) {
	cfg := loadConfig()
	log := newLogger(&cfg.Logger)

	db, err := dbConnect(&cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}

	startCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if cfg.Database.Migrate {
		if err := db.Migrate(startCtx, log); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("db migrate: %w", err)
		}
	}

	redisClient, err := redisConnect(&cfg.Redis, log)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("redis connect: %w", err)
	}

	producer, err := newKafkaProducer(&cfg.Kafka, log)
	if err != nil {
		_ = redisClient.Close()
		_ = db.Close()
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	consumer, err := newKafkaConsumer(&cfg.Kafka, log)
	if err != nil {
		_ = producer.Close()
		_ = redisClient.Close()
		_ = db.Close()
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}

	optionsService := services.NewOptionsService(db, redisClient, log, time.Duration(cfg.Cache.OptionsTTLMinutes)*time.Minute)
	activityService := services.NewActivityService(db, log)
	roomTypeService := services.NewRoomTypeService(optionsService, activityService, log)
	settingsService := services.NewSettingsService(optionsService, activityService, &cfg.Calculator, log)
	discountService := services.NewDiscountService(db, redisClient, activityService, log, time.Duration(cfg.Cache.DiscountRulesTTLMinutes)*time.Minute)
	calculatorService := services.NewCalculatorService(roomTypeService, discountService, settingsService, log)
	quoteService := services.NewQuoteService(db, log, calculatorService, discountService, activityService)
	statsService := services.NewQuoteStatsService(db, redisClient, log, &cfg.Stats)
	rateLimiter := services.NewRateLimiter(redisClient, log, &cfg.RateLimit)
	quoteLimiter := rateLimiter.Scoped("quote", cfg.RateLimit.QuoteRequests)
	dispatcher := notify.NewDispatcher(&cfg.Notifications, log)

	if err := roomTypeService.SeedDefaults(startCtx); err != nil {
		_ = consumer.Stop()
		_ = producer.Close()
		_ = redisClient.Close()
		_ = db.Close()
		return nil, fmt.Errorf("seed room types: %w", err)
	}

	h := &handlers.Handlers{
		Calculator:    handlers.NewCalculatorHandler(calculatorService, roomTypeService, log),
		RoomTypes:     handlers.NewRoomTypeHandler(roomTypeService, log),
		Discounts:     handlers.NewDiscountHandler(discountService, log),
		Quotes:        handlers.NewQuoteHandler(quoteService, producer, log),
		Stats:         handlers.NewStatsHandler(statsService, log),
		Settings:      handlers.NewSettingsHandler(settingsService, log),
		Activity:      handlers.NewActivityHandler(activityService, log),
		Notifications: handlers.NewNotificationHandler(dispatcher, log),
		Health:        handlers.NewHealthHandler(db, redisClient, cfg.Kafka.Brokers, kafkaHealthCheck),
		RateLimit:     handlers.NewRateLimitHandler(rateLimiter, quoteLimiter, log, &cfg.RateLimit),
	}

	registerEventHandlers(consumer, dispatcher, statsService, log)
	if err := consumer.Start(); err != nil {
		_ = consumer.Stop()
		_ = producer.Close()
		_ = redisClient.Close()
		_ = db.Close()
		return nil, fmt.Errorf("kafka consumer start: %w", err)
	}

	if cfg.Server.AdminToken == "" {
		log.Warn("ADMIN_TOKEN is empty, admin API is disabled")
	}

	router := handlers.NewRouter(h, handlers.RouterConfig{
		AdminToken:   cfg.Server.AdminToken,
		Limiter:      rateLimiter,
		QuoteLimiter: quoteLimiter,
	}, log)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	return &application{
		cfg:      cfg,
		log:      log,
		db:       db,
		redis:    redisClient,
		producer: producer,
		consumer: consumer,
		server:   server,
	}, nil
}

// registerEventHandlers регистрирует обработчики событий Kafka
func registerEventHandlers(consumer *kafka.Consumer, notifier quoteNotifier, stats statsCache, log *logger.Logger) {
	// Уведомления отправляются уже после коммита заявки; ошибка канала не откатывает заявку
	consumer.RegisterHandler(models.EventTypeQuoteCreated, func(ctx context.Context, event *models.Event) error {
		var quote models.Quote
		if err := json.Unmarshal(event.Data, &quote); err != nil {
			return fmt.Errorf("decode quote: %w", err)
		}

		log.WithFields(map[string]interface{}{
			"event_id": event.ID,
			"quote_id": quote.ID,
		}).Info("Processing quote created event")
		stats.InvalidateCache(ctx)

		if err := notifier.NotifyQuote(ctx, &quote); err != nil {
			log.WithError(err).WithField("quote_id", quote.ID).Warn("Some notifications failed")
		}
		return nil
	})

	consumer.RegisterHandler(models.EventTypeQuoteStatusChanged, func(ctx context.Context, event *models.Event) error {
		var change models.QuoteStatusChangedData
		if err := json.Unmarshal(event.Data, &change); err != nil {
			return fmt.Errorf("decode status change: %w", err)
		}
		log.WithFields(map[string]interface{}{
			"event_id":   event.ID,
			"quote_id":   change.QuoteID,
			"old_status": change.OldStatus,
			"new_status": change.NewStatus,
		}).Info("Quote status changed")
		stats.InvalidateCache(ctx)
		return nil
	})

	consumer.RegisterHandler(models.EventTypeQuoteDeleted, func(ctx context.Context, event *models.Event) error {
		log.WithField("event_id", event.ID).Info("Quote deleted")
		stats.InvalidateCache(ctx)
		return nil
	})
}
