package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/IBM/sarama"
)

// HealthHandler представляет обработчик для проверки здоровья системы
type HealthHandler struct {
	db           DBHealth
	redisClient  RedisHealth
	kafkaBrokers []string
	kafkaCheck   func([]string) error
}

// NewHealthHandler создает новый обработчик здоровья; kafkaCheck по умолчанию CheckKafkaHealth
func NewHealthHandler(db DBHealth, redisClient RedisHealth, kafkaBrokers []string, kafkaCheck func([]string) error) *HealthHandler {
	if kafkaCheck == nil {
		kafkaCheck = CheckKafkaHealth
	}
	return &HealthHandler{
		db:           db,
		redisClient:  redisClient,
		kafkaBrokers: kafkaBrokers,
		kafkaCheck:   kafkaCheck,
	}
}

// Компоненты, без которых калькулятор не принимает заявки
const (
	componentPostgres = "postgres"
	componentRedis    = "redis"
	componentKafka    = "kafka"
)

// ServiceVersion выставляется при сборке через -ldflags
var ServiceVersion = "dev"

// HealthResponse представляет ответ проверки здоровья
type HealthResponse struct {
	Status   string            `json:"status"`
	Service  string            `json:"service"`
	Services map[string]string `json:"services"`
	Version  string            `json:"version"`
	Uptime   string            `json:"uptime"`
}

var startTime = time.Now()

// checkAll опрашивает зависимости по порядку: цены и заявки в Postgres,
// кеш правил и лимиты в Redis, события заявок в Kafka.
func (h *HealthHandler) checkAll(ctx context.Context) (map[string]error, []string) {
	order := []string{componentPostgres, componentRedis, componentKafka}
	return map[string]error{
		componentPostgres: h.db.Health(),
		componentRedis:    h.redisClient.Health(ctx),
		componentKafka:    h.kafkaCheck(h.kafkaBrokers),
	}, order
}

// Health проверяет состояние всех компонентов системы
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	results, _ := h.checkAll(ctx)
	services := make(map[string]string, len(results))
	status := "healthy"
	for name, err := range results {
		if err != nil {
			services[name] = "unhealthy: " + err.Error()
			status = "unhealthy"
			continue
		}
		services[name] = "healthy"
	}

	statusCode := http.StatusOK
	if status != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}
	writeJSONResponse(w, statusCode, HealthResponse{
		Status:   status,
		Service:  "cleaning-calculator",
		Services: services,
		Version:  ServiceVersion,
		Uptime:   time.Since(startTime).String(),
	})
}

// Readiness проверяет готовность приложения к обработке запросов.
// В ответе 503 указывается первый неготовый компонент.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	results, order := h.checkAll(ctx)
	for _, name := range order {
		if results[name] != nil {
			writeJSONResponse(w, http.StatusServiceUnavailable, map[string]string{
				"status":    "not_ready",
				"component": name,
			})
			return
		}
	}

	writeJSONResponse(w, http.StatusOK, map[string]string{"status": "ready"})
}

// Liveness проверяет, что приложение живо
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]string{
		"status": "alive",
		"uptime": time.Since(startTime).String(),
	})
}

// CheckKafkaHealth проверяет доступность Kafka брокеров
func CheckKafkaHealth(brokers []string) error {
	return checkKafkaHealth(brokers)
}

func checkKafkaHealth(brokers []string) error {
	if len(brokers) == 0 {
		return fmt.Errorf("no brokers configured")
	}

	cfg := sarama.NewConfig()
	cfg.Net.DialTimeout = 3 * time.Second
	cfg.Net.ReadTimeout = 5 * time.Second
	cfg.Net.WriteTimeout = 5 * time.Second
	cfg.Metadata.Retry.Max = 1
	cfg.Metadata.Retry.Backoff = 500 * time.Millisecond

	client, err := sarama.NewClient(brokers, cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	return nil
}
