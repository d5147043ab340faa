package config

import (
	"os"
	"strconv"
	"strings"
)

// Config представляет конфигурацию приложения
type Config struct {
	Server        ServerConfig        `json:"server"`
	Database      DatabaseConfig      `json:"database"`
	Redis         RedisConfig         `json:"redis"`
	Kafka         KafkaConfig         `json:"kafka"`
	Logger        LoggerConfig        `json:"logger"`
	Calculator    CalculatorConfig    `json:"calculator"`
	Cache         CacheConfig         `json:"cache"`
	Notifications NotificationsConfig `json:"notifications"`
	Stats         StatsConfig         `json:"stats"`
	RateLimit     RateLimitConfig     `json:"rate_limit"`
}

// ServerConfig представляет конфигурацию HTTP сервера
type ServerConfig struct {
	Port         string `json:"port"`
	Host         string `json:"host"`
	ReadTimeout  int    `json:"read_timeout"`
	WriteTimeout int    `json:"write_timeout"`
	AdminToken   string `json:"-"`
}

// DatabaseConfig представляет конфигурацию базы данных
type DatabaseConfig struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
	Migrate  bool   `json:"migrate"`
}

// RedisConfig представляет конфигурацию Redis
type RedisConfig struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// KafkaConfig представляет конфигурацию Kafka
type KafkaConfig struct {
	Brokers []string `json:"brokers"`
	GroupID string   `json:"group_id"`
	Topics  Topics   `json:"topics"`
}

// Topics представляет список топиков Kafka
type Topics struct {
	Quotes string `json:"quotes"`
}

// LoggerConfig представляет конфигурацию логгера
type LoggerConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
	File   string `json:"file"`
}

// CalculatorConfig задаёт настройки калькулятора по умолчанию (до сохранения в админке).
type CalculatorConfig struct {
	CurrencySymbol    string `json:"currency_symbol"`
	CurrencyPosition  string `json:"currency_position"` // before | after | before_space | after_space
	DecimalSeparator  string `json:"decimal_separator"`
	ThousandSeparator string `json:"thousand_separator"`
	Decimals          int    `json:"decimals"`
	DiscountMode      string `json:"discount_mode"` // first | best | stack
}

// CacheConfig хранит TTL для кешей
type CacheConfig struct {
	DiscountRulesTTLMinutes int `json:"discount_rules_ttl_minutes"`
	OptionsTTLMinutes       int `json:"options_ttl_minutes"`
}

// NotificationsConfig описывает каналы уведомлений о новых заявках
type NotificationsConfig struct {
	TimeoutSeconds int            `json:"timeout_seconds"`
	Telegram       TelegramConfig `json:"telegram"`
	SMTP           SMTPConfig     `json:"smtp"`
	Webhook        WebhookConfig  `json:"webhook"`
}

// TelegramConfig настройки Telegram Bot API
type TelegramConfig struct {
	Enabled  bool   `json:"enabled"`
	BotToken string `json:"-"`
	ChatID   string `json:"chat_id"`
	BaseURL  string `json:"base_url"`
}

// SMTPConfig настройки почтового сервера
type SMTPConfig struct {
	Enabled      bool   `json:"enabled"`
	Host         string `json:"host"`
	Port         int    `json:"port"`
	Username     string `json:"username"`
	Password     string `json:"-"`
	From         string `json:"from"`
	AdminEmail   string `json:"admin_email"`
	NotifyClient bool   `json:"notify_client"`
}

// WebhookConfig настройки исходящего вебхука
type WebhookConfig struct {
	Enabled bool   `json:"enabled"`
	URL     string `json:"url"`
	Secret  string `json:"-"`
}

// StatsConfig хранит настройки статистики по заявкам
type StatsConfig struct {
	CacheTTLMinutes int `json:"cache_ttl_minutes"`
	MaxRangeDays    int `json:"max_range_days"`
}

// RateLimitConfig описывает настройки rate limiting
type RateLimitConfig struct {
	Enabled       bool   `json:"enabled"`
	Requests      int    `json:"requests"`
	QuoteRequests int    `json:"quote_requests"`
	WindowSeconds int    `json:"window_seconds"`
	KeyPrefix     string `json:"key_prefix"`
}

// Load загружает конфигурацию из переменных окружения
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:  getEnvAsInt("SERVER_READ_TIMEOUT", 10),
			WriteTimeout: getEnvAsInt("SERVER_WRITE_TIMEOUT", 10),
			AdminToken:   getEnv("ADMIN_TOKEN", ""),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "hcc_user"),
			Password: getEnv("DB_PASSWORD", "hcc_pass"),
			DBName:   getEnv("DB_NAME", "cleaning_calculator"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
			Migrate:  getEnvAsBool("DB_MIGRATE", true),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers: strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			GroupID: getEnv("KAFKA_GROUP_ID", "cleaning-calculator"),
			Topics: Topics{
				Quotes: getEnv("KAFKA_TOPIC_QUOTES", "quotes"),
			},
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
			File:   getEnv("LOG_FILE", ""),
		},
		Calculator: CalculatorConfig{
			CurrencySymbol:    getEnv("CURRENCY_SYMBOL", "€"),
			CurrencyPosition:  getEnv("CURRENCY_POSITION", "after_space"),
			DecimalSeparator:  getEnv("DECIMAL_SEPARATOR", ","),
			ThousandSeparator: getEnv("THOUSAND_SEPARATOR", "."),
			Decimals:          getEnvAsInt("PRICE_DECIMALS", 2),
			DiscountMode:      getEnv("DISCOUNT_MODE", "first"),
		},
		Cache: CacheConfig{
			DiscountRulesTTLMinutes: getEnvAsInt("CACHE_DISCOUNT_RULES_TTL_MINUTES", 60),
			OptionsTTLMinutes:       getEnvAsInt("CACHE_OPTIONS_TTL_MINUTES", 60),
		},
		Notifications: NotificationsConfig{
			TimeoutSeconds: getEnvAsInt("NOTIFY_TIMEOUT_SECONDS", 15),
			Telegram: TelegramConfig{
				Enabled:  getEnvAsBool("TELEGRAM_ENABLED", false),
				BotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
				ChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
				BaseURL:  getEnv("TELEGRAM_BASE_URL", "https://api.telegram.org"),
			},
			SMTP: SMTPConfig{
				Enabled:      getEnvAsBool("SMTP_ENABLED", false),
				Host:         getEnv("SMTP_HOST", "localhost"),
				Port:         getEnvAsInt("SMTP_PORT", 587),
				Username:     getEnv("SMTP_USERNAME", ""),
				Password:     getEnv("SMTP_PASSWORD", ""),
				From:         getEnv("SMTP_FROM", "no-reply@localhost"),
				AdminEmail:   getEnv("SMTP_ADMIN_EMAIL", ""),
				NotifyClient: getEnvAsBool("SMTP_NOTIFY_CLIENT", false),
			},
			Webhook: WebhookConfig{
				Enabled: getEnvAsBool("WEBHOOK_ENABLED", false),
				URL:     getEnv("WEBHOOK_URL", ""),
				Secret:  getEnv("WEBHOOK_SECRET", ""),
			},
		},
		Stats: StatsConfig{
			CacheTTLMinutes: getEnvAsInt("STATS_CACHE_TTL_MINUTES", 10),
			MaxRangeDays:    getEnvAsInt("STATS_MAX_RANGE_DAYS", 365),
		},
		RateLimit: RateLimitConfig{
			Enabled:       getEnvAsBool("RATE_LIMIT_ENABLED", false),
			Requests:      getEnvAsInt("RATE_LIMIT_REQUESTS", 100),
			QuoteRequests: getEnvAsInt("RATE_LIMIT_QUOTE_REQUESTS", 10),
			WindowSeconds: getEnvAsInt("RATE_LIMIT_WINDOW_SECONDS", 60),
			KeyPrefix:     getEnv("RATE_LIMIT_KEY_PREFIX", "hcc:ratelimit"),
		},
	}
}

// getEnv получает значение переменной окружения с значением по умолчанию
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt получает значение переменной окружения как int с значением по умолчанию
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool получает значение переменной окружения как bool с значением по умолчанию
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := strings.ToLower(getEnv(key, ""))
	if valueStr == "true" || valueStr == "1" || valueStr == "yes" {
		return true
	}
	if valueStr == "false" || valueStr == "0" || valueStr == "no" {
		return false
	}
	return defaultValue
}
