package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Status code policies.
const (
	StatusCodesStandard = "standard"
	StatusCodesLegacy   = "legacy"
)

// Config holds application configuration.
type Config struct {
	// Application
	AppEnv    string
	LogLevel  string
	LogFormat string

	// HTTP
	HTTPAddr         string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	StatusCodes      string

	// Store
	StoreDriver   string
	DatabaseURL   string
	SQLitePath    string
	MongoDatabase string

	// Redis
	RedisURL string
	CacheTTL time.Duration

	// RabbitMQ
	RabbitMQURL      string
	RabbitMQExchange string

	// Circuit breaker
	BreakerEnabled          bool
	BreakerFailureThreshold int
	BreakerTimeout          time.Duration
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:    getEnv("APP_ENV", "development"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", ""),

		HTTPAddr:         getEnv("HTTP_ADDR", defaultAddr()),
		HTTPReadTimeout:  getDurationEnv("HTTP_READ_TIMEOUT", 15*time.Second),
		HTTPWriteTimeout: getDurationEnv("HTTP_WRITE_TIMEOUT", 15*time.Second),
		HTTPIdleTimeout:  getDurationEnv("HTTP_IDLE_TIMEOUT", 60*time.Second),
		StatusCodes:      strings.ToLower(getEnv("API_STATUS_CODES", StatusCodesStandard)),

		StoreDriver:   strings.ToLower(getEnv("STORE_DRIVER", "")),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		SQLitePath:    getEnv("SQLITE_PATH", ""),
		MongoDatabase: getEnv("MONGO_DATABASE", "taskhub"),

		RedisURL: getEnv("REDIS_URL", ""),
		CacheTTL: getDurationEnv("CACHE_TTL", 5*time.Minute),

		RabbitMQURL:      getEnv("RABBITMQ_URL", ""),
		RabbitMQExchange: getEnv("RABBITMQ_EXCHANGE", "taskhub.records"),

		BreakerEnabled:          getBoolEnv("BREAKER_ENABLED", true),
		BreakerFailureThreshold: getIntEnv("BREAKER_FAILURE_THRESHOLD", 5),
		BreakerTimeout:          getDurationEnv("BREAKER_TIMEOUT", 30*time.Second),
	}

	if cfg.StatusCodes != StatusCodesStandard && cfg.StatusCodes != StatusCodesLegacy {
		return nil, fmt.Errorf("invalid API_STATUS_CODES %q: expected %s or %s",
			cfg.StatusCodes, StatusCodesStandard, StatusCodesLegacy)
	}
	if cfg.BreakerFailureThreshold < 1 {
		return nil, fmt.Errorf("invalid BREAKER_FAILURE_THRESHOLD %d: must be at least 1", cfg.BreakerFailureThreshold)
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
		if cfg.IsProduction() {
			cfg.LogFormat = "json"
		}
	}

	return cfg, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// defaultAddr listens on PORT when set, else 3000.
func defaultAddr() string {
	port := getEnv("PORT", "3000")
	return "0.0.0.0:" + port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
