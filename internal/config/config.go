package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config - структура для хранения конфигурации приложения
type Config struct {
	DatabaseURL string `env:"DATABASE_URL"`
	HTTPPort    string `env:"HTTP_PORT" envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// Redis Config
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass string `env:"REDIS_PASSWORD"`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// Correlation Config
	TimeWindow       time.Duration `env:"CORRELATION_TIME_WINDOW" envDefault:"4h"`
	RadiusMeters     float64       `env:"CORRELATION_RADIUS_METERS" envDefault:"500"`
	SemanticHigh     float64       `env:"CORRELATION_SEMANTIC_HIGH" envDefault:"0.75"`
	SemanticLow      float64       `env:"CORRELATION_SEMANTIC_LOW" envDefault:"0.4"`
	IncidentLookback time.Duration `env:"CORRELATION_INCIDENT_LOOKBACK" envDefault:"24h"`
	LeaseTTL         time.Duration `env:"CORRELATION_LEASE_TTL" envDefault:"10s"`

	// Scheduler Config
	WorkerCount         int           `env:"SCHEDULER_WORKER_COUNT" envDefault:"4"`
	PollInterval        time.Duration `env:"SCHEDULER_POLL_INTERVAL" envDefault:"2s"`
	MaxRetries          int           `env:"SCHEDULER_MAX_RETRIES" envDefault:"5"`
	RetryBaseDelay      time.Duration `env:"SCHEDULER_RETRY_BASE_DELAY" envDefault:"1s"`
	IncidentIdleTimeout time.Duration `env:"INCIDENT_IDLE_TIMEOUT" envDefault:"0"`

	// Semantic Scorer Config (OpenAI-совместимый embedding API)
	OpenAIAPIKey       string  `env:"OPENAI_API_KEY"`
	OpenAIBaseURL      string  `env:"OPENAI_BASE_URL"`
	EmbeddingModel     string  `env:"EMBEDDING_MODEL" envDefault:"text-embedding-3-small"`
	EmbeddingRateLimit float64 `env:"EMBEDDING_RATE_LIMIT" envDefault:"10"`

	// Escalation Config (внешний tie-break сервис)
	EscalationURL        string        `env:"ESCALATION_URL"`
	EscalationSecret     string        `env:"ESCALATION_SECRET"`
	EscalationTimeout    time.Duration `env:"ESCALATION_TIMEOUT" envDefault:"5s"`
	EscalationMaxRetries int           `env:"ESCALATION_MAX_RETRIES" envDefault:"3"`
	EscalationBaseDelay  time.Duration `env:"ESCALATION_BASE_DELAY" envDefault:"1s"`
	EscalationRetryAfter time.Duration `env:"ESCALATION_RETRY_AFTER" envDefault:"10m"`

	// API Keys for authentication
	APIKeys []string `env:"API_KEYS"`
}

// LoadConfig загружает конфигурацию из переменных окружения и .env файла
func LoadConfig() (*Config, error) {
	// Загрузка переменных окружения из .env файла (если есть)
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("ошибка загрузки файла .env: %w", err)
	}

	cfg := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		HTTPPort:    getEnv("HTTP_PORT", "8080"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPass:   os.Getenv("REDIS_PASSWORD"),
		RedisDB:     getEnvAsInt("REDIS_DB", 0),

		TimeWindow:       getEnvAsDuration("CORRELATION_TIME_WINDOW", 4*time.Hour),
		RadiusMeters:     getEnvAsFloat("CORRELATION_RADIUS_METERS", 500),
		SemanticHigh:     getEnvAsFloat("CORRELATION_SEMANTIC_HIGH", 0.75),
		SemanticLow:      getEnvAsFloat("CORRELATION_SEMANTIC_LOW", 0.4),
		IncidentLookback: getEnvAsDuration("CORRELATION_INCIDENT_LOOKBACK", 24*time.Hour),
		LeaseTTL:         getEnvAsDuration("CORRELATION_LEASE_TTL", 10*time.Second),

		WorkerCount:         getEnvAsInt("SCHEDULER_WORKER_COUNT", 4),
		PollInterval:        getEnvAsDuration("SCHEDULER_POLL_INTERVAL", 2*time.Second),
		MaxRetries:          getEnvAsInt("SCHEDULER_MAX_RETRIES", 5),
		RetryBaseDelay:      getEnvAsDuration("SCHEDULER_RETRY_BASE_DELAY", time.Second),
		IncidentIdleTimeout: getEnvAsDuration("INCIDENT_IDLE_TIMEOUT", 0),

		OpenAIAPIKey:       os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:      os.Getenv("OPENAI_BASE_URL"),
		EmbeddingModel:     getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		EmbeddingRateLimit: getEnvAsFloat("EMBEDDING_RATE_LIMIT", 10),

		EscalationURL:        os.Getenv("ESCALATION_URL"),
		EscalationSecret:     os.Getenv("ESCALATION_SECRET"),
		EscalationTimeout:    getEnvAsDuration("ESCALATION_TIMEOUT", 5*time.Second),
		EscalationMaxRetries: getEnvAsInt("ESCALATION_MAX_RETRIES", 3),
		EscalationBaseDelay:  getEnvAsDuration("ESCALATION_BASE_DELAY", time.Second),
		EscalationRetryAfter: getEnvAsDuration("ESCALATION_RETRY_AFTER", 10*time.Minute),
	}

	// Загрузка API ключей
	apiKeysStr := os.Getenv("API_KEYS")
	if apiKeysStr != "" {
		cfg.APIKeys = strings.Split(apiKeysStr, ",")
		for i, key := range cfg.APIKeys {
			cfg.APIKeys[i] = strings.TrimSpace(key)
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	if cfg.SemanticLow > cfg.SemanticHigh {
		return nil, fmt.Errorf("CORRELATION_SEMANTIC_LOW must not exceed CORRELATION_SEMANTIC_HIGH")
	}

	return cfg, nil
}

// getEnv возвращает значение переменной окружения или значение по умолчанию
func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt возвращает значение переменной окружения как int или значение по умолчанию
func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsFloat возвращает значение переменной окружения как float64 или значение по умолчанию
func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvAsDuration возвращает значение переменной окружения как time.Duration или значение по умолчанию
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if durationValue, err := time.ParseDuration(value); err == nil {
			return durationValue
		}
	}
	return defaultValue
}
