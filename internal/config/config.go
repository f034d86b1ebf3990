package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends understood by STORE_BACKEND.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

type Config struct {
	Port      string
	GinMode   string
	LogLevel  string
	LogFormat string

	AIAPIKey      string
	AIEndpoint    string
	AIModel       string
	AITemperature float64
	AIMaxTokens   int
	AITimeout     time.Duration

	StoreBackend  string
	SQLitePath    string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MaxBodyBytes          int64
	DashboardRefreshDelay time.Duration
	StaticDir             string
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:      getEnv("PORT", "8080"),
		GinMode:   getEnv("GIN_MODE", "release"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		AIAPIKey:   os.Getenv("AI_API_KEY"),
		AIEndpoint: getEnv("AI_ENDPOINT", "https://text.pollinations.ai/openai"),
		AIModel:    getEnv("AI_MODEL", "openai"),

		StoreBackend:  strings.ToLower(getEnv("STORE_BACKEND", BackendSQLite)),
		SQLitePath:    getEnv("SQLITE_PATH", "vitreos.db"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		StaticDir:     os.Getenv("STATIC_DIR"),
	}

	var err error
	if cfg.AITemperature, err = getFloat("AI_TEMPERATURE", 0.4); err != nil {
		return nil, err
	}
	if cfg.AIMaxTokens, err = getInt("AI_MAX_TOKENS", 900); err != nil {
		return nil, err
	}
	if cfg.AITimeout, err = getDuration("AI_TIMEOUT", 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	maxBody, err := getInt("MAX_BODY_BYTES", 10<<20)
	if err != nil {
		return nil, err
	}
	cfg.MaxBodyBytes = int64(maxBody)
	if cfg.DashboardRefreshDelay, err = getDuration("DASHBOARD_REFRESH_DELAY", 600*time.Millisecond); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks backend-specific requirements.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendMemory:
	case BackendSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required when STORE_BACKEND=sqlite")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_BACKEND=postgres")
		}
	case BackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required when STORE_BACKEND=redis")
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be one of memory, sqlite, postgres, redis; got %q", c.StoreBackend)
	}
	if c.AIMaxTokens <= 0 {
		return fmt.Errorf("AI_MAX_TOKENS must be positive, got %d", c.AIMaxTokens)
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("MAX_BODY_BYTES must be positive, got %d", c.MaxBodyBytes)
	}
	return nil
}

// AIConfigured treats a credential shorter than six characters as missing.
func (c *Config) AIConfigured() bool {
	return len(c.AIAPIKey) > 5
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
