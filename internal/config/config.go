package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds service configuration, read from the environment
type Config struct {
	DatabaseURL string
	RedisURL    string
	EnableRedis bool
	RESTPort    string
	WSPort      string
	LogLevel    string
	LogFormat   string
	CacheTTL    time.Duration

	// NormalizeInterval is the period of the background formation sweep.
	// Zero disables it.
	NormalizeInterval time.Duration
}

// Load reads an optional .env file and then the process environment.
// Variables already set in the environment win over the file.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("loading .env: %w", err)
	}

	return FromEnv()
}

// FromEnv builds a Config from environment variables alone
func FromEnv() (Config, error) {
	cfg := Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379"),
		RESTPort:    getEnv("REST_PORT", "8080"),
		WSPort:      getEnv("WS_PORT", "8081"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "json"),
	}

	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("DATABASE_URL is not set")
	}

	enable, err := strconv.ParseBool(getEnv("ENABLE_REDIS", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid ENABLE_REDIS: %w", err)
	}
	cfg.EnableRedis = enable

	ttl, err := time.ParseDuration(getEnv("CACHE_TTL", "10m"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid CACHE_TTL: %w", err)
	}
	cfg.CacheTTL = ttl

	sweep, err := time.ParseDuration(getEnv("NORMALIZE_INTERVAL", "15m"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid NORMALIZE_INTERVAL: %w", err)
	}
	cfg.NormalizeInterval = sweep

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
