// Package config loads application configuration from environment
// variables, with an optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// Series
	Symbol   string
	Interval string
	Window   int

	// Retrieval
	TopK                int
	GateMaxDistance     float64
	ConfidenceThreshold float64

	// Market data
	BinanceAPIKey    string
	BinanceSecretKey string
	CSVPath          string // When set, candles come from this file instead of the exchange

	// Storage
	DuckDBPath       string
	MilvusAddress    string
	MilvusUsername   string
	MilvusPassword   string
	MilvusCollection string

	// Queue
	NATSURL    string
	NATSStream string

	// Judgment
	AnthropicAPIKey string
	AnthropicModel  string
	JudgeTimeout    time.Duration

	// Notifications
	DiscordWebhookURL string

	// Logging
	LogLevel  string
	LogFormat string
}

// Load reads configuration from the environment. A .env file is
// loaded first when present. All validation problems are collected
// and reported together.
func Load() (*Config, error) {
	// Don't fail if .env is absent, pure env vars are fine
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string

	cfg.Symbol = getEnv("SYMBOL", "ADAUSDT")
	if cfg.Symbol == "" {
		errs = append(errs, "SYMBOL must be set")
	}
	cfg.Interval = getEnv("INTERVAL", "15m")

	cfg.Window, err = getEnvAsIntRequired("WINDOW", 60)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid WINDOW: %v", err))
	} else if cfg.Window < 2 {
		errs = append(errs, "WINDOW must be at least 2")
	}

	cfg.TopK, err = getEnvAsIntRequired("TOP_K", 5)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid TOP_K: %v", err))
	} else if cfg.TopK <= 0 {
		errs = append(errs, "TOP_K must be positive")
	}

	cfg.GateMaxDistance, err = getEnvAsFloatRequired("GATE_MAX_DISTANCE", 0.35)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid GATE_MAX_DISTANCE: %v", err))
	} else if cfg.GateMaxDistance <= 0 {
		errs = append(errs, "GATE_MAX_DISTANCE must be positive")
	}

	cfg.ConfidenceThreshold, err = getEnvAsFloatRequired("CONFIDENCE_THRESHOLD", 0.6)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid CONFIDENCE_THRESHOLD: %v", err))
	} else if cfg.ConfidenceThreshold < 0 || cfg.ConfidenceThreshold > 1 {
		errs = append(errs, "CONFIDENCE_THRESHOLD must be between 0.0 and 1.0")
	}

	// Public klines endpoints work without credentials
	cfg.BinanceAPIKey = getEnv("BINANCE_API_KEY", "")
	cfg.BinanceSecretKey = getEnv("BINANCE_API_SECRET", "")
	cfg.CSVPath = getEnv("CSV_PATH", "")

	cfg.DuckDBPath = getEnv("DUCKDB_PATH", "hekla.duckdb")
	cfg.MilvusAddress = getEnv("MILVUS_ADDRESS", "localhost:19530")
	cfg.MilvusUsername = getEnv("MILVUS_USERNAME", "")
	cfg.MilvusPassword = getEnv("MILVUS_PASSWORD", "")
	cfg.MilvusCollection = getEnv("MILVUS_COLLECTION", "market_pattern")

	cfg.NATSURL = getEnv("NATS_URL", "nats://localhost:4222")
	cfg.NATSStream = getEnv("NATS_STREAM", "hekla")

	cfg.AnthropicAPIKey = getEnv("ANTHROPIC_API_KEY", "")
	cfg.AnthropicModel = getEnv("ANTHROPIC_MODEL", "claude-sonnet-4-20250514")

	cfg.JudgeTimeout, err = getEnvAsDuration("JUDGE_TIMEOUT", 60*time.Second)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid JUDGE_TIMEOUT: %v", err))
	}

	cfg.DiscordWebhookURL = getEnv("DISCORD_WEBHOOK_URL", "")

	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.LogFormat = getEnv("LOG_FORMAT", "console")

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsIntRequired(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsFloatRequired(key string, defaultValue float64) (float64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid duration value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}
