// Package config loads codescout configuration from environment variables.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Provider identifies an LLM/embedding backend.
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderOllama Provider = "ollama"
)

// Config holds all configuration values.
type Config struct {
	// SurrealDB connection
	SurrealDBURL       string
	SurrealDBNamespace string
	SurrealDBDatabase  string
	SurrealDBUser      string
	SurrealDBPass      string
	SurrealDBAuthLevel string

	// Embedding provider
	EmbedProvider  Provider
	EmbedModel     string
	EmbedDimension int

	// Generation provider
	LLMProvider Provider
	LLMModel    string

	OpenAIAPIKey string
	OllamaHost   string

	// Query engine
	RetrievalTopK int
	HistoryWindow int

	// Scheduler
	LeaseDuration time.Duration

	// Budget (0 means not configured)
	MonthlyBudgetUsd      float64
	BudgetAlertThresholdP float64 // percent of budget that triggers a warning

	// Server
	ServerPort string

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	return Config{
		SurrealDBURL:       getEnv("SURREALDB_URL", "ws://localhost:8000/rpc"),
		SurrealDBNamespace: getEnv("SURREALDB_NAMESPACE", "codescout"),
		SurrealDBDatabase:  getEnv("SURREALDB_DATABASE", "main"),
		SurrealDBUser:      getEnv("SURREALDB_USER", "root"),
		SurrealDBPass:      getEnv("SURREALDB_PASS", "root"),
		SurrealDBAuthLevel: getEnv("SURREALDB_AUTH_LEVEL", "root"),

		EmbedProvider:  Provider(getEnv("CODESCOUT_EMBED_PROVIDER", string(ProviderOllama))),
		EmbedModel:     getEnv("CODESCOUT_EMBED_MODEL", "nomic-embed-text"),
		EmbedDimension: getEnvInt("CODESCOUT_EMBED_DIMENSION", 768),

		LLMProvider: Provider(getEnv("CODESCOUT_LLM_PROVIDER", string(ProviderOpenAI))),
		LLMModel:    getEnv("CODESCOUT_LLM_MODEL", "gpt-4o-mini"),

		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
		OllamaHost:   getEnv("OLLAMA_HOST", "http://localhost:11434"),

		RetrievalTopK: getEnvInt("CODESCOUT_RETRIEVAL_TOP_K", 8),
		HistoryWindow: getEnvInt("CODESCOUT_HISTORY_WINDOW", 6),

		LeaseDuration: getEnvDuration("CODESCOUT_JOB_LEASE", 5*time.Minute),

		MonthlyBudgetUsd:      getEnvFloat("CODESCOUT_MONTHLY_BUDGET_USD", 0),
		BudgetAlertThresholdP: getEnvFloat("CODESCOUT_BUDGET_ALERT_PERCENT", 80),

		ServerPort: getEnv("CODESCOUT_SERVER_PORT", "8090"),

		LogFile:  getEnv("CODESCOUT_LOG_FILE", "/tmp/codescout.log"),
		LogLevel: parseLogLevel(getEnv("CODESCOUT_LOG_LEVEL", "INFO")),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
