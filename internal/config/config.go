package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/learoder-max/Wishlist/internal/inference"
)

// Config holds all configuration for the application
type Config struct {
	Port           string
	PrometheusPort string
	LogLevel       string
	LogFormat      string

	// ViewerID is the user the HTTP API acts for when a request names none,
	// and the user the Telegram bot always acts for.
	ViewerID string

	GeminiAPIKey     string
	GeminiModel      string
	InferenceTimeout time.Duration

	DraftTTL      time.Duration
	MediaMaxBytes int64
	SeedFile      string

	TelegramToken   string
	TelegramOwnerID int64

	CORSOrigins []string
}

// Load loads configuration from environment variables. A .env file in the
// working directory is read first when present; variables already set in the
// environment win. Every invalid value is reported in a single error.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	var problems []string

	cfg := &Config{
		Port:           getEnvOrDefault("PORT", "8080"),
		PrometheusPort: getEnvOrDefault("PROMETHEUS_PORT", "9090"),
		LogLevel:       getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:      getEnvOrDefault("LOG_FORMAT", "text"),
		ViewerID:       getEnvOrDefault("VIEWER_ID", "u1"),

		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		GeminiModel:      getEnvOrDefault("GEMINI_MODEL", inference.DefaultModel),
		InferenceTimeout: getDuration("INFERENCE_TIMEOUT", 15*time.Second, &problems),

		DraftTTL:      getDuration("DRAFT_TTL", 30*time.Minute, &problems),
		MediaMaxBytes: getInt64("MEDIA_MAX_BYTES", 5<<20, &problems),
		SeedFile:      os.Getenv("SEED_FILE"),

		TelegramToken:   os.Getenv("TELEGRAM_TOKEN"),
		TelegramOwnerID: getInt64("TELEGRAM_OWNER_ID", 0, &problems),

		CORSOrigins: splitList(getEnvOrDefault("CORS_ORIGINS", "*")),
	}

	switch cfg.LogFormat {
	case "text", "json":
	default:
		problems = append(problems, fmt.Sprintf("invalid value for LOG_FORMAT: expected text or json, got '%s'", cfg.LogFormat))
	}
	if cfg.InferenceTimeout <= 0 {
		problems = append(problems, "INFERENCE_TIMEOUT must be positive")
	}
	if cfg.MediaMaxBytes <= 0 {
		problems = append(problems, "MEDIA_MAX_BYTES must be positive")
	}
	if cfg.DraftTTL < 0 {
		problems = append(problems, "DRAFT_TTL cannot be negative")
	}
	if cfg.ViewerID == "" {
		problems = append(problems, "VIEWER_ID cannot be empty")
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("configuration errors:\n- %s", strings.Join(problems, "\n- "))
	}
	return cfg, nil
}

// InferenceEnabled reports whether a Gemini key was configured.
func (c *Config) InferenceEnabled() bool {
	return c.GeminiAPIKey != ""
}

// TelegramEnabled reports whether the Telegram bot should be started.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramToken != ""
}

// getEnvOrDefault returns environment variable value or default if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration, problems *[]string) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		*problems = append(*problems, fmt.Sprintf("invalid value for %s: expected duration, got '%s'", key, value))
		return defaultValue
	}
	return d
}

func getInt64(key string, defaultValue int64, problems *[]string) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		*problems = append(*problems, fmt.Sprintf("invalid value for %s: expected integer, got '%s'", key, value))
		return defaultValue
	}
	return n
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
