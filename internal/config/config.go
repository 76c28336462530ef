// Package config provides application configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ashureev/wellness-labs/internal/domain"
)

// Environments.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTesting     = "testing"
)

// Store backends.
const (
	BackendSQLite    = "sqlite"
	BackendFirestore = "firestore"
	BackendMemory    = "memory"
)

// Config holds all application configuration.
type Config struct {
	Environment string
	Port        string
	LogLevel    string
	AppName     string
	AppVersion  string
	FrontendURL string
	CORSOrigins []string

	StoreBackend       string
	DBPath             string
	FirestoreProjectID string
	CacheDir           string // "" keeps the cache in memory
	CacheTTL           time.Duration
	SessionTTL         time.Duration

	LLM LLMConfig

	WSRateLimit float64
	WSRateBurst int

	MinAge int
	MaxAge int
}

// LLMConfig configures the text-generation providers.
type LLMConfig struct {
	Providers   []string // priority order
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	HistorySize int
	// StructuredOutput asks OpenAI-compatible providers for schema-constrained JSON.
	StructuredOutput bool

	OpenAIAPIKey  string
	OpenAIBaseURL string

	OpenRouterAPIKey string
	OpenRouterModel  string

	OllamaBaseURL string
	OllamaModel   string

	GeminiAPIKey string
	GeminiModel  string

	GRPCAddr string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	env := strings.ToLower(getEnv("ENVIRONMENT", EnvDevelopment))

	defaultLevel := "info"
	defaultTimeout := 10 * time.Second
	defaultBackend := BackendSQLite
	if env == EnvDevelopment {
		defaultLevel = "debug"
		defaultTimeout = 30 * time.Second
	}
	if env == EnvTesting {
		defaultBackend = BackendMemory
	}

	frontendURL := getEnv("FRONTEND_URL", "")
	defaultOrigins := []string{"*"}
	if env == EnvProduction && frontendURL != "" {
		defaultOrigins = []string{frontendURL}
	}

	cfg := &Config{
		Environment: env,
		Port:        getEnv("PORT", "8000"),
		LogLevel:    strings.ToLower(getEnv("LOG_LEVEL", defaultLevel)),
		AppName:     getEnv("APP_NAME", "Wellness Profiler"),
		AppVersion:  getEnv("APP_VERSION", "1.0.0"),
		FrontendURL: frontendURL,
		CORSOrigins: getEnvList("CORS_ORIGINS", defaultOrigins),

		StoreBackend:       strings.ToLower(getEnv("STORE_BACKEND", defaultBackend)),
		DBPath:             getEnv("DB_PATH", "./data/wellness.db"),
		FirestoreProjectID: getEnv("FIRESTORE_PROJECT_ID", ""),
		CacheDir:           getEnv("CACHE_DIR", ""),
		CacheTTL:           getEnvDuration("CACHE_TTL", time.Hour),
		SessionTTL:         getEnvDuration("SESSION_TTL", time.Hour),

		LLM: LLMConfig{
			Providers:   lower(getEnvList("LLM_PROVIDERS", []string{"openai", "gemini", "grpc"})),
			Model:       getEnv("LLM_MODEL", "gpt-4"),
			Temperature: getEnvFloat("LLM_TEMPERATURE", 0.7),
			MaxTokens:   getEnvInt("LLM_MAX_TOKENS", 150),
			Timeout:     getEnvDuration("LLM_TIMEOUT", defaultTimeout),
			HistorySize: getEnvInt("LLM_HISTORY_SIZE", 100),

			StructuredOutput: getEnvBool("LLM_STRUCTURED_OUTPUT", true),

			OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
			OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),

			OpenRouterAPIKey: getEnv("OPENROUTER_API_KEY", ""),
			OpenRouterModel:  getEnv("OPENROUTER_MODEL", "openai/gpt-4o-mini"),

			OllamaBaseURL: getEnv("OLLAMA_BASE_URL", ""),
			OllamaModel:   getEnv("OLLAMA_MODEL", "llama3.2"),

			GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
			GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.0-flash"),

			GRPCAddr: getEnv("LLM_GRPC_ADDR", ""),
		},

		WSRateLimit: getEnvFloat("WS_RATE_LIMIT", 5),
		WSRateBurst: getEnvInt("WS_RATE_BURST", 10),

		MinAge: getEnvInt("MIN_AGE", domain.MinAge),
		MaxAge: getEnvInt("MAX_AGE", domain.MaxAge),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	switch c.Environment {
	case EnvDevelopment, EnvProduction, EnvTesting:
	default:
		return fmt.Errorf("ENVIRONMENT must be one of development, production, testing; got %q", c.Environment)
	}
	if c.Port == "" {
		return errors.New("PORT cannot be empty")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.StoreBackend {
	case BackendSQLite:
		if c.DBPath == "" {
			return errors.New("DB_PATH cannot be empty")
		}
	case BackendFirestore:
		if c.FirestoreProjectID == "" {
			return errors.New("FIRESTORE_PROJECT_ID is required for the firestore backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("STORE_BACKEND must be one of sqlite, firestore, memory; got %q", c.StoreBackend)
	}
	if c.CacheTTL <= 0 {
		return errors.New("CACHE_TTL must be > 0")
	}
	if c.SessionTTL <= 0 {
		return errors.New("SESSION_TTL must be > 0")
	}
	for _, p := range c.LLM.Providers {
		switch p {
		case "openai", "openrouter", "ollama", "gemini", "grpc":
		default:
			return fmt.Errorf("unknown LLM provider %q", p)
		}
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return errors.New("LLM_TEMPERATURE must be between 0 and 2")
	}
	if c.LLM.MaxTokens <= 0 {
		return errors.New("LLM_MAX_TOKENS must be > 0")
	}
	if c.LLM.Timeout <= 0 {
		return errors.New("LLM_TIMEOUT must be > 0")
	}
	if c.LLM.HistorySize <= 0 {
		return errors.New("LLM_HISTORY_SIZE must be > 0")
	}
	if c.WSRateLimit <= 0 || c.WSRateBurst <= 0 {
		return errors.New("WS_RATE_LIMIT and WS_RATE_BURST must be > 0")
	}
	if c.MinAge < domain.MinAge || c.MaxAge > domain.MaxAge || c.MinAge > c.MaxAge {
		return fmt.Errorf("MIN_AGE/MAX_AGE must satisfy %d <= min <= max <= %d", domain.MinAge, domain.MaxAge)
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == EnvDevelopment
}

// ParseLevel maps a LOG_LEVEL value to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error; got %q", s)
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

// getEnvDuration accepts Go durations ("90s", "1h") and bare seconds ("3600").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value = strings.TrimSpace(value)
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func lower(values []string) []string {
	for i, v := range values {
		values[i] = strings.ToLower(v)
	}
	return values
}
