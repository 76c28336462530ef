package config

import (
	"log/slog"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Environment != EnvDevelopment || !cfg.IsDevelopment() {
		t.Errorf("Expected development environment, got %q", cfg.Environment)
	}
	if cfg.Port != "8000" || cfg.LogLevel != "debug" || cfg.StoreBackend != BackendSQLite {
		t.Errorf("Unexpected defaults: port=%s level=%s backend=%s", cfg.Port, cfg.LogLevel, cfg.StoreBackend)
	}
	if cfg.LLM.Timeout != 30*time.Second || cfg.LLM.MaxTokens != 150 || cfg.LLM.Model != "gpt-4" {
		t.Errorf("Unexpected LLM defaults %+v", cfg.LLM)
	}
	if !reflect.DeepEqual(cfg.LLM.Providers, []string{"openai", "gemini", "grpc"}) {
		t.Errorf("Unexpected provider order %v", cfg.LLM.Providers)
	}
	if !reflect.DeepEqual(cfg.CORSOrigins, []string{"*"}) {
		t.Errorf("Expected wildcard CORS in development, got %v", cfg.CORSOrigins)
	}
	if cfg.MinAge != 13 || cfg.MaxAge != 120 {
		t.Errorf("Unexpected age bounds %d-%d", cfg.MinAge, cfg.MaxAge)
	}
	if !cfg.LLM.StructuredOutput {
		t.Error("Expected structured output enabled by default")
	}
}

func TestLoad_Production(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("FRONTEND_URL", "https://wellness.example.com")
	t.Setenv("LLM_PROVIDERS", " OpenRouter , ollama ")
	t.Setenv("CACHE_TTL", "120")
	t.Setenv("SESSION_TTL", "2h")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.IsDevelopment() || cfg.LogLevel != "info" || cfg.LLM.Timeout != 10*time.Second {
		t.Errorf("Unexpected production defaults: level=%s timeout=%v", cfg.LogLevel, cfg.LLM.Timeout)
	}
	if !reflect.DeepEqual(cfg.CORSOrigins, []string{"https://wellness.example.com"}) {
		t.Errorf("Expected frontend origin, got %v", cfg.CORSOrigins)
	}
	if !reflect.DeepEqual(cfg.LLM.Providers, []string{"openrouter", "ollama"}) {
		t.Errorf("Unexpected providers %v", cfg.LLM.Providers)
	}
	if cfg.CacheTTL != 2*time.Minute || cfg.SessionTTL != 2*time.Hour {
		t.Errorf("Unexpected TTLs cache=%v session=%v", cfg.CacheTTL, cfg.SessionTTL)
	}
}

func TestLoad_TestingUsesMemory(t *testing.T) {
	t.Setenv("ENVIRONMENT", "testing")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.StoreBackend != BackendMemory {
		t.Errorf("Expected memory backend, got %s", cfg.StoreBackend)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"environment", map[string]string{"ENVIRONMENT": "staging"}, "ENVIRONMENT"},
		{"backend", map[string]string{"STORE_BACKEND": "mongo"}, "STORE_BACKEND"},
		{"firestore project", map[string]string{"STORE_BACKEND": "firestore"}, "FIRESTORE_PROJECT_ID"},
		{"provider", map[string]string{"LLM_PROVIDERS": "openai,claude"}, "unknown LLM provider"},
		{"temperature", map[string]string{"LLM_TEMPERATURE": "3"}, "LLM_TEMPERATURE"},
		{"log level", map[string]string{"LOG_LEVEL": "loud"}, "LOG_LEVEL"},
		{"age below domain", map[string]string{"MIN_AGE": "5"}, "MIN_AGE"},
		{"age inverted", map[string]string{"MIN_AGE": "60", "MAX_AGE": "30"}, "MIN_AGE"},
		{"rate", map[string]string{"WS_RATE_LIMIT": "0"}, "WS_RATE_LIMIT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("CFG_BOOL", "off")
	t.Setenv("CFG_INT", "abc")
	t.Setenv("CFG_FLOAT", "0.25")
	t.Setenv("CFG_DURATION", "nonsense")
	t.Setenv("CFG_LIST", "a, ,b,")

	if getEnvBool("CFG_BOOL", true) {
		t.Error("Expected false for off")
	}
	if got := getEnvInt("CFG_INT", 7); got != 7 {
		t.Errorf("Expected fallback 7, got %d", got)
	}
	if got := getEnvFloat("CFG_FLOAT", 1); got != 0.25 {
		t.Errorf("Expected 0.25, got %v", got)
	}
	if got := getEnvDuration("CFG_DURATION", time.Second); got != time.Second {
		t.Errorf("Expected fallback duration, got %v", got)
	}
	if got := getEnvList("CFG_LIST", nil); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("Unexpected list %v", got)
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
}
