package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/ashureev/wellness-labs/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Environment:  config.EnvTesting,
		Port:         "0",
		LogLevel:     "error",
		AppName:      "Wellness Profiler",
		AppVersion:   "test",
		CORSOrigins:  []string{"*"},
		StoreBackend: config.BackendSQLite,
		DBPath:       t.TempDir() + "/wellness.db",
		CacheTTL:     time.Minute,
		SessionTTL:   time.Minute,
		LLM: config.LLMConfig{
			Providers:   []string{"openai", "gemini", "grpc"},
			Model:       "gpt-4",
			Temperature: 0.7,
			MaxTokens:   150,
			Timeout:     time.Second,
			HistorySize: 10,
		},
		WSRateLimit: 5,
		WSRateBurst: 10,
		MinAge:      13,
		MaxAge:      120,
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBuildProviders_SkipsUnconfigured(t *testing.T) {
	t.Parallel()

	providers, closeAll := buildProviders(context.Background(), config.LLMConfig{
		Providers: []string{"openai", "openrouter", "ollama", "gemini", "grpc"},
	}, quietLogger())
	defer closeAll()

	if len(providers) != 0 {
		t.Errorf("Expected no providers without credentials, got %d", len(providers))
	}
}

func TestBuildProviders_Order(t *testing.T) {
	t.Parallel()

	providers, closeAll := buildProviders(context.Background(), config.LLMConfig{
		Providers:        []string{"ollama", "openrouter", "openai"},
		Model:            "gpt-4",
		OpenAIAPIKey:     "sk-test",
		OpenRouterAPIKey: "or-test",
		OpenRouterModel:  "openai/gpt-4o-mini",
		OllamaBaseURL:    "http://127.0.0.1:11434/v1/",
		OllamaModel:      "llama3.2",
	}, quietLogger())
	defer closeAll()

	var names []string
	for _, p := range providers {
		names = append(names, p.Name())
	}
	if strings.Join(names, ",") != "ollama,openrouter,openai" {
		t.Errorf("Unexpected provider order %v", names)
	}
}

func TestBuildProviders_UnreachableGRPCIsSkipped(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	providers, closeAll := buildProviders(ctx, config.LLMConfig{
		Providers: []string{"grpc"},
		GRPCAddr:  addr,
	}, quietLogger())
	defer closeAll()

	if len(providers) != 0 {
		t.Errorf("Expected unreachable sidecar to be skipped, got %d providers", len(providers))
	}
}

func TestOpenRepository_Unknown(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.StoreBackend = "mongo"
	if _, err := openRepository(context.Background(), cfg); err == nil {
		t.Error("Expected error for unknown backend")
	}
}

func TestApp_EndToEnd(t *testing.T) {
	t.Parallel()

	a, err := newApp(context.Background(), testConfig(t), quietLogger())
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	t.Cleanup(func() {
		a.sessions.CloseAll()
		if err := a.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})

	srv := httptest.NewServer(a.router)
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected healthy, got %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/ping")
	if err != nil {
		t.Fatalf("GET /ping: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected heartbeat 200, got %d", resp.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/e2e-user", nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	var ev struct {
		Type string `json:"type"`
		Data struct {
			Field string `json:"field"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if ev.Type != "INIT_PROFILE" || ev.Data.Field != "age" {
		t.Errorf("Unexpected first event %s", data)
	}

	resp, err = http.Get(srv.URL + "/api/v1/profile/e2e-user")
	if err != nil {
		t.Fatalf("GET profile: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected profile created by the session, got %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/ws/stats")
	if err != nil {
		t.Fatalf("GET /ws/stats: %v", err)
	}
	var stats struct {
		ActiveConnections int `json:"active_connections"`
		TotalSessions     int `json:"total_sessions"`
	}
	err = json.NewDecoder(resp.Body).Decode(&stats)
	_ = resp.Body.Close()
	if err != nil {
		t.Fatalf("Decode stats: %v", err)
	}
	if stats.ActiveConnections != 1 || stats.TotalSessions != 1 {
		t.Errorf("Unexpected stats %+v", stats)
	}

	resp, err = http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if !strings.Contains(string(body), "wellness_http_requests_total") {
		t.Error("Expected wellness metrics to be exported")
	}
}
