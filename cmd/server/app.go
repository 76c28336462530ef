package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ashureev/wellness-labs/internal/api"
	"github.com/ashureev/wellness-labs/internal/config"
	"github.com/ashureev/wellness-labs/internal/conversation"
	"github.com/ashureev/wellness-labs/internal/identity"
	"github.com/ashureev/wellness-labs/internal/kv"
	"github.com/ashureev/wellness-labs/internal/llm"
	"github.com/ashureev/wellness-labs/internal/middleware"
	"github.com/ashureev/wellness-labs/internal/profile"
	"github.com/ashureev/wellness-labs/internal/session"
	"github.com/ashureev/wellness-labs/internal/store"
)

// app holds the wired server components.
type app struct {
	router   http.Handler
	gateway  *llm.Gateway
	sessions *session.Manager
	closers  []func() error
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{}
	if err := a.wire(ctx, cfg, logger); err != nil {
		if closeErr := a.Close(); closeErr != nil {
			slog.Warn("Failed to release resources after startup failure", "error", closeErr)
		}
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	cache, err := kv.Open(kv.Options{Dir: cfg.CacheDir, Logger: logger})
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	a.closers = append(a.closers, cache.Close)

	backend, err := openRepository(ctx, cfg)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, backend.Close)

	if err := backend.Ping(ctx); err != nil {
		return fmt.Errorf("profile store health check: %w", err)
	}
	slog.Info("Profile store connected", "backend", cfg.StoreBackend)

	repo := store.NewCached(backend, cache, cfg.CacheTTL, logger)
	profiles := profile.NewService(repo, profile.Config{
		MinAge: cfg.MinAge,
		MaxAge: cfg.MaxAge,
		Logger: logger,
	})

	providers, closeProviders := buildProviders(ctx, cfg.LLM, logger)
	a.closers = append(a.closers, func() error { closeProviders(); return nil })
	if len(providers) == 0 {
		slog.Info("No text-generation providers configured, using fallback questions")
	}

	a.gateway = llm.NewGateway(providers, llm.GatewayConfig{
		Timeout:     cfg.LLM.Timeout,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		HistorySize: cfg.LLM.HistorySize,
		Logger:      logger,
	})
	ctrl := conversation.New(a.gateway, conversation.WithLogger(logger))

	turns := conversation.NewTurnLock()
	a.sessions = session.NewManager()
	wsHandler := session.NewHandler(
		profiles,
		ctrl,
		turns,
		session.NewRecords(cache, cfg.SessionTTL),
		a.sessions,
		session.Config{
			AllowedOrigin: cfg.FrontendURL,
			IsDev:         cfg.IsDevelopment(),
			RateLimit:     cfg.WSRateLimit,
			RateBurst:     cfg.WSRateBurst,
		},
	)

	apiHandler := api.NewHandler(profiles, a.gateway, wsHandler, turns, api.Info{
		Name:    cfg.AppName,
		Version: cfg.AppVersion,
	}, logger)

	a.router = newRouter(cfg, apiHandler, wsHandler)
	return nil
}

func openRepository(ctx context.Context, cfg *config.Config) (store.Repository, error) {
	switch cfg.StoreBackend {
	case config.BackendSQLite:
		repo, err := store.NewSQLite(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("initialize database: %w", err)
		}
		return repo, nil
	case config.BackendFirestore:
		repo, err := store.NewFirestore(ctx, cfg.FirestoreProjectID)
		if err != nil {
			return nil, fmt.Errorf("initialize firestore: %w", err)
		}
		return repo, nil
	case config.BackendMemory:
		return store.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

func newRouter(cfg *config.Config, apiHandler *api.Handler, wsHandler *session.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.Metrics)
	r.Use(middleware.CORS(cfg.CORSOrigins))

	humaAPI := humachi.New(r, huma.DefaultConfig(cfg.AppName, cfg.AppVersion))
	apiHandler.Register(humaAPI)

	r.Handle("/metrics", promhttp.Handler())
	r.With(identity.Middleware).Get("/ws/{user_id}", wsHandler.ServeHTTP)

	return r
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
