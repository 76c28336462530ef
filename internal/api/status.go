package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) registerStatus(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "get-root",
		Method:      http.MethodGet,
		Path:        "/",
		Summary:     "Service information",
		Tags:        []string{"Status"},
	}, func(_ context.Context, _ *struct{}) (*RootOutput, error) {
		out := &RootOutput{}
		out.Body.Message = h.info.Name + " API"
		out.Body.Version = h.info.Version
		out.Body.Status = "running"
		out.Body.Endpoints = map[string]string{
			"docs":      "/docs",
			"health":    "/health",
			"profile":   profilePrefix + "/{user_id}",
			"websocket": "/ws/{user_id}",
			"ws_stats":  "/ws/stats",
			"llm":       "/llm/status",
			"metrics":   "/metrics",
		}
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Tags:        []string{"Status"},
	}, func(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
		if err := h.profiles.Ping(ctx); err != nil {
			h.logger.Warn("Health check failed", "error", err)
			return nil, huma.Error503ServiceUnavailable("profile store unavailable")
		}
		out := &HealthOutput{}
		out.Body.Status = "healthy"
		out.Body.Service = h.info.Service
		out.Body.Version = h.info.Version
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-llm-status",
		Method:      http.MethodGet,
		Path:        "/llm/status",
		Summary:     "Text-generation provider status",
		Tags:        []string{"LLM"},
	}, func(ctx context.Context, _ *struct{}) (*LLMStatusOutput, error) {
		return &LLMStatusOutput{Body: h.llm.Status(ctx)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-ws-stats",
		Method:      http.MethodGet,
		Path:        "/ws/stats",
		Summary:     "WebSocket connection statistics",
		Tags:        []string{"WebSocket"},
	}, func(ctx context.Context, _ *struct{}) (*WSStatsOutput, error) {
		st, err := h.ws.Stats(ctx)
		if err != nil {
			h.logger.Error("Failed to load connection stats", "error", err)
			return nil, huma.Error500InternalServerError("internal error")
		}
		out := &WSStatsOutput{Body: WSStats{
			ActiveConnections: st.ActiveConnections,
			CurrentInMemory:   st.CurrentInMemory,
			TotalSessions:     st.TotalConnections,
			PeakConnections:   st.PeakConnections,
		}}
		if !st.LastUpdated.IsZero() {
			out.Body.LastUpdated = st.LastUpdated.UTC().Format(time.RFC3339)
		}
		return out, nil
	})
}
