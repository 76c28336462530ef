// Package api provides the REST surface of the wellness profiler.
package api

import (
	"context"
	"errors"
	"log/slog"

	"github.com/danielgtaylor/huma/v2"

	"github.com/ashureev/wellness-labs/internal/conversation"
	"github.com/ashureev/wellness-labs/internal/domain"
	"github.com/ashureev/wellness-labs/internal/llm"
	"github.com/ashureev/wellness-labs/internal/profile"
	"github.com/ashureev/wellness-labs/internal/session"
)

// ProfileService is the profile access the REST handlers need.
type ProfileService interface {
	Init(ctx context.Context, userID string) (*domain.Profile, error)
	Get(ctx context.Context, userID string) (*domain.Profile, error)
	Update(ctx context.Context, userID string, params profile.UpdateParams) (*domain.Profile, error)
	Delete(ctx context.Context, userID string) error
	Completion(ctx context.Context, userID string) (profile.Completion, error)
	Ping(ctx context.Context) error
}

// StatusReporter reports text-generation provider status.
type StatusReporter interface {
	Status(ctx context.Context) llm.Status
}

// StatsReporter reports WebSocket connection statistics.
type StatsReporter interface {
	Stats(ctx context.Context) (session.Stats, error)
}

// Info identifies the running service.
type Info struct {
	Name    string
	Service string
	Version string
}

// Handler holds the dependencies of the REST operations.
type Handler struct {
	profiles ProfileService
	llm      StatusReporter
	ws       StatsReporter
	turns    *conversation.TurnLock
	info     Info
	logger   *slog.Logger
}

// NewHandler creates a new Handler. Profile writes take the turn for the
// user from turns, which should be shared with the WebSocket handler.
func NewHandler(profiles ProfileService, llmStatus StatusReporter, ws StatsReporter, turns *conversation.TurnLock, info Info, logger *slog.Logger) *Handler {
	if turns == nil {
		turns = conversation.NewTurnLock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if info.Service == "" {
		info.Service = "wellness-api"
	}
	return &Handler{
		profiles: profiles,
		llm:      llmStatus,
		ws:       ws,
		turns:    turns,
		info:     info,
		logger:   logger,
	}
}

// Register registers every operation on api.
func (h *Handler) Register(api huma.API) {
	h.registerStatus(api)
	h.registerProfile(api)
}

func (h *Handler) mapServiceError(err error, userID string) error {
	var verr *profile.ValidationError
	switch {
	case errors.Is(err, profile.ErrNotFound):
		return huma.Error404NotFound("profile not found")
	case errors.As(err, &verr):
		return huma.Error422UnprocessableEntity("invalid profile update", &huma.ErrorDetail{
			Location: "body." + verr.Field,
			Message:  verr.Reason,
		})
	default:
		h.logger.Error("Profile operation failed", "error", err, "user_id", userID)
		return huma.Error500InternalServerError("internal error")
	}
}
