package api

import (
	"github.com/ashureev/wellness-labs/internal/domain"
	"github.com/ashureev/wellness-labs/internal/llm"
	"github.com/ashureev/wellness-labs/internal/profile"
)

// UserPathInput addresses a single profile.
type UserPathInput struct {
	UserID string `path:"user_id" pattern:"^[A-Za-z0-9._:@-]{1,128}$" doc:"User identifier" example:"user-123"`
}

// ProfileUpdateInput for PUT /api/v1/profile/{user_id}.
type ProfileUpdateInput struct {
	UserID string `path:"user_id" pattern:"^[A-Za-z0-9._:@-]{1,128}$" doc:"User identifier" example:"user-123"`
	Body   profile.UpdateParams
}

// ProfileEnvelope wraps a profile returned by mutating operations.
type ProfileEnvelope struct {
	Status  string          `json:"status" example:"success"`
	Profile *domain.Profile `json:"profile"`
}

// ProfileInitOutput for POST /api/v1/profile/init/{user_id} (201 Created).
type ProfileInitOutput struct {
	Location string `header:"Location" doc:"URL of the profile"`
	Body     ProfileEnvelope
}

// ProfileGetOutput for GET /api/v1/profile/{user_id}.
type ProfileGetOutput struct {
	Body *domain.Profile
}

// ProfileUpdateOutput for PUT /api/v1/profile/{user_id}.
type ProfileUpdateOutput struct {
	Body ProfileEnvelope
}

// CompletionOutput for GET /api/v1/profile/{user_id}/completion.
type CompletionOutput struct {
	Body profile.Completion
}

// RootOutput for GET /.
type RootOutput struct {
	Body struct {
		Message   string            `json:"message"`
		Version   string            `json:"version"`
		Status    string            `json:"status"`
		Endpoints map[string]string `json:"endpoints"`
	}
}

// HealthOutput for GET /health.
type HealthOutput struct {
	Body struct {
		Status  string `json:"status" example:"healthy"`
		Service string `json:"service"`
		Version string `json:"version"`
	}
}

// LLMStatusOutput for GET /llm/status.
type LLMStatusOutput struct {
	Body llm.Status
}

// WSStats is the public view of connection statistics.
type WSStats struct {
	ActiveConnections int    `json:"active_connections"`
	CurrentInMemory   int    `json:"current_in_memory"`
	TotalSessions     int    `json:"total_sessions"`
	PeakConnections   int    `json:"peak_connections"`
	LastUpdated       string `json:"last_updated,omitempty"`
}

// WSStatsOutput for GET /ws/stats.
type WSStatsOutput struct {
	Body WSStats
}
