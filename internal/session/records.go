package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ashureev/wellness-labs/internal/domain"
	"github.com/ashureev/wellness-labs/internal/kv"
)

const (
	statsKey = "websocket_stats"

	// DefaultSessionTTL is how long an active session record lives without
	// activity.
	DefaultSessionTTL = time.Hour
	// disconnectedTTL keeps a closed session for later analysis.
	disconnectedTTL = 24 * time.Hour
	contextTTL      = time.Hour

	stateActive       = "active"
	stateDisconnected = "disconnected"
)

func sessionKey(userID string) string { return "session:" + userID }
func contextKey(userID string) string { return "context:" + userID }

// Record is the stored state of one user session.
type Record struct {
	UserID         string         `json:"user_id"`
	ConnectionID   string         `json:"connection_id"`
	ConnectedAt    time.Time      `json:"connected_at"`
	LastActivity   time.Time      `json:"last_activity"`
	DisconnectedAt *time.Time     `json:"disconnected_at,omitempty"`
	MessageCount   int            `json:"message_count"`
	MessageTypes   map[string]int `json:"message_types,omitempty"`
	State          string         `json:"session_state"`
}

// Stats are the global connection counters.
type Stats struct {
	ActiveConnections int       `json:"active_connections"`
	CurrentInMemory   int       `json:"current_in_memory"`
	TotalConnections  int       `json:"total_connections"`
	PeakConnections   int       `json:"peak_connections"`
	LastUpdated       time.Time `json:"last_updated"`
}

// Records persists session records, conversation contexts and connection
// statistics in the kv store.
type Records struct {
	kv  *kv.Store
	ttl time.Duration
}

// NewRecords creates a Records. A non-positive ttl uses DefaultSessionTTL.
func NewRecords(store *kv.Store, ttl time.Duration) *Records {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Records{kv: store, ttl: ttl}
}

// Connect stores a fresh active session and bumps the counters.
func (r *Records) Connect(ctx context.Context, userID, connID string) error {
	now := time.Now().UTC()
	rec := Record{
		UserID:       userID,
		ConnectionID: connID,
		ConnectedAt:  now,
		LastActivity: now,
		State:        stateActive,
	}
	if err := r.kv.Set(ctx, sessionKey(userID), rec, r.ttl); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return r.updateStats(ctx, 1)
}

// Disconnect marks the session as disconnected, keeping it for a day, and
// decrements the active counter.
func (r *Records) Disconnect(ctx context.Context, userID, connID string) error {
	var rec Record
	err := r.kv.Get(ctx, sessionKey(userID), &rec)
	switch {
	case err == nil:
		if rec.ConnectionID == connID {
			now := time.Now().UTC()
			rec.DisconnectedAt = &now
			rec.State = stateDisconnected
			if err := r.kv.Set(ctx, sessionKey(userID), rec, disconnectedTTL); err != nil {
				return fmt.Errorf("store session: %w", err)
			}
		}
	case !errors.Is(err, kv.ErrNotFound):
		return fmt.Errorf("load session: %w", err)
	}
	return r.updateStats(ctx, -1)
}

// Touch records an inbound message and extends the session lifetime.
func (r *Records) Touch(ctx context.Context, userID, msgType string) error {
	_, err := kv.Mutate(ctx, r.kv, sessionKey(userID), r.ttl, func(rec *Record, found bool) error {
		if !found {
			rec.UserID = userID
			rec.ConnectedAt = time.Now().UTC()
			rec.State = stateActive
		}
		rec.LastActivity = time.Now().UTC()
		rec.MessageCount++
		if msgType != "" {
			if rec.MessageTypes == nil {
				rec.MessageTypes = make(map[string]int)
			}
			rec.MessageTypes[msgType]++
		}
		return nil
	})
	return err
}

// Session returns the stored session of userID.
func (r *Records) Session(ctx context.Context, userID string) (Record, error) {
	var rec Record
	err := r.kv.Get(ctx, sessionKey(userID), &rec)
	return rec, err
}

// SaveContext stores the last question context sent to userID.
func (r *Records) SaveContext(ctx context.Context, userID string, qc domain.QuestionContext) error {
	return r.kv.Set(ctx, contextKey(userID), qc, contextTTL)
}

// LoadContext returns the last stored question context. The boolean is
// false when none is stored.
func (r *Records) LoadContext(ctx context.Context, userID string) (domain.QuestionContext, bool, error) {
	var qc domain.QuestionContext
	err := r.kv.Get(ctx, contextKey(userID), &qc)
	if errors.Is(err, kv.ErrNotFound) {
		return qc, false, nil
	}
	if err != nil {
		return qc, false, err
	}
	return qc, true, nil
}

// Stats returns the counters, with inMemory as the live connection count.
func (r *Records) Stats(ctx context.Context, inMemory int) (Stats, error) {
	var s Stats
	err := r.kv.Get(ctx, statsKey, &s)
	if errors.Is(err, kv.ErrNotFound) {
		return Stats{
			ActiveConnections: inMemory,
			CurrentInMemory:   inMemory,
			LastUpdated:       time.Now().UTC(),
		}, nil
	}
	if err != nil {
		return Stats{}, fmt.Errorf("load stats: %w", err)
	}
	s.CurrentInMemory = inMemory
	return s, nil
}

func (r *Records) updateStats(ctx context.Context, delta int) error {
	_, err := kv.Mutate(ctx, r.kv, statsKey, 0, func(s *Stats, _ bool) error {
		s.ActiveConnections = max(0, s.ActiveConnections+delta)
		if delta > 0 {
			s.TotalConnections++
			s.PeakConnections = max(s.PeakConnections, s.ActiveConnections)
		}
		s.LastUpdated = time.Now().UTC()
		return nil
	})
	if err != nil {
		return fmt.Errorf("update stats: %w", err)
	}
	return nil
}
