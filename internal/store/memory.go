package store

import (
	"context"
	"sync"
	"time"

	"github.com/ashureev/wellness-labs/internal/domain"
)

// MemoryStore implements Repository in process memory. Profiles are cloned
// on the way in and out so callers never share state with the store.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]*domain.Profile
}

// NewMemory creates an empty in-memory repository.
func NewMemory() *MemoryStore {
	return &MemoryStore{profiles: make(map[string]*domain.Profile)}
}

// GetProfile implements Repository.
func (m *MemoryStore) GetProfile(_ context.Context, userID string) (*domain.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.profiles[userID]
	if !ok {
		return nil, nil
	}
	return p.Clone(), nil
}

// CreateProfile implements Repository.
func (m *MemoryStore) CreateProfile(_ context.Context, userID string) (*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.profiles[userID]; ok {
		return nil, ErrAlreadyExists
	}
	p := domain.NewProfile(userID, time.Now().UTC())
	m.profiles[userID] = p
	return p.Clone(), nil
}

// UpdateProfile implements Repository.
func (m *MemoryStore) UpdateProfile(_ context.Context, userID string, updates map[domain.FieldName]domain.Value) (*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.profiles[userID]
	if !ok {
		return nil, ErrNotFound
	}
	next := current.Clone()
	if err := next.Apply(updates); err != nil {
		return nil, err
	}
	next.UpdatedAt = time.Now().UTC()
	m.profiles[userID] = next
	return next.Clone(), nil
}

// DeleteProfile implements Repository.
func (m *MemoryStore) DeleteProfile(_ context.Context, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.profiles[userID]; !ok {
		return false, nil
	}
	delete(m.profiles, userID)
	return true, nil
}

// Ping implements Repository.
func (m *MemoryStore) Ping(context.Context) error { return nil }

// Close implements Repository.
func (m *MemoryStore) Close() error { return nil }

var _ Repository = (*MemoryStore)(nil)
