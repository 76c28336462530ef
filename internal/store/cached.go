package store

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ashureev/wellness-labs/internal/domain"
	"github.com/ashureev/wellness-labs/internal/kv"
	"github.com/ashureev/wellness-labs/internal/metrics"
)

// DefaultCacheTTL is how long a cached profile lives.
const DefaultCacheTTL = time.Hour

// CachedRepository is a read-through cache over another Repository. Cache
// failures are logged and bypassed; the wrapped repository stays the
// source of truth.
//
// A backend read only fills the cache when no write for the same user
// started or finished while it was in flight, so a slow read can never
// put a deleted or superseded profile back.
type CachedRepository struct {
	next   Repository
	cache  *kv.Store
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger

	mu   sync.Mutex // guards keys and orders cache fills against writes
	keys map[string]*keyState
}

// keyState tracks writes to one user. gen changes on every write start and
// finish. Entries live while refs > 0.
type keyState struct {
	gen     uint64
	writers int
	refs    int
}

// NewCached wraps next with a cache in c. A non-positive ttl uses
// DefaultCacheTTL.
func NewCached(next Repository, c *kv.Store, ttl time.Duration, logger *slog.Logger) *CachedRepository {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedRepository{
		next:   next,
		cache:  c,
		ttl:    ttl,
		logger: logger,
		keys:   make(map[string]*keyState),
	}
}

func cacheKey(userID string) string { return "profile:" + userID }

// GetProfile serves from cache when possible. Concurrent misses for one
// user collapse into a single backend read.
func (c *CachedRepository) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	var cached domain.Profile
	err := c.cache.Get(ctx, cacheKey(userID), &cached)
	switch {
	case err == nil:
		metrics.RecordCache("hit")
		return &cached, nil
	case errors.Is(err, kv.ErrNotFound):
		metrics.RecordCache("miss")
	default:
		metrics.RecordCache("error")
		c.logger.Warn("Profile cache read failed", "user_id", userID, "error", err)
	}

	v, err, _ := c.group.Do(userID, func() (any, error) {
		c.mu.Lock()
		ks := c.acquire(userID)
		gen, busy := ks.gen, ks.writers > 0
		c.mu.Unlock()

		p, err := c.next.GetProfile(ctx, userID)

		c.mu.Lock()
		defer c.mu.Unlock()
		defer c.release(userID, ks)
		if err != nil || p == nil {
			return p, err
		}
		if !busy && ks.gen == gen {
			c.store(ctx, p)
		}
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	p, _ := v.(*domain.Profile)
	return p.Clone(), nil
}

// CreateProfile implements Repository.
func (c *CachedRepository) CreateProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	ks, start := c.beginWrite(userID)
	p, err := c.next.CreateProfile(ctx, userID)
	if err != nil {
		c.endWrite(ctx, userID, ks, start, nil)
		return nil, err
	}
	c.endWrite(ctx, userID, ks, start, p)
	return p, nil
}

// UpdateProfile implements Repository.
func (c *CachedRepository) UpdateProfile(ctx context.Context, userID string, updates map[domain.FieldName]domain.Value) (*domain.Profile, error) {
	ks, start := c.beginWrite(userID)
	p, err := c.next.UpdateProfile(ctx, userID, updates)
	if err != nil {
		c.endWrite(ctx, userID, ks, start, nil)
		return nil, err
	}
	c.endWrite(ctx, userID, ks, start, p)
	return p, nil
}

// DeleteProfile implements Repository.
func (c *CachedRepository) DeleteProfile(ctx context.Context, userID string) (bool, error) {
	ks, start := c.beginWrite(userID)
	existed, err := c.next.DeleteProfile(ctx, userID)
	c.endWrite(ctx, userID, ks, start, nil)
	return existed, err
}

// beginWrite marks a write in flight and drops any shared read started
// before it, so later readers go back to the backend.
func (c *CachedRepository) beginWrite(userID string) (*keyState, uint64) {
	c.mu.Lock()
	ks := c.acquire(userID)
	ks.writers++
	ks.gen++
	start := ks.gen
	c.mu.Unlock()

	c.group.Forget(userID)
	return ks, start
}

// endWrite caches p when the write ran alone. Otherwise, or when p is nil,
// the entry is invalidated and the next read refills it.
func (c *CachedRepository) endWrite(ctx context.Context, userID string, ks *keyState, start uint64, p *domain.Profile) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ks.writers--
	ks.gen++
	if p != nil && ks.gen == start+1 {
		c.store(ctx, p)
	} else {
		c.invalidate(ctx, userID)
	}
	c.release(userID, ks)
}

// acquire and release must be called with c.mu held.
func (c *CachedRepository) acquire(userID string) *keyState {
	ks, ok := c.keys[userID]
	if !ok {
		ks = &keyState{}
		c.keys[userID] = ks
	}
	ks.refs++
	return ks
}

func (c *CachedRepository) release(userID string, ks *keyState) {
	ks.refs--
	if ks.refs == 0 {
		delete(c.keys, userID)
	}
}

// Ping implements Repository.
func (c *CachedRepository) Ping(ctx context.Context) error {
	return c.next.Ping(ctx)
}

// Close closes the wrapped repository. The kv store is owned by the caller.
func (c *CachedRepository) Close() error {
	return c.next.Close()
}

func (c *CachedRepository) store(ctx context.Context, p *domain.Profile) {
	if err := c.cache.Set(ctx, cacheKey(p.UserID), p, c.ttl); err != nil {
		c.logger.Warn("Profile cache write failed", "user_id", p.UserID, "error", err)
	}
}

func (c *CachedRepository) invalidate(ctx context.Context, userID string) {
	if err := c.cache.Delete(ctx, cacheKey(userID)); err != nil {
		c.logger.Warn("Profile cache invalidation failed", "user_id", userID, "error", err)
	}
}

var _ Repository = (*CachedRepository)(nil)
