package kv

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type record struct {
	Name  string
	Count int
	Seen  time.Time
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_SetGetDelete(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	in := record{Name: "alpha", Count: 3, Seen: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	if err := s.Set(ctx, "rec:1", in, 0); err != nil {
		t.Fatalf("Set: %v", err)
	}

	var out record
	if err := s.Get(ctx, "rec:1", &out); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if out.Name != in.Name || out.Count != in.Count || !out.Seen.Equal(in.Seen) {
		t.Errorf("Expected %+v, got %+v", in, out)
	}

	if err := s.Delete(ctx, "rec:1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Get(ctx, "rec:1", &out); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
	if err := s.Delete(ctx, "rec:missing"); err != nil {
		t.Errorf("Delete of missing key should succeed, got %v", err)
	}
}

func TestStore_TTL(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Set(ctx, "ttl", record{Name: "x"}, time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}
	ttl, err := s.TTL(ctx, "ttl")
	if err != nil {
		t.Fatalf("TTL: %v", err)
	}
	if ttl <= 0 || ttl > time.Hour {
		t.Errorf("Expected TTL within (0, 1h], got %v", ttl)
	}

	if err := s.Set(ctx, "forever", record{Name: "y"}, 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if ttl, err := s.TTL(ctx, "forever"); err != nil || ttl != 0 {
		t.Errorf("Expected no expiry, got %v (err %v)", ttl, err)
	}
}

func TestMutate_Concurrent(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := Mutate(ctx, s, "counter", 0, func(r *record, _ bool) error {
				r.Count++
				return nil
			})
			if err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	failed := 0
	for err := range errs {
		if err != nil {
			failed++
		}
	}

	var out record
	if err := s.Get(ctx, "counter", &out); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if out.Count != workers-failed {
		t.Errorf("Expected count %d, got %d", workers-failed, out.Count)
	}
	if failed > 0 {
		t.Logf("%d writers exhausted conflict retries", failed)
	}
}

func TestMutate_PropagatesError(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	sentinel := errors.New("boom")
	_, err := Mutate(ctx, s, "k", 0, func(_ *record, found bool) error {
		if found {
			t.Error("Expected key to be absent")
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("Expected sentinel error, got %v", err)
	}
	if err := s.Get(ctx, "k", &record{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Failed mutation should not write, got %v", err)
	}
}
