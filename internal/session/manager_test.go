package session

import (
	"sync"
	"testing"
)

func TestManager_RegisterAndUnregister(t *testing.T) {
	t.Parallel()

	m := NewManager()
	m.Register("u1", "c1", nil)

	if id, _ := m.GetActive("u1"); id != "c1" {
		t.Fatalf("Expected c1, got %q", id)
	}
	if m.Count() != 1 {
		t.Errorf("Expected 1 connection, got %d", m.Count())
	}

	if !m.Unregister("u1", "c1") {
		t.Error("Expected unregister to succeed")
	}
	if id, conn := m.GetActive("u1"); id != "" || conn != nil {
		t.Errorf("Expected no active connection, got %q", id)
	}
}

func TestManager_ReplacedConnectionKeepsNewer(t *testing.T) {
	t.Parallel()

	m := NewManager()
	m.Register("u1", "old", nil)
	m.Register("u1", "new", nil)

	if m.Unregister("u1", "old") {
		t.Error("Stale connection must not unregister the replacement")
	}
	if id, _ := m.GetActive("u1"); id != "new" {
		t.Errorf("Expected new connection to stay active, got %q", id)
	}
	if m.Count() != 1 {
		t.Errorf("Expected 1 connection, got %d", m.Count())
	}
}

func TestManager_CloseSessionAndCloseAll(t *testing.T) {
	t.Parallel()

	m := NewManager()
	m.Register("a", "1", nil)
	m.Register("b", "2", nil)
	m.Register("c", "3", nil)

	m.CloseSession("a")
	if m.Count() != 2 {
		t.Fatalf("Expected 2 connections after CloseSession, got %d", m.Count())
	}

	m.CloseAll()
	if m.Count() != 0 {
		t.Errorf("Expected no connections after CloseAll, got %d", m.Count())
	}
}

func TestManager_Concurrent(t *testing.T) {
	t.Parallel()

	m := NewManager()
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := string(rune('a' + n%26))
			m.Register(id, id+"-conn", nil)
			_, _ = m.GetActive(id)
			_ = m.Count()
		}(i)
	}
	wg.Wait()

	if m.Count() != 26 {
		t.Errorf("Expected 26 users, got %d", m.Count())
	}
}
