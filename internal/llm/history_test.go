package llm

import (
	"strconv"
	"sync"
	"testing"
)

func TestHistory_Bounded(t *testing.T) {
	t.Parallel()

	h := NewHistory(3)
	for i := 0; i < 5; i++ {
		h.Add(HistoryEntry{Operation: strconv.Itoa(i), Success: i%2 == 0})
	}

	entries := h.Entries()
	if len(entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(entries))
	}
	for i, want := range []string{"2", "3", "4"} {
		if entries[i].Operation != want {
			t.Errorf("entries[%d]: expected %s, got %s", i, want, entries[i].Operation)
		}
	}

	total, failed := h.Totals()
	if total != 5 || failed != 2 {
		t.Errorf("Expected totals 5/2, got %d/%d", total, failed)
	}
	if recent := h.Recent(2); len(recent) != 2 || recent[1].Operation != "4" {
		t.Errorf("Unexpected recent entries %+v", recent)
	}
}

func TestHistory_DefaultSize(t *testing.T) {
	t.Parallel()

	h := NewHistory(0)
	if h.Capacity() != DefaultHistorySize {
		t.Fatalf("Expected capacity %d, got %d", DefaultHistorySize, h.Capacity())
	}
	for i := 0; i < 150; i++ {
		h.Add(HistoryEntry{Operation: OpGenerateQuestion, Success: true})
	}
	if h.Len() != DefaultHistorySize {
		t.Errorf("Expected %d retained entries, got %d", DefaultHistorySize, h.Len())
	}
}

func TestHistory_ConcurrentAdd(t *testing.T) {
	t.Parallel()

	h := NewHistory(10)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.Add(HistoryEntry{Success: true})
			_ = h.Entries()
		}()
	}
	wg.Wait()

	if total, _ := h.Totals(); total != 50 {
		t.Errorf("Expected 50 total, got %d", total)
	}
	if h.Len() != 10 {
		t.Errorf("Expected 10 retained, got %d", h.Len())
	}
}
