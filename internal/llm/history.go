package llm

import (
	"sync"
	"time"
)

// History operations.
const (
	OpGenerateQuestion         = "generate_wellness_question"
	OpGenerateQuestionFailed   = "generate_wellness_question_failed"
	OpGenerateQuestionFallback = "generate_wellness_question_fallback"
)

// DefaultHistorySize is the number of requests kept when no size is given.
const DefaultHistorySize = 100

// HistoryEntry records one gateway request for diagnostics.
type HistoryEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Operation string    `json:"operation"`
	Provider  string    `json:"provider,omitempty"`
	Input     any       `json:"input,omitempty"`
	Output    any       `json:"output,omitempty"`
	Error     string    `json:"error,omitempty"`
	Success   bool      `json:"success"`
}

// History is a fixed-size ring of the most recent entries. When full, the
// oldest entry is overwritten.
type History struct {
	mu      sync.RWMutex
	entries []HistoryEntry
	head    int // next write position
	full    bool
	total   int64
	failed  int64
}

// NewHistory creates a history holding at most size entries.
func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &History{entries: make([]HistoryEntry, size)}
}

// Add appends e, evicting the oldest entry when full.
func (h *History) Add(e HistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries[h.head] = e
	h.head = (h.head + 1) % len(h.entries)
	if h.head == 0 {
		h.full = true
	}
	h.total++
	if !e.Success {
		h.failed++
	}
}

// Entries returns the retained entries, oldest first.
func (h *History) Entries() []HistoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if !h.full {
		out := make([]HistoryEntry, h.head)
		copy(out, h.entries[:h.head])
		return out
	}
	out := make([]HistoryEntry, 0, len(h.entries))
	out = append(out, h.entries[h.head:]...)
	out = append(out, h.entries[:h.head]...)
	return out
}

// Recent returns up to n of the newest entries, oldest first.
func (h *History) Recent(n int) []HistoryEntry {
	all := h.Entries()
	if n >= 0 && len(all) > n {
		return all[len(all)-n:]
	}
	return all
}

// Len returns the number of retained entries.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.full {
		return len(h.entries)
	}
	return h.head
}

// Capacity returns the maximum number of retained entries.
func (h *History) Capacity() int {
	return len(h.entries)
}

// Totals returns the number of requests and failed requests ever recorded.
func (h *History) Totals() (total, failed int64) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.total, h.failed
}
