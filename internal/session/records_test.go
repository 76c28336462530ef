package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ashureev/wellness-labs/internal/domain"
	"github.com/ashureev/wellness-labs/internal/kv"
)

func newRecords(t *testing.T) *Records {
	t.Helper()
	store, err := kv.OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return NewRecords(store, 0)
}

func TestRecords_Lifecycle(t *testing.T) {
	t.Parallel()

	r := newRecords(t)
	ctx := context.Background()

	if err := r.Connect(ctx, "u1", "c1"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	for _, typ := range []string{msgUserMessage, msgUserAnswer, msgUserAnswer} {
		if err := r.Touch(ctx, "u1", typ); err != nil {
			t.Fatalf("Touch: %v", err)
		}
	}

	rec, err := r.Session(ctx, "u1")
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	if rec.ConnectionID != "c1" || rec.State != stateActive || rec.MessageCount != 3 {
		t.Errorf("Unexpected record %+v", rec)
	}
	if rec.MessageTypes[msgUserAnswer] != 2 || rec.MessageTypes[msgUserMessage] != 1 {
		t.Errorf("Unexpected message types %v", rec.MessageTypes)
	}

	if err := r.Disconnect(ctx, "u1", "c1"); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	rec, _ = r.Session(ctx, "u1")
	if rec.State != stateDisconnected || rec.DisconnectedAt == nil {
		t.Errorf("Expected disconnected record, got %+v", rec)
	}
}

func TestRecords_DisconnectOfReplacedConnection(t *testing.T) {
	t.Parallel()

	r := newRecords(t)
	ctx := context.Background()

	_ = r.Connect(ctx, "u1", "old")
	_ = r.Connect(ctx, "u1", "new")
	if err := r.Disconnect(ctx, "u1", "old"); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}

	rec, _ := r.Session(ctx, "u1")
	if rec.ConnectionID != "new" || rec.State != stateActive {
		t.Errorf("Replacement record must stay active, got %+v", rec)
	}
}

func TestRecords_Stats(t *testing.T) {
	t.Parallel()

	r := newRecords(t)
	ctx := context.Background()

	st, err := r.Stats(ctx, 0)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.ActiveConnections != 0 || st.TotalConnections != 0 {
		t.Errorf("Expected zero stats, got %+v", st)
	}

	_ = r.Connect(ctx, "a", "1")
	_ = r.Connect(ctx, "b", "2")
	_ = r.Disconnect(ctx, "a", "1")
	_ = r.Connect(ctx, "c", "3")

	st, err = r.Stats(ctx, 2)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.ActiveConnections != 2 || st.TotalConnections != 3 || st.PeakConnections != 2 || st.CurrentInMemory != 2 {
		t.Errorf("Unexpected stats %+v", st)
	}

	// Extra disconnects never drive the counter negative.
	_ = r.Disconnect(ctx, "x", "9")
	_ = r.Disconnect(ctx, "y", "9")
	_ = r.Disconnect(ctx, "z", "9")
	st, _ = r.Stats(ctx, 0)
	if st.ActiveConnections != 0 {
		t.Errorf("Expected active clamped at 0, got %d", st.ActiveConnections)
	}
}

func TestRecords_Context(t *testing.T) {
	t.Parallel()

	r := newRecords(t)
	ctx := context.Background()

	if _, ok, err := r.LoadContext(ctx, "u1"); ok || err != nil {
		t.Fatalf("Expected no context, got ok=%v err=%v", ok, err)
	}

	p := domain.NewProfile("u1", time.Now())
	age := 30
	p.Age = &age
	p.Recompute()
	qc := domain.NewQuestionContext(p)

	if err := r.SaveContext(ctx, "u1", qc); err != nil {
		t.Fatalf("SaveContext: %v", err)
	}
	got, ok, err := r.LoadContext(ctx, "u1")
	if err != nil || !ok {
		t.Fatalf("LoadContext: ok=%v err=%v", ok, err)
	}
	if got.Field != domain.FieldGender || len(got.MissingFields) != 6 {
		t.Errorf("Unexpected context %+v", got)
	}
	if got.Profile == nil || got.Profile.Age == nil || *got.Profile.Age != 30 {
		t.Errorf("Profile not round-tripped: %+v", got.Profile)
	}
}

func TestRecords_SessionNotFound(t *testing.T) {
	t.Parallel()

	r := newRecords(t)
	if _, err := r.Session(context.Background(), "ghost"); !errors.Is(err, kv.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
