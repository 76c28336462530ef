package store

import (
	"context"
	"errors"
	"net"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/ashureev/wellness-labs/internal/domain"
)

const firestoreTestProject = "demo-wellness-test"

func skipIfFirestoreUnavailable(t *testing.T) {
	t.Helper()
	host := os.Getenv("FIRESTORE_EMULATOR_HOST")
	if host == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", host)
	if err != nil {
		t.Skip("Firestore emulator not available")
	}
	_ = conn.Close()
}

func TestFirestoreStore(t *testing.T) {
	skipIfFirestoreUnavailable(t)

	client, err := firestore.NewClient(context.Background(), firestoreTestProject)
	if err != nil {
		t.Fatalf("failed to create Firestore client: %v", err)
	}
	s := NewFirestoreStore(client)
	t.Cleanup(func() {
		_, _ = s.DeleteProfile(context.Background(), "u1")
		_ = s.Close()
	})

	runRepositoryContract(t, s)
}

func TestFirestoreProfile_ToDomain(t *testing.T) {
	t.Parallel()

	str := func(s string) *string { return &s }

	p, err := firestoreProfile{ActivityLevel: str("moderate"), SleepQuality: str("poor")}.toDomain("u1")
	if err != nil {
		t.Fatalf("toDomain: %v", err)
	}
	if p.ActivityLevel == nil || *p.ActivityLevel != domain.ActivityModerate {
		t.Errorf("Expected moderate activity, got %v", p.ActivityLevel)
	}
	if p.SleepQuality == nil || *p.SleepQuality != domain.SleepPoor {
		t.Errorf("Expected poor sleep, got %v", p.SleepQuality)
	}

	if _, err := (firestoreProfile{DietaryPreference: str("keto")}).toDomain("u1"); !errors.Is(err, ErrCorrupt) {
		t.Errorf("Expected ErrCorrupt, got %v", err)
	}
}
