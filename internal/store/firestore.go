package store

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/ashureev/wellness-labs/internal/domain"
)

const profilesCollection = "profiles"

// firestoreProfile maps to the Firestore document structure.
type firestoreProfile struct {
	Age                  *int64    `firestore:"age"`
	Gender               *string   `firestore:"gender"`
	ActivityLevel        *string   `firestore:"activity_level"`
	DietaryPreference    *string   `firestore:"dietary_preference"`
	SleepQuality         *string   `firestore:"sleep_quality"`
	StressLevel          *string   `firestore:"stress_level"`
	HealthGoals          *string   `firestore:"health_goals"`
	CompletionPercentage float64   `firestore:"completion_percentage"`
	CreatedAt            time.Time `firestore:"created_at"`
	UpdatedAt            time.Time `firestore:"updated_at"`
}

func toFirestore(p *domain.Profile) firestoreProfile {
	fp := firestoreProfile{
		Gender:               p.Gender,
		HealthGoals:          p.HealthGoals,
		CompletionPercentage: p.CompletionPercentage,
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
	}
	if p.Age != nil {
		v := int64(*p.Age)
		fp.Age = &v
	}
	fp.ActivityLevel = enumPtr(p.ActivityLevel)
	fp.DietaryPreference = enumPtr(p.DietaryPreference)
	fp.SleepQuality = enumPtr(p.SleepQuality)
	fp.StressLevel = enumPtr(p.StressLevel)
	return fp
}

func (fp firestoreProfile) toDomain(userID string) (*domain.Profile, error) {
	p := &domain.Profile{
		UserID:               userID,
		Gender:               fp.Gender,
		HealthGoals:          fp.HealthGoals,
		CompletionPercentage: fp.CompletionPercentage,
		CreatedAt:            fp.CreatedAt,
		UpdatedAt:            fp.UpdatedAt,
	}
	if fp.Age != nil {
		v := int(*fp.Age)
		p.Age = &v
	}
	if err := decodeEnums(p, fp.ActivityLevel, fp.DietaryPreference, fp.SleepQuality, fp.StressLevel); err != nil {
		return nil, err
	}
	return p, nil
}

func enumPtr[T ~string](v *T) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}

// FirestoreStore implements Repository using Firestore with transactions.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore creates a new Firestore-backed store.
func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

// NewFirestore opens a client for projectID. FIRESTORE_EMULATOR_HOST is
// honored by the client library.
func NewFirestore(ctx context.Context, projectID string) (*FirestoreStore, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}
	return NewFirestoreStore(client), nil
}

// GetProfile retrieves a profile by user ID.
func (s *FirestoreStore) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	doc, err := s.client.Collection(profilesCollection).Doc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}

	var fp firestoreProfile
	if err := doc.DataTo(&fp); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return fp.toDomain(userID)
}

// CreateProfile creates a profile using a transaction to prevent duplicates.
func (s *FirestoreStore) CreateProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	docRef := s.client.Collection(profilesCollection).Doc(userID)
	p := domain.NewProfile(userID, time.Now().UTC())

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(docRef)
		if err == nil && doc.Exists() {
			return ErrAlreadyExists
		}
		if err != nil && status.Code(err) != codes.NotFound {
			return err
		}
		return tx.Set(docRef, toFirestore(p))
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// UpdateProfile merges updates using a transaction for atomicity.
func (s *FirestoreStore) UpdateProfile(ctx context.Context, userID string, updates map[domain.FieldName]domain.Value) (*domain.Profile, error) {
	docRef := s.client.Collection(profilesCollection).Doc(userID)

	var result *domain.Profile
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(docRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return ErrNotFound
			}
			return err
		}

		var fp firestoreProfile
		if err := doc.DataTo(&fp); err != nil {
			return err
		}

		p, err := fp.toDomain(userID)
		if err != nil {
			return err
		}
		if err := p.Apply(updates); err != nil {
			return err
		}
		p.UpdatedAt = time.Now().UTC()

		if err := tx.Set(docRef, toFirestore(p)); err != nil {
			return err
		}
		result = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteProfile removes a profile using a transaction to learn whether it existed.
func (s *FirestoreStore) DeleteProfile(ctx context.Context, userID string) (bool, error) {
	docRef := s.client.Collection(profilesCollection).Doc(userID)

	existed := false
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		existed = false
		_, err := tx.Get(docRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return nil
			}
			return err
		}
		existed = true
		return tx.Delete(docRef)
	})
	if err != nil {
		return false, err
	}
	return existed, nil
}

// Ping reads a sentinel document to verify connectivity.
func (s *FirestoreStore) Ping(ctx context.Context) error {
	_, err := s.client.Collection(profilesCollection).Doc("_ping").Get(ctx)
	if err != nil && status.Code(err) != codes.NotFound {
		return fmt.Errorf("ping firestore: %w", err)
	}
	return nil
}

// Close closes the Firestore client.
func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

var _ Repository = (*FirestoreStore)(nil)
