// Package store provides profile persistence interfaces and implementations.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/ashureev/wellness-labs/internal/domain"
)

var (
	// ErrNotFound is returned when an update targets a missing profile.
	ErrNotFound = errors.New("profile not found")
	// ErrAlreadyExists is returned when creating a profile that exists.
	ErrAlreadyExists = errors.New("profile already exists")
	// ErrCorrupt is returned when a stored profile holds a value outside
	// its enumeration.
	ErrCorrupt = errors.New("corrupt stored profile")
)

// Repository defines the interface for persisting wellness profiles.
type Repository interface {
	// GetProfile retrieves a profile. It returns nil, nil when absent.
	GetProfile(ctx context.Context, userID string) (*domain.Profile, error)

	// CreateProfile stores an empty profile with completion 0.
	CreateProfile(ctx context.Context, userID string) (*domain.Profile, error)

	// UpdateProfile merges updates into an existing profile and recomputes
	// completion. It returns ErrNotFound when the profile is absent.
	UpdateProfile(ctx context.Context, userID string, updates map[domain.FieldName]domain.Value) (*domain.Profile, error)

	// DeleteProfile removes a profile and reports whether it existed.
	DeleteProfile(ctx context.Context, userID string) (bool, error)

	// Ping verifies backend connectivity.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

// decodeEnum parses a stored enumeration value into *dst. A nil raw leaves
// dst unset.
func decodeEnum[T ~string](field domain.FieldName, raw *string, parse func(string) (T, error), dst **T) error {
	if raw == nil {
		return nil
	}
	v, err := parse(*raw)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorrupt, field, err)
	}
	*dst = &v
	return nil
}

// decodeEnums fills the enumerated fields of p from their stored strings.
func decodeEnums(p *domain.Profile, activity, diet, sleep, stress *string) error {
	return errors.Join(
		decodeEnum(domain.FieldActivityLevel, activity, domain.ParseActivityLevel, &p.ActivityLevel),
		decodeEnum(domain.FieldDietaryPreference, diet, domain.ParseDietaryPreference, &p.DietaryPreference),
		decodeEnum(domain.FieldSleepQuality, sleep, domain.ParseSleepQuality, &p.SleepQuality),
		decodeEnum(domain.FieldStressLevel, stress, domain.ParseStressLevel, &p.StressLevel),
	)
}
