// Package profile implements profile lifecycle operations on top of a
// store.Repository: get-or-create, validated partial updates that repair
// missing profiles, deletion and completion reporting.
package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ashureev/wellness-labs/internal/domain"
	"github.com/ashureev/wellness-labs/internal/store"
)

// ErrNotFound is returned when a profile does not exist.
var ErrNotFound = errors.New("profile not found")

// ValidationError reports an invalid update field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// UpdateParams is a partial profile update. Nil fields are left unchanged.
type UpdateParams struct {
	Age               *int    `json:"age,omitempty" validate:"omitempty,age_range"`
	Gender            *string `json:"gender,omitempty" validate:"omitempty,notblank"`
	ActivityLevel     *string `json:"activity_level,omitempty" validate:"omitempty,oneof=sedentary moderate active"`
	DietaryPreference *string `json:"dietary_preference,omitempty" validate:"omitempty,oneof=vegan vegetarian no_preference"`
	SleepQuality      *string `json:"sleep_quality,omitempty" validate:"omitempty,oneof=poor average good"`
	StressLevel       *string `json:"stress_level,omitempty" validate:"omitempty,oneof=low medium high"`
	HealthGoals       *string `json:"health_goals,omitempty" validate:"omitempty,notblank"`
}

// Completion summarizes which fields are filled.
type Completion struct {
	CompletionPercentage float64            `json:"completion_percentage"`
	MissingFields        []domain.FieldName `json:"missing_fields"`
	CompletedFields      []domain.FieldName `json:"completed_fields"`
	IsComplete           bool               `json:"is_complete"`
}

// Config configures a Service.
type Config struct {
	MinAge int
	MaxAge int
	Logger *slog.Logger
}

// Service provides profile operations.
type Service struct {
	repo     store.Repository
	validate *validator.Validate
	minAge   int
	maxAge   int
	logger   *slog.Logger
}

// NewService creates a Service. Age bounds outside the domain limits are
// clamped to them.
func NewService(repo store.Repository, cfg Config) *Service {
	if cfg.MinAge < domain.MinAge {
		cfg.MinAge = domain.MinAge
	}
	if cfg.MaxAge <= 0 || cfg.MaxAge > domain.MaxAge {
		cfg.MaxAge = domain.MaxAge
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Service{
		repo:     repo,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		minAge:   cfg.MinAge,
		maxAge:   cfg.MaxAge,
		logger:   cfg.Logger,
	}
	// Registration only fails for empty tags or nil funcs.
	_ = s.validate.RegisterValidation("age_range", func(fl validator.FieldLevel) bool {
		age := fl.Field().Int()
		return age >= int64(s.minAge) && age <= int64(s.maxAge)
	})
	_ = s.validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return s
}

// GetOrCreate returns the profile for userID, creating an empty one when
// none exists.
func (s *Service) GetOrCreate(ctx context.Context, userID string) (*domain.Profile, error) {
	p, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if p != nil {
		return p, nil
	}

	p, err = s.repo.CreateProfile(ctx, userID)
	if errors.Is(err, store.ErrAlreadyExists) {
		// Lost a creation race; read the winner.
		p, err = s.repo.GetProfile(ctx, userID)
		if err == nil && p == nil {
			err = ErrNotFound
		}
	}
	if err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	s.logger.Info("Profile created", "user_id", userID)
	return p, nil
}

// Init starts a profiling session for userID.
func (s *Service) Init(ctx context.Context, userID string) (*domain.Profile, error) {
	return s.GetOrCreate(ctx, userID)
}

// Get returns the profile or ErrNotFound.
func (s *Service) Get(ctx context.Context, userID string) (*domain.Profile, error) {
	p, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if p == nil {
		return nil, ErrNotFound
	}
	return p, nil
}

// Update validates params and applies them.
func (s *Service) Update(ctx context.Context, userID string, params UpdateParams) (*domain.Profile, error) {
	if err := s.validate.Struct(params); err != nil {
		return nil, s.toValidationError(err)
	}
	return s.Apply(ctx, userID, params.updates())
}

// Apply stores typed updates. A missing profile is created and the update
// retried.
func (s *Service) Apply(ctx context.Context, userID string, updates map[domain.FieldName]domain.Value) (*domain.Profile, error) {
	if len(updates) == 0 {
		return s.GetOrCreate(ctx, userID)
	}

	p, err := s.repo.UpdateProfile(ctx, userID, updates)
	if errors.Is(err, store.ErrNotFound) {
		s.logger.Info("Profile missing on update, creating", "user_id", userID)
		if _, createErr := s.repo.CreateProfile(ctx, userID); createErr != nil && !errors.Is(createErr, store.ErrAlreadyExists) {
			return nil, fmt.Errorf("create profile: %w", createErr)
		}
		p, err = s.repo.UpdateProfile(ctx, userID, updates)
	}
	if err != nil {
		if errors.Is(err, domain.ErrInvalidValue) {
			return nil, &ValidationError{Field: "profile", Reason: err.Error()}
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return p, nil
}

// Delete removes the profile or returns ErrNotFound.
func (s *Service) Delete(ctx context.Context, userID string) error {
	existed, err := s.repo.DeleteProfile(ctx, userID)
	if err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	if !existed {
		return ErrNotFound
	}
	s.logger.Info("Profile deleted", "user_id", userID)
	return nil
}

// Completion reports completion status for an existing profile.
func (s *Service) Completion(ctx context.Context, userID string) (Completion, error) {
	p, err := s.Get(ctx, userID)
	if err != nil {
		return Completion{}, err
	}
	return CompletionOf(p), nil
}

// CompletionOf derives the completion summary of p.
func CompletionOf(p *domain.Profile) Completion {
	return Completion{
		CompletionPercentage: p.CompletionPercentage,
		MissingFields:        p.MissingFields(),
		CompletedFields:      p.CompletedFields(),
		IsComplete:           p.IsComplete(),
	}
}

// Ping checks the backing store.
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func (p UpdateParams) updates() map[domain.FieldName]domain.Value {
	u := make(map[domain.FieldName]domain.Value)
	if p.Age != nil {
		u[domain.FieldAge] = *p.Age
	}
	if p.Gender != nil {
		u[domain.FieldGender] = strings.TrimSpace(*p.Gender)
	}
	if p.ActivityLevel != nil {
		u[domain.FieldActivityLevel] = *p.ActivityLevel
	}
	if p.DietaryPreference != nil {
		u[domain.FieldDietaryPreference] = *p.DietaryPreference
	}
	if p.SleepQuality != nil {
		u[domain.FieldSleepQuality] = *p.SleepQuality
	}
	if p.StressLevel != nil {
		u[domain.FieldStressLevel] = *p.StressLevel
	}
	if p.HealthGoals != nil {
		u[domain.FieldHealthGoals] = strings.TrimSpace(*p.HealthGoals)
	}
	return u
}

var jsonFieldNames = map[string]string{
	"Age":               "age",
	"Gender":            "gender",
	"ActivityLevel":     "activity_level",
	"DietaryPreference": "dietary_preference",
	"SleepQuality":      "sleep_quality",
	"StressLevel":       "stress_level",
	"HealthGoals":       "health_goals",
}

func (s *Service) toValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ValidationError{Field: "profile", Reason: err.Error()}
	}
	fe := verrs[0]
	field := jsonFieldNames[fe.Field()]
	if field == "" {
		field = fe.Field()
	}

	var reason string
	switch fe.Tag() {
	case "age_range":
		reason = fmt.Sprintf("must be between %d and %d", s.minAge, s.maxAge)
	case "oneof":
		reason = "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "notblank":
		reason = "cannot be empty"
	default:
		reason = "failed " + fe.Tag() + " validation"
	}
	return &ValidationError{Field: field, Reason: reason}
}
