package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// ErrInvalidValue is returned when a value does not fit its field.
var ErrInvalidValue = errors.New("invalid field value")

// Value is a typed field value: int for age, one of the enumeration types,
// or a string for gender and health goals.
type Value any

// Profile is the persisted record of a user's wellness attributes.
type Profile struct {
	UserID               string             `json:"user_id"`
	Age                  *int               `json:"age"`
	Gender               *string            `json:"gender"`
	ActivityLevel        *ActivityLevel     `json:"activity_level"`
	DietaryPreference    *DietaryPreference `json:"dietary_preference"`
	SleepQuality         *SleepQuality      `json:"sleep_quality"`
	StressLevel          *StressLevel       `json:"stress_level"`
	HealthGoals          *string            `json:"health_goals"`
	CompletionPercentage float64            `json:"completion_percentage"`
	CreatedAt            time.Time          `json:"created_at"`
	UpdatedAt            time.Time          `json:"updated_at"`
}

// NewProfile returns an empty profile for userID.
func NewProfile(userID string, now time.Time) *Profile {
	return &Profile{
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NormalizeValue coerces v into the typed value expected by field.
func NormalizeValue(field FieldName, v any) (Value, error) {
	switch field {
	case FieldAge:
		var age int
		switch n := v.(type) {
		case int:
			age = n
		case int32:
			age = int(n)
		case int64:
			age = int(n)
		case float64:
			if n != math.Trunc(n) {
				return nil, fmt.Errorf("%w: age must be a whole number", ErrInvalidValue)
			}
			age = int(n)
		default:
			return nil, fmt.Errorf("%w: age must be a number, got %T", ErrInvalidValue, v)
		}
		if age < MinAge || age > MaxAge {
			return nil, fmt.Errorf("%w: age must be between %d and %d", ErrInvalidValue, MinAge, MaxAge)
		}
		return age, nil
	case FieldActivityLevel:
		s, err := enumString(v)
		if err != nil {
			return nil, err
		}
		level, err := ParseActivityLevel(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidValue, err)
		}
		return level, nil
	case FieldDietaryPreference:
		s, err := enumString(v)
		if err != nil {
			return nil, err
		}
		pref, err := ParseDietaryPreference(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidValue, err)
		}
		return pref, nil
	case FieldSleepQuality:
		s, err := enumString(v)
		if err != nil {
			return nil, err
		}
		q, err := ParseSleepQuality(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidValue, err)
		}
		return q, nil
	case FieldStressLevel:
		s, err := enumString(v)
		if err != nil {
			return nil, err
		}
		level, err := ParseStressLevel(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidValue, err)
		}
		return level, nil
	case FieldGender, FieldHealthGoals:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s must be text, got %T", ErrInvalidValue, field, v)
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil, fmt.Errorf("%w: %s cannot be empty", ErrInvalidValue, field)
		}
		return s, nil
	}
	return nil, fmt.Errorf("%w: unknown field %q", ErrInvalidValue, field)
}

func enumString(v any) (string, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case ActivityLevel:
		return string(s), nil
	case DietaryPreference:
		return string(s), nil
	case SleepQuality:
		return string(s), nil
	case StressLevel:
		return string(s), nil
	}
	return "", fmt.Errorf("%w: expected text, got %T", ErrInvalidValue, v)
}

// Get returns the value of field and whether it is set.
func (p *Profile) Get(field FieldName) (Value, bool) {
	switch field {
	case FieldAge:
		if p.Age != nil {
			return *p.Age, true
		}
	case FieldGender:
		if p.Gender != nil {
			return *p.Gender, true
		}
	case FieldActivityLevel:
		if p.ActivityLevel != nil {
			return *p.ActivityLevel, true
		}
	case FieldDietaryPreference:
		if p.DietaryPreference != nil {
			return *p.DietaryPreference, true
		}
	case FieldSleepQuality:
		if p.SleepQuality != nil {
			return *p.SleepQuality, true
		}
	case FieldStressLevel:
		if p.StressLevel != nil {
			return *p.StressLevel, true
		}
	case FieldHealthGoals:
		if p.HealthGoals != nil {
			return *p.HealthGoals, true
		}
	}
	return nil, false
}

// Set validates v for field, stores it and recomputes completion.
func (p *Profile) Set(field FieldName, v Value) error {
	if err := p.set(field, v); err != nil {
		return err
	}
	p.Recompute()
	return nil
}

// Apply sets every value in updates. Nothing is changed if any value is invalid.
func (p *Profile) Apply(updates map[FieldName]Value) error {
	normalized := make(map[FieldName]Value, len(updates))
	for field, v := range updates {
		nv, err := NormalizeValue(field, v)
		if err != nil {
			return err
		}
		normalized[field] = nv
	}
	for field, v := range normalized {
		if err := p.set(field, v); err != nil {
			return err
		}
	}
	p.Recompute()
	return nil
}

func (p *Profile) set(field FieldName, v Value) error {
	nv, err := NormalizeValue(field, v)
	if err != nil {
		return err
	}
	switch field {
	case FieldAge:
		age := nv.(int)
		p.Age = &age
	case FieldGender:
		s := nv.(string)
		p.Gender = &s
	case FieldActivityLevel:
		level := nv.(ActivityLevel)
		p.ActivityLevel = &level
	case FieldDietaryPreference:
		pref := nv.(DietaryPreference)
		p.DietaryPreference = &pref
	case FieldSleepQuality:
		q := nv.(SleepQuality)
		p.SleepQuality = &q
	case FieldStressLevel:
		level := nv.(StressLevel)
		p.StressLevel = &level
	case FieldHealthGoals:
		s := nv.(string)
		p.HealthGoals = &s
	}
	return nil
}

// Recompute derives CompletionPercentage from the set fields.
func (p *Profile) Recompute() {
	p.CompletionPercentage = float64(len(p.CompletedFields())) / float64(len(FieldOrder)) * 100
}

// MissingFields returns the unset fields in asking order.
func (p *Profile) MissingFields() []FieldName {
	missing := make([]FieldName, 0, len(FieldOrder))
	for _, f := range FieldOrder {
		if _, ok := p.Get(f); !ok {
			missing = append(missing, f)
		}
	}
	return missing
}

// CompletedFields returns the set fields in asking order.
func (p *Profile) CompletedFields() []FieldName {
	done := make([]FieldName, 0, len(FieldOrder))
	for _, f := range FieldOrder {
		if _, ok := p.Get(f); ok {
			done = append(done, f)
		}
	}
	return done
}

// IsComplete reports whether all fields are set.
func (p *Profile) IsComplete() bool {
	return len(p.MissingFields()) == 0
}

// Clone returns a deep copy of p.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	c := *p
	if p.Age != nil {
		v := *p.Age
		c.Age = &v
	}
	if p.Gender != nil {
		v := *p.Gender
		c.Gender = &v
	}
	if p.ActivityLevel != nil {
		v := *p.ActivityLevel
		c.ActivityLevel = &v
	}
	if p.DietaryPreference != nil {
		v := *p.DietaryPreference
		c.DietaryPreference = &v
	}
	if p.SleepQuality != nil {
		v := *p.SleepQuality
		c.SleepQuality = &v
	}
	if p.StressLevel != nil {
		v := *p.StressLevel
		c.StressLevel = &v
	}
	if p.HealthGoals != nil {
		v := *p.HealthGoals
		c.HealthGoals = &v
	}
	return &c
}
