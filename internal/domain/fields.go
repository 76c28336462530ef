// Package domain contains core domain types for the wellness profiler.
package domain

import (
	"fmt"
	"strings"
)

// FieldName identifies one of the profile attributes collected in conversation.
type FieldName string

// Profile fields in the order they are asked.
const (
	FieldAge               FieldName = "age"
	FieldGender            FieldName = "gender"
	FieldActivityLevel     FieldName = "activity_level"
	FieldDietaryPreference FieldName = "dietary_preference"
	FieldSleepQuality      FieldName = "sleep_quality"
	FieldStressLevel       FieldName = "stress_level"
	FieldHealthGoals       FieldName = "health_goals"

	// FieldGeneral is used when no specific field is targeted.
	FieldGeneral FieldName = "general"
)

// FieldOrder is the canonical "next field to ask" policy.
var FieldOrder = []FieldName{
	FieldAge,
	FieldGender,
	FieldActivityLevel,
	FieldDietaryPreference,
	FieldSleepQuality,
	FieldStressLevel,
	FieldHealthGoals,
}

// Age bounds, inclusive.
const (
	MinAge = 13
	MaxAge = 120
)

// Valid reports whether f is one of the seven profile fields.
func (f FieldName) Valid() bool {
	for _, known := range FieldOrder {
		if f == known {
			return true
		}
	}
	return false
}

// Label returns the field name with underscores replaced by spaces.
func (f FieldName) Label() string {
	return strings.ReplaceAll(string(f), "_", " ")
}

// ActivityLevel is how physically active a person describes themselves.
type ActivityLevel string

// Activity levels.
const (
	ActivitySedentary ActivityLevel = "sedentary"
	ActivityModerate  ActivityLevel = "moderate"
	ActivityActive    ActivityLevel = "active"
)

// ParseActivityLevel validates s as an ActivityLevel.
func ParseActivityLevel(s string) (ActivityLevel, error) {
	switch v := ActivityLevel(strings.ToLower(strings.TrimSpace(s))); v {
	case ActivitySedentary, ActivityModerate, ActivityActive:
		return v, nil
	}
	return "", fmt.Errorf("invalid activity level %q", s)
}

// DietaryPreference is a coarse diet category.
type DietaryPreference string

// Dietary preferences.
const (
	DietVegan        DietaryPreference = "vegan"
	DietVegetarian   DietaryPreference = "vegetarian"
	DietNoPreference DietaryPreference = "no_preference"
)

// ParseDietaryPreference validates s as a DietaryPreference.
func ParseDietaryPreference(s string) (DietaryPreference, error) {
	switch v := DietaryPreference(strings.ToLower(strings.TrimSpace(s))); v {
	case DietVegan, DietVegetarian, DietNoPreference:
		return v, nil
	}
	return "", fmt.Errorf("invalid dietary preference %q", s)
}

// SleepQuality is a self-reported sleep rating.
type SleepQuality string

// Sleep quality ratings.
const (
	SleepPoor    SleepQuality = "poor"
	SleepAverage SleepQuality = "average"
	SleepGood    SleepQuality = "good"
)

// ParseSleepQuality validates s as a SleepQuality.
func ParseSleepQuality(s string) (SleepQuality, error) {
	switch v := SleepQuality(strings.ToLower(strings.TrimSpace(s))); v {
	case SleepPoor, SleepAverage, SleepGood:
		return v, nil
	}
	return "", fmt.Errorf("invalid sleep quality %q", s)
}

// StressLevel is a self-reported stress rating.
type StressLevel string

// Stress levels.
const (
	StressLow    StressLevel = "low"
	StressMedium StressLevel = "medium"
	StressHigh   StressLevel = "high"
)

// ParseStressLevel validates s as a StressLevel.
func ParseStressLevel(s string) (StressLevel, error) {
	switch v := StressLevel(strings.ToLower(strings.TrimSpace(s))); v {
	case StressLow, StressMedium, StressHigh:
		return v, nil
	}
	return "", fmt.Errorf("invalid stress level %q", s)
}
