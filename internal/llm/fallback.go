package llm

import (
	"fmt"

	"github.com/ashureev/wellness-labs/internal/domain"
)

var fallbackQuestions = map[domain.FieldName]string{
	domain.FieldAge:               "To get started, could you tell me your age? This helps us tailor recommendations for your life stage.",
	domain.FieldGender:            "What gender do you identify as? This helps us provide more personalized wellness advice.",
	domain.FieldActivityLevel:     "How would you describe your current activity level? Are you more sedentary, moderately active, or very active?",
	domain.FieldDietaryPreference: "Do you follow any specific dietary preferences? For example, are you vegan, vegetarian, or have no specific preference?",
	domain.FieldSleepQuality:      "How would you rate your sleep quality overall? Would you say it's poor, average, or good?",
	domain.FieldStressLevel:       "What's your current stress level like? Would you describe it as low, medium, or high?",
	domain.FieldHealthGoals:       "What are your main health and wellness goals? What would you like to achieve or improve?",
}

// FallbackQuestion returns the canned question for field. Unknown fields get
// a generic question built from the field name.
func FallbackQuestion(field domain.FieldName) domain.Question {
	if q, ok := fallbackQuestions[field]; ok {
		return domain.Question{Question: q, Field: field}
	}
	return domain.Question{
		Question: fmt.Sprintf("Could you tell me about your %s?", field.Label()),
		Field:    field,
	}
}
