package conversation

import "github.com/ashureev/wellness-labs/internal/domain"

var simpleQuestions = map[domain.FieldName]string{
	domain.FieldAge:               "What's your age?",
	domain.FieldGender:            "How do you identify in terms of gender?",
	domain.FieldActivityLevel:     "How would you describe your current activity level? (sedentary, moderate, or active)",
	domain.FieldDietaryPreference: "Do you have any dietary preferences? (e.g., vegan, vegetarian, or no preference)",
	domain.FieldSleepQuality:      "How would you rate your sleep quality? (poor, average, or good)",
	domain.FieldStressLevel:       "What's your current stress level? (low, medium, or high)",
	domain.FieldHealthGoals:       "What are your main health and wellness goals?",
}

// SimpleQuestion is the short follow-up used in free-form chat.
func SimpleQuestion(field domain.FieldName) string {
	if q, ok := simpleQuestions[field]; ok {
		return q
	}
	return "Could you tell me more about yourself?"
}
