package llm

import (
	"testing"

	"github.com/ashureev/wellness-labs/internal/domain"
)

func TestParseQuestion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want domain.Question
	}{
		{
			name: "valid json",
			raw:  `{"question": "How active are you?", "field": "activity_level"}`,
			want: domain.Question{Question: "How active are you?", Field: domain.FieldActivityLevel},
		},
		{
			name: "reasoning kept",
			raw:  `{"question":"Any diet?","field":"dietary_preference","reasoning":"next field"}`,
			want: domain.Question{Question: "Any diet?", Field: domain.FieldDietaryPreference, Reasoning: "next field"},
		},
		{
			name: "code fence",
			raw:  "```json\n{\"question\": \"How do you sleep?\", \"field\": \"sleep_quality\"}\n```",
			want: domain.Question{Question: "How do you sleep?", Field: domain.FieldSleepQuality},
		},
		{
			name: "trailing comma repaired",
			raw:  `{"question": "Stress?", "field": "stress_level",}`,
			want: domain.Question{Question: "Stress?", Field: domain.FieldStressLevel},
		},
		{
			name: "missing field key",
			raw:  `{"question": "What are your goals?"}`,
			want: domain.Question{Question: `{"question": "What are your goals?"}`, Field: domain.FieldGeneral},
		},
		{
			name: "plain text",
			raw:  "  What's your age?\n",
			want: domain.Question{Question: "What's your age?", Field: domain.FieldGeneral},
		},
		{
			name: "json array",
			raw:  `["a", "b"]`,
			want: domain.Question{Question: `["a", "b"]`, Field: domain.FieldGeneral},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseQuestion(tt.raw); got != tt.want {
				t.Errorf("Expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestDescribeContext(t *testing.T) {
	t.Parallel()

	qc := domain.QuestionContext{
		MissingFields:        []domain.FieldName{domain.FieldGender, domain.FieldHealthGoals},
		Field:                domain.FieldGender,
		CompletionPercentage: 71.4,
	}
	got := describeContext(qc)
	want := "Current profile completion: 71.4%\n" +
		"Missing information: gender, health_goals\n" +
		"Current profile data: {}\n" +
		"Focus on the 'gender' field."
	if got != want {
		t.Errorf("Unexpected context:\n%s\nwant:\n%s", got, want)
	}
}
