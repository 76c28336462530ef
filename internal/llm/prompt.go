package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ashureev/wellness-labs/internal/domain"
)

const wellnessCoachPrompt = `You are an experienced wellness coach creating personalized health profiles.
Your goal is to ask thoughtful, engaging questions that feel conversational and supportive.

Guidelines:
- Ask one question at a time
- Make questions feel personal and relevant
- Be encouraging and non-judgmental
- Focus on understanding the person's lifestyle and goals
- Always return valid JSON with "question" and "field" keys, and optionally "reasoning"

Example response: {"question": "What does your typical day look like in terms of physical activity?", "field": "activity_level"}`

// questionMessages builds the chat sent to providers for qc.
func questionMessages(qc domain.QuestionContext) []Message {
	return []Message{
		{Role: RoleSystem, Content: wellnessCoachPrompt},
		{Role: RoleUser, Content: describeContext(qc)},
	}
}

func describeContext(qc domain.QuestionContext) string {
	missing := make([]string, len(qc.MissingFields))
	for i, f := range qc.MissingFields {
		missing[i] = string(f)
	}

	profileJSON := []byte("{}")
	if qc.Profile != nil {
		if b, err := json.MarshalIndent(qc.Profile, "", "  "); err == nil {
			profileJSON = b
		}
	}

	focus := qc.Field
	if focus == "" {
		focus = domain.FieldGeneral
		if len(qc.MissingFields) > 0 {
			focus = qc.MissingFields[0]
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Current profile completion: %.1f%%\n", qc.CompletionPercentage)
	fmt.Fprintf(&b, "Missing information: %s\n", strings.Join(missing, ", "))
	fmt.Fprintf(&b, "Current profile data: %s\n", profileJSON)
	fmt.Fprintf(&b, "Focus on the '%s' field.", focus)
	return b.String()
}
