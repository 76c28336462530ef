package llm

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/ashureev/wellness-labs/internal/domain"
)

// questionPayload is the JSON object providers are asked to return.
type questionPayload struct {
	Question  string `json:"question" jsonschema:"the next question to ask the user"`
	Field     string `json:"field" jsonschema:"the profile field the question targets"`
	Reasoning string `json:"reasoning" jsonschema:"short reason for asking this question"`
}

// parseQuestion interprets a provider completion. Output that is not a JSON
// object with both question and field becomes the question text itself,
// targeting the general field.
func parseQuestion(raw string) domain.Question {
	text := strings.TrimSpace(raw)

	var payload struct {
		Question  *string `json:"question"`
		Field     *string `json:"field"`
		Reasoning string  `json:"reasoning"`
	}
	if err := unmarshalJSON([]byte(stripCodeFence(text)), &payload); err == nil &&
		payload.Question != nil && payload.Field != nil &&
		strings.TrimSpace(*payload.Question) != "" {
		return domain.Question{
			Question:  strings.TrimSpace(*payload.Question),
			Field:     domain.FieldName(strings.TrimSpace(*payload.Field)),
			Reasoning: payload.Reasoning,
		}
	}

	return domain.Question{Question: text, Field: domain.FieldGeneral}
}

// unmarshalJSON decodes data into v, repairing malformed JSON once.
func unmarshalJSON(data []byte, v any) error {
	err := json.Unmarshal(data, v)
	if err == nil {
		return nil
	}
	var syntaxErr *json.SyntaxError
	if !errors.As(err, &syntaxErr) {
		return err
	}
	fixed, repairErr := jsonrepair.JSONRepair(string(data))
	if repairErr != nil {
		return err
	}
	return json.Unmarshal([]byte(fixed), v)
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
