package domain

// QuestionContext is the generation context for the next question. It is
// sent to clients with each question and echoed back with the answer so the
// answer can be interpreted against Field.
type QuestionContext struct {
	Profile              *Profile    `json:"profile,omitempty"`
	MissingFields        []FieldName `json:"missing_fields"`
	Field                FieldName   `json:"field"`
	MissingField         FieldName   `json:"missing_field,omitempty"`
	CompletionPercentage float64     `json:"completion_percentage"`
}

// NewQuestionContext derives the context for p. Field is the first missing
// field, or FieldGeneral when nothing is missing.
func NewQuestionContext(p *Profile) QuestionContext {
	missing := p.MissingFields()
	field := FieldGeneral
	if len(missing) > 0 {
		field = missing[0]
	}
	return QuestionContext{
		Profile:              p.Clone(),
		MissingFields:        missing,
		Field:                field,
		MissingField:         field,
		CompletionPercentage: p.CompletionPercentage,
	}
}

// Question is a generated or canned question targeting one field.
type Question struct {
	Question  string    `json:"question"`
	Field     FieldName `json:"field"`
	Reasoning string    `json:"reasoning,omitempty"`
}
