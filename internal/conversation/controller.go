// Package conversation drives the profile-building dialogue one turn at a
// time. State is never stored here: every decision is recomputed from the
// profile passed in.
package conversation

import (
	"context"
	"log/slog"
	"strings"

	"github.com/ashureev/wellness-labs/internal/domain"
	"github.com/ashureev/wellness-labs/internal/extract"
	"github.com/ashureev/wellness-labs/internal/llm"
)

// CompletionMessage is returned once every field is filled.
const CompletionMessage = "Congratulations! Your wellness profile is complete. You're ready to start your personalized wellness journey!"

// QuestionGenerator produces the next question for a context.
// *llm.Gateway satisfies it.
type QuestionGenerator interface {
	GenerateQuestion(ctx context.Context, qc domain.QuestionContext) (domain.Question, error)
}

// ResultType distinguishes a question turn from the terminal turn.
type ResultType string

const (
	ResultQuestion   ResultType = "question"
	ResultCompletion ResultType = "completion"
)

// Result is the outcome of NextQuestion.
type Result struct {
	Type    ResultType              `json:"type"`
	Message string                  `json:"message"`
	Field   domain.FieldName        `json:"field,omitempty"`
	Context *domain.QuestionContext `json:"context,omitempty"`
	Profile *domain.Profile         `json:"profile,omitempty"`
}

// Answer is an interpreted structured answer. Value is nil unless Extracted.
type Answer struct {
	Field      domain.FieldName `json:"field"`
	Value      domain.Value     `json:"value"`
	Extracted  bool             `json:"extracted"`
	Confidence float64          `json:"confidence"`
	RawAnswer  string           `json:"raw_answer"`
}

// Reply is the response to a free-form chat message.
type Reply struct {
	Message         string                            `json:"message"`
	ProfileUpdates  map[domain.FieldName]domain.Value `json:"profile_updates"`
	ExtractedFields []domain.FieldName                `json:"extracted_fields"`
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger used for generation failures.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithEngine replaces the default extraction engine.
func WithEngine(e *extract.Engine) Option {
	return func(c *Controller) { c.engine = e }
}

// Controller implements the conversation turns.
type Controller struct {
	gen    QuestionGenerator
	engine *extract.Engine
	logger *slog.Logger
}

// New creates a Controller. gen may be nil, in which case every question
// comes from the fallback table.
func New(gen QuestionGenerator, opts ...Option) *Controller {
	c := &Controller{gen: gen}
	for _, opt := range opts {
		opt(c)
	}
	if c.engine == nil {
		c.engine = extract.Default()
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// MissingFields lists the unfilled fields of p in asking order.
func MissingFields(p *domain.Profile) []domain.FieldName {
	return p.MissingFields()
}

// NextQuestion returns the next question for p, or the completion result
// when p is full. The generator is not consulted for complete profiles.
func (c *Controller) NextQuestion(ctx context.Context, p *domain.Profile) Result {
	if p.IsComplete() || p.CompletionPercentage >= 100 {
		return Result{
			Type:    ResultCompletion,
			Message: CompletionMessage,
			Profile: p.Clone(),
		}
	}

	qc := domain.NewQuestionContext(p)
	q := c.generate(ctx, qc)
	return Result{
		Type:    ResultQuestion,
		Message: q.Question,
		Field:   q.Field,
		Context: &qc,
	}
}

func (c *Controller) generate(ctx context.Context, qc domain.QuestionContext) domain.Question {
	if c.gen == nil {
		return llm.FallbackQuestion(qc.Field)
	}
	q, err := c.gen.GenerateQuestion(ctx, qc)
	if err != nil {
		c.logger.Warn("Question generation failed, using fallback", "field", qc.Field, "error", err)
		return llm.FallbackQuestion(qc.Field)
	}
	if strings.TrimSpace(q.Question) == "" {
		return llm.FallbackQuestion(qc.Field)
	}
	if q.Field == "" {
		q.Field = qc.Field
	}
	return q
}

// ProcessAnswer interprets raw against the field named by qc.
func (c *Controller) ProcessAnswer(raw string, qc domain.QuestionContext) Answer {
	field := qc.Field
	if field == "" {
		field = qc.MissingField
	}
	if field == "" {
		field = domain.FieldGeneral
	}

	v, ok := c.engine.Extract(raw, field)
	a := Answer{Field: field, Extracted: ok, Confidence: 1.0, RawAnswer: raw}
	if ok {
		a.Value = v
	}
	return a
}

// ProcessConversationalInput handles a free-form chat message. Only the
// first missing field is targeted, so at most one field changes per turn.
// p is not modified; callers apply ProfileUpdates themselves.
func (c *Controller) ProcessConversationalInput(msg string, p *domain.Profile) Reply {
	reply := Reply{
		ProfileUpdates:  map[domain.FieldName]domain.Value{},
		ExtractedFields: []domain.FieldName{},
	}

	missing := p.MissingFields()
	if len(missing) == 0 {
		reply.Message = "Your profile is complete! Thanks for chatting with me."
		return reply
	}

	primary := missing[0]
	if v, ok := c.engine.Extract(msg, primary); ok {
		reply.ProfileUpdates[primary] = v
		reply.ExtractedFields = append(reply.ExtractedFields, primary)

		ack := "Great! I've noted your " + primary.Label() + "."
		if len(missing) > 1 {
			reply.Message = ack + " " + SimpleQuestion(missing[1])
		} else {
			reply.Message = ack + " Your profile is now complete!"
		}
		return reply
	}

	q := SimpleQuestion(primary)
	switch strings.ToLower(strings.TrimSpace(msg)) {
	case "hi", "hello", "hey":
		reply.Message = "Hello! Nice to meet you. " + q
	case "ok", "okay", "yes":
		reply.Message = q
	default:
		reply.Message = "I didn't quite catch that. " + q
	}
	return reply
}
