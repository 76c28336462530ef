package conversation

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/ashureev/wellness-labs/internal/domain"
	"github.com/ashureev/wellness-labs/internal/llm"
)

type countingGenerator struct {
	calls int
	q     domain.Question
	err   error
}

func (g *countingGenerator) GenerateQuestion(_ context.Context, _ domain.QuestionContext) (domain.Question, error) {
	g.calls++
	return g.q, g.err
}

func fullProfile(t *testing.T) *domain.Profile {
	t.Helper()
	p := domain.NewProfile("full", time.Now())
	err := p.Apply(map[domain.FieldName]domain.Value{
		domain.FieldAge:               30,
		domain.FieldGender:            "female",
		domain.FieldActivityLevel:     domain.ActivityModerate,
		domain.FieldDietaryPreference: domain.DietVegan,
		domain.FieldSleepQuality:      domain.SleepGood,
		domain.FieldStressLevel:       domain.StressLow,
		domain.FieldHealthGoals:       "build strength",
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	return p
}

func TestNextQuestion_CompleteSkipsGenerator(t *testing.T) {
	t.Parallel()

	gen := &countingGenerator{}
	c := New(gen)

	res := c.NextQuestion(context.Background(), fullProfile(t))
	if res.Type != ResultCompletion {
		t.Fatalf("Expected completion, got %s", res.Type)
	}
	if res.Message != CompletionMessage {
		t.Errorf("Unexpected message %q", res.Message)
	}
	if res.Profile == nil || res.Profile.CompletionPercentage != 100 {
		t.Errorf("Expected full profile snapshot, got %+v", res.Profile)
	}
	if gen.calls != 0 {
		t.Errorf("Generator called %d times for a complete profile", gen.calls)
	}
}

func TestNextQuestion_UsesGenerator(t *testing.T) {
	t.Parallel()

	gen := &countingGenerator{q: domain.Question{Question: "How old are you?", Field: domain.FieldAge}}
	c := New(gen)

	res := c.NextQuestion(context.Background(), domain.NewProfile("u1", time.Now()))
	if res.Type != ResultQuestion || res.Message != "How old are you?" || res.Field != domain.FieldAge {
		t.Fatalf("Unexpected result %+v", res)
	}
	if res.Context == nil || res.Context.Field != domain.FieldAge || len(res.Context.MissingFields) != 7 {
		t.Errorf("Unexpected context %+v", res.Context)
	}
}

func TestNextQuestion_GeneratorErrorFallsBack(t *testing.T) {
	t.Parallel()

	gen := &countingGenerator{err: errors.New("down")}
	c := New(gen)

	p := domain.NewProfile("u1", time.Now())
	if err := p.Set(domain.FieldAge, 40); err != nil {
		t.Fatalf("Set: %v", err)
	}

	res := c.NextQuestion(context.Background(), p)
	want := llm.FallbackQuestion(domain.FieldGender)
	if res.Message != want.Question || res.Field != domain.FieldGender {
		t.Errorf("Expected gender fallback, got %+v", res)
	}
}

func TestNextQuestion_NoProvidersUsesFallbackTable(t *testing.T) {
	t.Parallel()

	c := New(llm.NewGateway(nil, llm.GatewayConfig{}))
	res := c.NextQuestion(context.Background(), domain.NewProfile("u1", time.Now()))

	want := llm.FallbackQuestion(domain.FieldAge)
	if res.Type != ResultQuestion || res.Message != want.Question || res.Field != domain.FieldAge {
		t.Errorf("Expected age fallback question, got %+v", res)
	}
}

func TestProcessAnswer(t *testing.T) {
	t.Parallel()

	c := New(nil)
	tests := []struct {
		name      string
		raw       string
		qc        domain.QuestionContext
		wantField domain.FieldName
		wantValue domain.Value
		extracted bool
	}{
		{"age", "I'm 28 years old", domain.QuestionContext{Field: domain.FieldAge}, domain.FieldAge, 28, true},
		{"missing field only", "I'm vegan", domain.QuestionContext{MissingField: domain.FieldDietaryPreference}, domain.FieldDietaryPreference, domain.DietVegan, true},
		{"no field", "anything", domain.QuestionContext{}, domain.FieldGeneral, nil, false},
		{"unmatched", "purple", domain.QuestionContext{Field: domain.FieldStressLevel}, domain.FieldStressLevel, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := c.ProcessAnswer(tt.raw, tt.qc)
			if a.Field != tt.wantField || a.Extracted != tt.extracted || a.Value != tt.wantValue {
				t.Errorf("Unexpected answer %+v", a)
			}
			if a.Confidence != 1.0 || a.RawAnswer != tt.raw {
				t.Errorf("Unexpected confidence/raw %+v", a)
			}
		})
	}
}

func TestProcessConversationalInput(t *testing.T) {
	t.Parallel()

	c := New(nil)
	onlyGoals := fullProfile(t)
	onlyGoals.HealthGoals = nil
	onlyGoals.Recompute()

	tests := []struct {
		name    string
		msg     string
		profile *domain.Profile
		want    string
		updates int
	}{
		{
			name:    "extracted with follow-up",
			msg:     "I'm 28",
			profile: domain.NewProfile("u", time.Now()),
			want:    "Great! I've noted your age. How do you identify in terms of gender?",
			updates: 1,
		},
		{
			name:    "extracted last field",
			msg:     "I want to lose weight",
			profile: onlyGoals,
			want:    "Great! I've noted your health goals. Your profile is now complete!",
			updates: 1,
		},
		{
			name:    "greeting on health goals",
			msg:     "hello",
			profile: onlyGoals,
			want:    "Hello! Nice to meet you. What are your main health and wellness goals?",
		},
		{
			name:    "acknowledgment",
			msg:     " OK ",
			profile: domain.NewProfile("u", time.Now()),
			want:    "What's your age?",
		},
		{
			name:    "unclear",
			msg:     "bananas",
			profile: domain.NewProfile("u", time.Now()),
			want:    "I didn't quite catch that. What's your age?",
		},
		{
			name:    "complete",
			msg:     "anything",
			profile: fullProfile(t),
			want:    "Your profile is complete! Thanks for chatting with me.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := c.ProcessConversationalInput(tt.msg, tt.profile)
			if r.Message != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, r.Message)
			}
			if len(r.ProfileUpdates) != tt.updates || len(r.ExtractedFields) != tt.updates {
				t.Errorf("Expected %d updates, got %+v", tt.updates, r)
			}
		})
	}
}

func TestEndToEnd_FirstTurn(t *testing.T) {
	t.Parallel()

	c := New(llm.NewGateway(nil, llm.GatewayConfig{}))
	p := domain.NewProfile("u1", time.Now())

	if got := MissingFields(p); len(got) != 7 || got[0] != domain.FieldAge {
		t.Fatalf("Unexpected missing fields %v", got)
	}

	res := c.NextQuestion(context.Background(), p)
	if res.Field != domain.FieldAge {
		t.Fatalf("Expected first target age, got %s", res.Field)
	}

	a := c.ProcessAnswer("I'm 28 years old", *res.Context)
	if !a.Extracted {
		t.Fatal("Expected age extraction")
	}
	if err := p.Set(a.Field, a.Value); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if *p.Age != 28 {
		t.Errorf("Expected age 28, got %d", *p.Age)
	}
	if math.Abs(p.CompletionPercentage-14.29) > 0.01 {
		t.Errorf("Expected ~14.29%% completion, got %f", p.CompletionPercentage)
	}

	next := c.NextQuestion(context.Background(), p)
	if next.Field != domain.FieldGender {
		t.Errorf("Expected next target gender, got %s", next.Field)
	}
}

func TestSimpleQuestion_Default(t *testing.T) {
	t.Parallel()

	if got := SimpleQuestion(domain.FieldGeneral); got != "Could you tell me more about yourself?" {
		t.Errorf("Unexpected default question %q", got)
	}
}
