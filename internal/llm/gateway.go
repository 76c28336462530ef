package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ashureev/wellness-labs/internal/domain"
	"github.com/ashureev/wellness-labs/internal/metrics"
)

// DefaultTimeout bounds a single provider call when none is configured.
const DefaultTimeout = 30 * time.Second

// GatewayConfig configures a Gateway.
type GatewayConfig struct {
	Timeout     time.Duration
	Temperature float64
	MaxTokens   int
	HistorySize int
	Logger      *slog.Logger
}

// Gateway asks providers for the next question in priority order and
// falls back to the canned question table when none succeeds.
type Gateway struct {
	providers []Provider
	timeout   time.Duration
	opts      Options
	history   *History
	logger    *slog.Logger
}

// NewGateway creates a gateway over providers, tried in the given order.
func NewGateway(providers []Provider, cfg GatewayConfig) *Gateway {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Gateway{
		providers: providers,
		timeout:   cfg.Timeout,
		opts: Options{
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
		},
		history: NewHistory(cfg.HistorySize),
		logger:  cfg.Logger,
	}
}

// GenerateQuestion returns a question targeting qc.Field. Provider failures
// are recorded in the history and never returned.
func (g *Gateway) GenerateQuestion(ctx context.Context, qc domain.QuestionContext) (domain.Question, error) {
	messages := questionMessages(qc)
	input := map[string]any{
		"field":                 qc.Field,
		"missing_fields":        qc.MissingFields,
		"completion_percentage": qc.CompletionPercentage,
	}

	for _, p := range g.providers {
		if ctx.Err() != nil {
			break
		}
		if !p.Available(ctx) {
			metrics.RecordLLMRequest(p.Name(), "unavailable", 0)
			g.logger.Debug("Skipping unavailable provider", "provider", p.Name())
			continue
		}

		q, err := g.attempt(ctx, p, messages)
		if err != nil {
			g.history.Add(HistoryEntry{
				Timestamp: time.Now().UTC(),
				Operation: OpGenerateQuestionFailed,
				Provider:  p.Name(),
				Input:     input,
				Error:     err.Error(),
			})
			g.logger.Warn("Question generation failed", "provider", p.Name(), "field", qc.Field, "error", err)
			continue
		}

		g.history.Add(HistoryEntry{
			Timestamp: time.Now().UTC(),
			Operation: OpGenerateQuestion,
			Provider:  p.Name(),
			Input:     input,
			Output:    q,
			Success:   true,
		})
		return q, nil
	}

	q := FallbackQuestion(qc.Field)
	metrics.RecordLLMFallback()
	errMsg := ErrNoProvider.Error()
	if ctx.Err() != nil {
		errMsg = fmt.Sprintf("%s: %v", errMsg, ctx.Err())
	}
	g.history.Add(HistoryEntry{
		Timestamp: time.Now().UTC(),
		Operation: OpGenerateQuestionFallback,
		Input:     input,
		Output:    q,
		Error:     errMsg,
	})
	return q, nil
}

func (g *Gateway) attempt(ctx context.Context, p Provider, messages []Message) (domain.Question, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	raw, err := p.Complete(callCtx, messages, g.opts)
	if err == nil && strings.TrimSpace(raw) == "" {
		err = ErrEmptyResponse
	}
	if err != nil {
		metrics.RecordLLMRequest(p.Name(), "error", time.Since(start))
		return domain.Question{}, fmt.Errorf("%s: %w", p.Name(), err)
	}
	metrics.RecordLLMRequest(p.Name(), "success", time.Since(start))
	return parseQuestion(raw), nil
}

// ProviderStatus reports one provider's availability.
type ProviderStatus struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
}

// Status summarizes provider availability and recent requests.
type Status struct {
	Providers      []ProviderStatus `json:"providers"`
	Primary        string           `json:"primary_provider,omitempty"`
	Available      bool             `json:"available"`
	HistorySize    int              `json:"history_size"`
	TotalRequests  int64            `json:"total_requests"`
	FailedRequests int64            `json:"failed_requests"`
	Recent         []HistoryEntry   `json:"recent_requests"`
}

// Status checks every provider and returns the latest history entries.
func (g *Gateway) Status(ctx context.Context) Status {
	st := Status{
		Providers:   make([]ProviderStatus, 0, len(g.providers)),
		HistorySize: g.history.Len(),
		Recent:      g.history.Recent(10),
	}
	st.TotalRequests, st.FailedRequests = g.history.Totals()

	for _, p := range g.providers {
		checkCtx, cancel := context.WithTimeout(ctx, g.timeout)
		ok := p.Available(checkCtx)
		cancel()
		st.Providers = append(st.Providers, ProviderStatus{Name: p.Name(), Available: ok})
		if ok && st.Primary == "" {
			st.Primary = p.Name()
			st.Available = true
		}
	}
	return st
}

// History returns the gateway's request history.
func (g *Gateway) History() *History {
	return g.history
}
