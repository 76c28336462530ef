package llm

import (
	"context"
	"sync"
)

// StaticProvider replays scripted completions. It serves offline demos and
// tests. Once the script is exhausted the last response repeats.
type StaticProvider struct {
	name      string
	mu        sync.Mutex
	responses []string
	err       error
	available bool
	calls     int
}

// NewStaticProvider creates an available provider returning responses in order.
func NewStaticProvider(name string, responses ...string) *StaticProvider {
	return &StaticProvider{name: name, responses: responses, available: true}
}

// WithError makes every Complete call fail with err.
func (p *StaticProvider) WithError(err error) *StaticProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
	return p
}

// SetAvailable toggles availability.
func (p *StaticProvider) SetAvailable(ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.available = ok
}

// Calls returns how many times Complete ran.
func (p *StaticProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// Name implements Provider.
func (p *StaticProvider) Name() string { return p.name }

// Available implements Provider.
func (p *StaticProvider) Available(context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.available
}

// Complete implements Provider.
func (p *StaticProvider) Complete(ctx context.Context, _ []Message, _ Options) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if p.err != nil {
		return "", p.err
	}
	if len(p.responses) == 0 {
		return "", ErrEmptyResponse
	}
	idx := p.calls - 1
	if idx >= len(p.responses) {
		idx = len(p.responses) - 1
	}
	return p.responses[idx], nil
}
