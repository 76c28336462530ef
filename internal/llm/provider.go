// Package llm generates conversational questions through an ordered chain of
// text-generation providers, falling back to a fixed question table.
package llm

import (
	"context"
	"errors"
)

var (
	// ErrUnavailable is returned by providers that are not configured or reachable.
	ErrUnavailable = errors.New("llm: provider unavailable")

	// ErrEmptyResponse is returned when a provider answers with no text.
	ErrEmptyResponse = errors.New("llm: empty response")

	// ErrNoProvider is recorded when every provider was skipped or failed.
	ErrNoProvider = errors.New("llm: no provider produced a question")
)

// Role is the author of a chat message.
type Role string

// Chat roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat turn sent to a provider.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Options tune a single completion.
type Options struct {
	Temperature float64
	MaxTokens   int
}

// Provider is a text-generation backend.
type Provider interface {
	// Name identifies the provider in logs, metrics and status output.
	Name() string

	// Available reports whether the provider can currently take requests.
	Available(ctx context.Context) bool

	// Complete returns the raw completion text for messages.
	Complete(ctx context.Context, messages []Message, opts Options) (string, error)
}

// splitSystem separates system messages from the conversation. Providers
// with a dedicated system-instruction slot use it.
func splitSystem(messages []Message) (system string, rest []Message) {
	for _, m := range messages {
		if m.Role == RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		rest = append(rest, m)
	}
	return system, rest
}
