package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
)

// OpenAIConfig configures an OpenAI-compatible chat provider. The same
// client serves OpenAI, OpenRouter and Ollama's /v1 endpoint.
type OpenAIConfig struct {
	Name    string
	APIKey  string
	BaseURL string
	Model   string

	// StructuredOutput requests a JSON-schema constrained response.
	StructuredOutput bool

	HTTPClient *http.Client
	MaxRetries int
}

// OpenAIProvider implements Provider with the OpenAI chat completions API.
type OpenAIProvider struct {
	name   string
	model  string
	apiKey string
	client openai.Client
	schema *jsonschema.Schema
}

// NewOpenAIProvider creates an OpenAI-compatible provider.
func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	if cfg.Model == "" {
		return nil, errors.New("openai provider: model is required")
	}
	if cfg.Name == "" {
		cfg.Name = "openai"
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	p := &OpenAIProvider{
		name:   cfg.Name,
		model:  cfg.Model,
		apiKey: cfg.APIKey,
		client: openai.NewClient(opts...),
	}

	if cfg.StructuredOutput {
		schema, err := jsonschema.For[questionPayload](&jsonschema.ForOptions{})
		if err != nil {
			return nil, fmt.Errorf("openai provider: build response schema: %w", err)
		}
		p.schema = schema
	}
	return p, nil
}

// Name implements Provider.
func (p *OpenAIProvider) Name() string { return p.name }

// Available reports whether an API key is configured.
func (p *OpenAIProvider) Available(context.Context) bool {
	return p.apiKey != ""
}

// Complete implements Provider.
func (p *OpenAIProvider) Complete(ctx context.Context, messages []Message, opts Options) (string, error) {
	if p.apiKey == "" {
		return "", ErrUnavailable
	}

	params := openai.ChatCompletionNewParams{
		Model:    p.model,
		Messages: toOpenAIMessages(messages),
	}
	if opts.MaxTokens > 0 {
		params.MaxTokens = param.NewOpt(int64(opts.MaxTokens))
	}
	if opts.Temperature > 0 {
		params.Temperature = param.NewOpt(opts.Temperature)
	}
	if p.schema != nil {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        "wellness_question",
					Description: param.NewOpt("The next profile question to ask"),
					Schema:      p.schema,
					Strict:      param.NewOpt(true),
				},
			},
		}
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	choice := resp.Choices[0]
	if choice.Message.Refusal != "" {
		return "", fmt.Errorf("model refused: %s", choice.Message.Refusal)
	}
	return choice.Message.Content, nil
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}
