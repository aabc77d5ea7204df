// Package openai adapts OpenAI-compatible chat completion APIs (OpenAI,
// Groq and similar) to llm.Provider.
package openai

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/researchrender/researchrender/pkg/llm"
)

// Groq's OpenAI-compatible endpoint and default model.
const (
	DefaultBaseURL = "https://api.groq.com/openai/v1/"
	DefaultModel   = "llama3-8b-8192"
)

// Config selects the endpoint, model and credentials.
type Config struct {
	Name    string
	APIKey  string
	BaseURL string
	Model   string
}

// Provider calls the chat completions endpoint with a single user message.
type Provider struct {
	client openai.Client
	name   string
	model  string
}

// New creates a Provider. SDK level retries are disabled; retry policy is
// owned by the stage executors.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: api key is required")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	name := cfg.Name
	if name == "" {
		name = "openai"
	}

	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(0),
	)
	return &Provider{client: client, name: name, model: model}, nil
}

// Name implements llm.Provider.
func (p *Provider) Name() string { return p.name }

// Generate implements llm.Provider.
func (p *Provider) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", p.classifyError(err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", &llm.PermanentError{Provider: p.name, Err: errors.New("empty completion")}
	}
	return resp.Choices[0].Message.Content, nil
}

func (p *Provider) classifyError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return llm.FromStatus(p.name, apiErr.StatusCode, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &llm.TransientError{Provider: p.name, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &llm.TransientError{Provider: p.name, Err: err}
	}
	return &llm.PermanentError{Provider: p.name, Err: err}
}
