// Package gemini adapts the Google Gemini API to llm.Provider.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"google.golang.org/genai"

	"github.com/researchrender/researchrender/pkg/llm"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-1.5-flash-001"

// Config selects the Gemini model and credentials.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
}

// Provider calls Gemini's generateContent endpoint.
type Provider struct {
	client *genai.Client
	model  string
}

// New creates a Provider backed by the Gemini API.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: api key is required")
	}
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &Provider{client: client, model: model}, nil
}

// Name implements llm.Provider.
func (p *Provider) Name() string { return "gemini" }

// Generate implements llm.Provider.
func (p *Provider) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text(prompt), nil)
	if err != nil {
		return "", classifyError(err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", &llm.PermanentError{Provider: p.Name(), Err: errors.New("empty completion")}
	}
	return text, nil
}

// classifyError maps Gemini API errors onto the llm taxonomy.
func classifyError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return fromAPIError(apiErr, err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return fromAPIError(*apiErrPtr, err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &llm.TransientError{Provider: "gemini", Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &llm.TransientError{Provider: "gemini", Err: err}
	}
	return &llm.PermanentError{Provider: "gemini", Err: err}
}

func fromAPIError(apiErr genai.APIError, err error) error {
	switch apiErr.Status {
	case "RESOURCE_EXHAUSTED":
		return &llm.PermanentError{Provider: "gemini", Quota: true, Err: err}
	case "INTERNAL", "UNAVAILABLE", "DEADLINE_EXCEEDED":
		return &llm.TransientError{Provider: "gemini", Err: err}
	}
	return llm.FromStatus("gemini", apiErr.Code, err)
}
