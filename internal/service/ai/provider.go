package ai

import (
	"context"
	"errors"
)

// Provider names accepted in configuration.
const (
	ProviderOpenAI     = "openai"
	ProviderAnthropic  = "anthropic"
	ProviderCompatible = "compatible"
)

var (
	ErrMissingAPIKey   = errors.New("ai: api key is required")
	ErrMissingModel    = errors.New("ai: model is required")
	ErrMissingBaseURL  = errors.New("ai: base url is required for compatible provider")
	ErrInvalidProvider = errors.New("ai: invalid provider")
)

// Config selects and configures a completion provider.
type Config struct {
	Provider    string
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
}

// Provider is a text completion backend.
type Provider interface {
	// Complete sends one prompt pair and returns the full response text.
	Complete(ctx context.Context, systemPrompt, content string) (string, error)
	// Name returns the provider name.
	Name() string
}

// NewProvider creates a provider from config. The compatible provider
// speaks the OpenAI chat completions protocol against a custom base URL.
func NewProvider(cfg Config) (Provider, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.Model == "" {
		return nil, ErrMissingModel
	}

	switch cfg.Provider {
	case ProviderOpenAI:
		return newOpenAIProvider(cfg, ProviderOpenAI), nil
	case ProviderCompatible:
		if cfg.BaseURL == "" {
			return nil, ErrMissingBaseURL
		}
		return newOpenAIProvider(cfg, ProviderCompatible), nil
	case ProviderAnthropic:
		return newAnthropicProvider(cfg), nil
	default:
		return nil, ErrInvalidProvider
	}
}
