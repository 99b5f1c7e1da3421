package agent

import (
	"context"
	"fmt"
	"slices"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// Supported model providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGoogleAI  = "googleai"
	ProviderOllama    = "ollama"
)

// DefaultProvider and DefaultModel are used when nothing is configured.
const (
	DefaultProvider = ProviderOpenAI
	DefaultModel    = "gpt-4o-mini"
)

// Providers lists the supported provider names.
func Providers() []string {
	return []string{ProviderOpenAI, ProviderAnthropic, ProviderGoogleAI, ProviderOllama}
}

// IsKnownProvider reports whether name is a supported provider.
func IsKnownProvider(name string) bool {
	return slices.Contains(Providers(), name)
}

// ModelConfig selects and authenticates a language model.
type ModelConfig struct {
	Provider string
	Model    string

	// BaseURL overrides the provider endpoint (OpenAI-compatible gateways,
	// a remote Ollama).
	BaseURL string

	// APIKey is optional; each provider falls back to its usual
	// environment variable (OPENAI_API_KEY, ANTHROPIC_API_KEY, GOOGLE_API_KEY).
	APIKey string
}

// NewModel creates the langchaingo model for cfg.
func NewModel(ctx context.Context, cfg ModelConfig) (llms.Model, error) {
	switch cfg.Provider {
	case ProviderOpenAI, "":
		opts := []openai.Option{}
		if cfg.Model != "" {
			opts = append(opts, openai.WithModel(cfg.Model))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		if cfg.APIKey != "" {
			opts = append(opts, openai.WithToken(cfg.APIKey))
		}
		model, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OpenAI model: %w", err)
		}
		return model, nil

	case ProviderAnthropic:
		opts := []anthropic.Option{}
		if cfg.Model != "" {
			opts = append(opts, anthropic.WithModel(cfg.Model))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
		}
		if cfg.APIKey != "" {
			opts = append(opts, anthropic.WithToken(cfg.APIKey))
		}
		model, err := anthropic.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create Anthropic model: %w", err)
		}
		return model, nil

	case ProviderGoogleAI:
		opts := []googleai.Option{}
		if cfg.Model != "" {
			opts = append(opts, googleai.WithDefaultModel(cfg.Model))
		}
		if cfg.APIKey != "" {
			opts = append(opts, googleai.WithAPIKey(cfg.APIKey))
		}
		model, err := googleai.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create Google AI model: %w", err)
		}
		return model, nil

	case ProviderOllama:
		opts := []ollama.Option{}
		if cfg.Model != "" {
			opts = append(opts, ollama.WithModel(cfg.Model))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
		}
		model, err := ollama.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create Ollama model: %w", err)
		}
		return model, nil

	default:
		return nil, fmt.Errorf("unknown model provider %q (supported: %v)", cfg.Provider, Providers())
	}
}
