// Package llms provides the LLM providers behind the question answering,
// summarization and content generation endpoints. Providers share a small
// non-streaming interface; selection prefers gemini, then openai, then
// anthropic, unless a provider is forced in configuration.
package llms

import (
	"context"
	"fmt"

	"github.com/eduflow/eduflow/pkg/config"
)

// Result is a completed generation.
type Result struct {
	// Text is the generated completion.
	Text string

	// InputTokens is the prompt token count reported by the provider.
	InputTokens int

	// OutputTokens is the completion token count reported by the provider.
	OutputTokens int
}

// Provider is a non-streaming LLM backend.
type Provider interface {
	// Generate performs a completion request. The system prompt may be
	// empty.
	Generate(ctx context.Context, system, prompt string) (*Result, error)

	// Name returns the provider type ("openai", "anthropic", "gemini").
	Name() string

	// ModelName returns the configured model.
	ModelName() string
}

// NewProviderFromConfig creates a provider from its configuration.
func NewProviderFromConfig(cfg *config.LLMProviderConfig) (Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("LLM config cannot be nil")
	}

	switch cfg.Type {
	case "openai":
		return NewOpenAIProviderFromConfig(cfg)
	case "anthropic":
		return NewAnthropicProviderFromConfig(cfg)
	case "gemini":
		return NewGeminiProviderFromConfig(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM type: %s (supported: openai, anthropic, gemini)", cfg.Type)
	}
}

// Select picks the provider to serve requests with: the forced one when
// cfg.Provider is set, otherwise the first configured provider in
// preference order. Returns an error when nothing is configured.
func Select(cfg *config.LLMConfig) (Provider, error) {
	if cfg.Provider != "" {
		pc, ok := cfg.Providers[cfg.Provider]
		if !ok {
			return nil, fmt.Errorf("provider %s is forced but not configured", cfg.Provider)
		}
		return NewProviderFromConfig(pc)
	}

	for _, providerType := range config.ProviderPreference {
		pc, ok := cfg.Providers[providerType]
		if !ok || pc.APIKey == "" {
			continue
		}
		return NewProviderFromConfig(pc)
	}

	return nil, fmt.Errorf("no LLM provider configured (set GEMINI_API_KEY, OPENAI_API_KEY or ANTHROPIC_API_KEY)")
}
