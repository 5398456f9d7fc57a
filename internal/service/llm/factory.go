package llm

import (
	"fmt"

	"kakehashi/internal/config"
	domainllm "kakehashi/internal/domain/services/llm"
	"kakehashi/internal/service/llm/providers/anthropic"
	"kakehashi/internal/service/llm/providers/lorem"
)

// NewProviderFromConfig creates the provider named by the configuration.
//
// Supported providers:
//   - "anthropic" - Claude models via Anthropic API
//   - "lorem" - Mock provider for local development (no API key required)
func NewProviderFromConfig(cfg *config.Config) (domainllm.Provider, error) {
	switch cfg.LLMProvider {
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
		}
		provider, err := anthropic.NewProvider(cfg.AnthropicAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create Anthropic provider: %w", err)
		}
		return provider, nil

	case "lorem":
		return lorem.NewProvider(), nil

	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.LLMProvider)
	}
}
