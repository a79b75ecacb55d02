package llm

import (
	"fmt"

	"go.uber.org/zap"
)

// NewClient creates a backend client for the given provider name.
// Known providers are "openai" (any OpenAI-compatible endpoint) and
// "anthropic".
func NewClient(provider string, cfg *Config, logger *zap.Logger) (Client, error) {
	switch provider {
	case "openai":
		return NewOpenAIClient(cfg, logger)
	case "anthropic":
		return NewAnthropicClient(cfg, logger)
	}
	return nil, fmt.Errorf("unknown llm provider: %s", provider)
}
