package llm

import (
	"fmt"

	"github.com/fyrsmithlabs/debugd/internal/config"
)

// NewClient creates a chat client for the configured provider.
//
// An unrecognized provider is a configuration error and fails fast.
func NewClient(cfg config.ModelConfig) (Client, error) {
	switch cfg.Provider {
	case "anthropic":
		return newAnthropicClient(cfg)
	case "openai":
		return newOpenAIClient(cfg)
	case "ollama":
		return newOllamaClient(cfg)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Provider)
	}
}
