// -- internal/llmclient/factory.go --
package llmclient

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/synthmind/api/schemas"
	"github.com/xkilldash9x/synthmind/internal/config"
)

// ErrDisabled is returned by NewClient when the provider is "none".
var ErrDisabled = errors.New("llm provider disabled")

// NewClient creates an LLMClient based on the configuration.
func NewClient(cfg config.LLMConfig, logger *zap.Logger) (schemas.LLMClient, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return NewOpenAIClient(cfg, logger)
	case config.ProviderGemini:
		return NewGeminiClient(cfg, logger)
	case config.ProviderNone:
		return nil, ErrDisabled
	default:
		return nil, fmt.Errorf("unknown or unsupported LLM provider configured: '%s'. Supported: [%s, %s, %s]",
			cfg.Provider, config.ProviderOpenAI, config.ProviderGemini, config.ProviderNone)
	}
}
