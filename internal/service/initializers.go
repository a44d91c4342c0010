// File: internal/service/initializers.go
package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/synthmind/api/schemas"
	"github.com/xkilldash9x/synthmind/internal/config"
	"github.com/xkilldash9x/synthmind/internal/llmclient"
	"github.com/xkilldash9x/synthmind/internal/store"
)

// InitializeStore connects to PostgreSQL when a database URL is configured and
// falls back to the in-memory store otherwise. The returned cleanup may be nil.
func InitializeStore(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (schemas.SessionStore, func(), error) {
	if cfg.URL == "" {
		logger.Warn("No database configured; sessions are kept in memory and lost on exit.")
		return store.NewMemory(), nil, nil
	}

	logger.Info("Initializing PostgreSQL session store.")
	pgStore, cleanup, err := store.Open(ctx, cfg.URL, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open session store: %w", err)
	}
	return pgStore, cleanup, nil
}

// InitializeLLMClient creates the narrative model client. A disabled or
// misconfigured provider is not fatal: the returned client is nil and every
// narrative resolves to its fallback text.
func InitializeLLMClient(cfg config.LLMConfig, logger *zap.Logger) schemas.LLMClient {
	client, err := llmclient.NewClient(cfg, logger)
	if errors.Is(err, llmclient.ErrDisabled) {
		logger.Info("LLM provider disabled; narratives will use fallback text.")
		return nil
	}
	if err != nil {
		logger.Warn("Failed to initialize LLM client. Narratives will use fallback text.", zap.Error(err))
		return nil
	}
	return client
}
