// File: internal/service/components.go
package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/xkilldash9x/synthmind/api/schemas"
	"github.com/xkilldash9x/synthmind/internal/observability"
	"github.com/xkilldash9x/synthmind/internal/orchestrator"
)

// Components holds the initialized services behind an assessment run or the
// HTTP API, and owns their release.
type Components struct {
	Registry     *prometheus.Registry
	Metrics      *observability.Metrics
	Store        schemas.SessionStore
	LLMClient    schemas.LLMClient
	Orchestrator *orchestrator.Orchestrator

	logger       *zap.Logger
	storeCleanup func()
}

// Shutdown releases components in reverse order of creation. It is safe to
// call on a partially initialized value.
func (c *Components) Shutdown() {
	logger := c.logger
	if logger == nil {
		logger = observability.GetLogger()
	}
	logger.Debug("Beginning components shutdown sequence.")

	if c.LLMClient != nil {
		if err := c.LLMClient.Close(); err != nil {
			logger.Warn("Error closing LLM client.", zap.Error(err))
		} else {
			logger.Debug("LLM client closed.")
		}
	}

	if c.storeCleanup != nil {
		c.storeCleanup()
		c.storeCleanup = nil
		logger.Debug("Session store closed.")
	}

	logger.Info("All components shut down.")
}
