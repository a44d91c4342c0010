// File: internal/service/factory.go
package service

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/xkilldash9x/synthmind/internal/audit"
	"github.com/xkilldash9x/synthmind/internal/config"
	"github.com/xkilldash9x/synthmind/internal/loadgen"
	"github.com/xkilldash9x/synthmind/internal/narrative"
	"github.com/xkilldash9x/synthmind/internal/observability"
	"github.com/xkilldash9x/synthmind/internal/orchestrator"
	"github.com/xkilldash9x/synthmind/internal/scanner"
	"github.com/xkilldash9x/synthmind/internal/scoring"
)

// ComponentFactory creates the set of components an assessment needs. Commands
// depend on the interface so tests can substitute their own.
type ComponentFactory interface {
	Create(ctx context.Context, cfg config.Interface, logger *zap.Logger) (*Components, error)
}

type concreteFactory struct{}

// NewComponentFactory creates the production factory.
func NewComponentFactory() ComponentFactory {
	return &concreteFactory{}
}

// Create wires configuration into every collaborator of the orchestrator.
func (f *concreteFactory) Create(ctx context.Context, cfg config.Interface, logger *zap.Logger) (*Components, error) {
	if cfg == nil || logger == nil {
		return nil, fmt.Errorf("cannot create components with nil dependencies")
	}
	components := &Components{logger: logger}

	var initializationErr error
	defer func() {
		if initializationErr != nil {
			logger.Warn("Initialization failed, shutting down partially created components.", zap.Error(initializationErr))
			components.Shutdown()
		}
	}()

	// 1. Metrics
	components.Registry = prometheus.NewRegistry()
	components.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	components.Metrics = observability.NewMetrics(components.Registry)
	logger.Debug("Metrics registry initialized.")

	// 2. Session store
	sessions, cleanup, err := InitializeStore(ctx, cfg.Database(), logger)
	if err != nil {
		initializationErr = err
		return nil, initializationErr
	}
	components.Store = sessions
	components.storeCleanup = cleanup
	logger.Debug("Session store initialized.")

	// 3. Analyzers
	model := scoring.NewModel(cfg.Scoring())
	runner := loadgen.NewRunner(cfg.LoadGen(), logger, loadgen.WithMetrics(components.Metrics))
	repoScanner := scanner.New(cfg.Scanner(), model, logger)
	parts := orchestrator.Components{
		Loader:  runner,
		Scanner: repoScanner,
		Store:   sessions,
		Metrics: components.Metrics,
	}
	if cfg.Audit().Enabled {
		parts.Auditor = audit.NewLighthouse(cfg.Audit(), logger)
		logger.Debug("Browser auditor enabled.")
	}

	// 4. Narrative
	components.LLMClient = InitializeLLMClient(cfg.LLM(), logger)
	parts.Narrator = narrative.New(components.LLMClient, cfg.LLM(), logger)

	// 5. Orchestrator
	orch, err := orchestrator.New(cfg, logger, parts, orchestrator.WithModel(model))
	if err != nil {
		initializationErr = fmt.Errorf("failed to create orchestrator: %w", err)
		return nil, initializationErr
	}
	components.Orchestrator = orch

	logger.Info("All components initialized successfully.")
	return components, nil
}
