// File: internal/orchestrator/orchestrator.go
// Description: Runs one launch-readiness assessment. The analyzers are injected
// through interfaces and fan out concurrently; the engine always reaches a
// session, possibly one built from partial data.

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/synthmind/api/schemas"
	"github.com/xkilldash9x/synthmind/internal/config"
	"github.com/xkilldash9x/synthmind/internal/narrative"
	"github.com/xkilldash9x/synthmind/internal/normalizer"
	"github.com/xkilldash9x/synthmind/internal/observability"
	"github.com/xkilldash9x/synthmind/internal/scoring"
)

// Components are the collaborators of the engine. Auditor may be nil, which
// leaves the browser audit out of every assessment.
type Components struct {
	Loader   schemas.LoadRunner
	Scanner  schemas.RepoScanner
	Auditor  schemas.BrowserAuditor
	Narrator schemas.NarrativeGenerator
	Store    schemas.SessionStore
	Metrics  *observability.Metrics
}

// Assessment is the outcome of RunAssessment. Session is always set;
// StorageErr records a failed write of an otherwise complete session.
type Assessment struct {
	Session    *schemas.TestSession
	StorageErr error
}

// Stored reports whether the session was persisted.
func (a *Assessment) Stored() bool { return a.StorageErr == nil }

// Orchestrator runs assessments.
type Orchestrator struct {
	cfg     config.OrchestratorConfig
	loadOpt schemas.LoadOptions
	model   scoring.Model
	c       Components
	logger  *zap.Logger
	now     func() time.Time
	newID   func() string
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithModel replaces the scoring model built from configuration.
func WithModel(m scoring.Model) Option {
	return func(o *Orchestrator) { o.model = m }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithIDGenerator replaces the session ID generator.
func WithIDGenerator(newID func() string) Option {
	return func(o *Orchestrator) { o.newID = newID }
}

// New creates an Orchestrator. Loader, Scanner, Narrator and Store are required.
func New(cfg config.Interface, logger *zap.Logger, c Components, opts ...Option) (*Orchestrator, error) {
	if cfg == nil ||
		logger == nil ||
		c.Loader == nil ||
		c.Scanner == nil ||
		c.Narrator == nil ||
		c.Store == nil {
		return nil, fmt.Errorf("cannot initialize orchestrator with nil dependencies")
	}
	o := &Orchestrator{
		cfg: cfg.Orchestrator(),
		loadOpt: schemas.LoadOptions{
			VirtualUsers: cfg.LoadGen().VirtualUsers,
			Duration:     cfg.LoadGen().Duration,
		},
		model:  scoring.NewModel(cfg.Scoring()),
		c:      c,
		logger: logger.Named("orchestrator"),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	for _, d := range []*time.Duration{&o.cfg.LoadTimeout, &o.cfg.ScanTimeout, &o.cfg.AuditTimeout, &o.cfg.NarrativeTimeout, &o.cfg.StoreTimeout} {
		if *d <= 0 {
			*d = defaultBranchTimeout
		}
	}
	return o, nil
}

const defaultBranchTimeout = 2 * time.Minute

// RunAssessment validates req, runs the analyzers concurrently, scores the
// settled results, generates the narrative and persists one session. Only a
// validation failure returns an error.
func (o *Orchestrator) RunAssessment(ctx context.Context, req Request) (*Assessment, error) {
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		o.c.Metrics.RecordAssessment(observability.OutcomeRejected)
		return nil, err
	}

	log := o.logger.With(zap.String("target", req.TargetURL), zap.String("repo", req.RepoURL))
	log.Info("Assessment starting.")

	load, repo, audit := o.fanOut(ctx, req)
	o.observe(log, BranchLoad, load.Err, load.Elapsed)
	o.observe(log, BranchRepo, repo.Err, repo.Elapsed)
	o.observe(log, BranchAudit, audit.Err, audit.Elapsed)

	session := &schemas.TestSession{
		ID:           o.newID(),
		TargetURL:    req.TargetURL,
		RepoURL:      req.RepoURL,
		Metrics:      normalizer.Normalize(load.Value),
		Github:       repo.Value,
		BrowserAudit: audit.Value,
		CreatedAt:    o.now().UTC(),
	}
	session.ChartSeries = normalizer.ChartSeries(session.Metrics)
	session.HealthSeries = normalizer.HealthSeries(session.Metrics)
	session.BusinessInsights = o.model.Insights(scoring.Inputs{
		Metrics: session.Metrics,
		Github:  session.Github,
		Audit:   session.BrowserAudit,
	})

	session.NarrativeMessage = o.narrate(ctx, log, session)
	session.Transcript = []schemas.ChatMessage{{
		Role:      schemas.RoleAssistant,
		Content:   session.NarrativeMessage,
		CreatedAt: session.CreatedAt,
	}}

	result := &Assessment{Session: session}
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.cfg.StoreTimeout)
	defer cancel()
	if err := o.c.Store.Create(storeCtx, session); err != nil {
		if !errors.Is(err, schemas.ErrStorage) {
			err = fmt.Errorf("%w: %v", schemas.ErrStorage, err)
		}
		result.StorageErr = err
		o.c.Metrics.RecordAssessment(observability.OutcomeStorageFailed)
		log.Error("Failed to persist session.", zap.String("session_id", session.ID), zap.Error(err))
		return result, nil
	}

	o.c.Metrics.RecordAssessment(observability.OutcomeStored)
	log.Info("Assessment complete.",
		zap.String("session_id", session.ID),
		zap.Int("stability_score", session.BusinessInsights.StabilityRiskScore))
	return result, nil
}

// fanOut starts the three analyzers and waits for all of them to settle.
func (o *Orchestrator) fanOut(ctx context.Context, req Request) (
	load Result[*schemas.RawLoadResult],
	repo Result[*schemas.GithubSignals],
	audit Result[*schemas.BrowserAudit],
) {
	load = skipped[*schemas.RawLoadResult]()
	repo = skipped[*schemas.GithubSignals]()
	audit = skipped[*schemas.BrowserAudit]()

	// Branches never return an error; settle folds every failure into its Result.
	var g errgroup.Group
	if req.TargetURL != "" {
		g.Go(func() error {
			load = settle(ctx, o.cfg.LoadTimeout, func(ctx context.Context) (*schemas.RawLoadResult, error) {
				return o.c.Loader.Run(ctx, req.TargetURL, o.loadOpt)
			})
			return nil
		})
		if o.c.Auditor != nil {
			g.Go(func() error {
				audit = settle(ctx, o.cfg.AuditTimeout, func(ctx context.Context) (*schemas.BrowserAudit, error) {
					return o.c.Auditor.Audit(ctx, req.TargetURL)
				})
				return nil
			})
		}
	}
	if req.RepoURL != "" {
		g.Go(func() error {
			repo = settle(ctx, o.cfg.ScanTimeout, func(ctx context.Context) (*schemas.GithubSignals, error) {
				return o.c.Scanner.Scan(ctx, req.RepoURL)
			})
			return nil
		})
	}
	_ = g.Wait()
	return load, repo, audit
}

// narrate asks the narrative collaborator for prose. When no analyzer
// produced data the collaborator is not called.
func (o *Orchestrator) narrate(ctx context.Context, log *zap.Logger, s *schemas.TestSession) string {
	if !s.Metrics.Observed && s.Github == nil && s.BrowserAudit == nil {
		o.c.Metrics.RecordNarrativeFallback()
		log.Warn("No analyzer produced data; skipping narrative generation.")
		return narrative.NoDataMessage
	}

	contextText := buildContext(contextInput{
		Subject:  s.Subject(),
		Metrics:  s.Metrics,
		Insights: s.BusinessInsights,
		Github:   s.Github,
		Audit:    s.BrowserAudit,
	}, o.model.ContextLimit())

	res := settle(ctx, o.cfg.NarrativeTimeout, func(ctx context.Context) (string, error) {
		text, err := o.c.Narrator.Generate(ctx, contextText)
		if err != nil && text != "" {
			// The collaborator supplied its own fallback; keep it.
			return text, nil
		}
		return text, err
	})
	o.observe(log, BranchNarrative, res.Err, res.Elapsed)

	switch {
	case res.Err != nil:
		o.c.Metrics.RecordNarrativeFallback()
		return narrative.ServiceFallback
	case res.Value == "":
		o.c.Metrics.RecordNarrativeFallback()
		return narrative.EmptyReplyFallback
	case res.Value == narrative.ServiceFallback || res.Value == narrative.EmptyReplyFallback:
		o.c.Metrics.RecordNarrativeFallback()
	}
	return res.Value
}

func (o *Orchestrator) observe(log *zap.Logger, branch string, err error, elapsed time.Duration) {
	if err == errSkipped {
		return
	}
	o.c.Metrics.ObserveBranch(branch, elapsed, err != nil)
	if err != nil {
		log.Warn("Branch produced no result.", zap.String("branch", branch), zap.Duration("elapsed", elapsed), zap.Error(err))
		return
	}
	log.Debug("Branch settled.", zap.String("branch", branch), zap.Duration("elapsed", elapsed))
}
