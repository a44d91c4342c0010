// File: internal/loadgen/runner.go
package loadgen

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"
	"os/exec"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/synthmind/api/schemas"
	"github.com/xkilldash9x/synthmind/internal/config"
	"github.com/xkilldash9x/synthmind/internal/observability"
)

// State is a step of a single load run.
type State int

const (
	StateIdle State = iota
	StateProbeBinary
	StateRealRun
	StateSimulate
	StateSuccess
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateProbeBinary:
		return "probe_binary"
	case StateRealRun:
		return "real_run"
	case StateSimulate:
		return "simulate"
	case StateSuccess:
		return "success"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Runner drives the external load tool, falling back to a simulator when the
// tool is not installed.
type Runner struct {
	cfg        config.LoadGenConfig
	logger     *zap.Logger
	metrics    *observability.Metrics
	httpClient *http.Client
	random     func() float64
	// onTransition, if set, observes every state change. Used by tests.
	onTransition func(from, to State)
}

var _ schemas.LoadRunner = (*Runner)(nil)

// Option customizes a Runner.
type Option func(*Runner)

// WithRandom replaces the random source used by the simulator.
func WithRandom(random func() float64) Option {
	return func(r *Runner) { r.random = random }
}

// WithHTTPClient replaces the client used for the simulator's connectivity probe.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Runner) { r.httpClient = c }
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *observability.Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// NewRunner creates a load runner.
func NewRunner(cfg config.LoadGenConfig, logger *zap.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Binary == "" {
		cfg.Binary = "k6"
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 3 * time.Second
	}
	r := &Runner{
		cfg:        cfg,
		logger:     logger.Named("loadgen"),
		httpClient: &http.Client{Timeout: cfg.ProbeTimeout},
		random:     rand.Float64,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes one load test against targetURL. A missing binary is recovered
// by a single simulated attempt; a real run that fails is reported as
// ErrRunFailed and never simulated.
func (r *Runner) Run(ctx context.Context, targetURL string, opts schemas.LoadOptions) (*schemas.RawLoadResult, error) {
	if opts.VirtualUsers <= 0 {
		opts.VirtualUsers = r.cfg.VirtualUsers
	}
	if opts.Duration <= 0 {
		opts.Duration = r.cfg.Duration
	}

	var (
		result    *schemas.RawLoadResult
		runErr    error
		simulated bool
	)

	state := StateIdle
	for {
		next := state
		switch state {
		case StateIdle:
			if r.cfg.Mode == config.LoadModeDemo {
				r.logger.Info("Demo mode active, simulating load run.", zap.String("target", targetURL))
				next = StateSimulate
			} else {
				next = StateProbeBinary
			}

		case StateProbeBinary:
			if err := r.probeBinary(ctx); err != nil {
				r.logger.Warn("Load tool unavailable, falling back to simulation.", zap.Error(err))
				r.metrics.RecordSimulation()
				next = StateSimulate
			} else {
				next = StateRealRun
			}

		case StateRealRun:
			result, runErr = r.runTool(ctx, targetURL, opts)
			if runErr != nil {
				next = StateFailed
			} else {
				next = StateSuccess
			}

		case StateSimulate:
			if simulated {
				runErr = fmt.Errorf("%w: simulation already attempted", schemas.ErrRunFailed)
				next = StateFailed
				break
			}
			simulated = true
			result, runErr = r.simulate(ctx, targetURL, opts)
			if runErr != nil {
				next = StateFailed
			} else {
				next = StateSuccess
			}

		case StateSuccess:
			return result, nil

		case StateFailed:
			r.logger.Error("Load run failed.", zap.String("target", targetURL), zap.Error(runErr))
			return nil, runErr
		}

		if r.onTransition != nil {
			r.onTransition(state, next)
		}
		r.logger.Debug("Load run state transition.", zap.Stringer("from", state), zap.Stringer("to", next))
		state = next
	}
}

// probeBinary checks that the load tool is on the PATH and answers "version".
func (r *Runner) probeBinary(ctx context.Context) error {
	path, err := exec.LookPath(r.cfg.Binary)
	if err != nil {
		return fmt.Errorf("%w: %v", schemas.ErrToolUnavailable, err)
	}

	probeCtx, cancel := context.WithTimeout(ctx, r.cfg.ProbeTimeout)
	defer cancel()

	out, err := exec.CommandContext(probeCtx, path, "version").CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s version: %v", schemas.ErrToolUnavailable, r.cfg.Binary, err)
	}
	r.logger.Info("Load tool found.", zap.String("path", path), zap.String("version", firstLine(out)))
	return nil
}
