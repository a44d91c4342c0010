// Package scoring holds the readiness heuristics: the DevOps score of a
// repository and the business-impact figures of an assessment. Every constant
// comes from config.ScoringConfig; none of them are calibrated.
package scoring

import (
	"math"
	"math/rand/v2"

	"github.com/xkilldash9x/synthmind/api/schemas"
	"github.com/xkilldash9x/synthmind/internal/config"
)

// Picker returns an index in [0, n). It chooses between equivalent phrasings.
type Picker func(n int) int

// Model is an immutable scoring configuration. Copies are safe to share.
type Model struct {
	cfg  config.ScoringConfig
	pick Picker
}

// Option customizes a Model.
type Option func(*Model)

// WithPicker replaces the phrasing picker, typically with a deterministic one.
func WithPicker(p Picker) Option {
	return func(m *Model) { m.pick = p }
}

// NewModel creates a Model from configuration.
func NewModel(cfg config.ScoringConfig, opts ...Option) Model {
	m := Model{cfg: cfg, pick: rand.IntN}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// DefaultModel returns a Model built from the default configuration.
func DefaultModel(opts ...Option) Model {
	return NewModel(config.NewDefaultConfig().Scoring(), opts...)
}

// ContextLimit is the byte cap of the narrative context.
func (m Model) ContextLimit() int {
	return m.cfg.ContextMaxBytes
}

// ScoreRepository derives the readiness summary from the four deployment signals.
func (m Model) ScoreRepository(g *schemas.GithubSignals) schemas.RepoSummary {
	if g == nil {
		return schemas.RepoSummary{RiskLevel: schemas.RiskHigh}
	}
	score := 0
	if g.Docker.Present {
		score += m.cfg.DockerWeight
	}
	if g.CICD.Present {
		score += m.cfg.CICDWeight
	}
	if g.Kubernetes.Present {
		score += m.cfg.KubernetesWeight
	}
	if g.HasStartScript {
		score += m.cfg.StartScriptWeight
	}
	return schemas.RepoSummary{
		DevOpsScore:     score,
		ProductionReady: g.HasStartScript && g.Docker.Present && g.CICD.Present,
		RiskLevel:       m.RiskLevel(score),
	}
}

// RiskLevel buckets a DevOps score.
func (m Model) RiskLevel(score int) schemas.RiskLevel {
	switch {
	case score >= m.cfg.LowRiskMinScore:
		return schemas.RiskLow
	case score >= m.cfg.MediumRiskMinScore:
		return schemas.RiskMedium
	default:
		return schemas.RiskHigh
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp(v, lo, hi int) int {
	return max(lo, min(hi, v))
}
