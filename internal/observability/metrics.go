package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Assessment outcomes recorded by AssessmentsTotal.
const (
	OutcomeStored        = "stored"
	OutcomeStorageFailed = "storage_failed"
	OutcomeRejected      = "rejected"
)

// Metrics holds the Prometheus collectors of the assessment engine.
type Metrics struct {
	AssessmentsTotal    *prometheus.CounterVec
	BranchDuration      *prometheus.HistogramVec
	BranchFailures      *prometheus.CounterVec
	SimulationFallbacks prometheus.Counter
	NarrativeFallbacks  prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered, which is what most tests want.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AssessmentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "synthmind",
			Name:      "assessments_total",
			Help:      "Assessments handled, by outcome.",
		}, []string{"outcome"}),
		BranchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "synthmind",
			Name:      "branch_duration_seconds",
			Help:      "Wall-clock time of each analysis branch.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"branch"}),
		BranchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "synthmind",
			Name:      "branch_failures_total",
			Help:      "Analysis branches that resolved to no result.",
		}, []string{"branch"}),
		SimulationFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "synthmind",
			Name:      "simulation_fallbacks_total",
			Help:      "Load runs served by the simulator because the load tool was unavailable.",
		}),
		NarrativeFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "synthmind",
			Name:      "narrative_fallbacks_total",
			Help:      "Sessions stored with a fallback narrative.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.AssessmentsTotal, m.BranchDuration, m.BranchFailures,
			m.SimulationFallbacks, m.NarrativeFallbacks)
	}
	return m
}

// ObserveBranch records the duration of a branch and whether it failed.
func (m *Metrics) ObserveBranch(branch string, elapsed time.Duration, failed bool) {
	if m == nil {
		return
	}
	m.BranchDuration.WithLabelValues(branch).Observe(elapsed.Seconds())
	if failed {
		m.BranchFailures.WithLabelValues(branch).Inc()
	}
}

// RecordAssessment counts one assessment outcome.
func (m *Metrics) RecordAssessment(outcome string) {
	if m == nil {
		return
	}
	m.AssessmentsTotal.WithLabelValues(outcome).Inc()
}

// RecordSimulation counts a simulator fallback.
func (m *Metrics) RecordSimulation() {
	if m == nil {
		return
	}
	m.SimulationFallbacks.Inc()
}

// RecordNarrativeFallback counts a session stored without generated prose.
func (m *Metrics) RecordNarrativeFallback() {
	if m == nil {
		return
	}
	m.NarrativeFallbacks.Inc()
}
