package scoring

import (
	"fmt"
	"math"
)

// Trigger identifies a remediation condition.
type Trigger string

const (
	TriggerSlowP95       Trigger = "slow_p95"
	TriggerLowThroughput Trigger = "low_throughput"
	TriggerErrors        Trigger = "errors"
	TriggerNoCICD        Trigger = "no_cicd"
)

// phrasing pairs an imperative action with its expected improvement. The
// improvement is formatted with one number derived from the metrics.
type phrasing struct {
	action      string
	improvement string
}

var phrasings = map[Trigger][]phrasing{
	TriggerSlowP95: {
		{"Cache your slowest pages at the edge", "cut the slowest responses by roughly %.0f ms"},
		{"Trim the work done on each page request", "bring slow responses down by about %.0f ms"},
		{"Move heavy processing off the request path", "save users up to %.0f ms on the slowest requests"},
	},
	TriggerLowThroughput: {
		{"Add capacity before launch day", "serve about %.0f more requests per second"},
		{"Run more copies of the service behind a load balancer", "absorb roughly %.0f extra requests per second"},
	},
	TriggerErrors: {
		{"Fix the errors users hit under load", "recover about %.1f%% of failed visits"},
		{"Add retries and graceful fallbacks for failing requests", "win back up to %.1f%% of lost sessions"},
	},
	TriggerNoCICD: {
		{"Set up an automated build and test pipeline", "catch broken releases before %.0f%% of your users see them"},
		{"Gate every release behind automated checks", "stop roughly %.0f%% of bad deploys from reaching users"},
	},
}

// cicdCatchRate is the share of bad releases an automated pipeline is assumed
// to stop. It only feeds the printed improvement.
const cicdCatchRate = 90

// Triggers returns the remediation conditions that fire, in priority order.
// The result depends only on the inputs.
func (m Model) Triggers(in Inputs) []Trigger {
	var out []Trigger
	metrics := in.Metrics
	if metrics.HasTraffic() {
		if p95 := metrics.Latency.P95; p95 != nil && *p95 > m.cfg.P95ThresholdMs {
			out = append(out, TriggerSlowP95)
		}
		if metrics.Throughput < m.cfg.ThroughputThreshold {
			out = append(out, TriggerLowThroughput)
		}
		if metrics.ServerErrorRate > 0 || metrics.FailureRateUnderTest > m.cfg.FailureRateThreshold {
			out = append(out, TriggerErrors)
		}
	}
	if in.Github != nil && !in.Github.CICD.Present {
		out = append(out, TriggerNoCICD)
	}
	return out
}

// Remediations renders at most MaxRemediations suggestions. Which triggers
// fire is deterministic; the wording of each is chosen by the picker.
func (m Model) Remediations(in Inputs) []string {
	triggers := m.Triggers(in)
	if len(triggers) > m.cfg.MaxRemediations {
		triggers = triggers[:m.cfg.MaxRemediations]
	}

	out := make([]string, 0, len(triggers))
	for _, t := range triggers {
		options := phrasings[t]
		idx := m.pick(len(options))
		if idx < 0 || idx >= len(options) {
			idx = 0
		}
		p := options[idx]
		out = append(out, fmt.Sprintf("%s: %s.", p.action, fmt.Sprintf(p.improvement, m.impact(t, in))))
	}
	return out
}

func (m Model) impact(t Trigger, in Inputs) float64 {
	metrics := in.Metrics
	switch t {
	case TriggerSlowP95:
		return *metrics.Latency.P95 - m.cfg.P95ThresholdMs
	case TriggerLowThroughput:
		return m.cfg.ThroughputThreshold - metrics.Throughput
	case TriggerErrors:
		return math.Max(metrics.FailureRateUnderTest, metrics.ServerErrorRate) * 100
	case TriggerNoCICD:
		return cicdCatchRate
	}
	return 0
}
