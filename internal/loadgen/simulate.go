package loadgen

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/montanaflynn/stats"
	"go.uber.org/zap"

	"github.com/xkilldash9x/synthmind/api/schemas"
)

// Simulation parameters. The numbers shape plausible output only; they do not
// model any real service.
const (
	simBaseLatencyMinMs  = 150.0
	simBaseLatencySpanMs = 300.0
	simJitter            = 0.15
	simRequestsPerVU     = 45
	simMaxSamples        = 1000
	simNoiseProbability  = 0.2
	simNoiseFailureMin   = 0.04
	simNoiseFailureSpan  = 0.08
	simServerErrorShare  = 0.5
)

type probeOutcome int

const (
	probeReachable probeOutcome = iota
	probeUnreachable
	probeServerError
)

// simulate synthesizes a summary export in the same shape the real tool writes,
// so the normalizer treats both alike.
func (r *Runner) simulate(ctx context.Context, targetURL string, opts schemas.LoadOptions) (*schemas.RawLoadResult, error) {
	if r.cfg.SimulationDelay > 0 {
		select {
		case <-time.After(r.cfg.SimulationDelay):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", schemas.ErrRunFailed, ctx.Err())
		}
	}

	requests := opts.VirtualUsers * simRequestsPerVU
	base := simBaseLatencyMinMs + r.random()*simBaseLatencySpanMs

	n := min(max(requests, 1), simMaxSamples)
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = base * (1 + (r.random()*2-1)*simJitter)
	}

	var failureRate, serverShare float64
	switch r.probeTarget(ctx, targetURL) {
	case probeUnreachable:
		failureRate = 1
	case probeServerError:
		failureRate, serverShare = 1, 1
	default:
		if r.random() < simNoiseProbability {
			failureRate = simNoiseFailureMin + r.random()*simNoiseFailureSpan
			serverShare = simServerErrorShare
		}
	}

	failed := int(math.Round(float64(requests) * failureRate))
	serverErrors := int(math.Round(float64(failed) * serverShare))
	durationSec := opts.Duration.Seconds()
	if durationSec <= 0 {
		durationSec = 1
	}

	trend, err := summarizeTrend(samples)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", schemas.ErrRunFailed, err)
	}

	runMs := float64(opts.Duration.Milliseconds())
	result := &schemas.RawLoadResult{
		Metrics: map[string]map[string]any{
			"http_req_duration": trend,
			"http_reqs": {
				"count": float64(requests),
				"rate":  float64(requests) / durationSec,
			},
			// The real tool's Rate metric counts true samples as "passes";
			// for http_req_failed a true sample is a failure.
			"http_req_failed": {
				"passes": float64(failed),
				"fails":  float64(requests - failed),
				"value":  failureRate,
			},
			"server_errors": {
				"count": float64(serverErrors),
				"rate":  float64(serverErrors) / durationSec,
			},
			"vus": {
				"value": float64(opts.VirtualUsers),
				"min":   float64(opts.VirtualUsers),
				"max":   float64(opts.VirtualUsers),
			},
		},
		State:     &schemas.RawLoadState{TestRunDurationMs: &runMs},
		Simulated: true,
	}

	r.logger.Info("Simulated load run complete.",
		zap.String("target", targetURL),
		zap.Int("requests", requests),
		zap.Float64("failure_rate", failureRate))
	return result, nil
}

func summarizeTrend(samples []float64) (map[string]any, error) {
	avg, err := stats.Mean(samples)
	if err != nil {
		return nil, err
	}
	med, err := stats.Median(samples)
	if err != nil {
		return nil, err
	}
	p95, err := stats.Percentile(samples, 95)
	if err != nil {
		return nil, err
	}
	p99, err := stats.Percentile(samples, 99)
	if err != nil {
		return nil, err
	}
	lo, err := stats.Min(samples)
	if err != nil {
		return nil, err
	}
	hi, err := stats.Max(samples)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"avg":   avg,
		"min":   lo,
		"med":   med,
		"max":   hi,
		"p(95)": p95,
		"p(99)": p99,
	}, nil
}

// probeTarget issues one cheap GET against the target.
func (r *Runner) probeTarget(ctx context.Context, targetURL string) probeOutcome {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return probeUnreachable
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.logger.Debug("Connectivity probe failed.", zap.String("target", targetURL), zap.Error(err))
		return probeUnreachable
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return probeServerError
	}
	return probeReachable
}
