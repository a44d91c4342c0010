// Package normalizer converts raw load-tool output into the canonical metrics
// model and derives the presentation series from it.
package normalizer

import (
	"math"

	"github.com/xkilldash9x/synthmind/api/schemas"
)

// Metric names in a load-tool summary.
const (
	metricDuration     = "http_req_duration"
	metricRequests     = "http_reqs"
	metricFailed       = "http_req_failed"
	metricServerErrors = "server_errors"
	metricVUs          = "vus"
	metricVUsMax       = "vus_max"
)

// Normalize converts a raw result into Metrics. It is pure and tolerates
// missing metrics, missing keys, and either summary layout. A nil or empty
// result yields zero Metrics with Observed unset.
func Normalize(raw *schemas.RawLoadResult) schemas.Metrics {
	if raw == nil || len(raw.Metrics) == 0 {
		return schemas.Metrics{}
	}

	m := schemas.Metrics{Observed: true}

	reqs := raw.Metrics[metricRequests]
	if count, ok := stat(reqs, "count"); ok && count > 0 {
		m.TotalRequests = toInt(count)
	}

	if raw.State != nil && raw.State.TestRunDurationMs != nil {
		if ms := math.Round(*raw.State.TestRunDurationMs); ms > 0 {
			d := int64(math.MaxInt64)
			if ms < float64(math.MaxInt64) {
				d = int64(ms)
			}
			m.DurationMs = &d
		}
	}

	m.VUs = vus(raw.Metrics)

	if !m.HasTraffic() {
		// No traffic observed: every rate stays zero, every latency stays nil.
		return m
	}

	m.Throughput = throughput(reqs, m.TotalRequests, m.DurationMs)
	m.FailureRateUnderTest = clampUnit(failureRate(raw.Metrics[metricFailed], m.TotalRequests))
	m.ServerErrorRate = math.Min(
		clampUnit(serverErrorRate(raw.Metrics[metricServerErrors], m.TotalRequests)),
		m.FailureRateUnderTest,
	)
	m.Latency = latency(raw.Metrics[metricDuration])
	return m
}

func throughput(reqs map[string]any, total int, durationMs *int64) float64 {
	if rate, ok := stat(reqs, "rate"); ok && rate >= 0 {
		return rate
	}
	if durationMs != nil && *durationMs > 0 {
		return float64(total) / (float64(*durationMs) / 1000)
	}
	return 0
}

// failureRate reads the failed-request fraction. Rate metrics carry it as
// "rate" (nested layout) or "value" (flat layout); counters need the total.
// As a last resort "passes" over passes+fails is used, since true samples of
// a failed-request metric are failures.
func failureRate(metric map[string]any, total int) float64 {
	if rate, ok := stat(metric, "rate"); ok {
		return rate
	}
	if value, ok := stat(metric, "value"); ok {
		return value
	}
	if count, ok := stat(metric, "count"); ok && total > 0 {
		return count / float64(total)
	}
	passes, okP := stat(metric, "passes")
	fails, okF := stat(metric, "fails")
	if okP && okF && passes+fails > 0 {
		return passes / (passes + fails)
	}
	return 0
}

func serverErrorRate(metric map[string]any, total int) float64 {
	if count, ok := stat(metric, "count"); ok && total > 0 {
		return count / float64(total)
	}
	if value, ok := stat(metric, "value"); ok {
		return value
	}
	return 0
}

// latency reads the duration statistics. A negative value is not a duration,
// so it is reported as unmeasured.
func latency(metric map[string]any) schemas.Latency {
	return schemas.Latency{
		P50: durationPtr(metric, "p(50)", "med", "median", "p50"),
		P95: durationPtr(metric, "p(95)", "p95"),
		P99: durationPtr(metric, "p(99)", "p99"),
		Avg: durationPtr(metric, "avg", "mean"),
		Max: durationPtr(metric, "max"),
	}
}

func vus(metrics map[string]map[string]any) int {
	if v, ok := stat(metrics[metricVUs], "value", "max"); ok && v > 0 {
		return toInt(v)
	}
	if v, ok := stat(metrics[metricVUsMax], "value", "max"); ok && v > 0 {
		return toInt(v)
	}
	return 0
}

// stat returns the first finite number found under keys, looking at the
// metric itself and then at its nested "values" map.
func stat(metric map[string]any, keys ...string) (float64, bool) {
	if metric == nil {
		return 0, false
	}
	nested, _ := metric["values"].(map[string]any)
	for _, key := range keys {
		if v, ok := number(metric[key]); ok {
			return v, true
		}
		if v, ok := number(nested[key]); ok {
			return v, true
		}
	}
	return 0, false
}

func durationPtr(metric map[string]any, keys ...string) *float64 {
	v, ok := stat(metric, keys...)
	if !ok || v < 0 {
		return nil
	}
	return &v
}

// toInt rounds a non-negative count, saturating at math.MaxInt.
func toInt(v float64) int {
	r := math.Round(v)
	if r >= float64(math.MaxInt) {
		return math.MaxInt
	}
	return int(r)
}

func number(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case interface{ Float64() (float64, error) }:
		var err error
		if f, err = n.Float64(); err != nil {
			return 0, false
		}
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func clampUnit(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
