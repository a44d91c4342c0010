package normalizer

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/synthmind/api/schemas"
)

func ptr[T any](v T) *T { return &v }

func TestNormalize_NilAndEmpty(t *testing.T) {
	assert.Equal(t, schemas.Metrics{}, Normalize(nil))
	assert.Equal(t, schemas.Metrics{}, Normalize(&schemas.RawLoadResult{}))
	assert.False(t, Normalize(nil).Observed)
}

func TestNormalize_ZeroTraffic(t *testing.T) {
	raw := &schemas.RawLoadResult{
		Metrics: map[string]map[string]any{
			"http_reqs":         {"count": 0.0, "rate": 0.0},
			"http_req_failed":   {"value": 1.0},
			"http_req_duration": {"avg": 0.0, "p(95)": 0.0},
			"vus":               {"value": 50.0},
		},
	}

	m := Normalize(raw)

	want := schemas.Metrics{VUs: 50, Observed: true}
	if diff := cmp.Diff(want, m); diff != "" {
		t.Errorf("Normalize() mismatch (-want +got):\n%s", diff)
	}

	health := HealthSeries(m)
	require.Len(t, health, 3)
	for _, slice := range health {
		assert.Zero(t, slice.Value, slice.Name)
	}
	assert.Empty(t, ChartSeries(m).Labels)
}

func TestNormalize_SummaryExportLayout(t *testing.T) {
	raw := &schemas.RawLoadResult{
		Metrics: map[string]map[string]any{
			"http_req_duration": {"avg": 210.0, "med": 190.0, "p(95)": 320.0, "p(99)": 480.0, "max": 900.0},
			"http_reqs":         {"count": 4500.0, "rate": 150.0},
			"http_req_failed":   {"passes": 225.0, "fails": 4275.0, "value": 0.05},
			"server_errors":     {"count": 90.0, "rate": 3.0},
			"vus":               {"value": 100.0, "max": 100.0},
		},
		State: &schemas.RawLoadState{TestRunDurationMs: ptr(30000.0)},
	}

	want := schemas.Metrics{
		Throughput:           150,
		TotalRequests:        4500,
		FailureRateUnderTest: 0.05,
		ServerErrorRate:      0.02,
		Latency: schemas.Latency{
			P50: ptr(190.0), P95: ptr(320.0), P99: ptr(480.0), Avg: ptr(210.0), Max: ptr(900.0),
		},
		VUs:        100,
		DurationMs: ptr(int64(30000)),
		Observed:   true,
	}
	if diff := cmp.Diff(want, Normalize(raw)); diff != "" {
		t.Errorf("Normalize() mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalize_NestedValuesLayout(t *testing.T) {
	raw := &schemas.RawLoadResult{
		Metrics: map[string]map[string]any{
			"http_req_duration": {"type": "trend", "values": map[string]any{"avg": 80.0, "p(50)": 70.0, "p(95)": 120.0}},
			"http_reqs":         {"type": "counter", "values": map[string]any{"count": 1000.0, "rate": 200.0}},
			"http_req_failed":   {"type": "rate", "values": map[string]any{"rate": 0.01, "passes": 10.0, "fails": 990.0}},
			"vus_max":           {"values": map[string]any{"value": 40.0}},
		},
	}

	m := Normalize(raw)

	assert.Equal(t, 1000, m.TotalRequests)
	assert.Equal(t, 200.0, m.Throughput)
	assert.Equal(t, 0.01, m.FailureRateUnderTest)
	assert.Equal(t, 40, m.VUs)
	require.NotNil(t, m.Latency.P50)
	assert.Equal(t, 70.0, *m.Latency.P50)
	assert.Nil(t, m.Latency.P99, "a percentile the tool did not export stays nil")
	assert.Nil(t, m.Latency.Max)
}

func TestNormalize_FailureRateKeyOrder(t *testing.T) {
	tests := []struct {
		name   string
		failed map[string]any
		want   float64
	}{
		{"rate wins", map[string]any{"rate": 0.2, "value": 0.9}, 0.2},
		{"value next", map[string]any{"value": 0.3, "count": 900.0}, 0.3},
		{"count over total", map[string]any{"count": 50.0}, 0.05},
		{"passes over passes plus fails", map[string]any{"passes": 25.0, "fails": 75.0}, 0.25},
		{"missing metric", nil, 0},
		{"clamped above one", map[string]any{"value": 1.7}, 1},
		{"clamped below zero", map[string]any{"rate": -0.5}, 0},
		{"non-finite ignored", map[string]any{"rate": math.NaN(), "value": 0.4}, 0.4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := &schemas.RawLoadResult{Metrics: map[string]map[string]any{
				"http_reqs":       {"count": 1000.0},
				"http_req_failed": tt.failed,
			}}
			assert.InDelta(t, tt.want, Normalize(raw).FailureRateUnderTest, 1e-12)
		})
	}
}

func TestNormalize_ServerErrorsNeverExceedFailures(t *testing.T) {
	raw := &schemas.RawLoadResult{Metrics: map[string]map[string]any{
		"http_reqs":       {"count": 100.0},
		"http_req_failed": {"value": 0.1},
		"server_errors":   {"count": 40.0},
	}}

	m := Normalize(raw)
	assert.Equal(t, 0.1, m.FailureRateUnderTest)
	assert.Equal(t, 0.1, m.ServerErrorRate)
}

func TestNormalize_ThroughputFromDuration(t *testing.T) {
	raw := &schemas.RawLoadResult{
		Metrics: map[string]map[string]any{"http_reqs": {"count": 600.0}},
		State:   &schemas.RawLoadState{TestRunDurationMs: ptr(12000.0)},
	}
	assert.Equal(t, 50.0, Normalize(raw).Throughput)
}

func TestNormalize_AlternateSpellings(t *testing.T) {
	raw := &schemas.RawLoadResult{Metrics: map[string]map[string]any{
		"http_reqs":         {"count": 10},
		"http_req_duration": {"mean": 12.5, "median": 11, "p95": 20, "p99": 31},
	}}

	m := Normalize(raw)
	require.NotNil(t, m.Latency.Avg)
	assert.Equal(t, 12.5, *m.Latency.Avg)
	assert.Equal(t, 11.0, *m.Latency.P50)
	assert.Equal(t, 20.0, *m.Latency.P95)
	assert.Equal(t, 31.0, *m.Latency.P99)
}

func TestChartSeries(t *testing.T) {
	m := schemas.Metrics{
		TotalRequests: 10,
		Latency:       schemas.Latency{P50: ptr(100.0), P99: ptr(300.0)},
	}

	got := ChartSeries(m)
	want := schemas.ChartSeries{
		Labels:   []string{"p50", "p99"},
		Datasets: []schemas.Dataset{{Label: "Latency (ms)", Data: []float64{100, 300}}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ChartSeries() mismatch (-want +got):\n%s", diff)
	}
}

func TestHealthSeries(t *testing.T) {
	m := schemas.Metrics{TotalRequests: 1000, FailureRateUnderTest: 0.1, ServerErrorRate: 0.04}

	got := HealthSeries(m)
	require.Len(t, got, 3)
	assert.Equal(t, HealthSuccess, got[0].Name)
	assert.InDelta(t, 90.0, got[0].Value, 1e-9)
	assert.InDelta(t, 6.0, got[1].Value, 1e-9)
	assert.InDelta(t, 4.0, got[2].Value, 1e-9)
}

func TestHealthSeries_SumsToHundred(t *testing.T) {
	rates := []float64{0, 0.0001, 0.003333, 0.05, 0.123456, 0.3333333, 0.5, 0.77777, 0.99999, 1}
	for _, f := range rates {
		for _, s := range rates {
			m := schemas.Metrics{TotalRequests: 1, FailureRateUnderTest: f, ServerErrorRate: s}
			health := HealthSeries(m)
			assert.InDelta(t, 100.0, health.Total(), 0.01, "f=%v s=%v", f, s)
			for _, slice := range health {
				assert.GreaterOrEqual(t, slice.Value, 0.0, "f=%v s=%v", f, s)
			}
		}
	}
}
