package normalizer

import (
	"math"

	"github.com/xkilldash9x/synthmind/api/schemas"
)

const latencyDatasetLabel = "Latency (ms)"

// Health slice labels and colors.
const (
	HealthSuccess      = "Successful Responses (2xx)"
	HealthNonServer    = "Failed Requests (Blocked / Rejected / 4xx)"
	HealthServer       = "Server Errors (5xx)"
	colorSuccess       = "#2563eb"
	colorNonServerFail = "#f59e0b"
	colorServerFail    = "#ef4444"
)

// ChartSeries builds the p50, p95, p99 latency series, leaving out any
// percentile that could not be measured.
func ChartSeries(m schemas.Metrics) schemas.ChartSeries {
	series := schemas.ChartSeries{
		Labels:   []string{},
		Datasets: []schemas.Dataset{{Label: latencyDatasetLabel, Data: []float64{}}},
	}
	points := []struct {
		label string
		value *float64
	}{
		{"p50", m.Latency.P50},
		{"p95", m.Latency.P95},
		{"p99", m.Latency.P99},
	}
	for _, p := range points {
		if p.value == nil {
			continue
		}
		series.Labels = append(series.Labels, p.label)
		series.Datasets[0].Data = append(series.Datasets[0].Data, *p.value)
	}
	return series
}

// HealthSeries splits requests into success, non-server failure and server
// failure percentages. Values carry two decimals and sum to exactly 100; with
// no traffic every slice is zero.
func HealthSeries(m schemas.Metrics) schemas.HealthSeries {
	var success, nonServer, server float64
	if m.HasTraffic() {
		f := clampUnit(m.FailureRateUnderTest)
		s := math.Min(clampUnit(m.ServerErrorRate), f)
		nonServer = round2(math.Max(0, f-s) * 100)
		server = round2(s * 100)
		// Derive success from the rounded failure slices so rounding drift
		// lands in one place.
		success = round2(100 - nonServer - server)
	}
	return schemas.HealthSeries{
		{Name: HealthSuccess, Value: success, Color: colorSuccess},
		{Name: HealthNonServer, Value: nonServer, Color: colorNonServerFail},
		{Name: HealthServer, Value: server, Color: colorServerFail},
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
