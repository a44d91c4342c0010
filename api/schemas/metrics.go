package schemas

// -- Canonical Runtime Metrics --

// Latency holds response-time statistics in milliseconds. A nil field means the
// value could not be measured (for example, no request completed).
type Latency struct {
	P50 *float64 `json:"p50"`
	P95 *float64 `json:"p95"`
	P99 *float64 `json:"p99"`
	Avg *float64 `json:"avg"`
	Max *float64 `json:"max"`
}

// Metrics is the normalized, tool-version-independent record of a load run.
//
// When TotalRequests is zero every rate is zero and every latency field is nil.
// Observed separates "the run happened and saw no traffic" from "no run happened".
type Metrics struct {
	Throughput    float64 `json:"throughput"`    // requests per second
	TotalRequests int     `json:"totalRequests"`

	// FailureRateUnderTest is the fraction of requests that failed for any reason
	// (rejected, timed out, 4xx or 5xx).
	FailureRateUnderTest float64 `json:"failureRateUnderTest"`
	// ServerErrorRate is the fraction attributable to upstream server failures.
	// It never exceeds FailureRateUnderTest.
	ServerErrorRate float64 `json:"serverErrorRate"`

	Latency    Latency `json:"latency"`
	VUs        int     `json:"vus"`
	DurationMs *int64  `json:"duration"`
	Observed   bool    `json:"observed"`
}

// HasTraffic reports whether the metrics reflect at least one request.
func (m Metrics) HasTraffic() bool {
	return m.TotalRequests > 0
}

// AvgLatencyMs returns the average latency, or zero when it is unmeasured.
func (m Metrics) AvgLatencyMs() float64 {
	if m.Latency.Avg == nil {
		return 0
	}
	return *m.Latency.Avg
}

// -- Presentation Series --

// Dataset is one named line of a chart.
type Dataset struct {
	Label string    `json:"label"`
	Data  []float64 `json:"data"`
}

// ChartSeries is the latency-percentile series, ordered p50, p95, p99, with
// unmeasurable entries left out.
type ChartSeries struct {
	Labels   []string  `json:"labels"`
	Datasets []Dataset `json:"datasets"`
}

// HealthSlice is one segment of the request health distribution, in percent.
type HealthSlice struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Color string  `json:"color"`
}

// HealthSeries is always three slices: success, non-server failure, server failure.
type HealthSeries []HealthSlice

// Total returns the sum of the slice values.
func (h HealthSeries) Total() float64 {
	var sum float64
	for _, s := range h {
		sum += s.Value
	}
	return sum
}

// -- Browser Audit --

// BrowserAudit is the score record returned by the page-quality auditor.
type BrowserAudit struct {
	Performance   int      `json:"performance"`
	Accessibility int      `json:"accessibility"`
	BestPractices int      `json:"bestPractices"`
	SEO           int      `json:"seo"`
	Interactivity int      `json:"interactivity"`
	LoadTimeMs    *float64 `json:"loadTimeMs,omitempty"`
}
