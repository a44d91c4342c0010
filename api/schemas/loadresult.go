package schemas

// RawLoadResult is the tool-specific output of a load run. Metric statistics may
// sit directly on the metric ("summary-export" files) or under a nested "values"
// map (newer handleSummary output), and key spellings drift between versions.
// Only the normalizer reads inside it.
type RawLoadResult struct {
	Metrics map[string]map[string]any `json:"metrics"`
	State   *RawLoadState             `json:"state,omitempty"`
	// Simulated is set when the result was synthesized because the tool was missing.
	Simulated bool `json:"-"`
}

// RawLoadState carries run-level information.
type RawLoadState struct {
	TestRunDurationMs *float64 `json:"testRunDurationMs,omitempty"`
}
