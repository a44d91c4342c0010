package scoring

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/synthmind/api/schemas"
)

func ptr[T any](v T) *T { return &v }

func firstPick(int) int { return 0 }

func trafficMetrics(f, throughput, avg, p95 float64, vus int) schemas.Metrics {
	return schemas.Metrics{
		Throughput:           throughput,
		TotalRequests:        1000,
		FailureRateUnderTest: f,
		Latency:              schemas.Latency{Avg: ptr(avg), P95: ptr(p95)},
		VUs:                  vus,
		Observed:             true,
	}
}

// -- Repository Scoring --

func TestScoreRepository_AllCombinations(t *testing.T) {
	m := DefaultModel()
	for mask := 0; mask < 16; mask++ {
		docker, cicd, k8s, start := mask&1 != 0, mask&2 != 0, mask&4 != 0, mask&8 != 0
		g := schemas.NewGithubSignals("https://github.com/acme/shop")
		g.Docker.Present = docker
		g.CICD.Present = cicd
		g.Kubernetes.Present = k8s
		g.HasStartScript = start

		want := 0
		if docker {
			want += 30
		}
		if cicd {
			want += 30
		}
		if k8s {
			want += 20
		}
		if start {
			want += 20
		}

		got := m.ScoreRepository(g)
		assert.Equal(t, want, got.DevOpsScore, "mask=%04b", mask)
		assert.Equal(t, start && docker && cicd, got.ProductionReady, "mask=%04b", mask)

		wantRisk := schemas.RiskHigh
		switch {
		case want >= 70:
			wantRisk = schemas.RiskLow
		case want >= 40:
			wantRisk = schemas.RiskMedium
		}
		assert.Equal(t, wantRisk, got.RiskLevel, "mask=%04b", mask)
	}
}

func TestScoreRepository_DockerCICDStart(t *testing.T) {
	g := schemas.NewGithubSignals("https://github.com/acme/shop")
	g.Docker.Present = true
	g.CICD.Present = true
	g.HasStartScript = true

	got := DefaultModel().ScoreRepository(g)
	assert.Equal(t, schemas.RepoSummary{DevOpsScore: 80, ProductionReady: true, RiskLevel: schemas.RiskLow}, got)
}

func TestRiskLevelBoundaries(t *testing.T) {
	m := DefaultModel()
	assert.Equal(t, schemas.RiskLow, m.RiskLevel(70))
	assert.Equal(t, schemas.RiskMedium, m.RiskLevel(69))
	assert.Equal(t, schemas.RiskMedium, m.RiskLevel(40))
	assert.Equal(t, schemas.RiskHigh, m.RiskLevel(39))
}

// -- Business Insights --

func TestInsights_CollapsePointDegraded(t *testing.T) {
	in := Inputs{Metrics: trafficMetrics(0.10, 800, 100, 150, 200)}
	got := DefaultModel(WithPicker(firstPick)).Insights(in)
	require.NotNil(t, got.CollapsePoint)
	assert.Equal(t, 180, *got.CollapsePoint)
}

func TestInsights_CollapsePointHealthy(t *testing.T) {
	in := Inputs{Metrics: trafficMetrics(0.05, 800, 100, 150, 200)}
	got := DefaultModel(WithPicker(firstPick)).Insights(in)
	require.NotNil(t, got.CollapsePoint)
	assert.Equal(t, 360, *got.CollapsePoint, "exactly at the threshold counts as healthy")
}

func TestInsights_CollapsePointMonotonic(t *testing.T) {
	m := DefaultModel(WithPicker(firstPick))
	for _, f := range []float64{0, 0.01, 0.05, 0.0501, 0.2, 1} {
		prev := -1
		for vus := 0; vus <= 500; vus += 25 {
			got := m.Insights(Inputs{Metrics: trafficMetrics(f, 800, 100, 150, vus)})
			require.NotNil(t, got.CollapsePoint)
			assert.GreaterOrEqual(t, *got.CollapsePoint, prev, "f=%v vus=%d", f, vus)
			prev = *got.CollapsePoint
		}
	}
}

func TestInsights_ConversionLoss(t *testing.T) {
	in := Inputs{Metrics: trafficMetrics(0, 800, 300, 150, 10)}
	got := DefaultModel(WithPicker(firstPick)).Insights(in)
	require.NotNil(t, got.ConversionLoss)
	assert.Equal(t, 2.1, *got.ConversionLoss)
}

func TestInsights_AdSpendRisk(t *testing.T) {
	in := Inputs{Metrics: trafficMetrics(0.02, 100, 100, 150, 10)}
	got := DefaultModel(WithPicker(firstPick)).Insights(in)
	require.NotNil(t, got.AdSpendRisk)
	// 0.02 * 100 req/s * 0.05 * 3600 s
	assert.Equal(t, 360.0, *got.AdSpendRisk)
}

func TestInsights_ScoreBreakdown(t *testing.T) {
	g := schemas.NewGithubSignals("https://github.com/acme/shop")
	g.Summary.DevOpsScore = 60
	g.CICD.Present = true

	in := Inputs{
		Metrics: trafficMetrics(0.01, 800, 500, 150, 10),
		Github:  g,
		Audit:   &schemas.BrowserAudit{Performance: 81, BestPractices: 90},
	}
	got := DefaultModel(WithPicker(firstPick)).Insights(in)

	// performance = 100 - 10 - 10 = 80; architecture = round(85.5) = 86
	assert.Equal(t, schemas.ScoreBreakdown{Performance: 80, Architecture: 86, DevOps: 60}, got.ScoreBreakdown)
	assert.Equal(t, 75, got.StabilityRiskScore)
	assert.Nil(t, got.CICDRisk)
}

func TestInsights_PerformanceFloorsAtZero(t *testing.T) {
	in := Inputs{Metrics: trafficMetrics(0.5, 800, 9000, 150, 10)}
	got := DefaultModel(WithPicker(firstPick)).Insights(in)
	assert.Equal(t, 0, got.ScoreBreakdown.Performance)
}

func TestInsights_DefaultsWhenBranchesAbsent(t *testing.T) {
	in := Inputs{Metrics: trafficMetrics(0, 800, 100, 150, 10)}
	got := DefaultModel(WithPicker(firstPick)).Insights(in)

	assert.Equal(t, 50, got.ScoreBreakdown.Architecture)
	assert.Equal(t, 20, got.ScoreBreakdown.DevOps)
	assert.Nil(t, got.CICDRisk, "absence of repository data is not evidence of missing CI/CD")
}

func TestInsights_NoTraffic(t *testing.T) {
	g := schemas.NewGithubSignals("https://github.com/acme/shop")
	g.Summary.DevOpsScore = 30

	in := Inputs{Metrics: schemas.Metrics{Observed: true, VUs: 100}, Github: g}
	got := DefaultModel(WithPicker(firstPick)).Insights(in)

	assert.Nil(t, got.ConversionLoss)
	assert.Nil(t, got.AdSpendRisk)
	assert.Nil(t, got.CollapsePoint)
	assert.Equal(t, 0, got.ScoreBreakdown.Performance)
	assert.Equal(t, 27, got.StabilityRiskScore) // round((0+50+30)/3)

	require.NotNil(t, got.CICDRisk)
	assert.Equal(t, "high", got.CICDRisk.Severity)
	// Only the repository remediation can fire without traffic.
	require.Len(t, got.Remediations, 1)
	assert.Contains(t, got.Remediations[0], "pipeline")
}

// -- Remediations --

func TestTriggers(t *testing.T) {
	m := DefaultModel()
	noCICD := schemas.NewGithubSignals("https://github.com/acme/shop")

	tests := []struct {
		name string
		in   Inputs
		want []Trigger
	}{
		{
			name: "healthy fast system",
			in:   Inputs{Metrics: trafficMetrics(0, 900, 50, 120, 10)},
			want: nil,
		},
		{
			name: "slow p95 only",
			in:   Inputs{Metrics: trafficMetrics(0, 900, 50, 250, 10)},
			want: []Trigger{TriggerSlowP95},
		},
		{
			name: "p95 at threshold does not fire",
			in:   Inputs{Metrics: trafficMetrics(0, 900, 50, 200, 10)},
			want: nil,
		},
		{
			name: "server errors fire even when failure rate is low",
			in: Inputs{Metrics: func() schemas.Metrics {
				m := trafficMetrics(0.01, 900, 50, 120, 10)
				m.ServerErrorRate = 0.001
				return m
			}()},
			want: []Trigger{TriggerErrors},
		},
		{
			name: "everything fires in priority order",
			in:   Inputs{Metrics: trafficMetrics(0.2, 100, 400, 900, 10), Github: noCICD},
			want: []Trigger{TriggerSlowP95, TriggerLowThroughput, TriggerErrors, TriggerNoCICD},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Triggers(tt.in))
		})
	}
}

func TestRemediations_CappedAndQuantified(t *testing.T) {
	in := Inputs{
		Metrics: trafficMetrics(0.2, 100, 400, 900, 10),
		Github:  schemas.NewGithubSignals("https://github.com/acme/shop"),
	}
	got := DefaultModel(WithPicker(firstPick)).Remediations(in)

	require.Len(t, got, 3)
	assert.Equal(t, "Cache your slowest pages at the edge: cut the slowest responses by roughly 700 ms.", got[0])
	assert.Equal(t, "Add capacity before launch day: serve about 400 more requests per second.", got[1])
	assert.Equal(t, "Fix the errors users hit under load: recover about 20.0% of failed visits.", got[2])
}

func TestRemediations_PhrasingVariesTriggersDoNot(t *testing.T) {
	in := Inputs{Metrics: trafficMetrics(0, 100, 400, 900, 10)}
	a := DefaultModel(WithPicker(func(int) int { return 0 })).Remediations(in)
	b := DefaultModel(WithPicker(func(n int) int { return n - 1 })).Remediations(in)

	require.Len(t, a, 2)
	require.Len(t, b, 2)
	assert.NotEqual(t, a, b)
	for i := range a {
		assert.True(t, strings.Contains(a[i], ":") && strings.Contains(b[i], ":"))
	}
}

func TestRemediations_OutOfRangePickerIsSafe(t *testing.T) {
	in := Inputs{Metrics: trafficMetrics(0, 100, 400, 900, 10)}
	m := DefaultModel(WithPicker(func(int) int { return 99 }))
	assert.NotPanics(t, func() { m.Remediations(in) })
}
