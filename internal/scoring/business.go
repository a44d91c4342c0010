package scoring

import (
	"math"

	"github.com/xkilldash9x/synthmind/api/schemas"
)

// Inputs are the settled branch results of one assessment. Github and Audit
// are nil when their branch was skipped or failed.
type Inputs struct {
	Metrics schemas.Metrics
	Github  *schemas.GithubSignals
	Audit   *schemas.BrowserAudit
}

const (
	cicdSeverity    = "high"
	cicdConsequence = "Releases reach users without automated checks, so a single broken deploy can take the product down during launch traffic."
	cicdDetails     = "No CI/CD pipeline declaration was found in the repository (GitHub Actions, GitLab CI, CircleCI or Jenkins)."
)

// Insights computes the business-impact figures. Figures derived from traffic
// stay nil when the load run observed no requests, and the performance
// component is then zero.
func (m Model) Insights(in Inputs) *schemas.BusinessInsights {
	metrics := in.Metrics
	insights := &schemas.BusinessInsights{Remediations: []string{}}

	performance := 0
	if metrics.HasTraffic() {
		f := metrics.FailureRateUnderTest
		avgMs := metrics.AvgLatencyMs()

		conversion := round2(avgMs / 1000 * m.cfg.ConversionLossPerSecond)
		adSpend := round2(f * metrics.Throughput * m.cfg.PerRequestValue * m.cfg.PeakWindowSeconds)
		insights.ConversionLoss = &conversion
		insights.AdSpendRisk = &adSpend

		factor := m.cfg.CollapseHealthyFactor
		if f > m.cfg.CollapseFailureThreshold {
			factor = m.cfg.CollapseDegradedFactor
		}
		collapse := int(math.Round(float64(metrics.VUs) * factor))
		insights.CollapsePoint = &collapse

		performance = clamp(int(math.Round(math.Max(0, 100-1000*f-avgMs/50))), 0, 100)
	}

	architecture := m.cfg.ArchitectureDefault
	if in.Audit != nil {
		architecture = clamp(int(math.Round(float64(in.Audit.Performance+in.Audit.BestPractices)/2)), 0, 100)
	}

	devops := m.cfg.DevOpsDefault
	if in.Github != nil {
		devops = in.Github.Summary.DevOpsScore
	}

	insights.ScoreBreakdown = schemas.ScoreBreakdown{
		Performance:  performance,
		Architecture: architecture,
		DevOps:       devops,
	}
	insights.StabilityRiskScore = int(math.Round(float64(performance+architecture+devops) / 3))

	if in.Github != nil && !in.Github.CICD.Present {
		insights.CICDRisk = &schemas.CICDRisk{
			Severity:    cicdSeverity,
			Consequence: cicdConsequence,
			Details:     cicdDetails,
		}
	}

	insights.Remediations = m.Remediations(in)
	return insights
}
