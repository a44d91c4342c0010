package orchestrator

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/xkilldash9x/synthmind/api/schemas"
)

const notAvailable = "N/A"

// contextInput is everything the narrative context may describe. Nil fields
// and unobserved metrics omit their section.
type contextInput struct {
	Subject  string
	Metrics  schemas.Metrics
	Insights *schemas.BusinessInsights
	Github   *schemas.GithubSignals
	Audit    *schemas.BrowserAudit
}

// buildContext renders the narrative context. Sections always appear in the
// same order, and the result never exceeds limit bytes.
func buildContext(in contextInput, limit int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Target under test: %s\n\n", in.Subject)

	if in.Metrics.Observed {
		m := in.Metrics
		b.WriteString("Runtime Metrics (Observed):\n")
		fmt.Fprintf(&b, "- Failure Rate: %s%%\n", percent(m.FailureRateUnderTest))
		fmt.Fprintf(&b, "- p95 Latency: %s ms\n", optional(m.Latency.P95))
		fmt.Fprintf(&b, "- Avg Latency: %s ms\n", optional(m.Latency.Avg))
		fmt.Fprintf(&b, "- Throughput: %s req/s\n", number(m.Throughput))
		fmt.Fprintf(&b, "- Server Error Rate (5xx): %s%%\n", percent(m.ServerErrorRate))
		fmt.Fprintf(&b, "- Total Requests: %d\n", m.TotalRequests)
		fmt.Fprintf(&b, "- Virtual Users: %d\n\n", m.VUs)
	}

	if in.Insights != nil {
		bi := in.Insights
		b.WriteString("Business Impact (Estimated):\n")
		fmt.Fprintf(&b, "- Stability Risk Score: %d/100\n", bi.StabilityRiskScore)
		// Traffic-derived estimates exist only when a load run produced them.
		if bi.ConversionLoss != nil {
			fmt.Fprintf(&b, "- Conversion Loss: %s points\n", number(*bi.ConversionLoss))
		}
		if bi.AdSpendRisk != nil {
			fmt.Fprintf(&b, "- Ad Spend At Risk: %s per day\n", number(*bi.AdSpendRisk))
		}
		if bi.CollapsePoint != nil {
			fmt.Fprintf(&b, "- Collapse Point: about %d concurrent users\n", *bi.CollapsePoint)
		}
		if bi.CICDRisk != nil {
			fmt.Fprintf(&b, "- Release Risk: %s (%s)\n", bi.CICDRisk.Severity, bi.CICDRisk.Consequence)
		}
		b.WriteString("\n")
	}

	if g := in.Github; g != nil {
		b.WriteString("Repository Signals (Static):\n")
		fmt.Fprintf(&b, "- Docker: %s\n", detected(g.Docker.Present))
		fmt.Fprintf(&b, "- CI/CD: %s\n", detected(g.CICD.Present))
		fmt.Fprintf(&b, "- Kubernetes: %s\n", detected(g.Kubernetes.Present))
		fmt.Fprintf(&b, "- DevOps Score: %d/100 (%s risk)\n", g.Summary.DevOpsScore, g.Summary.RiskLevel)
		if len(g.Issues) > 0 {
			fmt.Fprintf(&b, "- Gaps: %s\n", strings.Join(g.Issues, "; "))
		}
		b.WriteString("\n")
	}

	if a := in.Audit; a != nil {
		b.WriteString("Browser Audit:\n")
		fmt.Fprintf(&b, "- Performance: %d/100\n", a.Performance)
		fmt.Fprintf(&b, "- Accessibility: %d/100\n", a.Accessibility)
		fmt.Fprintf(&b, "- Best Practices: %d/100\n", a.BestPractices)
		fmt.Fprintf(&b, "- SEO: %d/100\n", a.SEO)
		fmt.Fprintf(&b, "- Time To Interactive: %s ms\n", optional(a.LoadTimeMs))
	}

	return truncate(strings.TrimRight(b.String(), "\n")+"\n", limit)
}

// truncate cuts s to at most limit bytes without splitting a UTF-8 sequence.
func truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func percent(v float64) string {
	return strconv.FormatFloat(v*100, 'f', 2, 64)
}

func number(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}

func optional(v *float64) string {
	if v == nil {
		return notAvailable
	}
	return number(*v)
}

func detected(present bool) string {
	if present {
		return "Detected"
	}
	return "Not detected"
}
