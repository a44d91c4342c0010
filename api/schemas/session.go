package schemas

import "time"

// -- Business Insights --

// ScoreBreakdown holds the three components of the stability score, each 0 to 100.
type ScoreBreakdown struct {
	Performance  int `json:"performance"`
	Architecture int `json:"architecture"`
	DevOps       int `json:"devops"`
}

// CICDRisk is reported only when a scanned repository has no CI/CD pipeline.
type CICDRisk struct {
	Severity    string `json:"severity"`
	Consequence string `json:"consequence"`
	Details     string `json:"details"`
}

// BusinessInsights are the derived business-impact scores. Fields that depend on
// observed traffic are nil when the load branch produced no requests.
type BusinessInsights struct {
	ConversionLoss     *float64       `json:"conversionLoss"` // percentage points
	AdSpendRisk        *float64       `json:"adSpendRisk"`    // currency units per day
	ScoreBreakdown     ScoreBreakdown `json:"scoreBreakdown"`
	StabilityRiskScore int            `json:"stabilityRiskScore"`
	CollapsePoint      *int           `json:"collapsePoint"`
	Remediations       []string       `json:"remediations"`
	CICDRisk           *CICDRisk      `json:"cicdRisk"`
}

// -- Session --

// ChatRole identifies the author of a transcript entry.
type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "bot"
)

// ChatMessage is one transcript entry.
type ChatMessage struct {
	Role      ChatRole  `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// TestSession is the persisted aggregate of one assessment. The analytical fields
// are written once; only Transcript grows afterwards.
type TestSession struct {
	ID               string            `json:"id"`
	TargetURL        string            `json:"targetUrl,omitempty"`
	RepoURL          string            `json:"repoUrl,omitempty"`
	Metrics          Metrics           `json:"metrics"`
	ChartSeries      ChartSeries       `json:"chartSeries"`
	HealthSeries     HealthSeries      `json:"healthSeries"`
	Github           *GithubSignals    `json:"github"`
	BrowserAudit     *BrowserAudit     `json:"browserAudit"`
	BusinessInsights *BusinessInsights `json:"businessInsights"`
	NarrativeMessage string            `json:"narrativeMessage"`
	Transcript       []ChatMessage     `json:"transcript"`
	CreatedAt        time.Time         `json:"createdAt"`
}

// Subject returns the primary thing under test: the target URL, else the repository.
func (s *TestSession) Subject() string {
	if s.TargetURL != "" {
		return s.TargetURL
	}
	return s.RepoURL
}
