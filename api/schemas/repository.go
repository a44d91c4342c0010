package schemas

// -- Repository Signals --

// RiskLevel buckets a DevOps score.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// KubernetesType identifies how orchestration manifests are packaged.
type KubernetesType string

const (
	KubernetesNone KubernetesType = ""
	KubernetesRaw  KubernetesType = "raw"
	KubernetesHelm KubernetesType = "helm"
)

// Values used when a manifest does not reveal the framework or database.
const (
	UnknownValue = "Unknown"
	NoneValue    = "None"
)

// DockerSignals describes the container build descriptor.
type DockerSignals struct {
	Present     bool `json:"present"`
	HasCMD      bool `json:"hasCMD"`
	ExposesPort bool `json:"exposesPort"`
}

// KubernetesSignals describes orchestration manifests.
type KubernetesSignals struct {
	Present bool           `json:"present"`
	Type    KubernetesType `json:"type,omitempty"`
}

// CICDSignals describes CI pipeline declarations.
type CICDSignals struct {
	Present bool `json:"present"`
}

// RepoSummary is the derived deployment-readiness verdict.
type RepoSummary struct {
	DevOpsScore     int       `json:"devOpsScore"`
	ProductionReady bool      `json:"productionReady"`
	RiskLevel       RiskLevel `json:"riskLevel"`
}

// GithubSignals is the result of one repository scan.
type GithubSignals struct {
	RepoURL         string            `json:"repoUrl"`
	Language        string            `json:"language"`
	Framework       string            `json:"framework"`
	Database        string            `json:"database"`
	HasStartScript  bool              `json:"hasStartScript"`
	DependencyCount int               `json:"dependencyCount"`
	Docker          DockerSignals     `json:"docker"`
	Kubernetes      KubernetesSignals `json:"kubernetes"`
	CICD            CICDSignals       `json:"cicd"`
	// Issues lists the gaps found, in the order they were detected.
	Issues  []string    `json:"issues"`
	Summary RepoSummary `json:"summary"`
}

// NewGithubSignals returns signals with every detector at its default.
func NewGithubSignals(repoURL string) *GithubSignals {
	return &GithubSignals{
		RepoURL:   repoURL,
		Language:  "unknown",
		Framework: UnknownValue,
		Database:  NoneValue,
		Issues:    []string{},
		Summary:   RepoSummary{RiskLevel: RiskHigh},
	}
}

// AddIssue appends a human-readable gap.
func (g *GithubSignals) AddIssue(issue string) {
	g.Issues = append(g.Issues, issue)
}
