package scanner

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/synthmind/api/schemas"
)

// Issue texts reported by Inspect.
const (
	IssueNoManifest       = "No dependency manifest found (package.json, go.mod or requirements.txt)"
	IssueNoStartScript    = "Missing start/dev script"
	IssueDockerNoCMD      = "Dockerfile missing CMD/ENTRYPOINT"
	IssueDockerNoExpose   = "Dockerfile missing EXPOSE"
	IssueNoCICD           = "CI/CD pipeline missing"
	issueMalformedPattern = "%s could not be parsed: %v"
)

var (
	cmdPattern    = regexp.MustCompile(`(?im)^\s*(CMD|ENTRYPOINT)\b`)
	exposePattern = regexp.MustCompile(`(?im)^\s*EXPOSE\s+\d+`)
	rawK8sDirs    = []string{"k8s", "manifests", "deploy", "deployment"}
)

// tree is the part of a checkout Inspect looks at: the root and its direct,
// non-hidden subdirectories, in that order.
type tree struct {
	dirs []string
}

func newTree(root string) tree {
	t := tree{dirs: []string{root}}
	entries, err := os.ReadDir(root)
	if err != nil {
		return t
	}
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			t.dirs = append(t.dirs, filepath.Join(root, e.Name()))
		}
	}
	return t
}

// findFile returns the first regular file named rel, searching the root first.
func (t tree) findFile(rel string) string {
	for _, d := range t.dirs {
		p := filepath.Join(d, rel)
		if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() {
			return p
		}
	}
	return ""
}

func (t tree) findDir(rel string) string {
	for _, d := range t.dirs {
		p := filepath.Join(d, rel)
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			return p
		}
	}
	return ""
}

// Inspect reads the deployment signals of a checkout rooted at root. It never
// fails: unreadable or malformed artifacts leave their signals at the defaults
// and add an issue. The summary is left for the caller to score.
func Inspect(root, repoURL string) *schemas.GithubSignals {
	g := schemas.NewGithubSignals(repoURL)
	t := newTree(root)

	inspectManifest(t, g)
	inspectDocker(t, g)
	inspectCICD(t, g)
	inspectKubernetes(t, g)
	return g
}

func inspectManifest(t tree, g *schemas.GithubSignals) {
	for _, parser := range manifestParsers {
		path := t.findFile(parser.file)
		if path == "" {
			continue
		}
		g.Language = parser.language
		if err := parser.parse(path, g); err != nil {
			g.AddIssue(malformedIssue(parser.file, err))
			return
		}
		if !g.HasStartScript {
			g.AddIssue(IssueNoStartScript)
		}
		return
	}
	g.AddIssue(IssueNoManifest)
}

func inspectDocker(t tree, g *schemas.GithubSignals) {
	path := t.findFile("Dockerfile")
	if path == "" {
		return
	}
	g.Docker.Present = true

	data, err := os.ReadFile(path)
	if err != nil {
		g.AddIssue(malformedIssue("Dockerfile", err))
		return
	}
	if cmdPattern.Match(data) {
		g.Docker.HasCMD = true
	} else {
		g.AddIssue(IssueDockerNoCMD)
	}
	if exposePattern.Match(data) {
		g.Docker.ExposesPort = true
	} else {
		g.AddIssue(IssueDockerNoExpose)
	}
}

func inspectCICD(t tree, g *schemas.GithubSignals) {
	if dir := t.findDir(filepath.Join(".github", "workflows")); dir != "" {
		g.CICD.Present = true
		validateWorkflows(dir, g)
		return
	}
	for _, marker := range []string{".gitlab-ci.yml", filepath.Join(".circleci", "config.yml"), "Jenkinsfile"} {
		if t.findFile(marker) != "" {
			g.CICD.Present = true
			return
		}
	}
	g.AddIssue(IssueNoCICD)
}

// validateWorkflows reports workflow files that are not valid YAML. A broken
// workflow still counts as a declared pipeline.
func validateWorkflows(dir string, g *schemas.GithubSignals) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if e.IsDir() || (ext != ".yml" && ext != ".yaml") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		var doc map[string]any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			g.AddIssue(malformedIssue("Workflow "+e.Name(), err))
		}
	}
}

type helmChart struct {
	APIVersion string `yaml:"apiVersion"`
	Name       string `yaml:"name"`
	Version    string `yaml:"version"`
}

func inspectKubernetes(t tree, g *schemas.GithubSignals) {
	for _, d := range rawK8sDirs {
		if t.findDir(d) != "" {
			g.Kubernetes = schemas.KubernetesSignals{Present: true, Type: schemas.KubernetesRaw}
			break
		}
	}

	path := t.findFile("Chart.yaml")
	if path == "" {
		return
	}
	if err := parseChart(path); err != nil {
		g.AddIssue(malformedIssue("Chart.yaml", err))
		return
	}
	g.Kubernetes = schemas.KubernetesSignals{Present: true, Type: schemas.KubernetesHelm}
}

func parseChart(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var chart helmChart
	if err := yaml.Unmarshal(data, &chart); err != nil {
		return malformed(err)
	}
	if chart.Name == "" {
		return malformed(errMissingField("name"))
	}
	return nil
}
