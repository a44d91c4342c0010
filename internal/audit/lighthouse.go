// Package audit scores a page with the Lighthouse CLI.
package audit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/synthmind/api/schemas"
	"github.com/xkilldash9x/synthmind/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrAuditFailed is returned when the auditor produced no usable report.
var ErrAuditFailed = errors.New("browser audit failed")

// Lighthouse runs the Lighthouse CLI and extracts the category scores.
type Lighthouse struct {
	cfg    config.AuditConfig
	logger *zap.Logger
}

var _ schemas.BrowserAuditor = (*Lighthouse)(nil)

// NewLighthouse creates an auditor backed by the configured binary.
func NewLighthouse(cfg config.AuditConfig, logger *zap.Logger) *Lighthouse {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Binary == "" {
		cfg.Binary = "lighthouse"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}
	return &Lighthouse{cfg: cfg, logger: logger.Named("audit")}
}

type category struct {
	Score *float64 `json:"score"`
}

type auditEntry struct {
	Score        *float64 `json:"score"`
	NumericValue *float64 `json:"numericValue"`
}

type report struct {
	Categories map[string]category   `json:"categories"`
	Audits     map[string]auditEntry `json:"audits"`
	RuntimeErr *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"runtimeError"`
}

// Audit scores targetURL. Scores are reported on a 0 to 100 scale.
func (l *Lighthouse) Audit(ctx context.Context, targetURL string) (*schemas.BrowserAudit, error) {
	path, err := exec.LookPath(l.cfg.Binary)
	if err != nil {
		return nil, fmt.Errorf("%w: %s not installed: %v", ErrAuditFailed, l.cfg.Binary, err)
	}

	ctx, cancel := context.WithTimeout(ctx, l.cfg.Timeout)
	defer cancel()

	args := []string{
		targetURL,
		"--output=json",
		"--output-path=stdout",
		"--quiet",
		"--only-categories=performance,accessibility,best-practices,seo",
	}
	if len(l.cfg.ChromeFlags) > 0 {
		args = append(args, "--chrome-flags="+strings.Join(l.cfg.ChromeFlags, " "))
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w: %v: %s", ErrAuditFailed, err, strings.TrimSpace(stderr.String()))
	}

	result, err := ParseReport(stdout.Bytes())
	if err != nil {
		return nil, err
	}
	l.logger.Info("Browser audit complete.",
		zap.String("target", targetURL),
		zap.Int("performance", result.Performance),
		zap.Duration("duration", time.Since(start)))
	return result, nil
}

// ParseReport extracts a BrowserAudit from a Lighthouse JSON report.
func ParseReport(data []byte) (*schemas.BrowserAudit, error) {
	var r report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: report is not valid JSON: %v", ErrAuditFailed, err)
	}
	if r.RuntimeErr != nil && r.RuntimeErr.Code != "" {
		return nil, fmt.Errorf("%w: %s: %s", ErrAuditFailed, r.RuntimeErr.Code, r.RuntimeErr.Message)
	}
	if len(r.Categories) == 0 {
		return nil, fmt.Errorf("%w: report has no categories", ErrAuditFailed)
	}

	out := &schemas.BrowserAudit{
		Performance:   percent(r.Categories["performance"].Score),
		Accessibility: percent(r.Categories["accessibility"].Score),
		BestPractices: percent(r.Categories["best-practices"].Score),
		SEO:           percent(r.Categories["seo"].Score),
	}
	if interactive, ok := r.Audits["interactive"]; ok {
		out.Interactivity = percent(interactive.Score)
		if v := interactive.NumericValue; v != nil && !math.IsNaN(*v) {
			ms := math.Round(*v)
			out.LoadTimeMs = &ms
		}
	}
	return out, nil
}

func percent(score *float64) int {
	if score == nil || math.IsNaN(*score) {
		return 0
	}
	return max(0, min(100, int(math.Round(*score*100))))
}
