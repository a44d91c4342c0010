// File: internal/scanner/scanner.go
package scanner

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/google/go-github/v58/github"
	"go.uber.org/zap"

	"github.com/xkilldash9x/synthmind/api/schemas"
	"github.com/xkilldash9x/synthmind/internal/config"
	"github.com/xkilldash9x/synthmind/internal/scoring"
)

// Cloner fetches repoURL into dir, which already exists and is empty.
type Cloner func(ctx context.Context, repoURL, dir string) error

// Scanner fetches a repository into a private scratch directory and reports
// its deployment signals.
type Scanner struct {
	cfg    config.ScannerConfig
	model  scoring.Model
	logger *zap.Logger
	clone  Cloner
	gh     *github.Client
}

var _ schemas.RepoScanner = (*Scanner)(nil)

// Option customizes a Scanner.
type Option func(*Scanner)

// WithCloner replaces the git clone.
func WithCloner(c Cloner) Option {
	return func(s *Scanner) { s.clone = c }
}

// WithGitHubClient sets the API client used by the preflight check.
func WithGitHubClient(c *github.Client) Option {
	return func(s *Scanner) { s.gh = c }
}

// New creates a Scanner.
func New(cfg config.ScannerConfig, model scoring.Model, logger *zap.Logger, opts ...Option) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CloneTimeout <= 0 {
		cfg.CloneTimeout = 60 * time.Second
	}
	s := &Scanner{
		cfg:    cfg,
		model:  model,
		logger: logger.Named("scanner"),
	}
	s.clone = s.gitClone
	for _, opt := range opts {
		opt(s)
	}
	if s.gh == nil && cfg.GitHub.Preflight {
		s.gh = github.NewClient(nil)
		if cfg.GitHub.Token != "" {
			s.gh = s.gh.WithAuthToken(cfg.GitHub.Token)
		}
	}
	return s
}

// Scan fetches repoURL and inspects it. It fails with ErrRepoUnreachable only
// when the repository cannot be fetched; problems found inside the checkout
// are reported as issues.
func (s *Scanner) Scan(ctx context.Context, repoURL string) (*schemas.GithubSignals, error) {
	repoURL = strings.TrimSpace(repoURL)
	if err := ValidateRepoURL(repoURL); err != nil {
		return nil, err
	}

	meta, err := s.preflight(ctx, repoURL)
	if err != nil {
		return nil, err
	}

	dir, cleanup, err := s.prepareWorkspace()
	if err != nil {
		return nil, err
	}
	defer cleanup()

	cloneCtx, cancel := context.WithTimeout(ctx, s.cfg.CloneTimeout)
	defer cancel()

	s.logger.Info("Cloning repository.", zap.String("repo", repoURL), zap.String("dir", dir))
	if err := s.clone(cloneCtx, repoURL, dir); err != nil {
		return nil, fmt.Errorf("%w: clone %s: %v", schemas.ErrRepoUnreachable, repoURL, err)
	}

	signals := Inspect(dir, repoURL)
	if meta != nil && signals.Language == "unknown" && meta.GetLanguage() != "" {
		signals.Language = strings.ToLower(meta.GetLanguage())
	}
	signals.Summary = s.model.ScoreRepository(signals)

	s.logger.Info("Repository scan complete.",
		zap.String("repo", repoURL),
		zap.Int("devops_score", signals.Summary.DevOpsScore),
		zap.Int("issues", len(signals.Issues)))
	return signals, nil
}

// prepareWorkspace creates a scratch directory owned by a single scan. The
// returned cleanup removes it and must run on every exit path.
func (s *Scanner) prepareWorkspace() (string, func(), error) {
	dir, err := os.MkdirTemp(s.cfg.ScratchDir, "synthmind-repo-")
	if err != nil {
		return "", nil, fmt.Errorf("%w: could not create scratch dir: %v", schemas.ErrRepoUnreachable, err)
	}
	cleanup := func() {
		if err := os.RemoveAll(dir); err != nil {
			s.logger.Error("Failed to clean up scratch checkout.", zap.String("dir", dir), zap.Error(err))
			return
		}
		s.logger.Debug("Scratch checkout removed.", zap.String("dir", dir))
	}
	return dir, cleanup, nil
}

// gitClone performs a shallow, single-branch clone without tags.
func (s *Scanner) gitClone(ctx context.Context, repoURL, dir string) error {
	opts := &git.CloneOptions{
		URL:          repoURL,
		Depth:        1,
		SingleBranch: true,
		Tags:         git.NoTags,
	}
	if s.cfg.GitHub.Token != "" && strings.HasPrefix(repoURL, "https://github.com/") {
		opts.Auth = &githttp.BasicAuth{Username: "x-access-token", Password: s.cfg.GitHub.Token}
	}
	_, err := git.PlainCloneContext(ctx, dir, false, opts)
	return err
}

var scpLikeURL = regexp.MustCompile(`^[A-Za-z0-9._-]+@[A-Za-z0-9.-]+:[A-Za-z0-9._~/-]+$`)

// ValidateRepoURL accepts http(s) and ssh URLs and scp-like git addresses that
// name a repository path.
func ValidateRepoURL(repoURL string) error {
	if repoURL == "" {
		return fmt.Errorf("%w: repository URL is empty", schemas.ErrRepoUnreachable)
	}
	if scpLikeURL.MatchString(repoURL) {
		return nil
	}
	u, err := url.Parse(repoURL)
	if err != nil {
		return fmt.Errorf("%w: %v", schemas.ErrRepoUnreachable, err)
	}
	switch u.Scheme {
	case "http", "https", "ssh", "git":
	default:
		return fmt.Errorf("%w: unsupported scheme %q", schemas.ErrRepoUnreachable, u.Scheme)
	}
	if u.Host == "" || strings.Trim(u.Path, "/") == "" {
		return fmt.Errorf("%w: %q does not name a repository", schemas.ErrRepoUnreachable, repoURL)
	}
	return nil
}
