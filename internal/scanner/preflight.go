package scanner

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v58/github"
	"go.uber.org/zap"

	"github.com/xkilldash9x/synthmind/api/schemas"
)

// preflight asks the GitHub API whether the repository exists and is public
// before spending a clone on it. It is a no-op for other hosts or when disabled.
// Rate limiting and other API trouble do not block the scan.
func (s *Scanner) preflight(ctx context.Context, repoURL string) (*github.Repository, error) {
	if !s.cfg.GitHub.Preflight || s.gh == nil {
		return nil, nil
	}
	owner, name, ok := githubOwnerRepo(repoURL)
	if !ok {
		return nil, nil
	}

	repo, resp, err := s.gh.Repositories.Get(ctx, owner, name)
	if err != nil {
		var errResp *github.ErrorResponse
		if errors.As(err, &errResp) && resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s/%s not found or not public", schemas.ErrRepoUnreachable, owner, name)
		}
		s.logger.Warn("GitHub preflight failed, cloning anyway.", zap.String("repo", repoURL), zap.Error(err))
		return nil, nil
	}
	if repo.GetPrivate() && s.cfg.GitHub.Token == "" {
		return nil, fmt.Errorf("%w: %s/%s is private", schemas.ErrRepoUnreachable, owner, name)
	}
	return repo, nil
}

// githubOwnerRepo extracts owner and repository name from a github.com URL.
func githubOwnerRepo(repoURL string) (owner, name string, ok bool) {
	var path string
	if rest, found := strings.CutPrefix(repoURL, "git@github.com:"); found {
		path = rest
	} else {
		u, err := url.Parse(repoURL)
		if err != nil || !strings.EqualFold(u.Hostname(), "github.com") {
			return "", "", false
		}
		path = u.Path
	}
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], strings.TrimSuffix(parts[1], ".git"), true
}
