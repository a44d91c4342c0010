package orchestrator

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/xkilldash9x/synthmind/api/schemas"
	"github.com/xkilldash9x/synthmind/internal/scanner"
)

// Request names what to assess. At least one field must be set.
type Request struct {
	TargetURL string
	RepoURL   string
}

// Normalize trims both fields.
func (r Request) Normalize() Request {
	return Request{TargetURL: strings.TrimSpace(r.TargetURL), RepoURL: strings.TrimSpace(r.RepoURL)}
}

// Validate rejects an empty request and malformed URLs with ErrValidation.
func (r Request) Validate() error {
	if r.TargetURL == "" && r.RepoURL == "" {
		return fmt.Errorf("%w: a target URL or a repository URL is required", schemas.ErrValidation)
	}
	if r.TargetURL != "" {
		if err := validateTargetURL(r.TargetURL); err != nil {
			return err
		}
	}
	if r.RepoURL != "" {
		if err := scanner.ValidateRepoURL(r.RepoURL); err != nil {
			return fmt.Errorf("%w: %v", schemas.ErrValidation, err)
		}
	}
	return nil
}

func validateTargetURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: target URL: %v", schemas.ErrValidation, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: target URL must use http or https, got %q", schemas.ErrValidation, u.Scheme)
	}
	if u.Hostname() == "" {
		return fmt.Errorf("%w: target URL has no host", schemas.ErrValidation)
	}
	return nil
}
