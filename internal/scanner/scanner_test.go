package scanner

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-github/v58/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/synthmind/api/schemas"
	"github.com/xkilldash9x/synthmind/internal/config"
	"github.com/xkilldash9x/synthmind/internal/scoring"
)

// -- Test Helpers --

// writeTree materializes files (relative path -> content) under root.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

// fakeCloner materializes files into the scratch dir and remembers its path.
func fakeCloner(files map[string]string, seen *string) Cloner {
	return func(_ context.Context, _ string, dir string) error {
		*seen = dir
		for rel, content := range files {
			p := filepath.Join(dir, filepath.FromSlash(rel))
			if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
				return err
			}
		}
		return nil
	}
}

func newTestScanner(t *testing.T, opts ...Option) *Scanner {
	cfg := config.NewDefaultConfig().Scanner()
	cfg.ScratchDir = t.TempDir()
	return New(cfg, scoring.DefaultModel(), zaptest.NewLogger(t), opts...)
}

const productionReadyPackage = `{
  "name": "shop",
  "scripts": {"start": "node server.js"},
  "dependencies": {"express": "^4.19.0", "mongoose": "^8.0.0", "cors": "^2.8.5"},
  "devDependencies": {"jest": "^29.0.0"}
}`

const goodDockerfile = "FROM node:20\nWORKDIR /app\nCOPY . .\nEXPOSE 3000\nCMD [\"npm\", \"start\"]\n"

// -- Scan --

func TestScan_ProductionReadyRepository(t *testing.T) {
	var dir string
	s := newTestScanner(t, WithCloner(fakeCloner(map[string]string{
		"package.json":             productionReadyPackage,
		"Dockerfile":               goodDockerfile,
		".github/workflows/ci.yml": "name: ci\non: [push]\njobs: {}\n",
	}, &dir)))

	g, err := s.Scan(context.Background(), "https://github.com/acme/shop")
	require.NoError(t, err)

	assert.Equal(t, "javascript", g.Language)
	assert.Equal(t, "Express", g.Framework)
	assert.Equal(t, "MongoDB", g.Database)
	assert.Equal(t, 4, g.DependencyCount)
	assert.True(t, g.HasStartScript)
	assert.Equal(t, schemas.DockerSignals{Present: true, HasCMD: true, ExposesPort: true}, g.Docker)
	assert.True(t, g.CICD.Present)
	assert.False(t, g.Kubernetes.Present)
	assert.Empty(t, g.Issues)
	assert.Equal(t, schemas.RepoSummary{DevOpsScore: 80, ProductionReady: true, RiskLevel: schemas.RiskLow}, g.Summary)

	_, statErr := os.Stat(dir)
	assert.True(t, os.IsNotExist(statErr), "scratch checkout must be removed after a successful scan")
}

func TestScan_CloneFailureCleansUp(t *testing.T) {
	var dir string
	s := newTestScanner(t, WithCloner(func(_ context.Context, _ string, d string) error {
		dir = d
		require.NoError(t, os.WriteFile(filepath.Join(d, "partial"), []byte("x"), 0o644))
		return errors.New("remote hung up unexpectedly")
	}))

	g, err := s.Scan(context.Background(), "https://github.com/acme/gone")
	require.Error(t, err)
	assert.Nil(t, g)
	assert.ErrorIs(t, err, schemas.ErrRepoUnreachable)

	_, statErr := os.Stat(dir)
	assert.True(t, os.IsNotExist(statErr), "scratch checkout must be removed after a failed clone")
}

func TestScan_PanicCleansUp(t *testing.T) {
	var dir string
	s := newTestScanner(t, WithCloner(func(_ context.Context, _ string, d string) error {
		dir = d
		panic("clone exploded")
	}))

	func() {
		defer func() { _ = recover() }()
		_, _ = s.Scan(context.Background(), "https://github.com/acme/boom")
	}()

	require.NotEmpty(t, dir)
	_, statErr := os.Stat(dir)
	assert.True(t, os.IsNotExist(statErr), "scratch checkout must be removed even when the scan panics")
}

func TestScan_ConcurrentScansUseDistinctDirs(t *testing.T) {
	dirs := make(chan string, 2)
	s := newTestScanner(t, WithCloner(func(_ context.Context, _ string, d string) error {
		dirs <- d
		return nil
	}))

	done := make(chan struct{}, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, _ = s.Scan(context.Background(), "https://github.com/acme/shop")
			done <- struct{}{}
		}()
	}
	<-done
	<-done
	close(dirs)

	a, b := <-dirs, <-dirs
	assert.NotEqual(t, a, b)
}

func TestScan_CloneTimeout(t *testing.T) {
	cfg := config.NewDefaultConfig().Scanner()
	cfg.ScratchDir = t.TempDir()
	cfg.CloneTimeout = 20 * time.Millisecond

	s := New(cfg, scoring.DefaultModel(), zaptest.NewLogger(t), WithCloner(func(ctx context.Context, _, _ string) error {
		<-ctx.Done()
		return ctx.Err()
	}))

	_, err := s.Scan(context.Background(), "https://github.com/acme/slow")
	assert.ErrorIs(t, err, schemas.ErrRepoUnreachable)
}

func TestScan_DefaultClonerUnreachableHost(t *testing.T) {
	s := newTestScanner(t)
	_, err := s.Scan(context.Background(), "http://127.0.0.1:1/acme/shop.git")
	assert.ErrorIs(t, err, schemas.ErrRepoUnreachable)
}

func TestValidateRepoURL(t *testing.T) {
	valid := []string{
		"https://github.com/acme/shop",
		"https://gitlab.com/group/sub/project.git",
		"ssh://git@github.com/acme/shop.git",
		"git@github.com:acme/shop.git",
	}
	for _, u := range valid {
		assert.NoError(t, ValidateRepoURL(u), u)
	}

	invalid := []string{"", "not a url", "ftp://example.com/repo", "https://github.com", "file:///etc/passwd"}
	for _, u := range invalid {
		assert.ErrorIs(t, ValidateRepoURL(u), schemas.ErrRepoUnreachable, u)
	}
}

// -- Preflight --

func newGitHubStub(t *testing.T, status int, body string) *github.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/acme/shop", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	client := github.NewClient(nil)
	base, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	client.BaseURL = base
	return client
}

func newPreflightScanner(t *testing.T, gh *github.Client, cloned *bool) *Scanner {
	cfg := config.NewDefaultConfig().Scanner()
	cfg.ScratchDir = t.TempDir()
	cfg.GitHub.Preflight = true
	return New(cfg, scoring.DefaultModel(), zaptest.NewLogger(t),
		WithGitHubClient(gh),
		WithCloner(func(context.Context, string, string) error {
			*cloned = true
			return nil
		}))
}

func TestPreflight(t *testing.T) {
	t.Run("missing repository is rejected before cloning", func(t *testing.T) {
		var cloned bool
		s := newPreflightScanner(t, newGitHubStub(t, http.StatusNotFound, `{"message":"Not Found"}`), &cloned)

		_, err := s.Scan(context.Background(), "https://github.com/acme/shop")
		assert.ErrorIs(t, err, schemas.ErrRepoUnreachable)
		assert.False(t, cloned)
	})

	t.Run("private repository without token is rejected", func(t *testing.T) {
		var cloned bool
		s := newPreflightScanner(t, newGitHubStub(t, http.StatusOK, `{"name":"shop","private":true}`), &cloned)

		_, err := s.Scan(context.Background(), "https://github.com/acme/shop.git")
		assert.ErrorIs(t, err, schemas.ErrRepoUnreachable)
		assert.False(t, cloned)
	})

	t.Run("public repository proceeds and supplies the language", func(t *testing.T) {
		var cloned bool
		s := newPreflightScanner(t, newGitHubStub(t, http.StatusOK, `{"name":"shop","private":false,"language":"Rust"}`), &cloned)

		g, err := s.Scan(context.Background(), "https://github.com/acme/shop")
		require.NoError(t, err)
		assert.True(t, cloned)
		assert.Equal(t, "rust", g.Language)
	})

	t.Run("api trouble does not block the scan", func(t *testing.T) {
		var cloned bool
		s := newPreflightScanner(t, newGitHubStub(t, http.StatusInternalServerError, `{"message":"boom"}`), &cloned)

		_, err := s.Scan(context.Background(), "https://github.com/acme/shop")
		require.NoError(t, err)
		assert.True(t, cloned)
	})
}

func TestGithubOwnerRepo(t *testing.T) {
	owner, name, ok := githubOwnerRepo("https://github.com/acme/shop.git")
	assert.True(t, ok)
	assert.Equal(t, "acme", owner)
	assert.Equal(t, "shop", name)

	owner, name, ok = githubOwnerRepo("git@github.com:acme/shop.git")
	assert.True(t, ok)
	assert.Equal(t, "acme/shop", owner+"/"+name)

	_, _, ok = githubOwnerRepo("https://gitlab.com/acme/shop")
	assert.False(t, ok)
}
