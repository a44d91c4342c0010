// File: cmd/cmd_test.go
package cmd

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/synthmind/api/schemas"
	"github.com/xkilldash9x/synthmind/internal/config"
	"github.com/xkilldash9x/synthmind/internal/narrative"
	"github.com/xkilldash9x/synthmind/internal/service"
)

var errStop = errors.New("stop before running")

// captureFactory records the resolved configuration and aborts the command.
type captureFactory struct {
	cfg config.Interface
}

func (f *captureFactory) Create(_ context.Context, cfg config.Interface, _ *zap.Logger) (*service.Components, error) {
	f.cfg = cfg
	return nil, errStop
}

// resetForTest isolates a test from any ./config.yaml and noisy logs.
func resetForTest(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("SYNTHMIND_LOGGER_LEVEL", "error")
}

func executeCommand(t *testing.T, factory service.ComponentFactory, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd(factory)
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestVersion(t *testing.T) {
	resetForTest(t)

	out, err := executeCommand(t, &captureFactory{}, "version")
	require.NoError(t, err)
	assert.Equal(t, "synthmind version "+Version+"\n", out)

	out, err = executeCommand(t, &captureFactory{}, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "synthmind version "+Version)
}

func TestAssess_ArgumentValidation(t *testing.T) {
	resetForTest(t)

	_, err := executeCommand(t, &captureFactory{}, "assess")
	require.Error(t, err)
	assert.True(t, IsUsageError(err))

	_, err = executeCommand(t, &captureFactory{}, "assess", "--target", "https://shop.example.com", "-o", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format")
}

func TestConfigPrecedence(t *testing.T) {
	resetForTest(t)
	path := writeConfig(t, `
loadgen:
  virtual_users: 50
  duration: 10s
llm:
  model: file-model
`)
	t.Setenv("SYNTHMIND_LLM_MODEL", "env-model")

	f := &captureFactory{}
	_, err := executeCommand(t, f, "--config", path, "assess", "--target", "https://shop.example.com", "--vus", "7")
	require.ErrorIs(t, err, errStop)
	require.NotNil(t, f.cfg)

	assert.Equal(t, 7, f.cfg.LoadGen().VirtualUsers, "flag beats file")
	assert.Equal(t, "10s", f.cfg.LoadGen().Duration.String(), "file beats default")
	assert.Equal(t, "env-model", f.cfg.LLM().Model, "env beats file")
	assert.True(t, f.cfg.Audit().Enabled, "unchanged flag keeps the default")
}

func TestInvalidConfigIsRejected(t *testing.T) {
	resetForTest(t)
	path := writeConfig(t, "loadgen:\n  mode: turbo\n")

	f := &captureFactory{}
	_, err := executeCommand(t, f, "--config", path, "assess", "--target", "https://shop.example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load or validate config")
	assert.Nil(t, f.cfg, "no components are created with a bad config")
}

func TestAssess_EndToEnd(t *testing.T) {
	resetForTest(t)
	t.Setenv("SYNTHMIND_LOADGEN_SIMULATION_DELAY", "0s")
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer target.Close()

	out, err := executeCommand(t, service.NewComponentFactory(),
		"assess", "--target", target.URL,
		"--mode", "demo", "--audit=false", "--provider", "none", "--vus", "5",
		"-o", "json")
	require.NoError(t, err, out)

	var session schemas.TestSession
	require.NoError(t, json.Unmarshal([]byte(out), &session))
	assert.Equal(t, target.URL, session.TargetURL)
	assert.True(t, session.Metrics.Observed)
	assert.Equal(t, 5, session.Metrics.VUs)
	assert.Nil(t, session.BrowserAudit)
	require.NotNil(t, session.BusinessInsights)
	assert.Equal(t, narrative.EmptyReplyFallback, session.NarrativeMessage)
}

func TestSessionGet_RequiresDatabase(t *testing.T) {
	resetForTest(t)
	_, err := executeCommand(t, &captureFactory{}, "session", "get", "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no database configured")
}
