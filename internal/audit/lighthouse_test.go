package audit

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/synthmind/internal/config"
)

const sampleReport = `{
  "lighthouseVersion": "12.0.0",
  "categories": {
    "performance": {"score": 0.87},
    "accessibility": {"score": 0.954},
    "best-practices": {"score": 1},
    "seo": {"score": null}
  },
  "audits": {
    "interactive": {"score": 0.71, "numericValue": 3412.37}
  }
}`

func TestParseReport(t *testing.T) {
	got, err := ParseReport([]byte(sampleReport))
	require.NoError(t, err)

	assert.Equal(t, 87, got.Performance)
	assert.Equal(t, 95, got.Accessibility)
	assert.Equal(t, 100, got.BestPractices)
	assert.Equal(t, 0, got.SEO, "a null score counts as zero")
	assert.Equal(t, 71, got.Interactivity)
	require.NotNil(t, got.LoadTimeMs)
	assert.Equal(t, 3412.0, *got.LoadTimeMs)
}

func TestParseReport_Errors(t *testing.T) {
	tests := map[string]string{
		"invalid json":  `{"categories":`,
		"no categories": `{"audits": {}}`,
		"runtime error": `{"runtimeError": {"code": "NO_FCP", "message": "The page did not paint any content."}, "categories": {"performance": {"score": null}}}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseReport([]byte(body))
			assert.ErrorIs(t, err, ErrAuditFailed)
		})
	}
}

func fakeLighthouse(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake auditor requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "lighthouse")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755))
	return path
}

func TestLighthouse_Audit(t *testing.T) {
	cfg := config.NewDefaultConfig().Audit()
	cfg.Binary = fakeLighthouse(t, "cat <<'JSON'\n"+sampleReport+"\nJSON")

	got, err := NewLighthouse(cfg, zaptest.NewLogger(t)).Audit(context.Background(), "https://shop.example.com")
	require.NoError(t, err)
	assert.Equal(t, 87, got.Performance)
}

func TestLighthouse_AuditFailures(t *testing.T) {
	t.Run("binary missing", func(t *testing.T) {
		cfg := config.NewDefaultConfig().Audit()
		cfg.Binary = filepath.Join(t.TempDir(), "missing")
		_, err := NewLighthouse(cfg, zaptest.NewLogger(t)).Audit(context.Background(), "https://shop.example.com")
		assert.ErrorIs(t, err, ErrAuditFailed)
	})

	t.Run("non-zero exit", func(t *testing.T) {
		cfg := config.NewDefaultConfig().Audit()
		cfg.Binary = fakeLighthouse(t, "echo 'Chrome could not be launched' >&2\nexit 1")
		_, err := NewLighthouse(cfg, zaptest.NewLogger(t)).Audit(context.Background(), "https://shop.example.com")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrAuditFailed)
		assert.Contains(t, err.Error(), "Chrome could not be launched")
	})
}
