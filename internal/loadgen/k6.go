package loadgen

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/synthmind/api/schemas"
)

//go:embed scripts/loadtest.js
var defaultScript []byte

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const maxOutputInError = 2048

// runTool executes the load tool once and decodes its summary export. The
// script and summary live in a scratch directory removed before returning.
func (r *Runner) runTool(ctx context.Context, targetURL string, opts schemas.LoadOptions) (*schemas.RawLoadResult, error) {
	scratch, err := os.MkdirTemp("", "synthmind-k6-")
	if err != nil {
		return nil, fmt.Errorf("%w: could not create scratch dir: %v", schemas.ErrRunFailed, err)
	}
	defer func() {
		if err := os.RemoveAll(scratch); err != nil {
			r.logger.Error("Failed to clean up load run scratch dir.", zap.String("dir", scratch), zap.Error(err))
		}
	}()

	scriptPath := r.cfg.ScriptPath
	if scriptPath == "" {
		scriptPath = filepath.Join(scratch, "loadtest.js")
		if err := os.WriteFile(scriptPath, defaultScript, 0o600); err != nil {
			return nil, fmt.Errorf("%w: could not write load script: %v", schemas.ErrRunFailed, err)
		}
	}
	summaryPath := filepath.Join(scratch, "summary.json")

	args := []string{
		"run",
		"--quiet",
		"--summary-export=" + summaryPath,
		"--env", "TARGET_URL=" + targetURL,
		"--env", "VUS=" + strconv.Itoa(opts.VirtualUsers),
		"--env", "DURATION=" + opts.Duration.String(),
		scriptPath,
	}

	r.logger.Info("Executing load tool.",
		zap.String("binary", r.cfg.Binary),
		zap.String("target", targetURL),
		zap.Int("vus", opts.VirtualUsers),
		zap.Duration("duration", opts.Duration))

	cmd := exec.CommandContext(ctx, r.cfg.Binary, args...)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %v", schemas.ErrRunFailed, ctxErr)
		}
		return nil, fmt.Errorf("%w: %s exited: %v\nOutput: %s", schemas.ErrRunFailed, r.cfg.Binary, err, tail(output.Bytes()))
	}

	data, err := os.ReadFile(summaryPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: summary export not written; the run may have crashed", schemas.ErrRunFailed)
		}
		return nil, fmt.Errorf("%w: could not read summary export: %v", schemas.ErrRunFailed, err)
	}

	var result schemas.RawLoadResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("%w: summary export is not valid JSON: %v", schemas.ErrRunFailed, err)
	}
	return &result, nil
}

func tail(b []byte) string {
	if len(b) > maxOutputInError {
		b = b[len(b)-maxOutputInError:]
	}
	return strings.TrimSpace(string(b))
}

func firstLine(b []byte) string {
	s := strings.TrimSpace(string(b))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
