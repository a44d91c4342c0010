// File: cmd/assess.go
package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/synthmind/api/schemas"
	"github.com/xkilldash9x/synthmind/internal/observability"
	"github.com/xkilldash9x/synthmind/internal/orchestrator"
	"github.com/xkilldash9x/synthmind/internal/scoring"
	"github.com/xkilldash9x/synthmind/internal/service"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func newAssessCmd(factory service.ComponentFactory) *cobra.Command {
	var (
		target string
		repo   string
		output string
	)

	cmd := &cobra.Command{
		Use:   "assess",
		Short: "Run one launch-readiness assessment against a URL, a repository, or both",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if target == "" && repo == "" {
				return fmt.Errorf("%w: at least one of --target or --repo is required", schemas.ErrValidation)
			}
			switch output {
			case "text", "json":
				return nil
			default:
				return fmt.Errorf("unsupported output format %q (want text or json)", output)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}

			components, err := factory.Create(ctx, cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize components: %w", err)
			}
			defer components.Shutdown()

			res, err := components.Orchestrator.RunAssessment(ctx, orchestrator.Request{TargetURL: target, RepoURL: repo})
			if err != nil {
				return err
			}
			if !res.Stored() {
				logger.Warn("Assessment finished but the session was not saved.", zap.Error(res.StorageErr))
			}

			out := cmd.OutOrStdout()
			if output == "json" {
				return writeSessionJSON(out, res.Session)
			}
			writeSessionText(out, res.Session, scoring.NewModel(cfg.Scoring()), res.Stored())
			return nil
		},
	}

	cmd.Flags().StringVarP(&target, "target", "t", "", "URL of the application to load test and audit")
	cmd.Flags().StringVarP(&repo, "repo", "r", "", "repository URL to scan for deployment signals")
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text or json")
	cmd.Flags().Int("vus", 0, "virtual users for the load test")
	cmd.Flags().Duration("duration", 0, "load test duration")
	cmd.Flags().String("mode", "", "load generator mode: auto or demo")
	cmd.Flags().Bool("audit", true, "run the browser audit when a target is given")
	cmd.Flags().String("provider", "", "narrative provider: openai, gemini or none")
	cmd.Flags().String("model", "", "narrative model name")
	return cmd
}

func writeSessionJSON(w io.Writer, s *schemas.TestSession) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func writeSessionText(w io.Writer, s *schemas.TestSession, model scoring.Model, stored bool) {
	fmt.Fprintf(w, "Session:   %s\n", s.ID)
	fmt.Fprintf(w, "Subject:   %s\n", s.Subject())
	if bi := s.BusinessInsights; bi != nil {
		fmt.Fprintf(w, "Stability: %d/100 (%s risk)\n", bi.StabilityRiskScore, model.RiskLevel(bi.StabilityRiskScore))
		fmt.Fprintf(w, "Breakdown: performance %d, architecture %d, devops %d\n",
			bi.ScoreBreakdown.Performance, bi.ScoreBreakdown.Architecture, bi.ScoreBreakdown.DevOps)
		for _, r := range bi.Remediations {
			fmt.Fprintf(w, "  - %s\n", r)
		}
	}
	if !stored {
		fmt.Fprintln(w, "Warning:   session was not saved")
	}
	fmt.Fprintf(w, "\n%s\n", strings.TrimSpace(s.NarrativeMessage))
}

// IsUsageError reports whether err came from argument validation.
func IsUsageError(err error) bool {
	return errors.Is(err, schemas.ErrValidation)
}
