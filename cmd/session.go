// File: cmd/session.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/synthmind/internal/observability"
	"github.com/xkilldash9x/synthmind/internal/service"
)

func newSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect stored assessment sessions",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "get <id>",
		Short: "Print a stored session as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			if cfg.Database().URL == "" {
				return fmt.Errorf("no database configured (hint: set SYNTHMIND_DATABASE_URL)")
			}

			sessions, cleanup, err := service.InitializeStore(ctx, cfg.Database(), observability.GetLogger())
			if err != nil {
				return err
			}
			if cleanup != nil {
				defer cleanup()
			}

			s, err := sessions.Get(ctx, args[0])
			if err != nil {
				return err
			}
			return writeSessionJSON(cmd.OutOrStdout(), s)
		},
	})
	return cmd
}
