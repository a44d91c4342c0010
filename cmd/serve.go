// File: cmd/serve.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/synthmind/internal/observability"
	"github.com/xkilldash9x/synthmind/internal/server"
	"github.com/xkilldash9x/synthmind/internal/service"
)

func newServeCmd(factory service.ComponentFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the assessment HTTP API until interrupted",
		Args:  cobra.NoArgs,
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

			srv, err := server.New(cfg.Server(), components.Orchestrator, components.Store, components.Registry, logger)
			if err != nil {
				return err
			}
			logger.Info("Serving assessment API.", zap.String("addr", cfg.Server().Addr))
			return srv.Run(ctx)
		},
	}
	cmd.Flags().String("addr", "", "listen address, e.g. :8080")
	return cmd
}
