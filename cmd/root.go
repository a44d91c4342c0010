// File: cmd/root.go
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/synthmind/internal/config"
	"github.com/xkilldash9x/synthmind/internal/observability"
	"github.com/xkilldash9x/synthmind/internal/service"
)

type contextKey string

const configKey contextKey = "config"

// flagKeys maps command flags onto configuration keys so a flag overrides the
// file and the environment.
var flagKeys = map[string]string{
	"vus":       "loadgen.virtual_users",
	"duration":  "loadgen.duration",
	"mode":      "loadgen.mode",
	"audit":     "audit.enabled",
	"provider":  "llm.provider",
	"model":     "llm.model",
	"addr":      "server.addr",
	"log-level": "logger.level",
}

// NewRootCommand builds the command tree with the production component factory.
func NewRootCommand() *cobra.Command {
	return newRootCmd(service.NewComponentFactory())
}

func newRootCmd(factory service.ComponentFactory) *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:           "synthmind",
		Short:         "SynthMind assesses whether a web application is ready to launch.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			config.SetDefaults(v)

			if err := initializeConfig(cmd, v, cfgFile); err != nil {
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}

			cfg, err := config.NewConfigFromViper(v)
			if err != nil {
				observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "synthmind"})
				return fmt.Errorf("failed to load or validate config: %w", err)
			}

			observability.InitializeLogger(cfg.Logger())
			observability.GetLogger().Debug("Starting SynthMind", zap.String("version", Version))

			cmd.SetContext(context.WithValue(cmd.Context(), configKey, cfg))
			return nil
		},
	}
	cmd.SetVersionTemplate(`{{printf "synthmind version %s\n" .Version}}`)
	cmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	cmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	cmd.AddCommand(newAssessCmd(factory))
	cmd.AddCommand(newServeCmd(factory))
	cmd.AddCommand(newSessionCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

// Execute runs the root command with ctx, logging any failure.
func Execute(ctx context.Context) error {
	root := NewRootCommand()
	err := root.ExecuteContext(ctx)
	if err != nil {
		observability.GetLogger().Error("Command execution failed", zap.Error(err))
		root.PrintErrln("Error:", err)
	}
	observability.Sync()
	return err
}

// initializeConfig reads the config file, if any, and binds changed flags.
func initializeConfig(cmd *cobra.Command, v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok || !f.Changed || bindErr != nil {
			return
		}
		bindErr = v.BindPFlag(key, f)
	})
	return bindErr
}

// getConfigFromContext returns the configuration stored by PersistentPreRunE.
func getConfigFromContext(ctx context.Context) (*config.Config, error) {
	cfg, ok := ctx.Value(configKey).(*config.Config)
	if !ok || cfg == nil {
		return nil, fmt.Errorf("configuration not initialized")
	}
	return cfg, nil
}
