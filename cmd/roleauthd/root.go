package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/upb/role-authority/app"
	"github.com/upb/role-authority/config"
	"github.com/upb/role-authority/internal/observability"
	"go.uber.org/zap"
)

// cli carries what PersistentPreRunE loads for every subcommand
type cli struct {
	cfg    *config.Config
	logger *zap.Logger

	// openDeps wires the application for one-shot commands
	openDeps func(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app.Dependencies, error)
}

func newRootCmd() *cobra.Command {
	return newRootCmdWith(&cli{openDeps: app.NewDependencies})
}

func newRootCmdWith(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:   "roleauthd",
		Short: "Role authority server",
		Long: `roleauthd authenticates requests with signed tokens and decides
whether the caller holds the role a resource requires.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := initLogger()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			c.logger = logger

			cfg, err := config.New(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			c.cfg = cfg
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}

	root.AddCommand(
		newServeCmd(c),
		newDBCmd(c),
		newRolesCmd(c),
		newTokenCmd(c),
	)
	return root
}

// initLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
// Config loading needs a logger to report failures, so this reads the
// environment directly.
func initLogger() (*zap.Logger, error) {
	return observability.NewLogger(observability.LogConfig{
		Level:  envOrDefault("LOG_LEVEL", "info"),
		Format: envOrDefault("LOG_FORMAT", "json"),
	})
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
