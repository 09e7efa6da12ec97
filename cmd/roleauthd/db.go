package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/upb/role-authority/config"
	"github.com/upb/role-authority/repositories/postgres"
)

func newDBCmd(c *cli) *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
	}

	dbCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the role and audit tables",
		Long:  `Creates the role_assignments and audit_logs tables if they do not exist. Safe to run repeatedly.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.cfg.Store != config.StorePostgres {
				return fmt.Errorf("db init requires ROLE_STORE=%s, got %q", config.StorePostgres, c.cfg.Store)
			}

			db, err := postgres.NewDB(c.cfg.Database, c.logger)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer db.Close()

			if err := db.InitSchema(cmd.Context()); err != nil {
				return fmt.Errorf("failed to initialize schema: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "schema initialized")
			return nil
		},
	})

	return dbCmd
}
