package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/upb/role-authority/app"
	"github.com/upb/role-authority/config"
)

func newRolesCmd(c *cli) *cobra.Command {
	rolesCmd := &cobra.Command{
		Use:   "roles",
		Short: "Manage stored roles",
		Long: `Commands for reading and replacing a subject's stored roles directly against the role store.
They need ROLE_STORE=postgres; a memory store would not outlive the command.`,
	}

	var rolesInput []string

	getCmd := &cobra.Command{
		Use:   "get [subject]",
		Short: "Print the stored roles of a subject",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePersistentStore(c, "roles get"); err != nil {
				return err
			}
			return withDependencies(cmd.Context(), c, func(ctx context.Context, deps *app.Dependencies) error {
				roles, err := deps.RoleService.GetRoles(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd, map[string]interface{}{"subject": args[0], "roles": roles.Strings()})
			})
		},
	}

	setCmd := &cobra.Command{
		Use:   "set [subject]",
		Short: "Replace the stored roles of a subject",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(rolesInput) == 0 {
				return fmt.Errorf("at least one role must be specified using --role")
			}
			if err := requirePersistentStore(c, "roles set"); err != nil {
				return err
			}
			return withDependencies(cmd.Context(), c, func(ctx context.Context, deps *app.Dependencies) error {
				roles, err := deps.RoleService.SetRoles(ctx, args[0], rolesInput)
				if err != nil {
					return err
				}
				return printJSON(cmd, map[string]interface{}{"subject": args[0], "roles": roles.Strings()})
			})
		},
	}
	setCmd.Flags().StringSliceVar(&rolesInput, "role", []string{}, "Role(s) to store for the subject (required)")

	deleteCmd := &cobra.Command{
		Use:   "delete [subject]",
		Short: "Remove every stored role of a subject",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePersistentStore(c, "roles delete"); err != nil {
				return err
			}
			return withDependencies(cmd.Context(), c, func(ctx context.Context, deps *app.Dependencies) error {
				if err := deps.RoleService.DeleteRoles(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "roles of %s deleted\n", args[0])
				return nil
			})
		},
	}

	rolesCmd.AddCommand(getCmd, setCmd, deleteCmd)
	return rolesCmd
}

func requirePersistentStore(c *cli, command string) error {
	if c.cfg.Store != config.StorePostgres {
		return fmt.Errorf("%s requires ROLE_STORE=%s, got %q", command, config.StorePostgres, c.cfg.Store)
	}
	return nil
}

// withDependencies wires the application for a one-shot command and
// releases it afterwards
func withDependencies(ctx context.Context, c *cli, fn func(context.Context, *app.Dependencies) error) error {
	deps, err := c.openDeps(ctx, c.cfg, c.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	defer deps.Close(ctx)

	return fn(ctx, deps)
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
