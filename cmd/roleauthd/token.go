package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/upb/role-authority/token"
)

func newTokenCmd(c *cli) *cobra.Command {
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Token utilities",
	}

	var (
		subjectFlag string
		emailFlag   string
		rolesInput  []string
	)

	issueCmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue a signed token",
		Long:  `Signs a token with AUTH_JWT_SECRET for the given subject and roles. Intended for development and scripted tests.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.cfg.IsProduction() {
				return fmt.Errorf("token issue is disabled in production")
			}
			if subjectFlag == "" {
				return fmt.Errorf("--subject is required")
			}

			issuer := token.NewIssuer(token.Config{
				Secret:   []byte(c.cfg.Auth.JWTSecret),
				Issuer:   c.cfg.Auth.Issuer,
				Audience: c.cfg.Auth.Audience,
				TTL:      c.cfg.Auth.TokenTTL,
			})
			signed, err := issuer.Issue(subjectFlag, emailFlag, rolesInput)
			if err != nil {
				return fmt.Errorf("failed to issue token: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), signed)
			return nil
		},
	}
	issueCmd.Flags().StringVar(&subjectFlag, "subject", "", "Subject (sub claim) of the token")
	issueCmd.Flags().StringVar(&emailFlag, "email", "", "Email claim of the token")
	issueCmd.Flags().StringSliceVar(&rolesInput, "role", []string{}, "Role(s) carried by the token")

	tokenCmd.AddCommand(issueCmd)
	return tokenCmd
}
