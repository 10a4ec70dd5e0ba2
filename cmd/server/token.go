package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"invoicedesk/internal/domain/auth"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Issue a bearer token for the API",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return errors.New("JWT_SECRET is not configured")
			}

			email, _ := cmd.Flags().GetString("email")
			roles, _ := cmd.Flags().GetStringSlice("role")

			jwtCfg := auth.DefaultJWTConfig(cfg.Auth.JWTSecret)
			jwtCfg.AccessTokenTTL = cfg.Auth.TokenTTL
			svc, err := auth.NewJWTService(jwtCfg)
			if err != nil {
				return err
			}

			token, expiresAt, err := svc.GenerateAccessToken(args[0], email, roles)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires at %s\n", expiresAt.UTC().Format("2006-01-02 15:04:05 MST"))
			return nil
		},
	}
	cmd.Flags().String("email", "", "Email claim")
	cmd.Flags().StringSlice("role", nil, "Role claim (repeatable)")
	return cmd
}
