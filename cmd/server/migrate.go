package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"invoicedesk/internal/config"
	"invoicedesk/internal/infrastructure/storage/postgres"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the PostgreSQL schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Store.Driver != config.DriverPostgres {
				return fmt.Errorf("migrate needs the %s driver, configured %q", config.DriverPostgres, cfg.Store.Driver)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Store.ConnectRetry)
			defer cancel()

			pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.Store.PostgresURL))
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := postgres.Migrate(ctx, pool); err != nil {
				return err
			}
			log.Info("migration complete")
			return nil
		},
	}
}
