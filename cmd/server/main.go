// Package main is the entry point for the invoicedesk API server and its
// operator commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"invoicedesk/internal/config"
	"invoicedesk/pkg/logger"
)

// Set via ldflags at build time.
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "invoicedesk",
		Short:        "Invoice management API server",
		SilenceUsage: true,
		Version:      version,
	}
	root.PersistentFlags().String("config", "", "Path to YAML config file")

	root.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newSequenceCmd(),
		newTokenCmd(),
	)
	return root
}

// loadConfig reads the config and sets up the process logger from it.
func loadConfig(cmd *cobra.Command) (config.Config, *logger.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, nil, err
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.App.Development(),
	})
	if err != nil {
		return cfg, nil, fmt.Errorf("init logger: %w", err)
	}
	logger.SetDefault(log)
	return cfg, log, nil
}
