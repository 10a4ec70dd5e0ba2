package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	appctx "invoicedesk/internal/core/context"
	"invoicedesk/internal/infrastructure/numerator"
)

func newSequenceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sequence",
		Short: "Inspect or advance the invoice sequence",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "current",
			Short: "Print the last issued invoice number",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withSequence(cmd, func(ctx context.Context, svc *numerator.Service) error {
					fmt.Fprintln(cmd.OutOrStdout(), svc.GetCurrent(ctx))
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "next",
			Short: "Consume and print the next invoice number",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withSequence(cmd, func(ctx context.Context, svc *numerator.Service) error {
					seq, err := svc.GetNext(ctx)
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), seq)
					return nil
				})
			},
		},
	)
	return cmd
}

func withSequence(cmd *cobra.Command, fn func(ctx context.Context, svc *numerator.Service) error) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx := appctx.WithTrace(cmd.Context(), appctx.NewTraceContext(appctx.SourceCLI))

	store, err := openStore(ctx, cfg.Store, log)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(ctx, cfg.Store.Timeout)
	defer cancel()
	return fn(ctx, newSequenceService(store))
}
