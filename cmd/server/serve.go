package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"invoicedesk/internal/config"
	"invoicedesk/internal/core/docstore"
	corenumerator "invoicedesk/internal/core/numerator"
	"invoicedesk/internal/domain/auth"
	"invoicedesk/internal/domain/customer"
	"invoicedesk/internal/domain/invoice"
	"invoicedesk/internal/domain/product"
	v1 "invoicedesk/internal/infrastructure/http/v1"
	"invoicedesk/internal/infrastructure/idempotency"
	"invoicedesk/internal/infrastructure/numerator"
	"invoicedesk/internal/infrastructure/storage/docrepo"
	"invoicedesk/pkg/logger"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE:  runServe,
	}
	cmd.Flags().IntP("port", "p", 0, "Listen port (overrides config)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if port, _ := cmd.Flags().GetInt("port"); port > 0 {
		cfg.App.Port = port
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Infow("starting invoicedesk", "version", version, "driver", cfg.Store.Driver, "env", cfg.App.Env)

	store, err := openStore(ctx, cfg.Store, log)
	if err != nil {
		return err
	}
	defer store.Close()

	routerCfg, err := buildRouterConfig(cfg, store, log)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.App.Port),
		Handler:      v1.NewRouter(routerCfg),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Infow("server starting", "port", cfg.App.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}

// buildRouterConfig wires repositories and services over store.
func buildRouterConfig(cfg config.Config, store docstore.Store, log *logger.Logger) (v1.RouterConfig, error) {
	sequence := newSequenceService(store)

	customers := customer.NewService(docrepo.New(store.Collection(customer.CollectionName), "customer",
		func() *customer.Customer { return &customer.Customer{} }))
	products := product.NewService(docrepo.New(store.Collection(product.CollectionName), "product",
		func() *product.Product { return &product.Product{} }))
	invoices := invoice.NewService(
		docrepo.New(store.Collection(invoice.CollectionName), "invoice",
			func() *invoice.Invoice { return &invoice.Invoice{} }),
		sequence,
		invoice.Config{
			AutoNumber: cfg.Invoice.AutoNumber,
			Format: corenumerator.Config{
				Prefix:   cfg.Invoice.Prefix,
				PadWidth: cfg.Invoice.PadWidth,
			},
		},
	)

	routerCfg := v1.RouterConfig{
		Store:       store,
		StoreDriver: cfg.Store.Driver,
		Logger:      log,
		Development: cfg.App.Development(),
		Customers:   customers,
		Products:    products,
		Invoices:    invoices,
		Sequence:    sequence,
	}

	if cfg.Auth.JWTSecret != "" {
		jwtCfg := auth.DefaultJWTConfig(cfg.Auth.JWTSecret)
		jwtCfg.AccessTokenTTL = cfg.Auth.TokenTTL
		jwtService, err := auth.NewJWTService(jwtCfg)
		if err != nil {
			return routerCfg, err
		}
		routerCfg.JWTValidator = jwtService
		routerCfg.AuthOptional = !cfg.Auth.Required
		routerCfg.AdminRole = cfg.Auth.AdminRole
		if routerCfg.AuthOptional {
			log.Warn("auth.required is off, /api accepts anonymous requests")
		}
	} else {
		log.Warn("JWT_SECRET not set, /api is served without authentication")
	}

	if cfg.Idempotency.Enabled {
		routerCfg.Idempotency = idempotency.NewStore(store.Collection(idempotency.CollectionName), cfg.Idempotency.TTL)
	}
	return routerCfg, nil
}

func newSequenceService(store docstore.Store) *numerator.Service {
	return numerator.NewService(numerator.NewStore(store.Collection(numerator.CollectionName)))
}
