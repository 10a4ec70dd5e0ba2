package main

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"invoicedesk/internal/config"
	"invoicedesk/internal/core/docstore"
	"invoicedesk/internal/infrastructure/storage/memory"
	"invoicedesk/internal/infrastructure/storage/mongo"
	"invoicedesk/internal/infrastructure/storage/postgres"
	"invoicedesk/pkg/logger"
)

// openStore connects to the configured backend, retrying with exponential
// backoff while it is unreachable. Only startup is retried; store calls made
// while serving requests are not.
func openStore(ctx context.Context, cfg config.StoreConfig, log *logger.Logger) (docstore.Store, error) {
	if cfg.Driver == config.DriverMemory {
		log.Warn("using in-memory store, data is lost on restart")
		return memory.NewStore(), nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 500 * time.Millisecond
	policy.MaxInterval = 10 * time.Second
	policy.MaxElapsedTime = cfg.ConnectRetry

	var store docstore.Store
	connect := func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()

		s, err := dial(attemptCtx, cfg)
		if err != nil {
			return err
		}
		store = s
		return nil
	}
	notify := func(err error, wait time.Duration) {
		log.Warnw("store not reachable, retrying", "driver", cfg.Driver, "error", err, "retry_in", wait)
	}

	if err := backoff.RetryNotify(connect, backoff.WithContext(policy, ctx), notify); err != nil {
		return nil, fmt.Errorf("connect %s store: %w", cfg.Driver, err)
	}
	log.Infow("store connected", "driver", cfg.Driver)
	return store, nil
}

func dial(ctx context.Context, cfg config.StoreConfig) (docstore.Store, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.PostgresURL))
		if err != nil {
			return nil, err
		}
		postgres.LogPoolStats(ctx, pool)
		return postgres.NewStore(pool), nil

	case config.DriverMongo:
		return mongo.Dial(ctx, mongo.Config{
			URL:      cfg.MongoURL,
			Database: cfg.Database,
			Timeout:  cfg.Timeout,
		})
	}
	return nil, backoff.Permanent(fmt.Errorf("unknown store driver %q", cfg.Driver))
}
