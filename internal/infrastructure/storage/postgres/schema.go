package postgres

import (
	"context"
	"fmt"

	"invoicedesk/pkg/logger"
)

// schema creates the documents table. seq gives every collection a stable
// natural order for single-document operations with an empty filter.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS documents (
		collection TEXT        NOT NULL,
		id         TEXT        NOT NULL,
		seq        BIGSERIAL   NOT NULL,
		body       JSONB       NOT NULL DEFAULT '{}'::jsonb,
		PRIMARY KEY (collection, id)
	)`,
	`CREATE INDEX IF NOT EXISTS documents_collection_seq_idx ON documents (collection, seq)`,
	`CREATE INDEX IF NOT EXISTS documents_body_idx ON documents USING GIN (body jsonb_path_ops)`,
}

// Migrate applies the schema. Safe to run repeatedly.
func Migrate(ctx context.Context, pool *Pool) error {
	txm := NewTxManager(pool)
	return txm.RunInTransaction(ctx, func(ctx context.Context) error {
		q := txm.GetQuerier(ctx)
		for i, stmt := range schema {
			if _, err := q.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("migration step %d: %w", i+1, err)
			}
		}
		logger.Info(ctx, "schema is up to date", "statements", len(schema))
		return nil
	})
}
