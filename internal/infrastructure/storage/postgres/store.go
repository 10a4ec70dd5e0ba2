package postgres

import (
	"context"

	"invoicedesk/internal/core/docstore"
)

// Store implements docstore.Store over a connection pool.
type Store struct {
	pool *Pool
	txm  *TxManager
}

var _ docstore.Store = (*Store)(nil)

// NewStore creates a store. The schema must already exist (see Migrate).
func NewStore(pool *Pool) *Store {
	return &Store{pool: pool, txm: NewTxManager(pool)}
}

// Collection implements docstore.Store.
func (s *Store) Collection(name string) docstore.Collection {
	return NewCollection(name, s.txm)
}

// Ping implements docstore.Store.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close implements docstore.Store.
func (s *Store) Close() {
	s.pool.Close()
}
