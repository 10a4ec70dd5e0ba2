package numerator

import (
	"context"

	corenumerator "invoicedesk/internal/core/numerator"
	"invoicedesk/pkg/logger"
)

// Service is the request-facing side of the invoice sequence.
type Service struct {
	store *Store
}

// Ensure compile-time interface compliance.
var _ corenumerator.Sequencer = (*Service)(nil)

// NewService creates a sequence service over store.
func NewService(store *Store) *Service {
	return &Service{store: store}
}

// GetCurrent returns the last issued number. Safe to call any number of times.
func (s *Service) GetCurrent(ctx context.Context) int64 {
	return s.store.Peek(ctx)
}

// GetNext consumes one number. Call it once per invoice actually written.
func (s *Service) GetNext(ctx context.Context) (int64, error) {
	seq, err := s.store.Advance(ctx)
	if err != nil {
		return 0, err
	}
	logger.Debug(ctx, "invoice sequence advanced", "sequence", seq)
	return seq, nil
}

// Get dispatches on caller intent: increment=true consumes a number,
// anything else only reads the current one.
func (s *Service) Get(ctx context.Context, increment bool) (int64, error) {
	if increment {
		return s.GetNext(ctx)
	}
	return s.GetCurrent(ctx), nil
}

// Snapshot returns the sequence document as stored.
func (s *Service) Snapshot(ctx context.Context) corenumerator.Record {
	return s.store.Snapshot(ctx)
}
