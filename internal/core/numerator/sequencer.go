// Package numerator provides domain contracts for invoice numbering.
// Implementations live in infrastructure layer.
package numerator

import (
	"context"
	"errors"
)

var (
	// ErrStoreUnavailable means the counter could not be advanced because the
	// store failed or timed out. The caller must not assume a number was issued.
	ErrStoreUnavailable = errors.New("invoice sequence store unavailable")

	// ErrCorruptedState means the counter document could not be interpreted and
	// could not be reseeded either.
	ErrCorruptedState = errors.New("invoice sequence state corrupted")
)

// Record is the single persisted counter document.
type Record struct {
	ID           string `json:"_id,omitempty"`
	LastSequence int64  `json:"last_invoice_sequence"`
}

// Sequencer issues invoice sequence numbers.
type Sequencer interface {
	// GetCurrent returns the last issued number without consuming one.
	// It never fails; on store trouble it reports 0.
	GetCurrent(ctx context.Context) int64

	// GetNext consumes and returns the next number. Two calls never return the
	// same value. A consumed number is not returned to the pool if the caller
	// later fails to use it.
	GetNext(ctx context.Context) (int64, error)
}
