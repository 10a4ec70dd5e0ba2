package numerator

import (
	"context"
	"errors"

	"invoicedesk/internal/core/apperror"
)

// AsAppError maps sequence failures to API errors.
func AsAppError(err error) error {
	switch {
	case err == nil:
		return nil
	case apperror.IsAppError(err):
		return err
	case errors.Is(err, ErrCorruptedState):
		return apperror.NewSequenceCorrupted(err)
	case errors.Is(err, context.DeadlineExceeded):
		return apperror.NewTimeout(err)
	case errors.Is(err, ErrStoreUnavailable):
		return apperror.NewStoreUnavailable(err)
	default:
		return apperror.NewInternal(err)
	}
}
