package database

import (
	"context"
	"errors"
	"time"

	"ticketnepal/internal/models"
)

// WithTimeout bounds ctx by d. A non-positive d leaves the deadline as it is.
func WithTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// TxError classifies the error returned by RunInTx. Errors raised inside
// the transaction already carry their meaning; anything else came from
// begin, commit or rollback and is reported as a transient store failure.
func TxError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, models.ErrTransientStore),
		errors.Is(err, models.ErrSeatConflict),
		errors.Is(err, models.ErrInvalidReference),
		errors.Is(err, models.ErrNotFound):
		return err
	}
	return models.StoreError(op, err)
}
