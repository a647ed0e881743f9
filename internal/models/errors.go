package models

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidReference = errors.New("referenced user or event does not exist")
	ErrSeatConflict     = errors.New("seat already reserved")
	ErrEmptyRequest     = errors.New("no seats requested")
	ErrInvalidInput     = errors.New("invalid input")
	ErrForbidden        = errors.New("not allowed")
	ErrNotFound         = errors.New("not found")
	ErrAlreadyApplied   = errors.New("already applied for this event")
	ErrInvalidToken     = errors.New("invalid approval token")
	ErrTransientStore   = errors.New("store temporarily unavailable")
)

// SeatConflictError names the seat that made a booking fail.
type SeatConflictError struct {
	EventID string
	Seat    string
}

func (e *SeatConflictError) Error() string {
	return fmt.Sprintf("seat %s already reserved for event %s", e.Seat, e.EventID)
}

func (e *SeatConflictError) Unwrap() error { return ErrSeatConflict }

// StoreError wraps an unexpected storage failure so that callers can
// match it with ErrTransientStore.
func StoreError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrTransientStore, err)
}
