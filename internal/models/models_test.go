package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeRole(t *testing.T) {
	tests := []struct {
		in   string
		want Role
	}{
		{"admin", RoleAdmin},
		{" ROLE_ADMIN ", RoleAdmin},
		{"Organizer", RoleOrganizer},
		{"organiser", RoleOrganizer},
		{"customer", RoleCustomer},
		{"USER", RoleCustomer},
		{"staff", RoleStaff},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeRole(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, got.Valid())
		})
	}

	_, err := NormalizeRole("superuser")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.False(t, Role("superuser").Valid())
}

func TestSeatConflictError(t *testing.T) {
	var err error = &SeatConflictError{EventID: "E1", Seat: "A2"}

	assert.True(t, errors.Is(err, ErrSeatConflict))
	var conflict *SeatConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, "A2", conflict.Seat)
}

func TestStoreError(t *testing.T) {
	cause := errors.New("connection reset")
	err := StoreError("insert ticket", cause)

	assert.ErrorIs(t, err, ErrTransientStore)
	assert.ErrorIs(t, err, cause)
}

func TestDecisionStatus(t *testing.T) {
	s, ok := DecisionApprove.Status()
	assert.True(t, ok)
	assert.Equal(t, StatusApproved, s)

	s, ok = DecisionReject.Status()
	assert.True(t, ok)
	assert.Equal(t, StatusRejected, s)

	_, ok = Decision("maybe").Status()
	assert.False(t, ok)
}

func TestEventEnded(t *testing.T) {
	now := time.Date(2025, 7, 22, 12, 0, 0, 0, time.UTC)

	e := &Event{}
	assert.False(t, e.Ended(now), "unknown end never counts as ended")

	e.EndsAt = now.Add(-time.Minute)
	assert.True(t, e.Ended(now))

	e.EndsAt = now.Add(time.Minute)
	assert.False(t, e.Ended(now))
}

func TestEventInventory(t *testing.T) {
	e := &Event{}
	assert.False(t, e.HasInventory())

	e.Seats = []string{"A1", "A2"}
	assert.True(t, e.HasInventory())
	assert.True(t, e.HasSeat("A2"))
	assert.False(t, e.HasSeat("B1"))
}
