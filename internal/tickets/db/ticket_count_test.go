package db_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicketCounts_AccumulatePerDay(t *testing.T) {
	f := setupTestDB(t)
	ctx := context.Background()

	first := f.booking("A1", "A2")
	_, err := f.ledger.CreateBooking(ctx, first)
	require.NoError(t, err)

	sameDay := f.booking("A3")
	sameDay.IssuedAt = first.IssuedAt.Add(6 * time.Hour)
	_, err = f.ledger.CreateBooking(ctx, sameDay)
	require.NoError(t, err)

	nextDay := f.booking("A4")
	nextDay.IssuedAt = first.IssuedAt.Add(24 * time.Hour)
	_, err = f.ledger.CreateBooking(ctx, nextDay)
	require.NoError(t, err)

	counts, err := f.ledger.GetTicketCountsForEvent(ctx, f.event.ID)
	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.Equal(t, "2025-07-22", counts[0].Day)
	assert.Equal(t, 3, counts[0].Count)
	assert.Equal(t, "2025-07-23", counts[1].Day)
	assert.Equal(t, 1, counts[1].Count)

	total, err := f.ledger.GetTotalTicketsCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, total)
}

func TestTicketCounts_EmptyEvent(t *testing.T) {
	f := setupTestDB(t)

	counts, err := f.ledger.GetTicketCountsForEvent(context.Background(), f.event.ID)
	require.NoError(t, err)
	assert.Empty(t, counts)
}
