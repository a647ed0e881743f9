package db_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"ticketnepal/internal/models"
	"ticketnepal/internal/testutil"
	"ticketnepal/internal/tickets/db"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type fixture struct {
	bun      *bun.DB
	ledger   *db.DB
	customer *models.User
	event    *models.Event
}

func setupTestDB(t *testing.T, opts ...testutil.EventOption) fixture {
	bunDB := testutil.NewDB(t)
	organizer := testutil.CreateUser(t, bunDB, models.RoleOrganizer)
	return fixture{
		bun:      bunDB,
		ledger:   db.NewDB(bunDB),
		customer: testutil.CreateUser(t, bunDB, models.RoleCustomer),
		event:    testutil.CreateEvent(t, bunDB, organizer.ID, opts...),
	}
}

func (f fixture) booking(seats ...string) db.Booking {
	return db.Booking{
		TransactionID: uuid.NewString(),
		EventID:       f.event.ID,
		UserID:        f.customer.ID,
		UserName:      f.customer.Name,
		Seats:         seats,
		UnitPrice:     f.event.Price,
		IssuedAt:      time.Date(2025, 7, 22, 10, 0, 0, 0, time.UTC),
	}
}

func TestCreateBooking(t *testing.T) {
	f := setupTestDB(t)
	ctx := context.Background()

	b := f.booking("A1", "A2")
	tickets, err := f.ledger.CreateBooking(ctx, b)
	require.NoError(t, err)
	require.Len(t, tickets, 2)

	for _, tk := range tickets {
		assert.Equal(t, b.TransactionID, tk.TransactionID)
		assert.Equal(t, b.TransactionID, tk.QRCodeHint)
		assert.True(t, decimal.NewFromInt(100).Equal(tk.Price))
		assert.False(t, tk.CheckedIn)
	}

	ev := testutil.GetEvent(t, f.bun, f.event.ID)
	assert.True(t, decimal.NewFromInt(200).Equal(ev.Income), "income %s", ev.Income)

	seats, err := f.ledger.ListReservedSeats(ctx, f.event.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "A2"}, seats)
}

func TestCreateBooking_ConflictRollsBackWholeBatch(t *testing.T) {
	f := setupTestDB(t)
	ctx := context.Background()

	_, err := f.ledger.CreateBooking(ctx, f.booking("A1", "A2"))
	require.NoError(t, err)

	_, err = f.ledger.CreateBooking(ctx, f.booking("A3", "A2"))
	require.Error(t, err)

	var conflict *models.SeatConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, "A2", conflict.Seat)
	assert.ErrorIs(t, err, models.ErrSeatConflict)

	seats, err := f.ledger.ListReservedSeats(ctx, f.event.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "A2"}, seats, "A3 must not survive the failed batch")

	ev := testutil.GetEvent(t, f.bun, f.event.ID)
	assert.True(t, decimal.NewFromInt(200).Equal(ev.Income), "income %s", ev.Income)

	counts, err := f.ledger.GetTicketCountsForEvent(ctx, f.event.ID)
	require.NoError(t, err)
	require.Len(t, counts, 1)
	assert.Equal(t, 2, counts[0].Count)
}

func TestCreateBooking_DeletedEvent(t *testing.T) {
	f := setupTestDB(t)
	ctx := context.Background()

	_, err := f.bun.NewUpdate().Model((*models.Event)(nil)).
		Set("deleted = ?", true).Where("id = ?", f.event.ID).Exec(ctx)
	require.NoError(t, err)

	_, err = f.ledger.CreateBooking(ctx, f.booking("A1"))
	assert.ErrorIs(t, err, models.ErrInvalidReference)
	assert.Equal(t, 0, testutil.CountTickets(t, f.bun, f.event.ID))
}

func TestCreateBooking_ConcurrentOverlap(t *testing.T) {
	f := setupTestDB(t)
	ctx := context.Background()

	// every pair overlaps its neighbours on one seat
	requests := [][]string{
		{"A1", "A2"}, {"A2", "A3"}, {"A3", "A4"}, {"A4", "A5"},
		{"A5", "A6"}, {"A6", "A1"}, {"A1", "A4"}, {"A2", "A5"},
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		sold      = map[string]int{}
	)
	for _, seats := range requests {
		wg.Add(1)
		go func(seats []string) {
			defer wg.Done()
			tickets, err := f.ledger.CreateBooking(ctx, f.booking(seats...))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				assert.ErrorIs(t, err, models.ErrSeatConflict)
				return
			}
			succeeded++
			for _, tk := range tickets {
				sold[tk.Seat]++
			}
		}(seats)
	}
	wg.Wait()

	require.Greater(t, succeeded, 0)
	for seat, n := range sold {
		assert.Equal(t, 1, n, "seat %s sold %d times", seat, n)
	}

	reserved, err := f.ledger.CountReserved(ctx, f.event.ID)
	require.NoError(t, err)
	assert.Equal(t, 2*succeeded, reserved)

	ev := testutil.GetEvent(t, f.bun, f.event.ID)
	want := decimal.NewFromInt(int64(100 * reserved))
	assert.True(t, want.Equal(ev.Income), "income %s, want %s", ev.Income, want)
}

func TestGetTicketLookups(t *testing.T) {
	f := setupTestDB(t)
	ctx := context.Background()

	b := f.booking("B2", "B1")
	tickets, err := f.ledger.CreateBooking(ctx, b)
	require.NoError(t, err)

	got, err := f.ledger.GetTicketByID(ctx, tickets[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "B2", got.Seat)

	_, err = f.ledger.GetTicketByID(ctx, "non-existent")
	assert.ErrorIs(t, err, models.ErrNotFound)

	group, err := f.ledger.GetTicketsByQRCode(ctx, b.TransactionID)
	require.NoError(t, err)
	require.Len(t, group, 2)
	assert.Equal(t, "B1", group[0].Seat)

	byTx, err := f.ledger.GetTicketsByTransaction(ctx, b.TransactionID)
	require.NoError(t, err)
	assert.Len(t, byTx, 2)

	byIDs, err := f.ledger.GetTicketsByIDs(ctx, []string{tickets[1].ID, "missing"})
	require.NoError(t, err)
	require.Len(t, byIDs, 1)
	assert.Equal(t, "B1", byIDs[0].Seat)

	mine, err := f.ledger.GetTicketsByUser(ctx, f.customer.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	none, err := f.ledger.GetTicketsByQRCode(ctx, "unknown")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMarkCheckedIn_OnlyOnce(t *testing.T) {
	f := setupTestDB(t)
	ctx := context.Background()

	tickets, err := f.ledger.CreateBooking(ctx, f.booking("C1"))
	require.NoError(t, err)
	id := tickets[0].ID
	at := time.Date(2025, 7, 22, 19, 0, 0, 0, time.UTC)

	var (
		wg          sync.WaitGroup
		mu          sync.Mutex
		transitions int
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := f.ledger.MarkCheckedIn(ctx, id, fmt.Sprintf("staff-%d", i), at)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				transitions++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, transitions)

	got, err := f.ledger.GetTicketByID(ctx, id)
	require.NoError(t, err)
	assert.True(t, got.CheckedIn)
	assert.True(t, at.Equal(got.CheckedInAt))
	assert.NotEmpty(t, got.CheckedInBy)

	n, err := f.ledger.CountCheckedIn(ctx, f.event.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCreateBooking_ExpiredDeadlineIsTransient(t *testing.T) {
	f := setupTestDB(t)
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, err := f.ledger.CreateBooking(ctx, f.booking("A1", "A2"))
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrTransientStore)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	assert.Zero(t, testutil.CountTickets(t, f.bun, f.event.ID))
	assert.True(t, testutil.GetEvent(t, f.bun, f.event.ID).Income.IsZero())
}
