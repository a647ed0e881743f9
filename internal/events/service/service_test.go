package events_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"ticketnepal/internal/clock"
	eventsdb "ticketnepal/internal/events/db"
	events "ticketnepal/internal/events/service"
	"ticketnepal/internal/kafka"
	"ticketnepal/internal/logger"
	"ticketnepal/internal/models"
	"ticketnepal/internal/testutil"
	ticketdb "ticketnepal/internal/tickets/db"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type MockSweepPublisher struct {
	mock.Mock
}

func (m *MockSweepPublisher) EventsSwept(ctx context.Context, ev kafka.EventsSweptEvent) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

var now = time.Date(2025, 7, 22, 12, 0, 0, 0, time.UTC)

func setupService(t *testing.T, publisher events.SweepPublisher) (*events.EventService, *bun.DB, *clock.Manual) {
	t.Helper()
	db := testutil.NewDB(t)
	clk := clock.NewManual(now)
	svc := events.NewEventService(eventsdb.NewDB(db), ticketdb.NewDB(db), publisher, clk, logger.Discard(), time.UTC)
	return svc, db, clk
}

func book(t *testing.T, db *bun.DB, eventID, userID string, seats ...string) {
	t.Helper()
	_, err := ticketdb.NewDB(db).CreateBooking(context.Background(), ticketdb.Booking{
		TransactionID: "tx-" + eventID + seats[0],
		EventID:       eventID,
		UserID:        userID,
		Seats:         seats,
		UnitPrice:     decimal.NewFromInt(100),
		IssuedAt:      now,
	})
	require.NoError(t, err)
}

func TestSweepExpiredEvents(t *testing.T) {
	publisher := new(MockSweepPublisher)
	svc, db, _ := setupService(t, publisher)
	ctx := context.Background()

	organizer := testutil.CreateUser(t, db, models.RoleOrganizer)
	customer := testutil.CreateUser(t, db, models.RoleCustomer)
	longGone := testutil.CreateEvent(t, db, organizer.ID, testutil.WithEnd(now.Add(-48*time.Hour)))
	yesterday := testutil.CreateEvent(t, db, organizer.ID, testutil.WithEnd(now.Add(-12*time.Hour)))
	upcoming := testutil.CreateEvent(t, db, organizer.ID, testutil.WithEnd(now.Add(48*time.Hour)))
	noEnd := testutil.CreateEvent(t, db, organizer.ID)
	book(t, db, longGone.ID, customer.ID, "A1")

	publisher.On("EventsSwept", mock.Anything, mock.MatchedBy(func(ev kafka.EventsSweptEvent) bool {
		return len(ev.EventIDs) == 1 && ev.EventIDs[0] == longGone.ID
	})).Return(nil).Once()

	n, err := svc.SweepExpiredEvents(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	gone := testutil.GetEvent(t, db, longGone.ID)
	assert.True(t, gone.Deleted)
	assert.Equal(t, "100", gone.Income.String(), "income survives the sweep")
	assert.Equal(t, 1, testutil.CountTickets(t, db, longGone.ID), "tickets survive the sweep")

	for _, e := range []*models.Event{yesterday, upcoming, noEnd} {
		assert.False(t, testutil.GetEvent(t, db, e.ID).Deleted, e.ID)
	}

	n, err = svc.SweepExpiredEvents(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "a second sweep finds nothing")

	publisher.AssertExpectations(t)
}

func TestSweepExpiredEvents_ClockDriven(t *testing.T) {
	svc, db, clk := setupService(t, nil)
	organizer := testutil.CreateUser(t, db, models.RoleOrganizer)
	e := testutil.CreateEvent(t, db, organizer.ID, testutil.WithEnd(now))

	n, err := svc.SweepExpiredEvents(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	clk.Advance(25 * time.Hour)
	n, err = svc.SweepExpiredEvents(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, testutil.GetEvent(t, db, e.ID).Deleted)
}

func TestCreateEvent(t *testing.T) {
	kathmandu := time.FixedZone("NPT", 5*3600+45*60)
	db := testutil.NewDB(t)
	svc := events.NewEventService(eventsdb.NewDB(db), ticketdb.NewDB(db), nil, clock.NewManual(now), logger.Discard(), kathmandu)
	ctx := context.Background()
	organizer := models.Actor{UserID: "org-1", Role: models.RoleOrganizer}

	e, err := svc.CreateEvent(ctx, organizer, events.EventInput{
		Name:  "  Jazz Night ",
		Price: decimal.NewFromInt(1500),
		Seats: []string{"A1", "A2"},
		Start: "2025-08-01T18:45",
		End:   "not a date",
	})
	require.NoError(t, err)
	assert.Equal(t, "Jazz Night", e.Name)
	assert.Equal(t, "org-1", e.OrganizerID)
	assert.True(t, time.Date(2025, 8, 1, 13, 0, 0, 0, time.UTC).Equal(e.StartsAt))
	assert.True(t, e.EndsAt.IsZero())
	assert.Equal(t, "not a date", e.EndRaw)

	stored, err := eventsdb.NewDB(db).GetEvent(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "A2"}, stored.Seats)

	_, err = svc.CreateEvent(ctx, models.Actor{UserID: "c", Role: models.RoleCustomer}, events.EventInput{Name: "x"})
	assert.ErrorIs(t, err, models.ErrForbidden)

	_, err = svc.CreateEvent(ctx, organizer, events.EventInput{Name: " "})
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = svc.CreateEvent(ctx, organizer, events.EventInput{Name: "x", Price: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestDeleteEvent(t *testing.T) {
	svc, db, _ := setupService(t, nil)
	ctx := context.Background()

	organizer := testutil.CreateUser(t, db, models.RoleOrganizer)
	customer := testutil.CreateUser(t, db, models.RoleCustomer)
	owner := models.Actor{UserID: organizer.ID, Role: models.RoleOrganizer}

	running := testutil.CreateEvent(t, db, organizer.ID, testutil.WithEnd(now.Add(time.Hour)))
	book(t, db, running.ID, customer.ID, "A1")
	_, err := svc.DeleteEvent(ctx, owner, running.ID)
	assert.ErrorIs(t, err, models.ErrInvalidInput, "sold and not over")

	_, err = svc.DeleteEvent(ctx, models.Actor{UserID: "other", Role: models.RoleOrganizer}, running.ID)
	assert.ErrorIs(t, err, models.ErrForbidden)

	over := testutil.CreateEvent(t, db, organizer.ID, testutil.WithEnd(now.Add(-time.Hour)))
	book(t, db, over.ID, customer.ID, "A1", "A2")
	removed, err := svc.DeleteEvent(ctx, owner, over.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.True(t, testutil.GetEvent(t, db, over.ID).Deleted)
	assert.Equal(t, "200", testutil.GetEvent(t, db, over.ID).Income.String())
	assert.Zero(t, testutil.CountTickets(t, db, over.ID))

	empty := testutil.CreateEvent(t, db, organizer.ID)
	removed, err = svc.DeleteEvent(ctx, models.Actor{UserID: "root", Role: models.RoleAdmin}, empty.ID)
	require.NoError(t, err)
	assert.Zero(t, removed)

	_, err = svc.DeleteEvent(ctx, owner, empty.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestEventStats(t *testing.T) {
	svc, db, _ := setupService(t, nil)
	ctx := context.Background()

	organizer := testutil.CreateUser(t, db, models.RoleOrganizer)
	customer := testutil.CreateUser(t, db, models.RoleCustomer)
	e := testutil.CreateEvent(t, db, organizer.ID)
	book(t, db, e.ID, customer.ID, "A1", "A2")

	tickets, err := ticketdb.NewDB(db).GetTicketsByTransaction(ctx, "tx-"+e.ID+"A1")
	require.NoError(t, err)
	_, err = ticketdb.NewDB(db).MarkCheckedIn(ctx, tickets[0].ID, organizer.ID, now)
	require.NoError(t, err)

	stats, err := svc.EventStats(ctx, models.Actor{UserID: organizer.ID, Role: models.RoleOrganizer}, e.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TicketsSold)
	assert.Equal(t, 1, stats.CheckedIn)
	assert.Equal(t, "200", stats.Income.String())
	require.Len(t, stats.Daily, 1)
	assert.Equal(t, "2025-07-22", stats.Daily[0].Day)
	assert.Equal(t, 2, stats.Daily[0].Count)

	_, err = svc.EventStats(ctx, models.Actor{UserID: customer.ID, Role: models.RoleCustomer}, e.ID)
	assert.ErrorIs(t, err, models.ErrForbidden)
}

// stalledEvents holds sweep reads until the caller's deadline passes.
type stalledEvents struct {
	*eventsdb.DB
}

func (s stalledEvents) ListSweepCandidates(ctx context.Context) ([]models.Event, error) {
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		return nil, errors.New("sweep ran without a deadline")
	}
	return s.DB.ListSweepCandidates(ctx)
}

func TestSweepExpiredEvents_StoreTimeoutIsTransient(t *testing.T) {
	svc, db, _ := setupService(t, nil)
	svc.DB = stalledEvents{eventsdb.NewDB(db)}
	svc.StoreTimeout = 50 * time.Millisecond

	organizer := testutil.CreateUser(t, db, models.RoleOrganizer)
	event := testutil.CreateEvent(t, db, organizer.ID, testutil.WithEnd(now.Add(-72*time.Hour)))

	n, err := svc.SweepExpiredEvents(context.Background())
	assert.Zero(t, n)
	assert.ErrorIs(t, err, models.ErrTransientStore)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, testutil.GetEvent(t, db, event.ID).Deleted)
}
