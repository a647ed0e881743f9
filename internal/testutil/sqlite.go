// Package testutil sets up throwaway databases and fixtures for package tests.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"ticketnepal/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// NewDB returns a private in-memory SQLite database with every table created.
// A single connection serializes transactions the way row locks would.
func NewDB(t testing.TB) *bun.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { bunDB.Close() })

	ctx := context.Background()
	for _, model := range []interface{}{
		(*models.User)(nil),
		(*models.Event)(nil),
		(*models.Ticket)(nil),
		(*models.StaffApplication)(nil),
		(*models.TicketCount)(nil),
	} {
		_, err := bunDB.NewCreateTable().Model(model).IfNotExists().Exec(ctx)
		require.NoError(t, err)
	}
	return bunDB
}

// CreateUser inserts a user with the given role.
func CreateUser(t testing.TB, db *bun.DB, role models.Role) *models.User {
	t.Helper()

	id := uuid.NewString()
	u := &models.User{
		ID:       id,
		Name:     "User " + id[:8],
		Username: "user-" + id[:8],
		Email:    id[:8] + "@example.com",
		Role:     role,
	}
	_, err := db.NewInsert().Model(u).Exec(context.Background())
	require.NoError(t, err)
	return u
}

// EventOption tweaks an event fixture before it is stored.
type EventOption func(*models.Event)

func WithSeats(seats ...string) EventOption {
	return func(e *models.Event) { e.Seats = seats }
}

func WithPrice(p int64) EventOption {
	return func(e *models.Event) { e.Price = decimal.NewFromInt(p) }
}

func WithEnd(end time.Time) EventOption {
	return func(e *models.Event) {
		e.EndsAt = end.UTC()
		e.EndRaw = end.UTC().Format(time.RFC3339)
	}
}

// CreateEvent inserts an event owned by organizerID. Defaults: price 100, no inventory, no end.
func CreateEvent(t testing.TB, db *bun.DB, organizerID string, opts ...EventOption) *models.Event {
	t.Helper()

	e := &models.Event{
		ID:          uuid.NewString(),
		Name:        "Test Event",
		OrganizerID: organizerID,
		Price:       decimal.NewFromInt(100),
		Income:      decimal.Zero,
	}
	for _, opt := range opts {
		opt(e)
	}
	_, err := db.NewInsert().Model(e).Exec(context.Background())
	require.NoError(t, err)
	return e
}

// GetEvent reads an event row directly, including soft-deleted ones.
func GetEvent(t testing.TB, db *bun.DB, id string) *models.Event {
	t.Helper()

	var e models.Event
	err := db.NewSelect().Model(&e).Where("id = ?", id).Scan(context.Background())
	require.NoError(t, err)
	return &e
}

// CountTickets counts the ticket rows of an event.
func CountTickets(t testing.TB, db *bun.DB, eventID string) int {
	t.Helper()

	n, err := db.NewSelect().Model((*models.Ticket)(nil)).Where("event_id = ?", eventID).Count(context.Background())
	require.NoError(t, err)
	return n
}
