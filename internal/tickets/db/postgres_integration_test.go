package db_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"ticketnepal/internal/config"
	"ticketnepal/internal/database"
	"ticketnepal/internal/database/migrations"
	"ticketnepal/internal/logger"
	"ticketnepal/internal/models"
	"ticketnepal/internal/tickets/db"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
)

func startPostgres(t *testing.T) *bun.DB {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "ticketnepal",
				"POSTGRES_PASSWORD": "ticketnepal",
				"POSTGRES_DB":       "ticketnepal",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start Postgres container: %v", err)
	}
	t.Cleanup(func() { container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	cfg := config.DatabaseConfig{
		Host:         host,
		Port:         port.Port(),
		Username:     "ticketnepal",
		Password:     "ticketnepal",
		Database:     "ticketnepal",
		SSLMode:      "disable",
		MaxOpenConns: 10,
		MaxIdleConns: 10,
		MaxLifetime:  time.Minute,
	}

	migrationDB, err := sql.Open("postgres", cfg.DSN())
	require.NoError(t, err)
	runner := migrations.NewRunner(migrationDB, migrations.MigrateOptions{}, logger.Discard())
	require.NoError(t, runner.RunMigrations())
	require.NoError(t, runner.Close())

	bunDB, err := database.Connect(ctx, cfg, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { bunDB.Close() })
	return bunDB
}

func TestPostgres_ConcurrentOverlappingBookings(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping Postgres integration test in short mode")
	}
	bunDB := startPostgres(t)
	store := db.NewDB(bunDB)
	ctx := context.Background()

	event := &models.Event{
		ID:          uuid.NewString(),
		Name:        "Integration Night",
		OrganizerID: uuid.NewString(),
		Price:       decimal.NewFromInt(250),
		Income:      decimal.Zero,
	}
	_, err := bunDB.NewInsert().Model(event).Exec(ctx)
	require.NoError(t, err)

	const buyers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// every request wants A1 plus a seat of its own
			_, err := store.CreateBooking(ctx, db.Booking{
				TransactionID: uuid.NewString(),
				EventID:       event.ID,
				UserID:        fmt.Sprintf("buyer-%d", i),
				Seats:         []string{fmt.Sprintf("B%d", i), "A1"},
				UnitPrice:     event.Price,
				IssuedAt:      time.Now().UTC(),
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, models.ErrSeatConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, buyers-1, conflicts)

	n, err := store.CountReserved(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "losers leave no tickets behind")

	var stored models.Event
	require.NoError(t, bunDB.NewSelect().Model(&stored).Where("id = ?", event.ID).Scan(ctx))
	assert.True(t, decimal.NewFromInt(500).Equal(stored.Income))

	counts, err := store.GetTicketCountsForEvent(ctx, event.ID)
	require.NoError(t, err)
	require.Len(t, counts, 1)
	assert.Equal(t, 2, counts[0].Count)
}
