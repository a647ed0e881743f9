package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ticketnepal/internal/database"
	"ticketnepal/internal/models"

	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
}

func NewDB(b *bun.DB) *DB {
	return &DB{Bun: b}
}

func (d *DB) CreateEvent(ctx context.Context, e *models.Event) error {
	if _, err := d.Bun.NewInsert().Model(e).Exec(ctx); err != nil {
		return models.StoreError("insert event", err)
	}
	return nil
}

// GetEvent returns a live event. Soft-deleted events are reported as not found.
func (d *DB) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	var e models.Event
	err := d.Bun.NewSelect().
		Model(&e).
		Where("id = ?", id).
		Where("deleted = ?", false).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err)
	}
	return &e, nil
}

// GetEventIncludingDeleted is used where history matters, such as resolving
// tickets of an event that has since been swept.
func (d *DB) GetEventIncludingDeleted(ctx context.Context, id string) (*models.Event, error) {
	var e models.Event
	err := d.Bun.NewSelect().
		Model(&e).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err)
	}
	return &e, nil
}

// ListSweepCandidates returns live events that have a normalized end time.
func (d *DB) ListSweepCandidates(ctx context.Context) ([]models.Event, error) {
	var events []models.Event
	err := d.Bun.NewSelect().
		Model(&events).
		Column("id", "name", "organizer_id", "ends_at").
		Where("deleted = ?", false).
		Where("ends_at IS NOT NULL").
		Scan(ctx)
	if err != nil {
		return nil, models.StoreError("list sweep candidates", err)
	}
	return events, nil
}

// SoftDelete marks the given events deleted and returns how many changed.
func (d *DB) SoftDelete(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := d.Bun.NewUpdate().
		Model((*models.Event)(nil)).
		Set("deleted = ?", true).
		Where("id IN (?)", bun.In(ids)).
		Where("deleted = ?", false).
		Exec(ctx)
	if err != nil {
		return 0, models.StoreError("soft delete events", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, models.StoreError("soft delete events", err)
	}
	return int(n), nil
}

// DeleteWithTickets removes an event's tickets and soft-deletes the event
// in one transaction. Income is left untouched.
func (d *DB) DeleteWithTickets(ctx context.Context, id string) (int, error) {
	var removed int64
	err := d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model((*models.Event)(nil)).
			Set("deleted = ?", true).
			Where("id = ?", id).
			Where("deleted = ?", false).
			Exec(ctx)
		if err != nil {
			return models.StoreError("delete event", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("event %s: %w", id, models.ErrNotFound)
		}

		res, err = tx.NewDelete().
			Model((*models.Ticket)(nil)).
			Where("event_id = ?", id).
			Exec(ctx)
		if err != nil {
			return models.StoreError("delete event tickets", err)
		}
		removed, _ = res.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, database.TxError("delete event transaction", err)
	}
	return int(removed), nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("event: %w", models.ErrNotFound)
	}
	return models.StoreError("select event", err)
}
