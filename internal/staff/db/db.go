package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

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

// CreateApplication stores a new application. A second application for the
// same event and staff member fails with models.ErrAlreadyApplied.
func (d *DB) CreateApplication(ctx context.Context, app *models.StaffApplication) error {
	if _, err := d.Bun.NewInsert().Model(app).Exec(ctx); err != nil {
		if database.IsUniqueViolation(err) {
			return models.ErrAlreadyApplied
		}
		return models.StoreError("insert staff application", err)
	}
	return nil
}

func (d *DB) GetApplication(ctx context.Context, eventID, staffID string) (*models.StaffApplication, error) {
	var app models.StaffApplication
	err := d.Bun.NewSelect().
		Model(&app).
		Where("event_id = ?", eventID).
		Where("staff_id = ?", staffID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("staff application: %w", models.ErrNotFound)
		}
		return nil, models.StoreError("select staff application", err)
	}
	return &app, nil
}

// Decide moves a pending application to status. It reports false when the
// application had already been decided.
func (d *DB) Decide(ctx context.Context, id string, status models.ApplicationStatus, at time.Time) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.StaffApplication)(nil)).
		Set("status = ?", status).
		Set("decided_at = ?", at).
		Where("id = ?", id).
		Where("status = ?", models.StatusPending).
		Exec(ctx)
	if err != nil {
		return false, models.StoreError("decide staff application", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, models.StoreError("decide staff application", err)
	}
	return n == 1, nil
}

func (d *DB) IsApproved(ctx context.Context, eventID, staffID string) (bool, error) {
	ok, err := d.Bun.NewSelect().
		Model((*models.StaffApplication)(nil)).
		Where("event_id = ?", eventID).
		Where("staff_id = ?", staffID).
		Where("status = ?", models.StatusApproved).
		Exists(ctx)
	if err != nil {
		return false, models.StoreError("check staff approval", err)
	}
	return ok, nil
}

// ListApprovedEventIDs returns the events a staff member may validate for.
func (d *DB) ListApprovedEventIDs(ctx context.Context, staffID string) ([]string, error) {
	ids := []string{}
	err := d.Bun.NewSelect().
		Model((*models.StaffApplication)(nil)).
		Column("event_id").
		Where("staff_id = ?", staffID).
		Where("status = ?", models.StatusApproved).
		OrderExpr("created_at ASC").
		Scan(ctx, &ids)
	if err != nil {
		return nil, models.StoreError("list approved events", err)
	}
	return ids, nil
}
