package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ticketnepal/internal/database"
	"ticketnepal/internal/models"
	"ticketnepal/internal/utils"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// DB is the seat ledger. Seat ownership is decided by the unique
// constraint on tickets (event_id, seat).
type DB struct {
	Bun *bun.DB
}

func NewDB(b *bun.DB) *DB {
	return &DB{Bun: b}
}

// Booking describes one purchase of several seats.
type Booking struct {
	TransactionID string
	EventID       string
	UserID        string
	UserName      string
	Seats         []string
	UnitPrice     decimal.Decimal
	IssuedAt      time.Time
}

// CreateBooking reserves every seat of b in a single transaction, adds the
// amount to the event income and bumps the daily count. If any seat is
// taken nothing is written and a *models.SeatConflictError is returned.
func (d *DB) CreateBooking(ctx context.Context, b Booking) ([]models.Ticket, error) {
	tickets := make([]models.Ticket, 0, len(b.Seats))
	total := b.UnitPrice.Mul(decimal.NewFromInt(int64(len(b.Seats))))

	err := d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		// The event row is locked first so bookings for one event queue up
		// here instead of deadlocking on overlapping seats.
		res, err := tx.NewUpdate().
			Model((*models.Event)(nil)).
			Set("income = income + ?", total).
			Where("id = ?", b.EventID).
			Where("deleted = ?", false).
			Exec(ctx)
		if err != nil {
			return models.StoreError("update event income", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("%w: event %s", models.ErrInvalidReference, b.EventID)
		}

		for _, seat := range b.Seats {
			t := models.Ticket{
				ID:            utils.GenerateID(),
				EventID:       b.EventID,
				Seat:          seat,
				UserID:        b.UserID,
				UserName:      b.UserName,
				TransactionID: b.TransactionID,
				QRCodeHint:    b.TransactionID,
				Price:         b.UnitPrice,
				IssuedAt:      b.IssuedAt,
			}
			if _, err := tx.NewInsert().Model(&t).Exec(ctx); err != nil {
				if database.IsUniqueViolation(err) {
					return &models.SeatConflictError{EventID: b.EventID, Seat: seat}
				}
				return models.StoreError("insert ticket", err)
			}
			tickets = append(tickets, t)
		}

		return incrementTicketCount(ctx, tx, b.EventID, utils.DayKey(b.IssuedAt), len(b.Seats))
	})
	if err != nil {
		return nil, database.TxError("booking transaction", err)
	}
	return tickets, nil
}

func (d *DB) GetTicketByID(ctx context.Context, id string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := d.Bun.NewSelect().
		Model(&ticket).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFound("ticket", err)
	}
	return &ticket, nil
}

// GetTicketsByQRCode returns every ticket printed with the given QR hint.
func (d *DB) GetTicketsByQRCode(ctx context.Context, code string) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := d.Bun.NewSelect().
		Model(&tickets).
		Where("qr_code_hint = ?", code).
		OrderExpr("seat ASC").
		Scan(ctx)
	if err != nil {
		return nil, models.StoreError("select tickets by qr code", err)
	}
	return tickets, nil
}

func (d *DB) GetTicketsByTransaction(ctx context.Context, transactionID string) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := d.Bun.NewSelect().
		Model(&tickets).
		Where("transaction_id = ?", transactionID).
		OrderExpr("seat ASC").
		Scan(ctx)
	if err != nil {
		return nil, models.StoreError("select tickets by transaction", err)
	}
	return tickets, nil
}

func (d *DB) GetTicketsByIDs(ctx context.Context, ids []string) ([]models.Ticket, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var tickets []models.Ticket
	err := d.Bun.NewSelect().
		Model(&tickets).
		Where("id IN (?)", bun.In(ids)).
		OrderExpr("seat ASC").
		Scan(ctx)
	if err != nil {
		return nil, models.StoreError("select tickets by ids", err)
	}
	return tickets, nil
}

func (d *DB) GetTicketsByUser(ctx context.Context, userID string) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := d.Bun.NewSelect().
		Model(&tickets).
		Where("user_id = ?", userID).
		OrderExpr("issued_at DESC, seat ASC").
		Scan(ctx)
	if err != nil {
		return nil, models.StoreError("select tickets by user", err)
	}
	return tickets, nil
}

// ListReservedSeats returns the taken seat labels of an event in label order.
func (d *DB) ListReservedSeats(ctx context.Context, eventID string) ([]string, error) {
	seats := []string{}
	err := d.Bun.NewSelect().
		Model((*models.Ticket)(nil)).
		Column("seat").
		Where("event_id = ?", eventID).
		OrderExpr("seat ASC").
		Scan(ctx, &seats)
	if err != nil {
		return nil, models.StoreError("list reserved seats", err)
	}
	return seats, nil
}

func (d *DB) CountReserved(ctx context.Context, eventID string) (int, error) {
	n, err := d.Bun.NewSelect().
		Model((*models.Ticket)(nil)).
		Where("event_id = ?", eventID).
		Count(ctx)
	if err != nil {
		return 0, models.StoreError("count reserved seats", err)
	}
	return n, nil
}

func (d *DB) CountCheckedIn(ctx context.Context, eventID string) (int, error) {
	n, err := d.Bun.NewSelect().
		Model((*models.Ticket)(nil)).
		Where("event_id = ?", eventID).
		Where("checked_in = ?", true).
		Count(ctx)
	if err != nil {
		return 0, models.StoreError("count checked in", err)
	}
	return n, nil
}

// MarkCheckedIn flips checked_in for a ticket that is not yet checked in.
// It reports false when another scan got there first.
func (d *DB) MarkCheckedIn(ctx context.Context, ticketID, by string, at time.Time) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Ticket)(nil)).
		Set("checked_in = ?", true).
		Set("checked_in_at = ?", at).
		Set("checked_in_by = ?", by).
		Where("id = ?", ticketID).
		Where("checked_in = ?", false).
		Exec(ctx)
	if err != nil {
		return false, models.StoreError("check in ticket", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, models.StoreError("check in ticket", err)
	}
	return n == 1, nil
}

func notFound(what string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, models.ErrNotFound)
	}
	return models.StoreError("select "+what, err)
}
