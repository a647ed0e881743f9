package db

import (
	"context"

	"ticketnepal/internal/models"

	"github.com/uptrace/bun"
)

// GetTotalTicketsCount returns the number of tickets ever issued.
func (d *DB) GetTotalTicketsCount(ctx context.Context) (int, error) {
	count, err := d.Bun.NewSelect().
		Model((*models.Ticket)(nil)).
		Count(ctx)
	if err != nil {
		return 0, models.StoreError("count tickets", err)
	}
	return count, nil
}

// incrementTicketCount adds n to the event's sales for day inside tx.
func incrementTicketCount(ctx context.Context, tx bun.Tx, eventID, day string, n int) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO ticket_counts (event_id, day, count) VALUES (?, ?, ?)
		ON CONFLICT (event_id, day) DO UPDATE SET count = ticket_counts.count + EXCLUDED.count`,
		eventID, day, n)
	if err != nil {
		return models.StoreError("increment ticket count", err)
	}
	return nil
}

// GetTicketCountsForEvent returns the daily sales of an event, oldest first.
func (d *DB) GetTicketCountsForEvent(ctx context.Context, eventID string) ([]models.TicketCount, error) {
	counts := []models.TicketCount{}
	err := d.Bun.NewSelect().
		Model(&counts).
		Where("event_id = ?", eventID).
		OrderExpr("day ASC").
		Scan(ctx)
	if err != nil {
		return nil, models.StoreError("select ticket counts", err)
	}
	return counts, nil
}
