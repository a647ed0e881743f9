package models

import (
	"github.com/uptrace/bun"
)

// TicketCount is the number of seats sold for an event on one UTC day.
type TicketCount struct {
	bun.BaseModel `bun:"table:ticket_counts"`

	ID      int64  `bun:"id,pk,autoincrement" json:"-"`
	EventID string `bun:"event_id,notnull,unique:ticket_counts_event_day" json:"eventId"`
	Day     string `bun:"day,notnull,unique:ticket_counts_event_day" json:"day"`
	Count   int    `bun:"count,notnull" json:"count"`
}

// DayLayout is the format of TicketCount.Day.
const DayLayout = "2006-01-02"
