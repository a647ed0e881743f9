package models

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type Event struct {
	bun.BaseModel `bun:"table:events"`

	ID          string          `bun:"id,pk" json:"id"`
	Name        string          `bun:"name,notnull" json:"name"`
	Category    string          `bun:"category" json:"category,omitempty"`
	Location    string          `bun:"location" json:"location,omitempty"`
	Description string          `bun:"description" json:"description,omitempty"`
	OrganizerID string          `bun:"organizer_id,notnull" json:"organizerId"`
	Price       decimal.Decimal `bun:"price,type:numeric(12,2),notnull" json:"price"`
	Income      decimal.Decimal `bun:"income,type:numeric(14,2),notnull,default:0" json:"income"`
	Seats       []string        `bun:"seats" json:"seats,omitempty"`

	// StartRaw and EndRaw keep what the organizer typed; StartsAt and EndsAt
	// are the normalized UTC instants, zero when the raw value did not parse.
	StartRaw string    `bun:"event_start" json:"eventStart,omitempty"`
	EndRaw   string    `bun:"event_end" json:"eventEnd,omitempty"`
	StartsAt time.Time `bun:"starts_at,nullzero" json:"startsAt,omitempty"`
	EndsAt   time.Time `bun:"ends_at,nullzero" json:"endsAt,omitempty"`

	Deleted   bool      `bun:"deleted,notnull,default:false" json:"deleted"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
}

// HasInventory reports whether the event restricts bookings to a fixed seat list.
func (e *Event) HasInventory() bool {
	return len(e.Seats) > 0
}

func (e *Event) HasSeat(seat string) bool {
	return slices.Contains(e.Seats, seat)
}

// Ended reports whether the event has a known end that lies before now.
func (e *Event) Ended(now time.Time) bool {
	return !e.EndsAt.IsZero() && e.EndsAt.Before(now)
}

// EventStats is the organizer-facing summary of an event's sales.
type EventStats struct {
	EventID     string          `json:"eventId"`
	Income      decimal.Decimal `json:"income"`
	TicketsSold int             `json:"ticketsSold"`
	CheckedIn   int             `json:"checkedIn"`
	Daily       []TicketCount   `json:"daily"`
}
