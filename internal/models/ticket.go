package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Ticket is one reserved seat. At most one ticket exists per (event_id, seat).
type Ticket struct {
	bun.BaseModel `bun:"table:tickets"`

	ID            string          `bun:"id,pk" json:"id"`
	EventID       string          `bun:"event_id,notnull,unique:tickets_event_seat" json:"eventId"`
	Seat          string          `bun:"seat,notnull,unique:tickets_event_seat" json:"seat"`
	UserID        string          `bun:"user_id,notnull" json:"userId"`
	UserName      string          `bun:"user_name" json:"userName,omitempty"`
	TransactionID string          `bun:"transaction_id,notnull" json:"transactionId"`
	QRCodeHint    string          `bun:"qr_code_hint,notnull" json:"qrCodeHint"`
	Price         decimal.Decimal `bun:"price,type:numeric(12,2),notnull" json:"price"`
	CheckedIn     bool            `bun:"checked_in,notnull,default:false" json:"checkedIn"`
	CheckedInAt   time.Time       `bun:"checked_in_at,nullzero" json:"checkedInAt,omitempty"`
	CheckedInBy   string          `bun:"checked_in_by,nullzero" json:"checkedInBy,omitempty"`
	IssuedAt      time.Time       `bun:"issued_at,notnull" json:"issuedAt"`
}

// BookingResult is what a successful purchase hands back to the caller.
type BookingResult struct {
	TransactionID string   `json:"transactionId"`
	Tickets       []Ticket `json:"tickets"`
	QRImage       []byte   `json:"qrImage"`
	// Warnings carry post-commit problems, such as a failed notification,
	// that did not undo the booking.
	Warnings []string `json:"warnings,omitempty"`
}

type ResolutionKind string

const (
	ResolutionSingle ResolutionKind = "single"
	ResolutionGroup  ResolutionKind = "group"
)

// Resolution is the outcome of looking up a scanned code.
type Resolution struct {
	Kind    ResolutionKind `json:"kind"`
	Code    string         `json:"code"`
	Tickets []Ticket       `json:"tickets"`
	Event   *Event         `json:"event,omitempty"`
	// Legacy is set when the code was an old multi-line ticket payload.
	Legacy bool `json:"legacy,omitempty"`
}

// CheckInResult reports the ticket after a check-in attempt.
type CheckInResult struct {
	Ticket           Ticket `json:"ticket"`
	AlreadyCheckedIn bool   `json:"alreadyCheckedIn"`
}
