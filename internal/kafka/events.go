package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ticketnepal/internal/config"
	"ticketnepal/internal/models"

	"github.com/shopspring/decimal"
)

// Publisher is satisfied by Producer and LogPublisher.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, value []byte) error
}

type TicketsBookedEvent struct {
	TransactionID string          `json:"transactionId"`
	EventID       string          `json:"eventId"`
	UserID        string          `json:"userId"`
	Seats         []string        `json:"seats"`
	TicketIDs     []string        `json:"ticketIds"`
	Amount        decimal.Decimal `json:"amount"`
	BookedAt      time.Time       `json:"bookedAt"`
}

type TicketCheckedInEvent struct {
	TicketID      string    `json:"ticketId"`
	EventID       string    `json:"eventId"`
	TransactionID string    `json:"transactionId"`
	Seat          string    `json:"seat"`
	CheckedInBy   string    `json:"checkedInBy"`
	CheckedInAt   time.Time `json:"checkedInAt"`
}

type StaffDecidedEvent struct {
	ApplicationID string                   `json:"applicationId"`
	EventID       string                   `json:"eventId"`
	StaffID       string                   `json:"staffId"`
	Status        models.ApplicationStatus `json:"status"`
	DecidedAt     time.Time                `json:"decidedAt"`
}

type EventsSweptEvent struct {
	EventIDs []string  `json:"eventIds"`
	SweptAt  time.Time `json:"sweptAt"`
}

// Emitter turns domain changes into JSON messages on the configured topics.
type Emitter struct {
	publisher Publisher
	topics    config.TopicConfig
}

func NewEmitter(p Publisher, topics config.TopicConfig) *Emitter {
	return &Emitter{publisher: p, topics: topics}
}

func (e *Emitter) TicketsBooked(ctx context.Context, ev TicketsBookedEvent) error {
	return e.emit(ctx, e.topics.TicketsBooked, ev.EventID, ev)
}

func (e *Emitter) TicketCheckedIn(ctx context.Context, ev TicketCheckedInEvent) error {
	return e.emit(ctx, e.topics.TicketsCheckedIn, ev.EventID, ev)
}

func (e *Emitter) StaffDecided(ctx context.Context, ev StaffDecidedEvent) error {
	return e.emit(ctx, e.topics.StaffDecided, ev.EventID, ev)
}

func (e *Emitter) EventsSwept(ctx context.Context, ev EventsSweptEvent) error {
	return e.emit(ctx, e.topics.EventsSwept, "sweep", ev)
}

func (e *Emitter) emit(ctx context.Context, topic, key string, v interface{}) error {
	value, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s message: %w", topic, err)
	}
	return e.publisher.Publish(ctx, topic, key, value)
}
