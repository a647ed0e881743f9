package events

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ticketnepal/internal/clock"
	"ticketnepal/internal/database"
	"ticketnepal/internal/kafka"
	"ticketnepal/internal/logger"
	"ticketnepal/internal/metrics"
	"ticketnepal/internal/models"
	staff "ticketnepal/internal/staff/service"
	"ticketnepal/internal/utils"

	"github.com/shopspring/decimal"
)

// ExpiryGrace is how long after its end an event stays live.
const ExpiryGrace = 24 * time.Hour

type EventDBLayer interface {
	CreateEvent(ctx context.Context, e *models.Event) error
	GetEvent(ctx context.Context, id string) (*models.Event, error)
	GetEventIncludingDeleted(ctx context.Context, id string) (*models.Event, error)
	ListSweepCandidates(ctx context.Context) ([]models.Event, error)
	SoftDelete(ctx context.Context, ids []string) (int, error)
	DeleteWithTickets(ctx context.Context, id string) (int, error)
}

// TicketStats is the read side of the seat ledger the event views need.
type TicketStats interface {
	CountReserved(ctx context.Context, eventID string) (int, error)
	CountCheckedIn(ctx context.Context, eventID string) (int, error)
	GetTicketCountsForEvent(ctx context.Context, eventID string) ([]models.TicketCount, error)
}

type SweepPublisher interface {
	EventsSwept(ctx context.Context, ev kafka.EventsSweptEvent) error
}

type EventService struct {
	DB        EventDBLayer
	Tickets   TicketStats
	Publisher SweepPublisher
	Clock     clock.Clock
	Logger    *logger.Logger
	// Location is used for event times entered without a UTC offset.
	Location *time.Location
	// StoreTimeout bounds the store work of each call. Zero means no extra bound.
	StoreTimeout time.Duration
}

func NewEventService(db EventDBLayer, tickets TicketStats, publisher SweepPublisher, clk clock.Clock, log *logger.Logger, loc *time.Location) *EventService {
	if loc == nil {
		loc = time.UTC
	}
	return &EventService{DB: db, Tickets: tickets, Publisher: publisher, Clock: clk, Logger: log, Location: loc}
}

// EventInput is what an organizer submits for a new event.
type EventInput struct {
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	Location    string          `json:"location"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Seats       []string        `json:"seats"`
	Start       string          `json:"eventStart"`
	End         string          `json:"eventEnd"`
}

// CreateEvent stores a new event owned by the acting organizer. Start and end
// are kept as entered and also normalized to UTC; a value that does not
// parse leaves the normalized field empty.
func (s *EventService) CreateEvent(ctx context.Context, actor models.Actor, in EventInput) (*models.Event, error) {
	if actor.Role != models.RoleOrganizer && actor.Role != models.RoleAdmin {
		return nil, fmt.Errorf("%w: only organizers create events", models.ErrForbidden)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: event name is required", models.ErrInvalidInput)
	}
	if in.Price.IsNegative() {
		return nil, fmt.Errorf("%w: negative price", models.ErrInvalidInput)
	}

	e := &models.Event{
		ID:          utils.GenerateID(),
		Name:        name,
		Category:    in.Category,
		Location:    in.Location,
		Description: in.Description,
		OrganizerID: actor.UserID,
		Price:       in.Price,
		Income:      decimal.Zero,
		Seats:       in.Seats,
		StartRaw:    in.Start,
		EndRaw:      in.End,
		CreatedAt:   s.Clock.Now(),
	}
	if t, err := utils.ParseEventTime(in.Start, s.Location); err == nil {
		e.StartsAt = t
	}
	if t, err := utils.ParseEventTime(in.End, s.Location); err == nil {
		e.EndsAt = t
	} else if in.End != "" {
		s.Logger.Warn("EVENT", fmt.Sprintf("End time %q of event %s not understood, it will never expire", in.End, e.ID))
	}

	storeCtx, cancel := database.WithTimeout(ctx, s.StoreTimeout)
	defer cancel()
	if err := s.DB.CreateEvent(storeCtx, e); err != nil {
		return nil, err
	}
	s.Logger.Info("EVENT", fmt.Sprintf("Event %s created by %s", e.ID, actor.UserID))
	return e, nil
}

// SweepExpiredEvents soft-deletes every live event that ended more than
// ExpiryGrace ago. Tickets, income and counts are kept.
func (s *EventService) SweepExpiredEvents(ctx context.Context) (int, error) {
	ctx, cancel := database.WithTimeout(ctx, s.StoreTimeout)
	defer cancel()

	now := s.Clock.Now()
	candidates, err := s.DB.ListSweepCandidates(ctx)
	if err != nil {
		return 0, err
	}

	var expired []string
	for _, e := range candidates {
		if e.Ended(now.Add(-ExpiryGrace)) {
			expired = append(expired, e.ID)
		}
	}
	if len(expired) == 0 {
		return 0, nil
	}

	n, err := s.DB.SoftDelete(ctx, expired)
	if err != nil {
		return 0, err
	}
	metrics.RecordSweep(n)
	s.Logger.LogProcess("SWEEP", fmt.Sprintf("Soft-deleted %d expired event(s)", n))

	if s.Publisher != nil && n > 0 {
		if err := s.Publisher.EventsSwept(ctx, kafka.EventsSweptEvent{EventIDs: expired, SweptAt: now}); err != nil {
			s.Logger.Warn("KAFKA", fmt.Sprintf("Sweep result not published: %v", err))
		}
	}
	return n, nil
}

// DeleteEvent removes an event on request of its organizer or an admin.
// Events that sold tickets can only be deleted once they are over.
func (s *EventService) DeleteEvent(ctx context.Context, actor models.Actor, eventID string) (int, error) {
	ctx, cancel := database.WithTimeout(ctx, s.StoreTimeout)
	defer cancel()
	event, err := s.DB.GetEvent(ctx, eventID)
	if err != nil {
		return 0, err
	}
	if !staff.CanManageEvent(actor, event) {
		return 0, models.ErrForbidden
	}

	sold, err := s.Tickets.CountReserved(ctx, eventID)
	if err != nil {
		return 0, err
	}
	if sold > 0 && !event.Ended(s.Clock.Now()) {
		return 0, fmt.Errorf("%w: event %s has %d ticket(s) and has not ended", models.ErrInvalidInput, eventID, sold)
	}

	removed, err := s.DB.DeleteWithTickets(ctx, eventID)
	if err != nil {
		return 0, err
	}
	s.Logger.Info("EVENT", fmt.Sprintf("Event %s deleted by %s with %d ticket(s)", eventID, actor.UserID, removed))
	return removed, nil
}

func (s *EventService) EventStats(ctx context.Context, actor models.Actor, eventID string) (*models.EventStats, error) {
	ctx, cancel := database.WithTimeout(ctx, s.StoreTimeout)
	defer cancel()
	event, err := s.DB.GetEventIncludingDeleted(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !staff.CanManageEvent(actor, event) {
		return nil, models.ErrForbidden
	}

	sold, err := s.Tickets.CountReserved(ctx, eventID)
	if err != nil {
		return nil, err
	}
	checkedIn, err := s.Tickets.CountCheckedIn(ctx, eventID)
	if err != nil {
		return nil, err
	}
	daily, err := s.Tickets.GetTicketCountsForEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return &models.EventStats{
		EventID:     eventID,
		Income:      event.Income,
		TicketsSold: sold,
		CheckedIn:   checkedIn,
		Daily:       daily,
	}, nil
}
