package tickets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ticketnepal/internal/clock"
	"ticketnepal/internal/database"
	"ticketnepal/internal/kafka"
	"ticketnepal/internal/logger"
	"ticketnepal/internal/metrics"
	"ticketnepal/internal/models"
	"ticketnepal/internal/notification"
	qr "ticketnepal/internal/tickets/qr_generator"
	ticketdb "ticketnepal/internal/tickets/db"
	"ticketnepal/internal/utils"

	"github.com/shopspring/decimal"
)

type TicketDBLayer interface {
	CreateBooking(ctx context.Context, b ticketdb.Booking) ([]models.Ticket, error)
	GetTicketByID(ctx context.Context, id string) (*models.Ticket, error)
	GetTicketsByQRCode(ctx context.Context, code string) ([]models.Ticket, error)
	GetTicketsByTransaction(ctx context.Context, transactionID string) ([]models.Ticket, error)
	GetTicketsByIDs(ctx context.Context, ids []string) ([]models.Ticket, error)
	GetTicketsByUser(ctx context.Context, userID string) ([]models.Ticket, error)
	ListReservedSeats(ctx context.Context, eventID string) ([]string, error)
	MarkCheckedIn(ctx context.Context, ticketID, by string, at time.Time) (bool, error)
	GetTotalTicketsCount(ctx context.Context) (int, error)
}

type EventLookup interface {
	GetEvent(ctx context.Context, id string) (*models.Event, error)
	GetEventIncludingDeleted(ctx context.Context, id string) (*models.Event, error)
}

type UserDirectory interface {
	FindUser(ctx context.Context, id string) (*models.User, error)
}

// Authorizer decides whether an actor may validate a ticket.
type Authorizer interface {
	Authorize(ctx context.Context, actor models.Actor, ticket *models.Ticket) (bool, error)
}

// SeatHolder places advisory holds in front of the booking transaction.
type SeatHolder interface {
	HoldSeats(ctx context.Context, eventID string, seats []string, holder string) (string, error)
	ReleaseSeats(ctx context.Context, eventID string, seats []string, holder string) error
}

type QRCodec interface {
	Encode(payload string, width, height int) ([]byte, error)
	EncodeGroup(groupID string, width, height int) ([]byte, error)
}

type PDFRenderer interface {
	Generate(event *models.Event, holder string, tickets []models.Ticket, qrPNG []byte) ([]byte, error)
}

type EventPublisher interface {
	TicketsBooked(ctx context.Context, ev kafka.TicketsBookedEvent) error
	TicketCheckedIn(ctx context.Context, ev kafka.TicketCheckedInEvent) error
}

type TicketService struct {
	DB        TicketDBLayer
	Events    EventLookup
	Users     UserDirectory
	Gate      Authorizer
	Holds     SeatHolder
	QR        QRCodec
	PDF       PDFRenderer
	Notifier  notification.Notifier
	Publisher EventPublisher
	Clock     clock.Clock
	Logger    *logger.Logger
	QRSize    int
	// StoreTimeout bounds every operation's store work. Zero means no extra bound.
	StoreTimeout time.Duration
}

type Option func(*TicketService)

func WithSeatHolds(h SeatHolder) Option { return func(s *TicketService) { s.Holds = h } }

func WithPDF(r PDFRenderer) Option { return func(s *TicketService) { s.PDF = r } }

func WithNotifier(n notification.Notifier) Option { return func(s *TicketService) { s.Notifier = n } }

func WithPublisher(p EventPublisher) Option { return func(s *TicketService) { s.Publisher = p } }

func WithClock(c clock.Clock) Option { return func(s *TicketService) { s.Clock = c } }

func WithLogger(l *logger.Logger) Option { return func(s *TicketService) { s.Logger = l } }

func WithQRSize(n int) Option { return func(s *TicketService) { s.QRSize = n } }

func WithStoreTimeout(d time.Duration) Option { return func(s *TicketService) { s.StoreTimeout = d } }

func NewTicketService(db TicketDBLayer, events EventLookup, users UserDirectory, gate Authorizer, codec QRCodec, opts ...Option) *TicketService {
	s := &TicketService{
		DB:     db,
		Events: events,
		Users:  users,
		Gate:   gate,
		QR:     codec,
		Clock:  clock.NewSystem(),
		Logger: logger.Discard(),
		QRSize: qr.DefaultSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BookSeats reserves every requested seat for userID or none of them. The
// returned QR image encodes the purchase's group id.
func (s *TicketService) BookSeats(ctx context.Context, userID, eventID string, seats []string) (*models.BookingResult, error) {
	started := s.Clock.Now()
	result, err := s.bookSeats(ctx, userID, eventID, seats)
	metrics.RecordBooking(bookingOutcome(err), len(seats), time.Since(started))
	return result, err
}

func (s *TicketService) bookSeats(ctx context.Context, userID, eventID string, seats []string) (*models.BookingResult, error) {
	seats, err := normalizeSeats(seats)
	if err != nil {
		return nil, err
	}

	lookupCtx, cancelLookup := s.bounded(ctx)
	defer cancelLookup()
	user, err := s.Users.FindUser(lookupCtx, userID)
	if err != nil {
		return nil, asReference(err, "user "+userID)
	}
	event, err := s.Events.GetEvent(lookupCtx, eventID)
	if err != nil {
		return nil, asReference(err, "event "+eventID)
	}
	if event.HasInventory() {
		for _, seat := range seats {
			if !event.HasSeat(seat) {
				return nil, fmt.Errorf("%w: seat %s is not part of event %s", models.ErrInvalidInput, seat, eventID)
			}
		}
	}

	groupID := utils.GenerateID()
	qrImage, err := s.QR.EncodeGroup(groupID, s.QRSize, s.QRSize)
	if err != nil {
		return nil, fmt.Errorf("render booking QR: %w", err)
	}

	if s.Holds != nil {
		contested, err := s.Holds.HoldSeats(ctx, eventID, seats, groupID)
		switch {
		case err != nil:
			s.Logger.Warn("REDIS", fmt.Sprintf("Seat holds unavailable for %s, relying on database: %v", groupID, err))
		case contested != "":
			// The holder may still fail for another seat, so the ledger decides.
			s.Logger.LogBooking("HELD", groupID, fmt.Sprintf("Seat %s of event %s is held by another booking, deferring to database", contested, eventID))
		default:
			defer func() {
				if err := s.Holds.ReleaseSeats(context.WithoutCancel(ctx), eventID, seats, groupID); err != nil {
					s.Logger.Warn("REDIS", fmt.Sprintf("Failed to release holds for %s: %v", groupID, err))
				}
			}()
		}
	}

	storeCtx, cancel := s.bounded(ctx)
	defer cancel()
	issued, err := s.DB.CreateBooking(storeCtx, ticketdb.Booking{
		TransactionID: groupID,
		EventID:       eventID,
		UserID:        userID,
		UserName:      user.DisplayName(),
		Seats:         seats,
		UnitPrice:     event.Price,
		IssuedAt:      s.Clock.Now(),
	})
	if err != nil {
		var conflict *models.SeatConflictError
		if errors.As(err, &conflict) {
			s.Logger.LogBooking("CONFLICT", groupID, fmt.Sprintf("Seat %s of event %s already taken", conflict.Seat, eventID))
		}
		return nil, err
	}
	s.Logger.LogBooking("BOOKED", groupID, fmt.Sprintf("%d seat(s) for event %s by user %s", len(issued), eventID, userID))

	result := &models.BookingResult{
		TransactionID: groupID,
		Tickets:       issued,
		QRImage:       qrImage,
	}
	s.afterCommit(ctx, result, user, event, seats)
	return result, nil
}

// afterCommit runs the side effects of a committed booking. Failures are
// reported as warnings and never undo the booking.
func (s *TicketService) afterCommit(ctx context.Context, result *models.BookingResult, user *models.User, event *models.Event, seats []string) {
	warn := func(msg string) {
		result.Warnings = append(result.Warnings, msg)
		s.Logger.Warn("BOOKING", fmt.Sprintf("%s: %s", result.TransactionID, msg))
	}

	if s.Notifier != nil {
		var pdf []byte
		if s.PDF != nil {
			var err error
			pdf, err = s.PDF.Generate(event, user.DisplayName(), result.Tickets, result.QRImage)
			if err != nil {
				warn(fmt.Sprintf("ticket PDF not generated: %v", err))
			}
		}
		if err := s.Notifier.Send(ctx, notification.TicketEmail(user, event, seats, result.QRImage, pdf)); err != nil {
			warn(fmt.Sprintf("ticket email not sent: %v", err))
		}
	}

	if s.Publisher != nil {
		ids := make([]string, len(result.Tickets))
		for i, t := range result.Tickets {
			ids[i] = t.ID
		}
		err := s.Publisher.TicketsBooked(ctx, kafka.TicketsBookedEvent{
			TransactionID: result.TransactionID,
			EventID:       event.ID,
			UserID:        user.ID,
			Seats:         seats,
			TicketIDs:     ids,
			Amount:        event.Price.Mul(decimal.NewFromInt(int64(len(seats)))),
			BookedAt:      result.Tickets[0].IssuedAt,
		})
		if err != nil {
			warn(fmt.Sprintf("booking event not published: %v", err))
		}
	}
}

// Resolve looks up a scanned code. It tries, in order, a ticket id, a group
// code and a transaction id, then falls back to the old multi-line payload.
func (s *TicketService) Resolve(ctx context.Context, code string) (*models.Resolution, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, fmt.Errorf("%w: empty code", models.ErrInvalidInput)
	}
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	ticket, err := s.DB.GetTicketByID(ctx, code)
	switch {
	case err == nil:
		return s.resolution(ctx, code, models.ResolutionSingle, []models.Ticket{*ticket}, false)
	case !errors.Is(err, models.ErrNotFound):
		return nil, err
	}

	byHint, err := s.DB.GetTicketsByQRCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if len(byHint) == 1 {
		return s.resolution(ctx, code, models.ResolutionSingle, byHint, false)
	}
	if len(byHint) > 1 {
		return s.resolution(ctx, code, models.ResolutionGroup, byHint, false)
	}

	byTx, err := s.DB.GetTicketsByTransaction(ctx, code)
	if err != nil {
		return nil, err
	}
	if len(byTx) > 0 {
		return s.resolution(ctx, code, models.ResolutionGroup, byTx, false)
	}

	if ids, ok := parseLegacyPayload(code); ok {
		legacy, err := s.DB.GetTicketsByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		if len(legacy) > 0 {
			return s.resolution(ctx, code, models.ResolutionGroup, legacy, true)
		}
	}
	return nil, fmt.Errorf("%w: no ticket matches code", models.ErrNotFound)
}

func (s *TicketService) resolution(ctx context.Context, code string, kind models.ResolutionKind, tickets []models.Ticket, legacy bool) (*models.Resolution, error) {
	event, err := s.Events.GetEventIncludingDeleted(ctx, tickets[0].EventID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}
	return &models.Resolution{
		Kind:    kind,
		Code:    code,
		Tickets: tickets,
		Event:   event,
		Legacy:  legacy,
	}, nil
}

// CheckIn admits one ticket. A ticket is admitted at most once; later
// attempts succeed with AlreadyCheckedIn set and change nothing.
func (s *TicketService) CheckIn(ctx context.Context, actor models.Actor, ticketID string) (*models.CheckInResult, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()
	ticket, err := s.DB.GetTicketByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, ticket); err != nil {
		return nil, err
	}
	return s.checkIn(ctx, actor, ticket)
}

// CheckInGroup admits every ticket a scanned code resolves to. Access is
// checked for all tickets before any of them is admitted.
func (s *TicketService) CheckInGroup(ctx context.Context, actor models.Actor, code string) ([]models.CheckInResult, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()
	res, err := s.Resolve(ctx, code)
	if err != nil {
		return nil, err
	}
	for i := range res.Tickets {
		if err := s.authorize(ctx, actor, &res.Tickets[i]); err != nil {
			return nil, err
		}
	}

	results := make([]models.CheckInResult, 0, len(res.Tickets))
	for i := range res.Tickets {
		r, err := s.checkIn(ctx, actor, &res.Tickets[i])
		if err != nil {
			return nil, err
		}
		results = append(results, *r)
	}
	return results, nil
}

func (s *TicketService) authorize(ctx context.Context, actor models.Actor, ticket *models.Ticket) error {
	ok, err := s.Gate.Authorize(ctx, actor, ticket)
	if err != nil {
		return err
	}
	if !ok {
		metrics.RecordCheckIn(metrics.CheckInForbidden)
		s.Logger.LogSecurity("CHECKIN_DENIED", fmt.Sprintf("%s %s may not validate ticket %s", actor.Role, actor.UserID, ticket.ID))
		return fmt.Errorf("%w: not allowed to validate tickets for event %s", models.ErrForbidden, ticket.EventID)
	}
	return nil
}

func (s *TicketService) checkIn(ctx context.Context, actor models.Actor, ticket *models.Ticket) (*models.CheckInResult, error) {
	if ticket.CheckedIn {
		metrics.RecordCheckIn(metrics.CheckInDuplicate)
		return &models.CheckInResult{Ticket: *ticket, AlreadyCheckedIn: true}, nil
	}

	now := s.Clock.Now().UTC()
	changed, err := s.DB.MarkCheckedIn(ctx, ticket.ID, actor.UserID, now)
	if err != nil {
		return nil, err
	}
	if !changed {
		// lost the race to another scanner
		current, err := s.DB.GetTicketByID(ctx, ticket.ID)
		if err != nil {
			return nil, err
		}
		metrics.RecordCheckIn(metrics.CheckInDuplicate)
		return &models.CheckInResult{Ticket: *current, AlreadyCheckedIn: true}, nil
	}

	ticket.CheckedIn = true
	ticket.CheckedInAt = now
	ticket.CheckedInBy = actor.UserID
	metrics.RecordCheckIn(metrics.CheckInAdmitted)
	s.Logger.LogCheckIn("ADMITTED", ticket.ID, fmt.Sprintf("Seat %s of event %s by %s", ticket.Seat, ticket.EventID, actor.UserID))

	if s.Publisher != nil {
		err := s.Publisher.TicketCheckedIn(ctx, kafka.TicketCheckedInEvent{
			TicketID:      ticket.ID,
			EventID:       ticket.EventID,
			TransactionID: ticket.TransactionID,
			Seat:          ticket.Seat,
			CheckedInBy:   actor.UserID,
			CheckedInAt:   now,
		})
		if err != nil {
			s.Logger.Warn("KAFKA", fmt.Sprintf("Check-in of %s not published: %v", ticket.ID, err))
		}
	}
	return &models.CheckInResult{Ticket: *ticket}, nil
}

// GetTicket returns a ticket to its holder, an admin, or anyone allowed to validate it.
func (s *TicketService) GetTicket(ctx context.Context, actor models.Actor, ticketID string) (*models.Ticket, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()
	ticket, err := s.DB.GetTicketByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.UserID == actor.UserID || actor.Role == models.RoleAdmin {
		return ticket, nil
	}
	ok, err := s.Gate.Authorize(ctx, actor, ticket)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.ErrForbidden
	}
	return ticket, nil
}

func (s *TicketService) TicketsForUser(ctx context.Context, actor models.Actor, userID string) ([]models.Ticket, error) {
	if actor.UserID != userID && actor.Role != models.RoleAdmin {
		return nil, models.ErrForbidden
	}
	ctx, cancel := s.bounded(ctx)
	defer cancel()
	return s.DB.GetTicketsByUser(ctx, userID)
}

// ListReservedSeats returns the seats of an event that already have a ticket.
func (s *TicketService) ListReservedSeats(ctx context.Context, eventID string) ([]string, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()
	return s.DB.ListReservedSeats(ctx, eventID)
}

// TicketQR renders the QR for a single ticket. It encodes the ticket id, not
// the group code, so a scan admits that seat alone. QR images carry no more
// than the code printed on the ticket, so they are served without a login.
func (s *TicketService) TicketQR(ctx context.Context, ticketID string) ([]byte, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()
	ticket, err := s.DB.GetTicketByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	return s.QR.Encode(ticket.ID, s.QRSize, s.QRSize)
}

// GroupQR re-renders the QR handed out at booking time.
func (s *TicketService) GroupQR(ctx context.Context, transactionID string) ([]byte, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()
	tickets, err := s.group(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	return s.QR.EncodeGroup(tickets[0].QRCodeHint, s.QRSize, s.QRSize)
}

// GroupPDF renders the printable ticket for a purchase. Only the buyer and
// admins may download it.
func (s *TicketService) GroupPDF(ctx context.Context, actor models.Actor, transactionID string) ([]byte, error) {
	if s.PDF == nil {
		return nil, fmt.Errorf("%w: PDF tickets are not enabled", models.ErrNotFound)
	}
	ctx, cancel := s.bounded(ctx)
	defer cancel()
	tickets, err := s.group(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if tickets[0].UserID != actor.UserID && actor.Role != models.RoleAdmin {
		return nil, models.ErrForbidden
	}
	event, err := s.Events.GetEventIncludingDeleted(ctx, tickets[0].EventID)
	if err != nil {
		return nil, err
	}
	qrPNG, err := s.QR.EncodeGroup(tickets[0].QRCodeHint, s.QRSize, s.QRSize)
	if err != nil {
		return nil, err
	}
	return s.PDF.Generate(event, tickets[0].UserName, tickets, qrPNG)
}

func (s *TicketService) group(ctx context.Context, transactionID string) ([]models.Ticket, error) {
	tickets, err := s.DB.GetTicketsByTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if len(tickets) == 0 {
		return nil, fmt.Errorf("%w: transaction %s", models.ErrNotFound, transactionID)
	}
	return tickets, nil
}

func (s *TicketService) TotalTickets(ctx context.Context) (int, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()
	return s.DB.GetTotalTicketsCount(ctx)
}

func (s *TicketService) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	return database.WithTimeout(ctx, s.StoreTimeout)
}

// normalizeSeats trims labels and rejects blanks and repeats, keeping order.
func normalizeSeats(seats []string) ([]string, error) {
	if len(seats) == 0 {
		return nil, models.ErrEmptyRequest
	}
	out := make([]string, 0, len(seats))
	seen := make(map[string]struct{}, len(seats))
	for _, raw := range seats {
		seat := strings.TrimSpace(raw)
		if seat == "" {
			return nil, fmt.Errorf("%w: blank seat label", models.ErrInvalidInput)
		}
		if _, dup := seen[seat]; dup {
			return nil, fmt.Errorf("%w: seat %s requested twice", models.ErrInvalidInput, seat)
		}
		seen[seat] = struct{}{}
		out = append(out, seat)
	}
	return out, nil
}

func asReference(err error, what string) error {
	if errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("%w: %s", models.ErrInvalidReference, what)
	}
	return err
}

func bookingOutcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeBooked
	case errors.Is(err, models.ErrSeatConflict):
		return metrics.OutcomeConflict
	case errors.Is(err, models.ErrInvalidInput), errors.Is(err, models.ErrEmptyRequest), errors.Is(err, models.ErrInvalidReference):
		return metrics.OutcomeRejected
	}
	return metrics.OutcomeFailed
}
