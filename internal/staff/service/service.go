package staff

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/url"
	"time"

	"ticketnepal/internal/clock"
	"ticketnepal/internal/database"
	"ticketnepal/internal/kafka"
	"ticketnepal/internal/logger"
	"ticketnepal/internal/metrics"
	"ticketnepal/internal/models"
	"ticketnepal/internal/notification"
	"ticketnepal/internal/utils"
)

const tokenBytes = 32

type ApplicationStore interface {
	CreateApplication(ctx context.Context, app *models.StaffApplication) error
	GetApplication(ctx context.Context, eventID, staffID string) (*models.StaffApplication, error)
	Decide(ctx context.Context, id string, status models.ApplicationStatus, at time.Time) (bool, error)
	ListApprovedEventIDs(ctx context.Context, staffID string) ([]string, error)
}

type EventReader interface {
	GetEvent(ctx context.Context, id string) (*models.Event, error)
}

type UserDirectory interface {
	FindUser(ctx context.Context, id string) (*models.User, error)
}

type DecisionPublisher interface {
	StaffDecided(ctx context.Context, ev kafka.StaffDecidedEvent) error
}

// StaffService runs the apply and approve flow for door staff.
type StaffService struct {
	DB        ApplicationStore
	Events    EventReader
	Users     UserDirectory
	Notifier  notification.Notifier
	Publisher DecisionPublisher
	Clock     clock.Clock
	Logger    *logger.Logger
	// BaseURL is where the decision links in organizer emails point.
	BaseURL string
	// StoreTimeout bounds the store work of each call. Zero means no extra bound.
	StoreTimeout time.Duration
}

func NewStaffService(db ApplicationStore, events EventReader, users UserDirectory, notifier notification.Notifier,
	publisher DecisionPublisher, clk clock.Clock, log *logger.Logger, baseURL string) *StaffService {
	return &StaffService{
		DB:        db,
		Events:    events,
		Users:     users,
		Notifier:  notifier,
		Publisher: publisher,
		Clock:     clk,
		Logger:    log,
		BaseURL:   baseURL,
	}
}

// ApplyAsStaff records a pending application and emails the event's
// organizer a pair of one-click decision links.
func (s *StaffService) ApplyAsStaff(ctx context.Context, eventID, staffID string) (*models.StaffApplication, error) {
	storeCtx, cancel := database.WithTimeout(ctx, s.StoreTimeout)
	defer cancel()

	staff, err := s.Users.FindUser(storeCtx, staffID)
	if err != nil {
		return nil, reference(err, "staff "+staffID)
	}
	if staff.Role != models.RoleStaff {
		return nil, fmt.Errorf("%w: only staff accounts can apply", models.ErrForbidden)
	}
	event, err := s.Events.GetEvent(storeCtx, eventID)
	if err != nil {
		return nil, reference(err, "event "+eventID)
	}

	token, err := utils.GenerateToken(tokenBytes)
	if err != nil {
		return nil, err
	}
	app := &models.StaffApplication{
		ID:        utils.GenerateID(),
		EventID:   eventID,
		StaffID:   staffID,
		Status:    models.StatusPending,
		Token:     token,
		CreatedAt: s.Clock.Now(),
	}
	if err := s.DB.CreateApplication(storeCtx, app); err != nil {
		return nil, err
	}
	s.Logger.Info("STAFF", fmt.Sprintf("Staff %s applied for event %s", staffID, eventID))

	s.notifyOrganizer(ctx, event, staff, app)
	return app, nil
}

func (s *StaffService) notifyOrganizer(ctx context.Context, event *models.Event, staff *models.User, app *models.StaffApplication) {
	if s.Notifier == nil {
		return
	}
	organizer, err := s.Users.FindUser(ctx, event.OrganizerID)
	if err != nil {
		s.Logger.Warn("STAFF", fmt.Sprintf("Organizer %s of event %s not found, application email skipped: %v", event.OrganizerID, event.ID, err))
		return
	}
	email := notification.StaffApplicationEmail(organizer, staff, event,
		s.DecisionURL(app, models.DecisionApprove), s.DecisionURL(app, models.DecisionReject))
	if err := s.Notifier.Send(ctx, email); err != nil {
		s.Logger.Warn("STAFF", fmt.Sprintf("Application email for %s not sent: %v", app.ID, err))
	}
}

// DecisionURL is the link an organizer clicks to approve or reject.
func (s *StaffService) DecisionURL(app *models.StaffApplication, d models.Decision) string {
	q := url.Values{}
	q.Set("eventId", app.EventID)
	q.Set("staffId", app.StaffID)
	q.Set("token", app.Token)
	q.Set("decision", string(d))
	return s.BaseURL + "/api/staff/applications/decide?" + q.Encode()
}

// DecideStaffApplication applies an organizer's decision. Once decided, an
// application keeps its status; repeated clicks return it unchanged.
func (s *StaffService) DecideStaffApplication(ctx context.Context, eventID, staffID, token string, decision models.Decision) (*models.StaffApplication, error) {
	status, ok := decision.Status()
	if !ok {
		return nil, fmt.Errorf("%w: unknown decision %q", models.ErrInvalidInput, decision)
	}
	ctx, cancel := database.WithTimeout(ctx, s.StoreTimeout)
	defer cancel()

	app, err := s.DB.GetApplication(ctx, eventID, staffID)
	if err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare([]byte(app.Token), []byte(token)) != 1 {
		s.Logger.LogSecurity("STAFF_TOKEN", fmt.Sprintf("Bad decision token for application %s", app.ID))
		return nil, models.ErrInvalidToken
	}
	if app.Status != models.StatusPending {
		return app, nil
	}

	now := s.Clock.Now()
	changed, err := s.DB.Decide(ctx, app.ID, status, now)
	if err != nil {
		return nil, err
	}
	if !changed {
		// a concurrent click decided first
		return s.DB.GetApplication(ctx, eventID, staffID)
	}

	app.Status = status
	app.DecidedAt = now
	metrics.RecordStaffDecision(string(decision))
	s.Logger.Info("STAFF", fmt.Sprintf("Application %s %s", app.ID, status))

	if s.Publisher != nil {
		err := s.Publisher.StaffDecided(ctx, kafka.StaffDecidedEvent{
			ApplicationID: app.ID,
			EventID:       app.EventID,
			StaffID:       app.StaffID,
			Status:        app.Status,
			DecidedAt:     now,
		})
		if err != nil {
			s.Logger.Warn("KAFKA", fmt.Sprintf("Staff decision for %s not published: %v", app.ID, err))
		}
	}
	return app, nil
}

// ListApprovedEvents returns the live events a staff member may scan for.
func (s *StaffService) ListApprovedEvents(ctx context.Context, staffID string) ([]models.Event, error) {
	ctx, cancel := database.WithTimeout(ctx, s.StoreTimeout)
	defer cancel()
	ids, err := s.DB.ListApprovedEventIDs(ctx, staffID)
	if err != nil {
		return nil, err
	}
	events := make([]models.Event, 0, len(ids))
	for _, id := range ids {
		e, err := s.Events.GetEvent(ctx, id)
		if errors.Is(err, models.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	return events, nil
}

func reference(err error, what string) error {
	if errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("%w: %s", models.ErrInvalidReference, what)
	}
	return err
}
