package staff

import (
	"context"
	"errors"
	"fmt"

	"ticketnepal/internal/models"
)

type EventOwnerLookup interface {
	GetEventIncludingDeleted(ctx context.Context, id string) (*models.Event, error)
}

type ApprovalChecker interface {
	IsApproved(ctx context.Context, eventID, staffID string) (bool, error)
}

// Gate decides who may validate a ticket: admins always, organizers for
// their own events, staff once an organizer approved them for the event.
type Gate struct {
	Events    EventOwnerLookup
	Approvals ApprovalChecker
}

func NewGate(events EventOwnerLookup, approvals ApprovalChecker) *Gate {
	return &Gate{Events: events, Approvals: approvals}
}

// Authorize has no side effects. Errors are storage failures only.
func (g *Gate) Authorize(ctx context.Context, actor models.Actor, ticket *models.Ticket) (bool, error) {
	if ticket == nil || actor.UserID == "" {
		return false, nil
	}

	switch actor.Role {
	case models.RoleAdmin:
		return true, nil

	case models.RoleOrganizer:
		event, err := g.Events.GetEventIncludingDeleted(ctx, ticket.EventID)
		if errors.Is(err, models.ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("load event for authorization: %w", err)
		}
		return OwnsEvent(actor, event), nil

	case models.RoleStaff:
		ok, err := g.Approvals.IsApproved(ctx, ticket.EventID, actor.UserID)
		if err != nil {
			return false, fmt.Errorf("check staff approval: %w", err)
		}
		return ok, nil
	}
	return false, nil
}

// OwnsEvent reports whether actor is the organizer of event.
func OwnsEvent(actor models.Actor, event *models.Event) bool {
	return actor.Role == models.RoleOrganizer && event != nil && event.OrganizerID == actor.UserID
}

// CanManageEvent allows admins and the owning organizer.
func CanManageEvent(actor models.Actor, event *models.Event) bool {
	return actor.Role == models.RoleAdmin || OwnsEvent(actor, event)
}
