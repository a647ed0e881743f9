package models

import (
	"time"

	"github.com/uptrace/bun"
)

type ApplicationStatus string

const (
	StatusPending  ApplicationStatus = "PENDING"
	StatusApproved ApplicationStatus = "APPROVED"
	StatusRejected ApplicationStatus = "REJECTED"
)

type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// Status is the application status a decision moves a pending application to.
func (d Decision) Status() (ApplicationStatus, bool) {
	switch d {
	case DecisionApprove:
		return StatusApproved, true
	case DecisionReject:
		return StatusRejected, true
	}
	return "", false
}

// StaffApplication is a staff member's request to validate tickets for one event.
type StaffApplication struct {
	bun.BaseModel `bun:"table:staff_applications"`

	ID        string            `bun:"id,pk" json:"id"`
	EventID   string            `bun:"event_id,notnull,unique:staff_applications_event_staff" json:"eventId"`
	StaffID   string            `bun:"staff_id,notnull,unique:staff_applications_event_staff" json:"staffId"`
	Status    ApplicationStatus `bun:"status,notnull" json:"status"`
	Token     string            `bun:"token,notnull" json:"-"`
	CreatedAt time.Time         `bun:"created_at,notnull" json:"createdAt"`
	DecidedAt time.Time         `bun:"decided_at,nullzero" json:"decidedAt,omitempty"`
}
