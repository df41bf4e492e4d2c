package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	FollowUpPending   = "pending"
	FollowUpChecked   = "checked"
	FollowUpUpdated   = "updated"
	FollowUpNoChange  = "no_change"
	FollowUpAwarded   = "awarded"
	FollowUpLost      = "lost"
	FollowUpCancelled = "cancelled"
)

// TerminalFollowUpStatus reports whether the reconciler must never
// touch this follow-up again.
func TerminalFollowUpStatus(status string) bool {
	switch status {
	case FollowUpNoChange, FollowUpAwarded, FollowUpLost, FollowUpCancelled:
		return true
	}
	return false
}

// FollowUp tracks one submission after it leaves our hands: the
// reconciler re-checks the source until a terminal status or until
// MaxChecks is exhausted.
type FollowUp struct {
	ID                 uuid.UUID  `json:"id"`
	SubmissionID       uuid.UUID  `json:"submission_id"`
	OpportunityID      uuid.UUID  `json:"opportunity_id"`
	Status             string     `json:"status"`
	AutoCheck          bool       `json:"auto_check"`
	PortalStatus       string     `json:"portal_status"`
	NextCheckAt        time.Time  `json:"next_check_at"`
	CheckIntervalHours int        `json:"check_interval_hours"`
	ChecksPerformed    int        `json:"checks_performed"`
	MaxChecks          int        `json:"max_checks"`
	LastCheckedAt      *time.Time `json:"last_checked_at"`
	AssignedTo         *uuid.UUID `json:"assigned_to"`
	CreatedAt          time.Time  `json:"created_at"`
}

// FollowUpCheck is the append-only audit record of one reconciliation
// attempt. Never updated after insert.
type FollowUpCheck struct {
	ID              uuid.UUID      `json:"id"`
	FollowUpID      uuid.UUID      `json:"follow_up_id"`
	CheckType       string         `json:"check_type"`
	StatusFound     string         `json:"status_found"`
	ChangesDetected bool           `json:"changes_detected"`
	Details         map[string]any `json:"details"`
	CreatedAt       time.Time      `json:"created_at"`
}

type Notification struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	Type       string    `json:"type"`
	Priority   string    `json:"priority"`
	EntityType string    `json:"entity_type"`
	EntityID   uuid.UUID `json:"entity_id"`
	CreatedAt  time.Time `json:"created_at"`
}

type Correspondence struct {
	ID            uuid.UUID `json:"id"`
	SubmissionID  uuid.UUID `json:"submission_id"`
	OpportunityID uuid.UUID `json:"opportunity_id"`
	Type          string    `json:"type"`
	Status        string    `json:"status"`
	Subject       string    `json:"subject"`
	Body          string    `json:"body"`
	Source        string    `json:"source"`
	CreatedAt     time.Time `json:"created_at"`
}
