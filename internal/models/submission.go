package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	SubmissionDraft           = "draft"
	SubmissionPendingApproval = "pending_approval"
	SubmissionApproved        = "approved"
	SubmissionSubmitted       = "submitted"
	SubmissionRejected        = "rejected"
	SubmissionAwarded         = "awarded"
)

// TerminalSubmissionStatus reports whether no further automatic
// transition applies. At most one non-terminal submission may exist
// per opportunity.
func TerminalSubmissionStatus(status string) bool {
	return status == SubmissionRejected || status == SubmissionAwarded
}

type Submission struct {
	ID               uuid.UUID         `json:"id"`
	OpportunityID    uuid.UUID         `json:"opportunity_id"`
	OwnerID          uuid.UUID         `json:"owner_id"`
	Title            string            `json:"title"`
	Portal           string            `json:"portal"`
	Status           string            `json:"status"`
	ApprovalStatus   string            `json:"approval_status"`
	DueDate          *time.Time        `json:"due_date"`
	Notes            string            `json:"notes"`
	ProposalSections map[string]string `json:"proposal_sections,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// SubmissionTask is one of the five fixed workflow tasks. Position is
// 0-based; tasks at position 2 and above start locked and unlock as
// their dependencies complete.
type SubmissionTask struct {
	ID          uuid.UUID  `json:"id"`
	SubmissionID uuid.UUID `json:"submission_id"`
	Position    int        `json:"position"`
	Title       string     `json:"title"`
	Subtitle    string     `json:"subtitle"`
	Locked      bool       `json:"locked"`
	Completed   bool       `json:"completed"`
	CompletedBy *uuid.UUID `json:"completed_by"`
	CompletedAt *time.Time `json:"completed_at"`
}

const (
	StepPending  = "pending"
	StepApproved = "approved"
)

// ApprovalStep is one ordered sign-off gate. Step n may be approved
// only after every step with a smaller StepOrder.
type ApprovalStep struct {
	ID           uuid.UUID  `json:"id"`
	SubmissionID uuid.UUID  `json:"submission_id"`
	StepName     string     `json:"step_name"`
	StepOrder    int        `json:"step_order"`
	Status       string     `json:"status"`
	ApproverRole string     `json:"approver_role"`
	ApproverID   *uuid.UUID `json:"approver_id"`
	ApprovedAt   *time.Time `json:"approved_at"`
	Notes        string     `json:"notes"`
}
