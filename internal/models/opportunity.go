package models

import (
	"time"

	"github.com/google/uuid"
)

// Opportunity statuses after source normalization.
const (
	OppStatusOpen         = "open"
	OppStatusAwarded      = "awarded"
	OppStatusCancelled    = "cancelled"
	OppStatusDisqualified = "disqualified"
)

type Opportunity struct {
	ID             uuid.UUID  `json:"id"`
	ExternalRef    string     `json:"external_ref"`
	Source         string     `json:"source"`
	Title          string     `json:"title"`
	Agency         string     `json:"agency"`
	Description    string     `json:"description"`
	NAICSCode      string     `json:"naics_code"`
	SetAside       string     `json:"set_aside"`
	PostedDate     *time.Time `json:"posted_date"`
	DueDate        *time.Time `json:"due_date"`
	EstimatedValue float64    `json:"estimated_value"`
	Status         string     `json:"status"`
	FitScore       *int       `json:"fit_score"`
	EffortScore    *int       `json:"effort_score"`
	UrgencyScore   *int       `json:"urgency_score"`
	AISummary      string     `json:"ai_summary"`
	URL            string     `json:"url"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Qualified reports whether AI scoring has already populated this record.
func (o Opportunity) Qualified() bool {
	return o.FitScore != nil && o.EffortScore != nil && o.UrgencyScore != nil
}

// DiscoveryRun is the bookkeeping record for one discovery sync.
type DiscoveryRun struct {
	ID          uuid.UUID `json:"id"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	Status      string    `json:"status"`
	Fetched     int       `json:"fetched"`
	Inserted    int       `json:"inserted"`
	Updated     int       `json:"updated"`
	Error       string    `json:"error,omitempty"`
}

// QualificationResult holds the scores produced for one opportunity.
// Each score is clamped to [0,100] before the result is returned or cached.
type QualificationResult struct {
	FitScore     int               `json:"fit_score"`
	EffortScore  int               `json:"effort_score"`
	UrgencyScore int               `json:"urgency_score"`
	Summary      string            `json:"summary"`
	Reasoning    map[string]string `json:"reasoning"`
	Personalized bool              `json:"personalized"`
}
