package followup

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/procura/backend/internal/models"
)

// StatusResult is the normalized answer from a source re-check.
type StatusResult struct {
	StatusText string         `json:"status_text"`
	Raw        map[string]any `json:"raw,omitempty"`
}

// SourceStatusProvider re-fetches the current status of an opportunity
// from its originating source.
type SourceStatusProvider interface {
	FetchCurrentStatus(ctx context.Context, externalRef, source string) (StatusResult, error)
}

// Store is the persistence slice the reconciler needs. *db.Store
// satisfies it.
type Store interface {
	ListDueFollowUps(ctx context.Context, now time.Time) ([]models.FollowUp, error)
	SetFollowUpStatus(ctx context.Context, id uuid.UUID, status string) error
	RecordFollowUpCheck(ctx context.Context, id uuid.UUID, status, portalStatus string, checksPerformed int, nextCheckAt, checkedAt time.Time) error
	InsertFollowUpCheck(ctx context.Context, check models.FollowUpCheck) error
	InsertNotification(ctx context.Context, n models.Notification) error
	InsertCorrespondence(ctx context.Context, c models.Correspondence) error
	GetOpportunity(ctx context.Context, id uuid.UUID) (*models.Opportunity, error)
	GetSubmission(ctx context.Context, id uuid.UUID) (*models.Submission, error)
	SetOpportunityStatus(ctx context.Context, id uuid.UUID, status string) error
}

type Stats struct {
	Checked int `json:"checked"`
	Updated int `json:"updated"`
}

// Reconciler periodically re-checks submitted opportunities against
// their source and drives award detection.
type Reconciler struct {
	store  Store
	source SourceStatusProvider
}

func NewReconciler(store Store, source SourceStatusProvider) *Reconciler {
	return &Reconciler{store: store, source: source}
}

// RunDueChecks processes every follow-up whose next check is due.
// Each item is isolated: one failing check is logged and the batch
// continues. A follow-up that has exhausted max_checks transitions to
// the terminal no_change status and is never touched again.
func (r *Reconciler) RunDueChecks(ctx context.Context, now time.Time) (Stats, error) {
	due, err := r.store.ListDueFollowUps(ctx, now)
	if err != nil {
		return Stats{}, fmt.Errorf("listing due follow-ups: %w", err)
	}
	if len(due) == 0 {
		log.Print("[FollowUp] No follow-ups due for checking")
		return Stats{}, nil
	}

	var stats Stats
	for _, fu := range due {
		checked, changed, err := r.checkOne(ctx, fu, now)
		if err != nil {
			log.Printf("[FollowUp] Check failed (follow_up=%s): %v", fu.ID, err)
			continue
		}
		if checked {
			stats.Checked++
		}
		if changed {
			stats.Updated++
		}
	}

	log.Printf("[FollowUp] Checks completed: checked=%d updated=%d", stats.Checked, stats.Updated)
	return stats, nil
}

func (r *Reconciler) checkOne(ctx context.Context, fu models.FollowUp, now time.Time) (checked, changed bool, err error) {
	if fu.ChecksPerformed >= fu.MaxChecks {
		if err := r.store.SetFollowUpStatus(ctx, fu.ID, models.FollowUpNoChange); err != nil {
			return false, false, fmt.Errorf("marking no_change: %w", err)
		}
		log.Printf("[FollowUp] Max checks reached, closing out (follow_up=%s)", fu.ID)
		return false, false, nil
	}

	opp, err := r.store.GetOpportunity(ctx, fu.OpportunityID)
	if err != nil {
		return false, false, fmt.Errorf("loading opportunity: %w", err)
	}
	if opp == nil {
		return false, false, fmt.Errorf("opportunity %s not found", fu.OpportunityID)
	}

	result, err := r.source.FetchCurrentStatus(ctx, opp.ExternalRef, opp.Source)
	if err != nil {
		// Source unreachable: leave the follow-up untouched so the
		// next reconciliation interval retries it.
		log.Printf("[FollowUp] Source unreachable, will retry (follow_up=%s source=%s): %v", fu.ID, opp.Source, err)
		return false, false, nil
	}

	lastKnown := fu.PortalStatus
	if lastKnown == "" {
		lastKnown = opp.Status
	}
	changed = result.StatusText != "" && !strings.EqualFold(result.StatusText, lastKnown)

	// Audit record goes in regardless of outcome.
	if err := r.store.InsertFollowUpCheck(ctx, models.FollowUpCheck{
		FollowUpID:      fu.ID,
		CheckType:       "automated",
		StatusFound:     result.StatusText,
		ChangesDetected: changed,
		Details:         result.Raw,
	}); err != nil {
		return false, false, fmt.Errorf("recording check: %w", err)
	}

	status := models.FollowUpChecked
	if changed {
		status = models.FollowUpUpdated
	}
	nextCheck := now.Add(time.Duration(fu.CheckIntervalHours) * time.Hour)
	if err := r.store.RecordFollowUpCheck(ctx, fu.ID, status, result.StatusText, fu.ChecksPerformed+1, nextCheck, now); err != nil {
		return false, false, fmt.Errorf("updating follow-up: %w", err)
	}

	if !changed {
		return true, false, nil
	}

	if err := r.store.SetOpportunityStatus(ctx, opp.ID, result.StatusText); err != nil {
		log.Printf("[FollowUp] Failed to sync opportunity status (opp=%s): %v", opp.ID, err)
	}

	sub, err := r.store.GetSubmission(ctx, fu.SubmissionID)
	if err != nil || sub == nil {
		sub = &models.Submission{Title: "submission"}
	}

	if fu.AssignedTo != nil {
		if err := r.store.InsertNotification(ctx, models.Notification{
			UserID:     *fu.AssignedTo,
			Title:      "Application Status Update",
			Body:       fmt.Sprintf("Status changed to %q for %s", result.StatusText, sub.Title),
			Type:       "follow_up",
			Priority:   "high",
			EntityType: "follow_up",
			EntityID:   fu.ID,
		}); err != nil {
			log.Printf("[FollowUp] Failed to insert notification (follow_up=%s): %v", fu.ID, err)
		}
	}

	if IsAwardStatus(result.StatusText) {
		if err := r.store.SetFollowUpStatus(ctx, fu.ID, models.FollowUpAwarded); err != nil {
			return true, true, fmt.Errorf("marking awarded: %w", err)
		}
		if err := r.store.InsertCorrespondence(ctx, models.Correspondence{
			SubmissionID:  fu.SubmissionID,
			OpportunityID: fu.OpportunityID,
			Type:          "award_notice",
			Status:        "new",
			Subject:       fmt.Sprintf("Contract Award Detected: %s", sub.Title),
			Body:          fmt.Sprintf("Status changed to %q during automated follow-up.", result.StatusText),
			Source:        "auto_detected",
		}); err != nil {
			log.Printf("[FollowUp] Failed to insert award correspondence (follow_up=%s): %v", fu.ID, err)
		}
		log.Printf("[FollowUp] Award detected (follow_up=%s submission=%s)", fu.ID, fu.SubmissionID)
	}

	return true, true, nil
}

// IsAwardStatus reports whether a source status string indicates the
// contract was won.
func IsAwardStatus(status string) bool {
	s := strings.ToLower(status)
	return strings.Contains(s, "award") || strings.Contains(s, "won")
}
