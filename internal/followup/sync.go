package followup

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/procura/backend/internal/models"
)

// SyncStore adds the queries the daily submission resync needs on top
// of the reconciler store.
type SyncStore interface {
	Store
	ListActiveSubmissions(ctx context.Context) ([]models.Submission, error)
	SetSubmissionDueDate(ctx context.Context, id uuid.UUID, due time.Time) error
}

// SyncSubmissionDueDates copies changed due dates from opportunities
// onto their active submissions so deadline amendments at the source
// are reflected where the team works. Owners are notified of every
// change. Returns how many submissions were updated.
func SyncSubmissionDueDates(ctx context.Context, store SyncStore) (int, error) {
	active, err := store.ListActiveSubmissions(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing active submissions: %w", err)
	}

	synced := 0
	for _, sub := range active {
		opp, err := store.GetOpportunity(ctx, sub.OpportunityID)
		if err != nil || opp == nil {
			log.Printf("[FollowUp] Skipping due-date sync for submission %s: %v", sub.ID, err)
			continue
		}
		if opp.DueDate == nil || sub.DueDate != nil && opp.DueDate.Equal(*sub.DueDate) {
			continue
		}

		if err := store.SetSubmissionDueDate(ctx, sub.ID, *opp.DueDate); err != nil {
			log.Printf("[FollowUp] Failed to sync due date for submission %s: %v", sub.ID, err)
			continue
		}
		synced++

		if err := store.InsertNotification(ctx, models.Notification{
			UserID:     sub.OwnerID,
			Title:      "Deadline Updated",
			Body:       fmt.Sprintf("Deadline changed to %s for %q", opp.DueDate.Format("2006-01-02"), sub.Title),
			Type:       "deadline",
			Priority:   "high",
			EntityType: "submission",
			EntityID:   sub.ID,
		}); err != nil {
			log.Printf("[FollowUp] Failed to notify owner of deadline change (submission=%s): %v", sub.ID, err)
		}
	}

	log.Printf("[FollowUp] Due-date sync completed: synced=%d of %d active", synced, len(active))
	return synced, nil
}
