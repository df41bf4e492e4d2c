package followup

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/procura/backend/internal/models"
)

type syncStore struct {
	*memStore
	active   []models.Submission
	dueDates map[uuid.UUID]time.Time
}

func newSyncStore() *syncStore {
	return &syncStore{memStore: newReconcilerStore(), dueDates: make(map[uuid.UUID]time.Time)}
}

func (s *syncStore) ListActiveSubmissions(ctx context.Context) ([]models.Submission, error) {
	return s.active, nil
}

func (s *syncStore) SetSubmissionDueDate(ctx context.Context, id uuid.UUID, due time.Time) error {
	s.dueDates[id] = due
	return nil
}

func (s *syncStore) addActive(oppDue, subDue *time.Time) models.Submission {
	opp := &models.Opportunity{ID: uuid.New(), DueDate: oppDue}
	s.opportunities[opp.ID] = opp
	sub := models.Submission{
		ID:            uuid.New(),
		OpportunityID: opp.ID,
		OwnerID:       uuid.New(),
		Title:         "Facility Support",
		Status:        models.SubmissionDraft,
		DueDate:       subDue,
	}
	s.active = append(s.active, sub)
	return sub
}

func TestSyncSubmissionDueDates_CopiesChangedDates(t *testing.T) {
	store := newSyncStore()
	oldDue := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	newDue := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)
	sub := store.addActive(&newDue, &oldDue)

	synced, err := SyncSubmissionDueDates(context.Background(), store)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if synced != 1 {
		t.Fatalf("expected 1 synced submission, got %d", synced)
	}
	if got := store.dueDates[sub.ID]; !got.Equal(newDue) {
		t.Errorf("expected due date %v, got %v", newDue, got)
	}
	if len(store.notifications) != 1 {
		t.Fatalf("owner must be notified of the deadline change, got %d", len(store.notifications))
	}
	if store.notifications[0].UserID != sub.OwnerID {
		t.Error("notification should target the submission owner")
	}
}

func TestSyncSubmissionDueDates_UnchangedDatesSkipped(t *testing.T) {
	store := newSyncStore()
	due := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	store.addActive(&due, &due)

	synced, err := SyncSubmissionDueDates(context.Background(), store)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if synced != 0 || len(store.dueDates) != 0 {
		t.Errorf("matching dates must not sync, got synced=%d", synced)
	}
	if len(store.notifications) != 0 {
		t.Error("no notification without a change")
	}
}

func TestSyncSubmissionDueDates_NilOpportunityDueSkipped(t *testing.T) {
	store := newSyncStore()
	oldDue := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	store.addActive(nil, &oldDue)

	synced, err := SyncSubmissionDueDates(context.Background(), store)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if synced != 0 {
		t.Errorf("a source without a due date must not clear the submission's, got %d", synced)
	}
}

func TestSyncSubmissionDueDates_FillsMissingSubmissionDate(t *testing.T) {
	store := newSyncStore()
	due := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	sub := store.addActive(&due, nil)

	synced, err := SyncSubmissionDueDates(context.Background(), store)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if synced != 1 {
		t.Fatalf("a submission without a due date should adopt the source's, got %d", synced)
	}
	if got := store.dueDates[sub.ID]; !got.Equal(due) {
		t.Errorf("expected %v, got %v", due, got)
	}
}
