package followup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/procura/backend/internal/models"
)

type recordedCheck struct {
	status          string
	portalStatus    string
	checksPerformed int
	nextCheckAt     time.Time
}

type memStore struct {
	followUps      []models.FollowUp
	opportunities  map[uuid.UUID]*models.Opportunity
	submissions    map[uuid.UUID]*models.Submission
	statuses       map[uuid.UUID]string
	recorded       map[uuid.UUID]recordedCheck
	audits         []models.FollowUpCheck
	notifications  []models.Notification
	correspondence []models.Correspondence
	oppStatuses    map[uuid.UUID]string
	getOppErr      error
}

func newReconcilerStore() *memStore {
	return &memStore{
		opportunities: make(map[uuid.UUID]*models.Opportunity),
		submissions:   make(map[uuid.UUID]*models.Submission),
		statuses:      make(map[uuid.UUID]string),
		recorded:      make(map[uuid.UUID]recordedCheck),
		oppStatuses:   make(map[uuid.UUID]string),
	}
}

func (s *memStore) ListDueFollowUps(ctx context.Context, now time.Time) ([]models.FollowUp, error) {
	return s.followUps, nil
}

func (s *memStore) SetFollowUpStatus(ctx context.Context, id uuid.UUID, status string) error {
	s.statuses[id] = status
	return nil
}

func (s *memStore) RecordFollowUpCheck(ctx context.Context, id uuid.UUID, status, portalStatus string, checksPerformed int, nextCheckAt, checkedAt time.Time) error {
	s.recorded[id] = recordedCheck{status: status, portalStatus: portalStatus, checksPerformed: checksPerformed, nextCheckAt: nextCheckAt}
	return nil
}

func (s *memStore) InsertFollowUpCheck(ctx context.Context, check models.FollowUpCheck) error {
	s.audits = append(s.audits, check)
	return nil
}

func (s *memStore) InsertNotification(ctx context.Context, n models.Notification) error {
	s.notifications = append(s.notifications, n)
	return nil
}

func (s *memStore) InsertCorrespondence(ctx context.Context, c models.Correspondence) error {
	s.correspondence = append(s.correspondence, c)
	return nil
}

func (s *memStore) GetOpportunity(ctx context.Context, id uuid.UUID) (*models.Opportunity, error) {
	if s.getOppErr != nil {
		return nil, s.getOppErr
	}
	return s.opportunities[id], nil
}

func (s *memStore) GetSubmission(ctx context.Context, id uuid.UUID) (*models.Submission, error) {
	return s.submissions[id], nil
}

func (s *memStore) SetOpportunityStatus(ctx context.Context, id uuid.UUID, status string) error {
	s.oppStatuses[id] = status
	return nil
}

type fakeProvider struct {
	result StatusResult
	err    error
	calls  int
}

func (f *fakeProvider) FetchCurrentStatus(ctx context.Context, externalRef, source string) (StatusResult, error) {
	f.calls++
	if f.err != nil {
		return StatusResult{}, f.err
	}
	return f.result, nil
}

func seedFollowUp(store *memStore, portalStatus string) models.FollowUp {
	owner := uuid.New()
	opp := &models.Opportunity{ID: uuid.New(), ExternalRef: "W912DY-26-R-0001", Source: "sam", Status: "open"}
	sub := &models.Submission{ID: uuid.New(), OpportunityID: opp.ID, Title: "Base Maintenance", OwnerID: owner}
	store.opportunities[opp.ID] = opp
	store.submissions[sub.ID] = sub

	fu := models.FollowUp{
		ID:                 uuid.New(),
		SubmissionID:       sub.ID,
		OpportunityID:      opp.ID,
		Status:             models.FollowUpPending,
		AutoCheck:          true,
		PortalStatus:       portalStatus,
		CheckIntervalHours: 72,
		ChecksPerformed:    2,
		MaxChecks:          10,
		AssignedTo:         &owner,
	}
	store.followUps = append(store.followUps, fu)
	return fu
}

func TestRunDueChecks_MaxChecksClosesOut(t *testing.T) {
	store := newReconcilerStore()
	fu := seedFollowUp(store, "open")
	store.followUps[0].ChecksPerformed = 10

	provider := &fakeProvider{}
	r := NewReconciler(store, provider)

	stats, err := r.RunDueChecks(context.Background(), time.Now().UTC())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if provider.calls != 0 {
		t.Error("exhausted follow-up must not hit the source")
	}
	if store.statuses[fu.ID] != models.FollowUpNoChange {
		t.Errorf("expected terminal no_change, got %q", store.statuses[fu.ID])
	}
	if stats.Checked != 0 || stats.Updated != 0 {
		t.Errorf("close-out counts as neither checked nor updated: %+v", stats)
	}
}

func TestRunDueChecks_NoChangeReschedules(t *testing.T) {
	store := newReconcilerStore()
	fu := seedFollowUp(store, "open")
	provider := &fakeProvider{result: StatusResult{StatusText: "open"}}
	r := NewReconciler(store, provider)

	now := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	stats, err := r.RunDueChecks(context.Background(), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stats.Checked != 1 || stats.Updated != 0 {
		t.Errorf("expected checked=1 updated=0, got %+v", stats)
	}
	rec, ok := store.recorded[fu.ID]
	if !ok {
		t.Fatal("check bookkeeping not recorded")
	}
	if rec.status != models.FollowUpChecked {
		t.Errorf("expected status checked, got %q", rec.status)
	}
	if rec.checksPerformed != 3 {
		t.Errorf("expected checks_performed incremented to 3, got %d", rec.checksPerformed)
	}
	if want := now.Add(72 * time.Hour); !rec.nextCheckAt.Equal(want) {
		t.Errorf("expected next check at %v, got %v", want, rec.nextCheckAt)
	}
	if len(store.audits) != 1 {
		t.Fatalf("every attempt must leave an audit row, got %d", len(store.audits))
	}
	if store.audits[0].ChangesDetected {
		t.Error("no change should be recorded as such")
	}
	if len(store.notifications) != 0 {
		t.Error("no notification without a change")
	}
}

func TestRunDueChecks_ChangeDetected(t *testing.T) {
	store := newReconcilerStore()
	fu := seedFollowUp(store, "open")
	provider := &fakeProvider{result: StatusResult{StatusText: "closed"}}
	r := NewReconciler(store, provider)

	stats, err := r.RunDueChecks(context.Background(), time.Now().UTC())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stats.Updated != 1 {
		t.Fatalf("expected updated=1, got %+v", stats)
	}
	if store.recorded[fu.ID].status != models.FollowUpUpdated {
		t.Errorf("expected status updated, got %q", store.recorded[fu.ID].status)
	}
	if store.oppStatuses[fu.OpportunityID] != "closed" {
		t.Error("opportunity status should follow the source")
	}
	if len(store.notifications) != 1 {
		t.Fatalf("the assignee should be notified, got %d notifications", len(store.notifications))
	}
	if len(store.correspondence) != 0 {
		t.Error("a non-award change must not create correspondence")
	}
}

func TestRunDueChecks_AwardDetection(t *testing.T) {
	store := newReconcilerStore()
	fu := seedFollowUp(store, "open")
	provider := &fakeProvider{result: StatusResult{StatusText: "award notice published"}}
	r := NewReconciler(store, provider)

	if _, err := r.RunDueChecks(context.Background(), time.Now().UTC()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if store.statuses[fu.ID] != models.FollowUpAwarded {
		t.Errorf("expected awarded status, got %q", store.statuses[fu.ID])
	}
	if len(store.correspondence) != 1 {
		t.Fatal("award detection must create a correspondence record")
	}
	c := store.correspondence[0]
	if c.Type != "award_notice" || c.Source != "auto_detected" {
		t.Errorf("unexpected correspondence: type=%q source=%q", c.Type, c.Source)
	}
	if c.SubmissionID != fu.SubmissionID {
		t.Error("correspondence must reference the submission")
	}
}

func TestRunDueChecks_SourceErrorLeavesFollowUpUntouched(t *testing.T) {
	store := newReconcilerStore()
	fu := seedFollowUp(store, "open")
	provider := &fakeProvider{err: errors.New("portal 503")}
	r := NewReconciler(store, provider)

	stats, err := r.RunDueChecks(context.Background(), time.Now().UTC())
	if err != nil {
		t.Fatalf("a dead source must not fail the run: %v", err)
	}

	if stats.Checked != 0 {
		t.Errorf("unreachable source counts as unchecked, got %+v", stats)
	}
	if _, ok := store.recorded[fu.ID]; ok {
		t.Error("bookkeeping must stay untouched so the next interval retries")
	}
	if len(store.audits) != 0 {
		t.Error("no audit row for an unreachable source")
	}
}

func TestRunDueChecks_OneFailureDoesNotAbortBatch(t *testing.T) {
	store := newReconcilerStore()
	seedFollowUp(store, "open")
	healthy := seedFollowUp(store, "open")

	// First follow-up references a missing opportunity.
	delete(store.opportunities, store.followUps[0].OpportunityID)

	provider := &fakeProvider{result: StatusResult{StatusText: "open"}}
	r := NewReconciler(store, provider)

	stats, err := r.RunDueChecks(context.Background(), time.Now().UTC())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Checked != 1 {
		t.Errorf("the healthy follow-up must still be checked, got %+v", stats)
	}
	if _, ok := store.recorded[healthy.ID]; !ok {
		t.Error("healthy follow-up bookkeeping missing")
	}
}

func TestIsAwardStatus(t *testing.T) {
	cases := map[string]bool{
		"Award Notice":     true,
		"contract won":     true,
		"AWARDED":          true,
		"open":             false,
		"closed":           false,
		"forward planning": false,
	}
	for status, want := range cases {
		if got := IsAwardStatus(status); got != want {
			t.Errorf("IsAwardStatus(%q) = %v, want %v", status, got, want)
		}
	}
}
