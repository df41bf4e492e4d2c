package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/procura/backend/internal/models"
)

type fakeConfig struct {
	cfg models.PipelineConfig
	err error
}

func (f *fakeConfig) LoadPipelineConfig(ctx context.Context) (models.PipelineConfig, error) {
	return f.cfg, f.err
}

type fakeStore struct {
	submissions map[uuid.UUID]*models.Submission
	sections    map[uuid.UUID]map[string]string
	creates     int
	profile     models.CompanyProfile
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		submissions: make(map[uuid.UUID]*models.Submission),
		sections:    make(map[uuid.UUID]map[string]string),
	}
}

func (f *fakeStore) FindSubmissionByOpportunity(ctx context.Context, oppID uuid.UUID) (*models.Submission, error) {
	for _, sub := range f.submissions {
		if sub.OpportunityID == oppID && !models.TerminalSubmissionStatus(sub.Status) {
			return sub, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) CreateSubmission(ctx context.Context, sub models.Submission) (uuid.UUID, error) {
	f.creates++
	sub.ID = uuid.New()
	f.submissions[sub.ID] = &sub
	return sub.ID, nil
}

func (f *fakeStore) SetProposalSections(ctx context.Context, submissionID uuid.UUID, sections map[string]string) error {
	f.sections[submissionID] = sections
	return nil
}

func (f *fakeStore) GetCompanyProfile(ctx context.Context) (models.CompanyProfile, error) {
	return f.profile, nil
}

type fakeOwners struct {
	owner uuid.UUID
	err   error
}

func (f *fakeOwners) DefaultOwner(ctx context.Context) (uuid.UUID, error) {
	return f.owner, f.err
}

type fakeProposals struct {
	sections map[string]string
	err      error
	calls    int
}

func (f *fakeProposals) Generate(ctx context.Context, opp models.Opportunity, profile models.CompanyProfile) (map[string]string, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.sections, nil
}

func supervisedConfig() *fakeConfig {
	return &fakeConfig{cfg: models.PipelineConfig{
		Mode: models.ModeSupervised, FitThreshold: 80, AutoThreshold: 90, MaxAutoValue: 500_000,
	}}
}

func autonomousConfig() *fakeConfig {
	return &fakeConfig{cfg: models.PipelineConfig{
		Mode: models.ModeAutonomous, FitThreshold: 80, AutoThreshold: 90, MaxAutoValue: 500_000,
	}}
}

func pipelineOpp(value float64) models.Opportunity {
	return models.Opportunity{
		ID:             uuid.New(),
		Title:          "Data Center Support",
		Source:         "sam",
		EstimatedValue: value,
	}
}

func TestRun_ManualModeDoesNothing(t *testing.T) {
	store := newFakeStore()
	c := NewController(&fakeConfig{cfg: models.DefaultPipelineConfig()}, store, &fakeOwners{owner: uuid.New()}, &fakeProposals{})

	result, err := c.Run(context.Background(), pipelineOpp(100_000), 99, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Actions) != 0 {
		t.Errorf("manual mode must take no actions, got %v", result.Actions)
	}
	if store.creates != 0 {
		t.Errorf("manual mode must not create submissions, got %d", store.creates)
	}
}

func TestRun_BelowThresholdSkips(t *testing.T) {
	store := newFakeStore()
	c := NewController(supervisedConfig(), store, &fakeOwners{owner: uuid.New()}, &fakeProposals{})

	result, err := c.Run(context.Background(), pipelineOpp(100_000), 79, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Actions) != 0 || store.creates != 0 {
		t.Error("fit below threshold must be a no-op")
	}
}

func TestRun_SupervisedCreatesDraft(t *testing.T) {
	store := newFakeStore()
	owner := uuid.New()
	proposals := &fakeProposals{sections: map[string]string{"technical_approach": "..."}}
	c := NewController(supervisedConfig(), store, &fakeOwners{owner: owner}, proposals)

	opp := pipelineOpp(100_000)
	result, err := c.Run(context.Background(), opp, 85, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Actions) != 1 || result.Actions[0].Type != ActionSubmissionCreated {
		t.Fatalf("expected a single submission_created action, got %v", result.Actions)
	}
	sub := store.submissions[result.Actions[0].SubmissionID]
	if sub == nil {
		t.Fatal("submission not persisted")
	}
	if sub.Status != models.SubmissionDraft {
		t.Errorf("auto-created submission should be a draft, got %s", sub.Status)
	}
	if sub.OwnerID != owner {
		t.Error("submission should be assigned to the default owner")
	}
	if sub.Portal != "SAM.gov" {
		t.Errorf("expected portal SAM.gov for source sam, got %q", sub.Portal)
	}
	if proposals.calls != 0 {
		t.Error("supervised mode must not generate proposals")
	}
}

func TestRun_IdempotentAcrossCalls(t *testing.T) {
	store := newFakeStore()
	c := NewController(supervisedConfig(), store, &fakeOwners{owner: uuid.New()}, &fakeProposals{})

	opp := pipelineOpp(100_000)
	first, err := c.Run(context.Background(), opp, 85, nil)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := c.Run(context.Background(), opp, 85, nil)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if store.creates != 1 {
		t.Fatalf("expected exactly one create across two runs, got %d", store.creates)
	}
	if first.Actions[0].SubmissionID != second.Actions[0].SubmissionID {
		t.Error("both runs must resolve to the same submission")
	}
}

func TestRun_AutonomousGeneratesProposal(t *testing.T) {
	store := newFakeStore()
	proposals := &fakeProposals{sections: map[string]string{"technical_approach": "draft"}}
	c := NewController(autonomousConfig(), store, &fakeOwners{owner: uuid.New()}, proposals)

	result, err := c.Run(context.Background(), pipelineOpp(400_000), 95, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Actions) != 2 || result.Actions[1].Type != ActionProposalGenerated {
		t.Fatalf("expected submission + proposal actions, got %v", result.Actions)
	}
	if got := store.sections[result.Actions[0].SubmissionID]; got == nil {
		t.Error("proposal sections not persisted")
	}
}

func TestRun_AutonomousRespectsValueCap(t *testing.T) {
	store := newFakeStore()
	proposals := &fakeProposals{sections: map[string]string{"technical_approach": "draft"}}
	c := NewController(autonomousConfig(), store, &fakeOwners{owner: uuid.New()}, proposals)

	result, err := c.Run(context.Background(), pipelineOpp(900_000), 95, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Actions) != 1 || result.Actions[0].Type != ActionSubmissionCreated {
		t.Fatalf("expected only submission creation over the value cap, got %v", result.Actions)
	}
	if proposals.calls != 0 {
		t.Error("value cap must block proposal generation")
	}
}

func TestRun_ProposalFailureKeepsSubmission(t *testing.T) {
	store := newFakeStore()
	proposals := &fakeProposals{err: errors.New("LLM down")}
	c := NewController(autonomousConfig(), store, &fakeOwners{owner: uuid.New()}, proposals)

	result, err := c.Run(context.Background(), pipelineOpp(100_000), 95, nil)
	if err != nil {
		t.Fatalf("proposal failure must be absorbed, got %v", err)
	}

	if len(result.Actions) != 1 || result.Actions[0].Type != ActionSubmissionCreated {
		t.Fatalf("submission must survive a failed proposal, got %v", result.Actions)
	}
}

func TestRun_TriggeredByBecomesOwner(t *testing.T) {
	store := newFakeStore()
	c := NewController(supervisedConfig(), store, &fakeOwners{err: errors.New("no users")}, &fakeProposals{})

	trigger := uuid.New()
	result, err := c.Run(context.Background(), pipelineOpp(100_000), 85, &trigger)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sub := store.submissions[result.Actions[0].SubmissionID]
	if sub.OwnerID != trigger {
		t.Error("the triggering user should own the auto-created submission")
	}
}

func TestRun_NoOwnerAvailableSkipsQuietly(t *testing.T) {
	store := newFakeStore()
	c := NewController(supervisedConfig(), store, &fakeOwners{err: errors.New("no users")}, &fakeProposals{})

	result, err := c.Run(context.Background(), pipelineOpp(100_000), 85, nil)
	if err != nil {
		t.Fatalf("missing owner must not error the run, got %v", err)
	}
	if len(result.Actions) != 0 || store.creates != 0 {
		t.Error("without an owner no submission should be created")
	}
}
