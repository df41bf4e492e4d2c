package pipeline

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/procura/backend/internal/models"
)

// ConfigLoader reads the autonomy configuration. Implementations must
// hit the backing store on every call: an operator flipping from
// manual to autonomous has to take effect on the very next run, so the
// controller never caches this.
type ConfigLoader interface {
	LoadPipelineConfig(ctx context.Context) (models.PipelineConfig, error)
}

// Store is the persistence slice the controller needs. *db.Store
// satisfies it. CreateSubmission seeds the default 5-task/2-step
// workflow so auto-created submissions behave exactly like manual ones.
type Store interface {
	FindSubmissionByOpportunity(ctx context.Context, oppID uuid.UUID) (*models.Submission, error)
	CreateSubmission(ctx context.Context, sub models.Submission) (uuid.UUID, error)
	SetProposalSections(ctx context.Context, submissionID uuid.UUID, sections map[string]string) error
	GetCompanyProfile(ctx context.Context) (models.CompanyProfile, error)
}

// OwnerResolver finds the user an auto-created submission is assigned
// to when no human triggered the run. auth.Service satisfies it.
type OwnerResolver interface {
	DefaultOwner(ctx context.Context) (uuid.UUID, error)
}

// ProposalGenerator drafts proposal sections for an opportunity.
type ProposalGenerator interface {
	Generate(ctx context.Context, opp models.Opportunity, profile models.CompanyProfile) (map[string]string, error)
}

const (
	ActionSubmissionCreated = "submission_created"
	ActionProposalGenerated = "proposal_generated"
)

type Action struct {
	Type         string    `json:"type"`
	SubmissionID uuid.UUID `json:"submission_id"`
}

// Result describes what the pipeline did for one opportunity.
type Result struct {
	OpportunityID uuid.UUID `json:"opportunity_id"`
	FitScore      int       `json:"fit_score"`
	Mode          string    `json:"mode"`
	Actions       []Action  `json:"actions"`
}

type Controller struct {
	config    ConfigLoader
	store     Store
	owners    OwnerResolver
	proposals ProposalGenerator
}

func NewController(config ConfigLoader, store Store, owners OwnerResolver, proposals ProposalGenerator) *Controller {
	return &Controller{config: config, store: store, owners: owners, proposals: proposals}
}

// Run executes the autonomy decision for one freshly-qualified
// opportunity.
//
//	manual:     no side effects.
//	supervised: auto-create a draft submission when fit >= fit_threshold.
//	autonomous: supervised behavior, plus proposal generation when
//	            fit >= auto_threshold and value <= max_auto_value.
//
// A proposal-generation failure is absorbed: the submission stays and
// the result simply omits the proposal action.
func (c *Controller) Run(ctx context.Context, opp models.Opportunity, fitScore int, triggeredBy *uuid.UUID) (Result, error) {
	cfg, err := c.config.LoadPipelineConfig(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("loading pipeline config: %w", err)
	}

	result := Result{OpportunityID: opp.ID, FitScore: fitScore, Mode: cfg.Mode}

	if cfg.Mode == models.ModeManual {
		log.Printf("[Pipeline] Manual mode, no auto-actions (opp=%s fit=%d)", opp.ID, fitScore)
		return result, nil
	}

	if fitScore < cfg.FitThreshold {
		log.Printf("[Pipeline] Fit below threshold, skipping (opp=%s fit=%d threshold=%d)", opp.ID, fitScore, cfg.FitThreshold)
		return result, nil
	}

	submissionID, err := c.autoCreateSubmission(ctx, opp, fitScore, triggeredBy)
	if err != nil {
		log.Printf("[Pipeline] Failed to auto-create submission (opp=%s): %v", opp.ID, err)
		return result, nil
	}
	if submissionID == uuid.Nil {
		return result, nil
	}
	result.Actions = append(result.Actions, Action{Type: ActionSubmissionCreated, SubmissionID: submissionID})
	log.Printf("[Pipeline] Draft submission ready (opp=%s submission=%s)", opp.ID, submissionID)

	if cfg.Mode == models.ModeAutonomous &&
		fitScore >= cfg.AutoThreshold &&
		opp.EstimatedValue <= cfg.MaxAutoValue {
		if err := c.generateProposal(ctx, opp, submissionID); err != nil {
			log.Printf("[Pipeline] Proposal generation failed (opp=%s submission=%s): %v", opp.ID, submissionID, err)
		} else {
			result.Actions = append(result.Actions, Action{Type: ActionProposalGenerated, SubmissionID: submissionID})
			log.Printf("[Pipeline] Proposal auto-generated (opp=%s submission=%s)", opp.ID, submissionID)
		}
	}

	return result, nil
}

// autoCreateSubmission is idempotent: if any submission already exists
// for the opportunity its id is returned and nothing new is created.
// The store additionally enforces this with a partial unique index, so
// two racing dispatches resolve to the same row.
func (c *Controller) autoCreateSubmission(ctx context.Context, opp models.Opportunity, fitScore int, triggeredBy *uuid.UUID) (uuid.UUID, error) {
	existing, err := c.store.FindSubmissionByOpportunity(ctx, opp.ID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("looking up submission: %w", err)
	}
	if existing != nil {
		return existing.ID, nil
	}

	ownerID := uuid.Nil
	if triggeredBy != nil {
		ownerID = *triggeredBy
	}
	if ownerID == uuid.Nil {
		ownerID, err = c.owners.DefaultOwner(ctx)
		if err != nil {
			log.Printf("[Pipeline] No owner available for auto-submission (opp=%s): %v", opp.ID, err)
			return uuid.Nil, nil
		}
	}

	sub := models.Submission{
		OpportunityID: opp.ID,
		OwnerID:       ownerID,
		Title:         opp.Title,
		Portal:        portalFor(opp.Source),
		Status:        models.SubmissionDraft,
		DueDate:       opp.DueDate,
		Notes:         fmt.Sprintf("Auto-created by pipeline orchestrator (fit=%d)", fitScore),
	}
	return c.store.CreateSubmission(ctx, sub)
}

func (c *Controller) generateProposal(ctx context.Context, opp models.Opportunity, submissionID uuid.UUID) error {
	profile, err := c.store.GetCompanyProfile(ctx)
	if err != nil {
		return fmt.Errorf("loading company profile: %w", err)
	}
	sections, err := c.proposals.Generate(ctx, opp, profile)
	if err != nil {
		return err
	}
	if err := c.store.SetProposalSections(ctx, submissionID, sections); err != nil {
		return fmt.Errorf("persisting proposal sections: %w", err)
	}
	return nil
}

func portalFor(source string) string {
	switch source {
	case "sam", "sam.gov":
		return "SAM.gov"
	case "":
		return "unknown"
	default:
		return source
	}
}
