package orchestrate

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/procura/backend/internal/models"
	"github.com/procura/backend/internal/pipeline"
)

// Qualifier scores one opportunity. qualify.Engine satisfies it.
type Qualifier interface {
	Qualify(ctx context.Context, opp models.Opportunity, profile models.CompanyProfile, forceRefresh bool) models.QualificationResult
}

// PipelineRunner executes the autonomy decision. pipeline.Controller
// satisfies it.
type PipelineRunner interface {
	Run(ctx context.Context, opp models.Opportunity, fitScore int, triggeredBy *uuid.UUID) (pipeline.Result, error)
}

// Store is the persistence slice the driver needs. *db.Store satisfies it.
type Store interface {
	GetCompanyProfile(ctx context.Context) (models.CompanyProfile, error)
	UpdateOpportunityScores(ctx context.Context, id uuid.UUID, result models.QualificationResult) error
}

type Stats struct {
	Processed          int `json:"processed"`
	Qualified          int `json:"qualified"`
	SubmissionsCreated int `json:"submissions_created"`
	ProposalsGenerated int `json:"proposals_generated"`
	Failed             int `json:"failed"`
}

// Driver fans a batch of freshly-discovered opportunities through
// qualification and the autonomy pipeline. Items run concurrently on a
// bounded pool; each item only touches its own rows, so no ordering is
// needed between them.
type Driver struct {
	store     Store
	qualifier Qualifier
	pipeline  PipelineRunner

	// Workers caps concurrent items; each item may hold an LLM call
	// open, so this also bounds provider pressure.
	Workers int
}

func NewDriver(store Store, qualifier Qualifier, runner PipelineRunner) *Driver {
	return &Driver{store: store, qualifier: qualifier, pipeline: runner, Workers: 4}
}

// ProcessBatch runs the full per-item sequence (qualify, persist
// scores, pipeline decision) for every opportunity in the batch.
// Item failures are captured and counted, never propagated: one bad
// opportunity must not sink the dispatch.
func (d *Driver) ProcessBatch(ctx context.Context, opps []models.Opportunity, triggeredBy *uuid.UUID) Stats {
	if len(opps) == 0 {
		return Stats{}
	}

	profile, err := d.store.GetCompanyProfile(ctx)
	if err != nil {
		log.Printf("[Orchestrate] Company profile unavailable, qualifying generically: %v", err)
		profile = models.CompanyProfile{}
	}

	var (
		mu    sync.Mutex
		stats Stats
	)
	workers := d.Workers
	if workers <= 0 {
		workers = 4
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, opp := range opps {
		opp := opp
		g.Go(func() error {
			result, err := d.processOne(gctx, opp, profile, triggeredBy)
			mu.Lock()
			defer mu.Unlock()
			stats.Processed++
			if err != nil {
				log.Printf("[Orchestrate] Item failed (opp=%s ref=%s): %v", opp.ID, opp.ExternalRef, err)
				stats.Failed++
				return nil
			}
			stats.Qualified++
			for _, action := range result.Actions {
				switch action.Type {
				case pipeline.ActionSubmissionCreated:
					stats.SubmissionsCreated++
				case pipeline.ActionProposalGenerated:
					stats.ProposalsGenerated++
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	log.Printf("[Orchestrate] Batch done: processed=%d qualified=%d submissions=%d proposals=%d failed=%d",
		stats.Processed, stats.Qualified, stats.SubmissionsCreated, stats.ProposalsGenerated, stats.Failed)
	return stats
}

func (d *Driver) processOne(ctx context.Context, opp models.Opportunity, profile models.CompanyProfile, triggeredBy *uuid.UUID) (pipeline.Result, error) {
	result := d.qualifier.Qualify(ctx, opp, profile, false)

	if err := d.store.UpdateOpportunityScores(ctx, opp.ID, result); err != nil {
		return pipeline.Result{}, fmt.Errorf("persisting scores: %w", err)
	}

	actions, err := d.pipeline.Run(ctx, opp, result.FitScore, triggeredBy)
	if err != nil {
		return pipeline.Result{}, fmt.Errorf("pipeline run: %w", err)
	}
	return actions, nil
}
