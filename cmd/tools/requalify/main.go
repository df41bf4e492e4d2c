package main

import (
	"context"
	"log"
	"os"

	"github.com/procura/backend/internal/ai"
	"github.com/procura/backend/internal/db"
	"github.com/procura/backend/internal/models"
	"github.com/procura/backend/internal/qualify"
)

// Re-scores every open opportunity, bypassing the cache. Useful after
// a company profile change.
func main() {
	ctx := context.Background()
	pool, err := db.Connect(ctx)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	store := db.NewStore(pool)
	llm := ai.NewOllamaClient(os.Getenv("OLLAMA_HOST"), os.Getenv("OLLAMA_MODEL"))
	engine := qualify.NewEngine(ai.NewOllamaScorer(llm), store)

	profile, err := store.GetCompanyProfile(ctx)
	if err != nil {
		log.Fatalf("Failed to load company profile: %v", err)
	}

	opps, err := store.ListOpportunities(ctx, models.OppStatusOpen, 0)
	if err != nil {
		log.Fatalf("Failed to list opportunities: %v", err)
	}

	log.Printf("Re-qualifying %d open opportunities...", len(opps))
	for _, opp := range opps {
		result := engine.Qualify(ctx, opp, profile, true)
		if err := store.UpdateOpportunityScores(ctx, opp.ID, result); err != nil {
			log.Printf("Failed to persist scores for %s: %v", opp.ID, err)
			continue
		}
		log.Printf("%s: fit=%d effort=%d urgency=%d", opp.ExternalRef, result.FitScore, result.EffortScore, result.UrgencyScore)
	}
}
