package qualify

import (
	"context"
	"log"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/procura/backend/internal/models"
)

// RawScores is what a scoring provider returns before clamping.
type RawScores struct {
	FitScore     float64           `json:"fit_score"`
	EffortScore  float64           `json:"effort_score"`
	UrgencyScore float64           `json:"urgency_score"`
	Summary      string            `json:"summary"`
	Reasoning    map[string]string `json:"reasoning"`
}

// Scorer produces qualification scores from a prompt. Implementations
// may fail; the engine converts every failure into fallback scores so
// callers only ever see a usable result.
type Scorer interface {
	Score(ctx context.Context, prompt string) (RawScores, error)
}

// Cache stores one qualification result per opportunity. A miss is
// (nil, nil).
type Cache interface {
	GetQualification(ctx context.Context, oppID uuid.UUID) (*models.QualificationResult, error)
	PutQualification(ctx context.Context, oppID uuid.UUID, result models.QualificationResult) error
}

type Engine struct {
	scorer Scorer
	cache  Cache
	now    func() time.Time
}

func NewEngine(scorer Scorer, cache Cache) *Engine {
	return &Engine{scorer: scorer, cache: cache, now: time.Now}
}

// Qualify scores one opportunity against the company profile. It never
// returns an error: a scorer failure degrades to deterministic fallback
// scores with the failure recorded in the reasoning, because a dead LLM
// must not stall the rest of the pipeline.
func (e *Engine) Qualify(ctx context.Context, opp models.Opportunity, profile models.CompanyProfile, forceRefresh bool) models.QualificationResult {
	if !forceRefresh {
		cached, err := e.cache.GetQualification(ctx, opp.ID)
		if err != nil {
			log.Printf("[Qualify] Cache unavailable for %s, continuing without: %v", opp.ID, err)
		} else if cached != nil {
			return *cached
		}
	}

	if !IsPrefilterPass(opp, profile) {
		result := e.prefilterRejection(opp)
		e.writeCache(ctx, opp.ID, result)
		return result
	}

	kind := PromptKindFor(profile)
	prompt := BuildPrompt(kind, opp, profile)

	raw, err := e.scorer.Score(ctx, prompt)
	if err != nil {
		log.Printf("[Qualify] Scoring failed for %s, using fallback: %v", opp.ID, err)
		return e.fallback(opp, err)
	}

	result := models.QualificationResult{
		FitScore:     clampScore(raw.FitScore),
		EffortScore:  clampScore(raw.EffortScore),
		UrgencyScore: clampScore(raw.UrgencyScore),
		Summary:      raw.Summary,
		Reasoning:    raw.Reasoning,
		Personalized: kind == PromptPersonalized,
	}
	e.writeCache(ctx, opp.ID, result)
	return result
}

// prefilterRejection is the deterministic result for opportunities the
// rule gate screened out. Fit is pinned below every pipeline threshold
// so no autonomy action fires, but the record still gets scores.
func (e *Engine) prefilterRejection(opp models.Opportunity) models.QualificationResult {
	return models.QualificationResult{
		FitScore:     30,
		EffortScore:  50,
		UrgencyScore: fallbackUrgency(e.daysUntilDue(opp.DueDate)),
		Summary:      "Screened out by pre-filter: opportunity falls outside the company profile (NAICS, value range, or set-aside eligibility).",
		Reasoning:    map[string]string{"prefilter": "no profile signal matched; AI scoring skipped"},
	}
}

func (e *Engine) fallback(opp models.Opportunity, cause error) models.QualificationResult {
	return models.QualificationResult{
		FitScore:     50,
		EffortScore:  50,
		UrgencyScore: fallbackUrgency(e.daysUntilDue(opp.DueDate)),
		Summary:      "AI qualification unavailable - scores are estimates",
		Reasoning:    map[string]string{"error": cause.Error()},
	}
}

func (e *Engine) writeCache(ctx context.Context, oppID uuid.UUID, result models.QualificationResult) {
	if err := e.cache.PutQualification(ctx, oppID, result); err != nil {
		log.Printf("[Qualify] Failed to write qualification cache for %s: %v", oppID, err)
	}
}

// daysUntilDue defaults to 30 when the due date is unknown, which
// lands the fallback urgency in the low band.
func (e *Engine) daysUntilDue(due *time.Time) int {
	if due == nil {
		return 30
	}
	return int(due.Sub(e.now()).Hours() / 24)
}

func fallbackUrgency(daysUntilDue int) int {
	return clampScore(float64(100 - 3*daysUntilDue))
}

func clampScore(v float64) int {
	n := int(math.Round(v))
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}
