package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/procura/backend/internal/qualify"
)

// OllamaScorer adapts the LLM client to the qualification engine's
// Scorer interface: prompt in, parsed scores out.
type OllamaScorer struct {
	llm Completer
}

func NewOllamaScorer(llm Completer) *OllamaScorer {
	return &OllamaScorer{llm: llm}
}

// scorePayload is the JSON shape the qualification prompt instructs the
// model to produce. Reasoning values sometimes come back as non-string
// JSON, so they are captured loosely and stringified.
type scorePayload struct {
	FitScore     float64                    `json:"fit_score"`
	EffortScore  float64                    `json:"effort_score"`
	UrgencyScore float64                    `json:"urgency_score"`
	Summary      string                     `json:"summary"`
	Reasoning    map[string]json.RawMessage `json:"reasoning"`
}

func (s *OllamaScorer) Score(ctx context.Context, prompt string) (qualify.RawScores, error) {
	completion, err := s.llm.GenerateCompletion(ctx, prompt, true)
	if err != nil {
		return qualify.RawScores{}, fmt.Errorf("LLM completion failed: %w", err)
	}

	var payload scorePayload
	if err := json.Unmarshal([]byte(extractJSON(completion)), &payload); err != nil {
		return qualify.RawScores{}, fmt.Errorf("parsing LLM scores: %w", err)
	}

	reasoning := make(map[string]string, len(payload.Reasoning))
	for key, raw := range payload.Reasoning {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			str = string(raw)
		}
		reasoning[key] = str
	}

	return qualify.RawScores{
		FitScore:     payload.FitScore,
		EffortScore:  payload.EffortScore,
		UrgencyScore: payload.UrgencyScore,
		Summary:      payload.Summary,
		Reasoning:    reasoning,
	}, nil
}

// extractJSON trims any prose the model wrapped around the JSON object.
// Even in JSON mode some models emit a leading sentence.
func extractJSON(completion string) string {
	start := strings.Index(completion, "{")
	end := strings.LastIndex(completion, "}")
	if start == -1 || end == -1 || end < start {
		return completion
	}
	return completion[start : end+1]
}
