package ai

import (
	"context"
	"errors"
	"testing"
)

type fakeCompleter struct {
	response string
	err      error
}

func (f *fakeCompleter) GenerateCompletion(ctx context.Context, prompt string, jsonMode bool) (string, error) {
	return f.response, f.err
}

func TestScore_ParsesCleanJSON(t *testing.T) {
	s := NewOllamaScorer(&fakeCompleter{response: `{
		"fit_score": 82,
		"effort_score": 55.5,
		"urgency_score": 70,
		"summary": "Strong NAICS match",
		"reasoning": {"fit": "direct capability overlap"}
	}`})

	raw, err := s.Score(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw.FitScore != 82 || raw.EffortScore != 55.5 {
		t.Errorf("scores mishandled: %+v", raw)
	}
	if raw.Reasoning["fit"] != "direct capability overlap" {
		t.Errorf("reasoning mishandled: %v", raw.Reasoning)
	}
}

func TestScore_TrimsProseAroundJSON(t *testing.T) {
	s := NewOllamaScorer(&fakeCompleter{response: `Here are the scores you asked for:
{"fit_score": 40, "effort_score": 30, "urgency_score": 20, "summary": "weak fit", "reasoning": {}}
Let me know if you need anything else.`})

	raw, err := s.Score(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw.FitScore != 40 {
		t.Errorf("expected fit 40, got %v", raw.FitScore)
	}
}

func TestScore_StringifiesNonStringReasoning(t *testing.T) {
	s := NewOllamaScorer(&fakeCompleter{response: `{"fit_score": 60, "effort_score": 50, "urgency_score": 40, "summary": "ok", "reasoning": {"fit": 85, "urgency": "two weeks out"}}`})

	raw, err := s.Score(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw.Reasoning["fit"] != "85" {
		t.Errorf("numeric reasoning should be stringified, got %q", raw.Reasoning["fit"])
	}
	if raw.Reasoning["urgency"] != "two weeks out" {
		t.Errorf("string reasoning mishandled, got %q", raw.Reasoning["urgency"])
	}
}

func TestScore_CompletionFailure(t *testing.T) {
	s := NewOllamaScorer(&fakeCompleter{err: errors.New("connection refused")})
	if _, err := s.Score(context.Background(), "prompt"); err == nil {
		t.Fatal("expected an error when the LLM is unreachable")
	}
}

func TestScore_GarbageResponse(t *testing.T) {
	s := NewOllamaScorer(&fakeCompleter{response: "I cannot score this opportunity."})
	if _, err := s.Score(context.Background(), "prompt"); err == nil {
		t.Fatal("expected a parse error for a non-JSON completion")
	}
}
