package qualify

import (
	"strings"
	"testing"
	"time"

	"github.com/procura/backend/internal/models"
)

func TestPromptKindFor(t *testing.T) {
	if kind := PromptKindFor(models.CompanyProfile{}); kind != PromptGeneric {
		t.Errorf("empty profile should get the generic prompt, got %v", kind)
	}
	if kind := PromptKindFor(models.CompanyProfile{CompanyName: "Acme Federal"}); kind != PromptPersonalized {
		t.Errorf("named profile should get the personalized prompt, got %v", kind)
	}
}

func TestBuildPrompt_PersonalizedIncludesProfile(t *testing.T) {
	due := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	opp := models.Opportunity{
		Title:     "Network Modernization",
		Agency:    "DHS",
		NAICSCode: "541512",
		DueDate:   &due,
	}
	profile := models.CompanyProfile{
		CompanyName:    "Acme Federal",
		NAICSCodes:     []string{"541511", "541512"},
		Certifications: []string{"WOSB"},
		Capabilities:   "Network engineering and zero-trust architecture",
	}

	prompt := BuildPrompt(PromptPersonalized, opp, profile)

	for _, want := range []string{"Acme Federal", "541511, 541512", "WOSB", "zero-trust", "2026-04-01"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("personalized prompt missing %q", want)
		}
	}
}

func TestBuildPrompt_GenericHasNoCompanySection(t *testing.T) {
	prompt := BuildPrompt(PromptGeneric, models.Opportunity{Title: "Janitorial Services"}, models.CompanyProfile{})

	if strings.Contains(prompt, "Company Profile") {
		t.Error("generic prompt must not carry a company section")
	}
	if !strings.Contains(prompt, "fit_score") {
		t.Error("prompt must spell out the JSON response contract")
	}
}

func TestBuildPrompt_MissingFieldsGetPlaceholders(t *testing.T) {
	prompt := BuildPrompt(PromptGeneric, models.Opportunity{}, models.CompanyProfile{})

	for _, want := range []string{"Title: Unknown", "Due Date: Unknown", "Estimated Value: Not specified"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing placeholder %q", want)
		}
	}
}
