package qualify

import (
	"testing"

	"github.com/procura/backend/internal/models"
)

func TestIsPrefilterPass_EmptyProfileAlwaysPasses(t *testing.T) {
	opp := models.Opportunity{
		NAICSCode:      "541511",
		SetAside:       "WOSB",
		EstimatedValue: 2_000_000,
	}
	if !IsPrefilterPass(opp, models.CompanyProfile{}) {
		t.Error("an empty profile has no signals and must never reject")
	}
}

func TestIsPrefilterPass_NAICSPrefixCoversFamily(t *testing.T) {
	profile := models.CompanyProfile{NAICSCodes: []string{"5415"}}

	if !IsPrefilterPass(models.Opportunity{NAICSCode: "541511"}, profile) {
		t.Error("4-digit profile code should cover the 541511 family")
	}
	if !IsPrefilterPass(models.Opportunity{NAICSCode: "54"}, profile) {
		t.Error("a broader opportunity code should match a narrower profile code")
	}
}

func TestIsPrefilterPass_AnyPassingCheckWins(t *testing.T) {
	// NAICS disagrees but value range contains the estimate.
	opp := models.Opportunity{
		NAICSCode:      "236220",
		EstimatedValue: 250_000,
	}
	profile := models.CompanyProfile{
		NAICSCodes:       []string{"541511"},
		MinContractValue: 100_000,
		MaxContractValue: 500_000,
	}
	if !IsPrefilterPass(opp, profile) {
		t.Error("a single passing check must pass the gate")
	}
}

func TestIsPrefilterPass_AllAvailableChecksFail(t *testing.T) {
	opp := models.Opportunity{
		NAICSCode:      "236220",
		SetAside:       "8(a)",
		EstimatedValue: 10_000_000,
	}
	profile := models.CompanyProfile{
		NAICSCodes:       []string{"541511"},
		SetAsideTypes:    []string{"WOSB"},
		MaxContractValue: 500_000,
	}
	if IsPrefilterPass(opp, profile) {
		t.Error("expected rejection when every available check fails")
	}
}

func TestIsPrefilterPass_SetAsideMatchesCertification(t *testing.T) {
	opp := models.Opportunity{SetAside: "wosb"}
	profile := models.CompanyProfile{Certifications: []string{"WOSB"}}
	if !IsPrefilterPass(opp, profile) {
		t.Error("set-aside match should be case-insensitive and include certifications")
	}
}

func TestIsPrefilterPass_MissingOpportunityDataIsNotASignal(t *testing.T) {
	// Profile is rich but the opportunity carries no NAICS, value, or
	// set-aside. Nothing to check against, so it passes through to AI.
	profile := models.CompanyProfile{
		NAICSCodes:       []string{"541511"},
		SetAsideTypes:    []string{"WOSB"},
		MinContractValue: 100_000,
		MaxContractValue: 500_000,
	}
	if !IsPrefilterPass(models.Opportunity{Title: "Untagged notice"}, profile) {
		t.Error("an opportunity with no comparable fields must not be rejected")
	}
}
