package qualify

import (
	"strings"

	"github.com/procura/backend/internal/models"
)

// IsPrefilterPass is the cheap rule gate run before any LLM call. It
// combines three independent checks: NAICS prefix match, value-range
// containment, and set-aside eligibility. A check with missing data on
// either side counts as a pass, so absent data never rejects. The gate
// fails only when every check that had data to work with disagrees.
func IsPrefilterPass(opp models.Opportunity, profile models.CompanyProfile) bool {
	checks := []struct {
		available bool
		pass      bool
	}{
		naicsCheck(opp, profile),
		valueCheck(opp, profile),
		setAsideCheck(opp, profile),
	}

	anyAvailable := false
	for _, c := range checks {
		if !c.available {
			continue
		}
		anyAvailable = true
		if c.pass {
			return true
		}
	}
	return !anyAvailable
}

type gateCheck = struct {
	available bool
	pass      bool
}

func naicsCheck(opp models.Opportunity, profile models.CompanyProfile) gateCheck {
	code := strings.TrimSpace(opp.NAICSCode)
	if code == "" || len(profile.NAICSCodes) == 0 {
		return gateCheck{}
	}
	for _, own := range profile.NAICSCodes {
		own = strings.TrimSpace(own)
		if own == "" {
			continue
		}
		// A 4-digit profile code like "5415" covers the whole
		// 541511/541512/... family and vice versa.
		if strings.HasPrefix(code, own) || strings.HasPrefix(own, code) {
			return gateCheck{available: true, pass: true}
		}
	}
	return gateCheck{available: true}
}

func valueCheck(opp models.Opportunity, profile models.CompanyProfile) gateCheck {
	if opp.EstimatedValue <= 0 {
		return gateCheck{}
	}
	if profile.MinContractValue <= 0 && profile.MaxContractValue <= 0 {
		return gateCheck{}
	}
	if profile.MinContractValue > 0 && opp.EstimatedValue < profile.MinContractValue {
		return gateCheck{available: true}
	}
	if profile.MaxContractValue > 0 && opp.EstimatedValue > profile.MaxContractValue {
		return gateCheck{available: true}
	}
	return gateCheck{available: true, pass: true}
}

func setAsideCheck(opp models.Opportunity, profile models.CompanyProfile) gateCheck {
	setAside := strings.TrimSpace(opp.SetAside)
	if setAside == "" || strings.EqualFold(setAside, "none") {
		return gateCheck{}
	}
	eligible := append(append([]string{}, profile.SetAsideTypes...), profile.Certifications...)
	if len(eligible) == 0 {
		return gateCheck{}
	}
	for _, e := range eligible {
		if strings.EqualFold(strings.TrimSpace(e), setAside) {
			return gateCheck{available: true, pass: true}
		}
	}
	return gateCheck{available: true}
}
