package qualify

import (
	"fmt"
	"strings"
	"time"

	"github.com/procura/backend/internal/models"
)

// PromptKind selects which qualification template to build. Keeping it
// a closed enum gives the compiler an exhaustiveness check instead of
// a template lookup that can miss at runtime.
type PromptKind int

const (
	PromptGeneric PromptKind = iota
	PromptPersonalized
)

// PromptKindFor returns the personalized template whenever a company
// profile has been filled in.
func PromptKindFor(profile models.CompanyProfile) PromptKind {
	if profile.CompanyName != "" {
		return PromptPersonalized
	}
	return PromptGeneric
}

// The urgency bands are spelled out in the prompt so scoring stays
// reproducible across runs of the same model:
// 80-100 due within 7 days, 60-79 within 14, 40-59 within 30, else below 40.
const scoringCriteria = `**Scoring Criteria:**

1. **Fit Score (0-100)**: How well does this opportunity align with %s?
   - 80-100: Perfect fit - direct match to core capabilities
   - 60-79: Good fit - related to core capabilities
   - 40-59: Moderate fit - some relevant capabilities
   - 0-39: Poor fit - outside typical capabilities

2. **Effort Score (0-100)**: How complex and resource-intensive is this opportunity?
   - 80-100: Very high effort - large team, long timeline, complex requirements
   - 60-79: High effort - significant resources needed
   - 40-59: Moderate effort - standard project size
   - 0-39: Low effort - small, straightforward project

3. **Urgency Score (0-100)**: How time-sensitive is the deadline?
   - 80-100: Critical - due within 7 days
   - 60-79: High urgency - due within 14 days
   - 40-59: Moderate - due within 30 days
   - 0-39: Low urgency - over 30 days

Respond with ONLY valid JSON:
{
  "fit_score": <number>,
  "effort_score": <number>,
  "urgency_score": <number>,
  "summary": "<2-3 sentence summary of why this is or isn't a good fit>",
  "reasoning": {
    "fit": "<brief explanation>",
    "effort": "<brief explanation>",
    "urgency": "<brief explanation>"
  }
}`

// BuildPrompt assembles the qualification prompt for an opportunity.
func BuildPrompt(kind PromptKind, opp models.Opportunity, profile models.CompanyProfile) string {
	var b strings.Builder

	b.WriteString("Analyze this government contract opportunity and provide qualification scores.\n\n")
	b.WriteString("**Opportunity Details:**\n")
	fmt.Fprintf(&b, "- Title: %s\n", orUnknown(opp.Title))
	fmt.Fprintf(&b, "- Agency: %s\n", orUnknown(opp.Agency))
	fmt.Fprintf(&b, "- Description: %s\n", truncate(orDefault(opp.Description, "No description provided"), 1000))
	fmt.Fprintf(&b, "- NAICS Code: %s\n", orDefault(opp.NAICSCode, "Not specified"))
	fmt.Fprintf(&b, "- Set-Aside: %s\n", orDefault(opp.SetAside, "None"))
	fmt.Fprintf(&b, "- Posted Date: %s\n", fmtDate(opp.PostedDate))
	fmt.Fprintf(&b, "- Due Date: %s\n", fmtDate(opp.DueDate))
	if opp.EstimatedValue > 0 {
		fmt.Fprintf(&b, "- Estimated Value: $%.0f\n", opp.EstimatedValue)
	} else {
		b.WriteString("- Estimated Value: Not specified\n")
	}
	b.WriteString("\n")

	switch kind {
	case PromptPersonalized:
		b.WriteString("**Company Profile (score fit against THIS company, not a generic contractor):**\n")
		fmt.Fprintf(&b, "- Company: %s\n", profile.CompanyName)
		if len(profile.NAICSCodes) > 0 {
			fmt.Fprintf(&b, "- NAICS Codes: %s\n", strings.Join(profile.NAICSCodes, ", "))
		}
		if len(profile.Certifications) > 0 {
			fmt.Fprintf(&b, "- Certifications: %s\n", strings.Join(profile.Certifications, ", "))
		}
		if profile.Capabilities != "" {
			fmt.Fprintf(&b, "- Capabilities: %s\n", truncate(profile.Capabilities, 800))
		}
		if len(profile.Keywords) > 0 {
			fmt.Fprintf(&b, "- Specializations: %s\n", strings.Join(profile.Keywords, ", "))
		}
		if len(profile.PastPerformance) > 0 {
			b.WriteString("- Past Performance:\n")
			for _, pp := range profile.PastPerformance {
				fmt.Fprintf(&b, "  - %s (%s, $%.0f)\n", pp.Title, pp.Agency, pp.Value)
			}
		}
		b.WriteString("\n")
		fmt.Fprintf(&b, scoringCriteria, fmt.Sprintf("%s's stated capabilities and past performance", profile.CompanyName))
	case PromptGeneric:
		fmt.Fprintf(&b, scoringCriteria, "typical IT services, software development, cloud infrastructure, or consulting capabilities")
	}

	return b.String()
}

func orUnknown(s string) string { return orDefault(s, "Unknown") }

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func fmtDate(t *time.Time) string {
	if t == nil {
		return "Unknown"
	}
	return t.Format("2006-01-02")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
