package ai

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/procura/backend/internal/models"
)

// proposalSections defines what gets drafted and in which order. Order
// matters only for prompt context: later sections see earlier ones.
var proposalSections = []struct {
	Key         string
	Title       string
	Instruction string
}{
	{
		Key:         "executive_summary",
		Title:       "Executive Summary",
		Instruction: "Summarize why the company is the right choice for this contract in 2-3 paragraphs. Lead with the strongest capability match.",
	},
	{
		Key:         "technical_approach",
		Title:       "Technical Approach",
		Instruction: "Describe how the company would deliver the scope of work. Reference the solicitation requirements directly and map each to a capability.",
	},
	{
		Key:         "management_plan",
		Title:       "Management Plan",
		Instruction: "Describe staffing, schedule control, and risk management for this engagement.",
	},
	{
		Key:         "past_performance",
		Title:       "Past Performance",
		Instruction: "Present the company's relevant past performance. Use only the past performance entries provided; do not invent contracts.",
	},
}

// ProposalDrafter generates first-draft proposal sections for an
// opportunity. Satisfies the pipeline's ProposalGenerator interface.
type ProposalDrafter struct {
	llm Completer
}

func NewProposalDrafter(llm Completer) *ProposalDrafter {
	return &ProposalDrafter{llm: llm}
}

// Generate drafts every section. A single failed section fails the
// whole draft: a proposal with holes is worse than no proposal, since
// the pipeline would mark it generated.
func (p *ProposalDrafter) Generate(ctx context.Context, opp models.Opportunity, profile models.CompanyProfile) (map[string]string, error) {
	sections := make(map[string]string, len(proposalSections))

	for _, spec := range proposalSections {
		prompt := buildSectionPrompt(spec.Title, spec.Instruction, opp, profile, sections)
		text, err := p.llm.GenerateCompletion(ctx, prompt, false)
		if err != nil {
			return nil, fmt.Errorf("drafting %s: %w", spec.Key, err)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return nil, fmt.Errorf("drafting %s: empty completion", spec.Key)
		}
		sections[spec.Key] = text
		log.Printf("[Proposal] Drafted section %s (%d chars) for opportunity %s", spec.Key, len(text), opp.ID)
	}

	return sections, nil
}

func buildSectionPrompt(title, instruction string, opp models.Opportunity, profile models.CompanyProfile, prior map[string]string) string {
	var b strings.Builder

	b.WriteString("You are drafting one section of a government contract proposal.\n\n")
	fmt.Fprintf(&b, "SECTION: %s\n", title)
	fmt.Fprintf(&b, "INSTRUCTIONS: %s\n\n", instruction)

	b.WriteString("SOLICITATION:\n")
	fmt.Fprintf(&b, "- Title: %s\n", opp.Title)
	fmt.Fprintf(&b, "- Agency: %s\n", opp.Agency)
	fmt.Fprintf(&b, "- NAICS: %s\n", opp.NAICSCode)
	if opp.Description != "" {
		desc := opp.Description
		if len(desc) > 2000 {
			desc = desc[:2000]
		}
		fmt.Fprintf(&b, "- Description: %s\n", desc)
	}

	b.WriteString("\nCOMPANY:\n")
	fmt.Fprintf(&b, "- Name: %s\n", profile.CompanyName)
	if profile.Capabilities != "" {
		fmt.Fprintf(&b, "- Capabilities: %s\n", profile.Capabilities)
	}
	if len(profile.Certifications) > 0 {
		fmt.Fprintf(&b, "- Certifications: %s\n", strings.Join(profile.Certifications, ", "))
	}
	for _, pp := range profile.PastPerformance {
		fmt.Fprintf(&b, "- Past performance: %s (%s, $%.0f): %s\n", pp.Title, pp.Agency, pp.Value, pp.Description)
	}

	if summary, ok := prior["executive_summary"]; ok && title != "Executive Summary" {
		fmt.Fprintf(&b, "\nEXECUTIVE SUMMARY (for consistency):\n%s\n", summary)
	}

	b.WriteString("\nWrite the section body only, no heading. Professional federal proposal tone.")
	return b.String()
}
