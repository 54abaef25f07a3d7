package checklist

import (
	"fmt"
	"strings"
)

// RenderText renders the itemized checklist as plain text. The output only
// depends on catalog contents, so repeated calls return identical strings.
//
//	### Ownership Structure:
//	- Check: Must identify all beneficial owners with 20% or more of voting equity
//	  If missing/inadequate, report: "No owners with 20%+ equity identified"
//	  Rule: Rule 201(h), Severity: Critical
func (c *Catalog) RenderText() string {
	return c.rendered
}

// RenderDisclosures renders the Rule 201 disclosure outline followed by the
// inconsistencies to flag. An empty intermediary means DefaultIntermediary.
func (c *Catalog) RenderDisclosures(intermediary string) string {
	return withIntermediary(c.disclosureText, intermediary)
}

// RenderChecklist is the full checklist handed to the model: the disclosure
// outline, then the itemized issues.
func (c *Catalog) RenderChecklist(intermediary string) string {
	return c.RenderDisclosures(intermediary) + "\n\nSPECIFIC ISSUES TO CHECK:\n" + c.rendered
}

func withIntermediary(s, name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultIntermediary
	}
	return strings.ReplaceAll(s, IntermediaryPlaceholder, name)
}

func renderItems(categories []Category) string {
	sections := make([]string, 0, len(categories)*4)
	for _, cat := range categories {
		sections = append(sections, fmt.Sprintf("\n### %s:", cat.title))
		for _, it := range cat.items {
			sections = append(sections, fmt.Sprintf(
				"- Check: %s\n  If missing/inadequate, report: %q\n  Rule: %s, Severity: %s",
				it.Check, it.Issue, it.Rule, it.Severity,
			))
		}
	}
	return strings.Join(sections, "\n")
}

func renderDisclosures(disclosures []Disclosure, inconsistencies []string) string {
	var b strings.Builder
	b.WriteString("FORM C REQUIRED DISCLOSURES (Rule 201 - Regulation Crowdfunding)\n\n")
	b.WriteString("The issuer must provide the following disclosures:\n")
	for i, d := range disclosures {
		fmt.Fprintf(&b, "\n%d. %s (%s):\n", i+1, strings.ToUpper(d.Title), d.Rules)
		for _, r := range d.Requirements {
			fmt.Fprintf(&b, "   - %s\n", r)
		}
	}
	if len(inconsistencies) > 0 {
		b.WriteString("\nCRITICAL INCONSISTENCIES TO FLAG:\n")
		for _, s := range inconsistencies {
			fmt.Fprintf(&b, "- %s\n", s)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
