package prompt

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"

	"github.com/bryanwahyu/formc-review/internal/domain/checklist"
	"github.com/bryanwahyu/formc-review/internal/domain/compliance"
)

const (
	DefaultMaxChars     = 100000
	DefaultIntermediary = checklist.DefaultIntermediary
)

// OversizePolicy decides what happens to documents longer than the budget.
type OversizePolicy string

const (
	OversizeTruncate OversizePolicy = "truncate"
	OversizeReject   OversizePolicy = "reject"
)

// ParseOversizePolicy accepts "truncate" (also the empty string) or "reject".
func ParseOversizePolicy(v string) (OversizePolicy, error) {
	switch OversizePolicy(strings.ToLower(strings.TrimSpace(v))) {
	case "", OversizeTruncate:
		return OversizeTruncate, nil
	case OversizeReject:
		return OversizeReject, nil
	}
	return "", eris.Wrapf(compliance.ErrConfiguration, "unknown oversize policy %q", v)
}

// Composer assembles the analysis prompt from the checklist, the issuer name
// and the document text. It holds no mutable state and is safe to share.
type Composer struct {
	maxChars     int
	intermediary string
	policy       OversizePolicy
	checklist    string
	instructions string
}

type Option func(*Composer)

// WithMaxChars sets the document budget in characters. Non-positive values
// keep the default.
func WithMaxChars(n int) Option {
	return func(c *Composer) {
		if n > 0 {
			c.maxChars = n
		}
	}
}

func WithIntermediary(name string) Option {
	return func(c *Composer) {
		if strings.TrimSpace(name) != "" {
			c.intermediary = strings.TrimSpace(name)
		}
	}
}

func WithOversizePolicy(p OversizePolicy) Option {
	return func(c *Composer) {
		if p != "" {
			c.policy = p
		}
	}
}

func NewComposer(catalog *checklist.Catalog, opts ...Option) *Composer {
	c := &Composer{
		maxChars:     DefaultMaxChars,
		intermediary: DefaultIntermediary,
		policy:       OversizeTruncate,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.checklist = catalog.RenderChecklist(c.intermediary)
	c.instructions = buildInstructions(c.intermediary)
	return c
}

func (c *Composer) MaxChars() int { return c.maxChars }

// Compose builds the request. Identical inputs always produce identical
// requests. Text longer than the budget is cut to exactly MaxChars
// characters, or rejected with ErrDocumentTooLarge under OversizeReject.
func (c *Composer) Compose(issuer, text string) (compliance.AnalysisRequest, error) {
	issuer = strings.TrimSpace(issuer)
	if issuer == "" {
		return compliance.AnalysisRequest{}, eris.Wrap(compliance.ErrInvalidInput, "issuer name is required")
	}
	if strings.TrimSpace(text) == "" {
		return compliance.AnalysisRequest{}, eris.Wrap(compliance.ErrInvalidInput, "document text is empty")
	}

	length := utf8.RuneCountInString(text)
	truncated := false
	if length > c.maxChars {
		if c.policy == OversizeReject {
			return compliance.AnalysisRequest{}, eris.Wrapf(compliance.ErrDocumentTooLarge,
				"%d characters, limit is %d", length, c.maxChars)
		}
		text = truncateRunes(text, c.maxChars)
		truncated = true
	}

	var b strings.Builder
	b.Grow(len(c.instructions) + len(c.checklist) + len(text) + 256)
	b.WriteString(c.instructions)
	b.WriteString("\n\n**COMPLIANCE CHECKLIST:**\n")
	b.WriteString(c.checklist)
	b.WriteString("\n\n**FORM C TO ANALYZE:**\n")
	fmt.Fprintf(&b, "Issuer: %s\n\n", issuer)
	b.WriteString(text)
	b.WriteString("\n\nGenerate the complete compliance report now.\n")

	return compliance.AnalysisRequest{
		IssuerName:     issuer,
		DocumentText:   text,
		OriginalLength: length,
		Truncated:      truncated,
		Checklist:      c.checklist,
		Instructions:   c.instructions,
		Prompt:         b.String(),
	}, nil
}

func truncateRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// Section headings the model is asked to use. Structure keys off the same
// phrases.
const (
	headingAmendments    = "I. 🛑 Required Issuer Amendments (External Actions)"
	headingVerifications = "II. ✅ Internal Reviewer Verification (Oversight Tasks)"
	headingCompliant     = "III. 👍 Required Disclosures Present and Compliant (Rule 201)"
	headingPersonnel     = "IV. 🧑‍💼 Key Personnel and Significant Ownership"
)

func buildInstructions(intermediary string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are an expert compliance analyst for %s reviewing a Form C submission for Regulation Crowdfunding.\n\n", intermediary)
	b.WriteString("Your task is to analyze the provided Form C document and generate a comprehensive compliance report following this exact structure:\n\n")
	b.WriteString("**REPORT STRUCTURE:**\n\n")

	fmt.Fprintf(&b, "**%s**\n", headingAmendments)
	b.WriteString(`Focus on material disclosure deficiencies that must be corrected. Organize by category:
- General Issues
- Risk Factor Issues
- Financial Consistency & Math Validation
- Capital Structure Review
- Use of Proceeds Validation
- Cross-Section Conflicts

For each issue, provide:
- Issue description
- Rule citation (e.g., Rule 201(f))
- Severity (Critical, High, Medium)
- Page number where found
- Specific explanation with details from the document
- AI reasoning explaining how you detected this issue

`)

	fmt.Fprintf(&b, "**%s**\n", headingVerifications)
	b.WriteString(`Always include these five checks:
1. Financial Statements (Rule 201(t)) - Confirm required level of assurance
2. Investor Fee Calculation
3. Intermediary Compensation (Rule 201(l))
4. Intermediary Other Interest (Rule 201(l))
5. Progress Update Mechanism (Rule 203)

`)

	fmt.Fprintf(&b, "**%s**\n", headingCompliant)
	b.WriteString("List all Rule 201 disclosures that ARE present and meet minimum standards.\n\n")

	fmt.Fprintf(&b, "**%s**\n", headingPersonnel)
	b.WriteString(`- Officers and Directors with their positions
- 20%+ owners with ownership percentages
- Control persons for entity owners

`)

	b.WriteString(`**CRITICAL ANALYSIS RULES:**
1. PRIORITIZE INCONSISTENCIES: Any conflicting information (amounts, dates, numbers) is CRITICAL
2. FLAG MISSING MATERIAL TERMS: Debt maturity, conversion terms, use of proceeds detail
3. CHECK MATH: Verify all calculations and cross-references
4. ASSESS SPECIFICITY: Flag generic/boilerplate language in risks and use of proceeds
5. VERIFY ALIGNMENT: Business description must match financials and risk factors`)
	return b.String()
}
