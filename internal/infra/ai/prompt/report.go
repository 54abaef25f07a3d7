package prompt

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/bryanwahyu/formc-review/internal/domain/checklist"
	"github.com/bryanwahyu/formc-review/internal/domain/compliance"
)

type section int

const (
	sectionNone section = iota
	sectionAmendments
	sectionVerifications
	sectionCompliant
	sectionPersonnel
)

var sectionPhrases = []struct {
	phrase string
	sec    section
}{
	{"required issuer amendments", sectionAmendments},
	{"internal reviewer verification", sectionVerifications},
	{"disclosures present and compliant", sectionCompliant},
	{"key personnel", sectionPersonnel},
}

var (
	bulletRe   = regexp.MustCompile(`^(\s*)(?:[-*•+]|\d{1,3}[.)])\s+(.*)$`)
	ruleRe     = regexp.MustCompile(`Rule\s+\d{3}(?:\.\d+)?(?:\([A-Za-z0-9]+\))*`)
	labeledSev = regexp.MustCompile(`(?i)severity\W{0,4}(critical|high|medium|low)\b`)
	taggedSev  = regexp.MustCompile(`[\[(*](Critical|High|Medium|Low)[\])*]`)
	pageRe     = regexp.MustCompile(`(?i)\b(?:pages?|p\.)\s*:?\s*#?\s*(\d{1,4})\b`)
	romanRe    = regexp.MustCompile(`^(?:IV|III|II|I)[.):]\s*`)
	decoration = regexp.MustCompile(`^[\s#*_>🛑✅👍🧑‍💼]*(?:(?:I|II|III|IV)[.)]\s*)?`)
)

// Structure maps the narrative report onto the four report sections. It is
// best effort: lines that cannot be placed are left out of the sections but
// remain in RawText, which is always the input unchanged. The result only
// depends on raw.
func Structure(raw string) compliance.StructuredAnalysis {
	out := compliance.EmptyStructuredAnalysis()
	out.RawText = raw

	var (
		current  = sectionNone
		category string
		entry    *compliance.Entry
	)
	flush := func() {
		if entry == nil {
			return
		}
		finishEntry(entry)
		switch current {
		case sectionAmendments:
			out.Amendments = append(out.Amendments, *entry)
		case sectionVerifications:
			out.Verifications = append(out.Verifications, *entry)
		case sectionCompliant:
			out.CompliantDisclosures = append(out.CompliantDisclosures, *entry)
		case sectionPersonnel:
			out.KeyPersonnel = append(out.KeyPersonnel, *entry)
		}
		entry = nil
	}

	for _, line := range strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		m := bulletRe.FindStringSubmatch(line)

		if m == nil {
			if entry != nil && indentWidth(leadingSpace(line)) >= 2 {
				entry.Text += "\n" + strings.TrimSpace(line)
				continue
			}
			if sec, ok := sectionHeading(line); ok {
				flush()
				current, category = sec, ""
				continue
			}
			if current == sectionNone {
				continue
			}
			if title, ok := subHeading(line); ok {
				flush()
				if current == sectionAmendments {
					category = title
				}
				continue
			}
			if entry != nil {
				entry.Text += "\n" + strings.TrimSpace(line)
			}
			continue
		}

		if current == sectionNone {
			continue
		}
		nested := indentWidth(m[1]) >= 2
		if nested && entry != nil {
			entry.Text += "\n" + strings.TrimSpace(line)
			continue
		}
		flush()
		entry = &compliance.Entry{Text: strings.TrimSpace(m[2]), Category: category}
	}
	flush()
	return out
}

// sectionHeading recognizes the four report headings. A roman-numbered line
// only has to mention the section; "#" and "**" headings and short plain
// lines must start with its name. Label lines ending in ":" are left to
// subHeading, and indented lines are never headings.
func sectionHeading(line string) (section, bool) {
	if indentWidth(leadingSpace(line)) >= 2 {
		return sectionNone, false
	}
	t := strings.TrimSpace(line)
	hashed := strings.HasPrefix(t, "#")
	bold := strings.HasPrefix(t, "**")

	title := strings.TrimLeftFunc(t, notAlnum)
	numbered := false
	if m := romanRe.FindString(title); m != "" {
		numbered = true
		title = strings.TrimLeftFunc(title[len(m):], notAlnum)
	}
	title = strings.ToLower(strings.TrimRight(title, "*_ "))

	if !hashed && !numbered {
		if strings.HasSuffix(title, ":") {
			return sectionNone, false
		}
		if !bold && (len(strings.Fields(title)) > 8 || strings.HasSuffix(title, ".")) {
			return sectionNone, false
		}
	}
	for _, p := range sectionPhrases {
		if numbered && strings.Contains(title, p.phrase) {
			return p.sec, true
		}
		if strings.HasPrefix(title, p.phrase) || strings.HasPrefix(strings.TrimPrefix(title, "required "), p.phrase) {
			return p.sec, true
		}
	}
	return sectionNone, false
}

func notAlnum(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// subHeading recognizes "### Title", "**Title**" and "Title:" lines.
func subHeading(line string) (string, bool) {
	t := strings.TrimSpace(line)
	marked := strings.HasPrefix(t, "#") ||
		(strings.HasPrefix(t, "**") && strings.HasSuffix(strings.TrimSuffix(t, ":"), "**")) ||
		(strings.HasSuffix(t, ":") && len(t) <= 80)
	if !marked {
		return "", false
	}
	title := decoration.ReplaceAllString(t, "")
	title = strings.Trim(title, "*_: ")
	if title == "" {
		return "", false
	}
	return title, true
}

func leadingSpace(s string) string {
	return s[:len(s)-len(strings.TrimLeft(s, " \t"))]
}

func indentWidth(s string) int {
	return len(strings.ReplaceAll(s, "\t", "    "))
}

func finishEntry(e *compliance.Entry) {
	if r := ruleRe.FindString(e.Text); r != "" {
		e.Rule = strings.Join(strings.Fields(r), " ")
	}
	if m := labeledSev.FindStringSubmatch(e.Text); m != nil {
		e.Severity = canonicalSeverity(m[1])
	} else if m := taggedSev.FindStringSubmatch(e.Text); m != nil {
		e.Severity = canonicalSeverity(m[1])
	}
	if m := pageRe.FindStringSubmatch(e.Text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			e.Page = n
		}
	}
}

func canonicalSeverity(v string) string {
	s, err := checklist.ParseSeverity(v)
	if err != nil {
		return ""
	}
	return s.String()
}
