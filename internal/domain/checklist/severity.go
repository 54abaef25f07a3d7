package checklist

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Severity is an ordered enum; lower values are more severe.
type Severity int

const (
	SeverityCritical Severity = iota
	SeverityHigh
	SeverityMedium
	SeverityLow
)

var severityNames = [...]string{"Critical", "High", "Medium", "Low"}

// Severities returns every level, most severe first.
func Severities() []Severity {
	return []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow}
}

// ParseSeverity accepts any casing of the four level names.
func ParseSeverity(v string) (Severity, error) {
	v = strings.TrimSpace(v)
	for i, name := range severityNames {
		if strings.EqualFold(v, name) {
			return Severity(i), nil
		}
	}
	return 0, eris.Wrapf(ErrInvalidCatalog, "unknown severity %q", v)
}

func (s Severity) Valid() bool {
	return s >= SeverityCritical && s <= SeverityLow
}

func (s Severity) String() string {
	if !s.Valid() {
		return "Unknown"
	}
	return severityNames[s]
}

// AtLeast reports whether s is as severe as, or more severe than, min.
func (s Severity) AtLeast(min Severity) bool {
	return s <= min
}

func (s Severity) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, eris.Errorf("checklist: invalid severity %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(b []byte) error {
	parsed, err := ParseSeverity(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
