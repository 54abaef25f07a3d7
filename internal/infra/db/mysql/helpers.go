package mysql

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/bryanwahyu/formc-review/internal/domain/compliance"
)

// stringOrDash returns "-" when the input is empty/whitespace
func stringOrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// encodeStructured stores sections only; raw_text duplicates raw_analysis.
func encodeStructured(s compliance.StructuredAnalysis) (string, error) {
	s.RawText = ""
	b, err := json.Marshal(s)
	if err != nil {
		return "", eris.Wrap(err, "mysql: encode structured analysis")
	}
	return string(b), nil
}

func decodeStructured(data, raw string) (compliance.StructuredAnalysis, error) {
	out := compliance.EmptyStructuredAnalysis()
	if strings.TrimSpace(data) != "" {
		if err := json.Unmarshal([]byte(data), &out); err != nil {
			return out, eris.Wrap(err, "mysql: decode structured analysis")
		}
	}
	fillNil(&out)
	out.RawText = raw
	return out, nil
}

func fillNil(s *compliance.StructuredAnalysis) {
	if s.Amendments == nil {
		s.Amendments = []compliance.Entry{}
	}
	if s.Verifications == nil {
		s.Verifications = []compliance.Entry{}
	}
	if s.CompliantDisclosures == nil {
		s.CompliantDisclosures = []compliance.Entry{}
	}
	if s.KeyPersonnel == nil {
		s.KeyPersonnel = []compliance.Entry{}
	}
}
