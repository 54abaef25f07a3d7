package postgres

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/bryanwahyu/formc-review/internal/domain/compliance"
)

func stringOrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func encodeStructured(s compliance.StructuredAnalysis) ([]byte, error) {
	s.RawText = ""
	b, err := json.Marshal(s)
	return b, eris.Wrap(err, "postgres: encode structured analysis")
}

func decodeStructured(data []byte, raw string) (compliance.StructuredAnalysis, error) {
	out := compliance.EmptyStructuredAnalysis()
	if len(data) > 0 {
		if err := json.Unmarshal(data, &out); err != nil {
			return out, eris.Wrap(err, "postgres: decode structured analysis")
		}
	}
	if out.Amendments == nil {
		out.Amendments = []compliance.Entry{}
	}
	if out.Verifications == nil {
		out.Verifications = []compliance.Entry{}
	}
	if out.CompliantDisclosures == nil {
		out.CompliantDisclosures = []compliance.Entry{}
	}
	if out.KeyPersonnel == nil {
		out.KeyPersonnel = []compliance.Entry{}
	}
	out.RawText = raw
	return out, nil
}
