package compliance

// Entry is one semi-structured record in a report section. Only Text is
// guaranteed; the other fields are filled when they can be recognized.
type Entry struct {
	Text     string `json:"text"`
	Category string `json:"category,omitempty"`
	Rule     string `json:"rule,omitempty"`
	Severity string `json:"severity,omitempty"`
	Page     int    `json:"page,omitempty"`
}

// StructuredAnalysis holds the four report sections plus the narrative they
// were derived from. Sections are never nil.
type StructuredAnalysis struct {
	Amendments           []Entry `json:"amendments"`
	Verifications        []Entry `json:"verifications"`
	CompliantDisclosures []Entry `json:"compliant_disclosures"`
	KeyPersonnel         []Entry `json:"key_personnel"`
	RawText              string  `json:"raw_text"`
}

// EmptyStructuredAnalysis returns a value with all sections initialized.
func EmptyStructuredAnalysis() StructuredAnalysis {
	return StructuredAnalysis{
		Amendments:           []Entry{},
		Verifications:        []Entry{},
		CompliantDisclosures: []Entry{},
		KeyPersonnel:         []Entry{},
	}
}

// AnalysisResult is the outcome of one analysis. It is built once and not
// modified afterwards.
type AnalysisResult struct {
	Success     bool               `json:"success"`
	IssuerName  string             `json:"issuer_name"`
	RawAnalysis string             `json:"raw_analysis"`
	Structured  StructuredAnalysis `json:"structured_analysis"`
	ModelUsed   string             `json:"model_used"`
	Error       string             `json:"error"`
	Truncated   bool               `json:"-"`

	// Err keeps the typed cause for errors.Is checks by callers.
	Err error `json:"-"`
}

// Failed builds an unsuccessful result carrying err.
func Failed(issuer string, err error) AnalysisResult {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return AnalysisResult{
		Success:    false,
		IssuerName: issuer,
		Structured: EmptyStructuredAnalysis(),
		Error:      msg,
		Err:        err,
	}
}
