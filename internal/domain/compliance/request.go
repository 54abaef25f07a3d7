package compliance

// AnalysisRequest is the unit of work sent to the reasoning service.
type AnalysisRequest struct {
	IssuerName string
	// DocumentText is the document body after truncation to the budget.
	DocumentText string
	// OriginalLength is the document length in characters before truncation.
	OriginalLength int
	Truncated      bool
	Checklist      string
	Instructions   string
	// Prompt is the complete text handed to the reasoning service.
	Prompt string
}
