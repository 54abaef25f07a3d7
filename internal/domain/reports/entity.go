package reports

import (
	"time"

	"github.com/bryanwahyu/formc-review/internal/domain/compliance"
)

// ReportID identifier type
type ReportID string

// Report is the outbound view of one reviewed filing.
type Report struct {
	ID          ReportID                      `json:"id,omitempty"`
	Success     bool                          `json:"success"`
	IssuerName  string                        `json:"issuer_name"`
	FileName    string                        `json:"file_name,omitempty"`
	TotalPages  int                           `json:"total_pages"`
	RawAnalysis string                        `json:"raw_analysis"`
	Structured  compliance.StructuredAnalysis `json:"structured_analysis"`
	ModelUsed   string                        `json:"model_used"`
	Truncated   bool                          `json:"truncated,omitempty"`
	ArchiveURL  string                        `json:"archive_url,omitempty"`
	Error       string                        `json:"error"`
	CreatedAt   time.Time                     `json:"created_at"`
}
