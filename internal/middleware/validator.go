package middleware

import (
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/bryanwahyu/formc-review/internal/domain/compliance"
	"github.com/bryanwahyu/formc-review/internal/domain/reports"
)

// MaxIssuerNameLength bounds the issuer form field, in characters.
const MaxIssuerNameLength = 200

// SanitizeString removes null bytes and control characters, keeping tabs
// and newlines, then trims surrounding space.
func SanitizeString(input string) string {
	var result strings.Builder
	result.Grow(len(input))
	for _, r := range input {
		if (r >= 32 && r != 127) || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}
	return strings.TrimSpace(result.String())
}

// ValidateIssuerName sanitizes name and rejects it when blank, multi-line
// or too long.
func ValidateIssuerName(name string) (string, error) {
	name = SanitizeString(name)
	if name == "" {
		return "", eris.Wrap(compliance.ErrInvalidInput, "issuer_name is required")
	}
	if strings.ContainsAny(name, "\n\t") {
		return "", eris.Wrap(compliance.ErrInvalidInput, "issuer_name must be a single line")
	}
	if utf8.RuneCountInString(name) > MaxIssuerNameLength {
		return "", eris.Wrapf(compliance.ErrInvalidInput, "issuer_name exceeds %d characters", MaxIssuerNameLength)
	}
	return name, nil
}

// ValidatePDFFileName accepts names ending in .pdf in any case.
func ValidatePDFFileName(name string) error {
	if name == "" {
		return eris.Wrap(compliance.ErrInvalidInput, "file is required")
	}
	if !strings.EqualFold(filepath.Ext(name), ".pdf") {
		return eris.Wrap(compliance.ErrInvalidInput, "Only PDF files are accepted")
	}
	return nil
}

// ValidateReportID requires a UUID.
func ValidateReportID(id string) error {
	if id == "" {
		return eris.Wrap(compliance.ErrInvalidInput, "report id cannot be empty")
	}
	if _, err := uuid.Parse(id); err != nil {
		return eris.Wrap(compliance.ErrInvalidInput, "invalid report id format")
	}
	return nil
}

// ValidateLimit validates pagination limit
func ValidateLimit(limit int) int {
	return reports.ClampPageSize(limit)
}

// ValidatePage clamps page numbers to start at one.
func ValidatePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}
