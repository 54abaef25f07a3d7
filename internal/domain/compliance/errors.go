package compliance

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the review pipeline. Callers match them with
// errors.Is; wrapped errors keep the underlying cause in their message.
var (
	// ErrInvalidInput indicates an empty issuer name or document text.
	ErrInvalidInput = errors.New("invalid input")
	// ErrExtraction indicates the document could not be converted to text.
	ErrExtraction = errors.New("document extraction failed")
	// ErrExternalService indicates the reasoning service failed or returned
	// an unusable response.
	ErrExternalService = errors.New("external reasoning service failed")
	// ErrConfiguration indicates missing or invalid startup configuration.
	ErrConfiguration = errors.New("configuration error")
	// ErrDocumentTooLarge is returned instead of truncating when the
	// oversize policy is set to reject.
	ErrDocumentTooLarge = errors.New("document exceeds character budget")
)

// External marks cause as a reasoning service failure. The result matches
// both ErrExternalService and every error in the cause chain.
func External(cause error) error {
	if cause == nil {
		return ErrExternalService
	}
	return fmt.Errorf("%w: %w", ErrExternalService, cause)
}
