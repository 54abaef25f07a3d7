package ai

import "errors"

// ErrQuotaExceeded indicates the AI provider returned a quota/limit error (HTTP 429 or similar).
var ErrQuotaExceeded = errors.New("ai quota exceeded")

// ErrUnauthorized indicates the credential was rejected (HTTP 401/403).
var ErrUnauthorized = errors.New("ai credential rejected")

// ErrEmptyResponse indicates the provider answered without any text.
var ErrEmptyResponse = errors.New("ai returned empty response")

// ErrTimeout indicates the call did not finish before its deadline.
var ErrTimeout = errors.New("ai call timed out")
