package apperr

import "errors"

// Sentinel errors for the ingestion and grading pipeline. Services wrap these
// with fmt.Errorf("...: %w", Err...) so callers can classify failures with
// errors.Is while still logging the specific cause.
var (
	// ErrUnsupportedFormat means the declared file type has no extractor.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrExtractionFailed means a document yielded no usable text.
	ErrExtractionFailed = errors.New("text extraction failed")

	// ErrInsufficientContent means material text is too short to generate from.
	ErrInsufficientContent = errors.New("insufficient material content")

	// ErrResponseMalformed means the LLM response could not be parsed. It
	// triggers the fallback question path and is never surfaced to end users.
	ErrResponseMalformed = errors.New("malformed model response")

	// ErrServiceUnconfigured means an external credential is missing. It is
	// distinguishable from a transient network failure.
	ErrServiceUnconfigured = errors.New("service not configured")

	// ErrValidationFailed means the caller supplied bad input.
	ErrValidationFailed = errors.New("validation failed")

	// ErrNotFound means a referenced record is absent or not owned by the caller.
	ErrNotFound = errors.New("record not found")
)
