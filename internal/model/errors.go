package model

import "errors"

// Error taxonomy shared across components. Callers classify failures with
// errors.Is; wrapping preserves the underlying cause.
var (
	// ErrInvalidInput marks malformed or missing required data. Not
	// retried, surfaced to the caller.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidConfig marks weights or thresholds that violate
	// invariants. Fatal at configuration load.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrExternalTimeout marks a scoring or speech dependency that did
	// not respond within its deadline.
	ErrExternalTimeout = errors.New("external service timeout")

	// ErrExternalService marks a scoring or speech dependency failure
	// other than a timeout.
	ErrExternalService = errors.New("external service error")

	// ErrTranscriptionFailed marks speech-to-text failure after all
	// retries were exhausted.
	ErrTranscriptionFailed = errors.New("transcription failed")
)
