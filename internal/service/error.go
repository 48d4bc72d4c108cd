package service

import "fmt"

// TranscriptionError indicates an inference-time failure on an
// already-loaded model, distinct from a model acquisition failure.
type TranscriptionError struct {
	Cause error
}

// Error implements error.
func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("transcription failed: %v", e.Cause)
}

// Unwrap returns the underlying cause.
func (e *TranscriptionError) Unwrap() error {
	return e.Cause
}
