package model

import (
	"errors"
	"fmt"
)

// ErrUnknownTier indicates a tier name outside the closed tier set.
var ErrUnknownTier = errors.New("unknown model tier")

// LoadError indicates that a model could not be acquired after the full
// backoff schedule was exhausted.
type LoadError struct {
	Tier  Tier
	Cause error
}

// Error implements error.
func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load model for tier %q: %v", e.Tier, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *LoadError) Unwrap() error {
	return e.Cause
}
