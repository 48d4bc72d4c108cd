package backend

import "errors"

// Error definitions for the backend package.
var (
	ErrServerNotFound = errors.New("backend server not found")
)
