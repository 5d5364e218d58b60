package session

import "errors"

// Sentinel kinds for session errors.
var (
	// ErrSessionNotFound marks an operation that requires a prior
	// Initialize call for the participant.
	ErrSessionNotFound = errors.New("session not found")
)
