package store

import "errors"

// Sentinel kinds for participant store errors.
var (
	// ErrNotFound marks an unknown participant id.
	ErrNotFound = errors.New("participant not found")
	// ErrUnavailable marks a retryable store outage or timeout.
	ErrUnavailable = errors.New("participant store unavailable")
)
