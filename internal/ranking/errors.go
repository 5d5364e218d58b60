package ranking

import "errors"

// Sentinel kinds for ranking errors.
var (
	// ErrInvalidScope marks a malformed scope or scope parameters.
	ErrInvalidScope = errors.New("invalid ranking scope")
)
