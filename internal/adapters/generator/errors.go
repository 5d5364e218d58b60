package generator

import "errors"

// Sentinel kinds for generator errors.
var (
	// ErrGenerationFailed marks a content generator failure. It is
	// non-fatal; callers fall back to canned text.
	ErrGenerationFailed = errors.New("content generation failed")
)
