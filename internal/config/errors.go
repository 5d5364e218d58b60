package config

import "errors"

// Sentinels callers can test with errors.Is when Load fails.
var (
	// ErrLoadConfig wraps failures reading or decoding a config source.
	ErrLoadConfig = errors.New("load config failed")

	// ErrInvalidConfig marks a config that decoded cleanly but failed
	// validation.
	ErrInvalidConfig = errors.New("invalid config")
)
