package config

import "errors"

// Sentinel errors returned by Load and Validate; match them with errors.Is.
var (
	ErrInvalidConfig = errors.New("invalid peerreview configuration")
	ErrLoadConfig    = errors.New("cannot load peerreview configuration")
)
