package repository

import "errors"

// Sentinel kinds for report store errors.
var (
	ErrNotFound  = errors.New("team not found")
	ErrEmptyTeam = errors.New("report has no team key")
)
