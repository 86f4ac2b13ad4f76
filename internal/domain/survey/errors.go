package survey

import "errors"

// Sentinel kinds for survey table errors. Both are fatal for a run.
var (
	ErrEmptyTable    = errors.New("survey table has no header")
	ErrMissingColumn = errors.New("survey table is missing required columns")
)
