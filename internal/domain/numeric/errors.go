package numeric

import "errors"

// Sentinel kinds for parse failures.
var (
	ErrEmpty     = errors.New("empty value")
	ErrMalformed = errors.New("malformed number")
)
