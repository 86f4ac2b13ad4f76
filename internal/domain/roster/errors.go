package roster

import "errors"

// ErrMissingColumn marks a roster file that does not follow the roster schema.
var ErrMissingColumn = errors.New("roster is missing required columns")
