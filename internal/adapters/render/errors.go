package render

import "errors"

// ErrUnknownFormat is returned for an output format with no writer.
var ErrUnknownFormat = errors.New("unknown output format")
