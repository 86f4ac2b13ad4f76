package source

import "errors"

// Sentinel kinds for source errors.
var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrNoTeamKey         = errors.New("no team key in file name")
	ErrEmptyWorkbook     = errors.New("workbook has no sheets")
)
