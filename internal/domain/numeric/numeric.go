// Package numeric converts human-entered spreadsheet cells to numbers.
//
// Parsers return explicit errors; call sites that must not abort on a bad cell
// wrap them with OrZero.
package numeric

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

var currencyCleaner = strings.NewReplacer("$", "", ",", "")

// Percentage parses "50", "50%" or " 33.3 % ". A single trailing percent sign
// (ASCII or full-width) is stripped.
func Percentage(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimSuffix(s, "%")
	s = strings.TrimSuffix(s, "％")
	return parse(strings.TrimSpace(s))
}

// Currency parses "$1,234.50", "1234.5" or "-12". Dollar signs and thousand
// separators are removed before parsing.
func Currency(raw string) (float64, error) {
	return parse(strings.TrimSpace(currencyCleaner.Replace(strings.TrimSpace(raw))))
}

// OrZero degrades a parse result to 0 on any error.
func OrZero(v float64, err error) float64 {
	if err != nil {
		return 0
	}
	return v
}

func parse(s string) (float64, error) {
	if s == "" || strings.EqualFold(s, "nan") {
		return 0, ErrEmpty
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformed, s)
	}
	return finite(f)
}

func finite(f float64) (float64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %v", ErrMalformed, f)
	}
	return f, nil
}
