// Package identity canonicalizes student and team identifiers so the survey,
// the roster and the financial ledgers can be joined.
//
// Survey and roster use the canonical form "{team} - {last}, {first}".
// Ledgers use "{first} {last}" and are hand-maintained, so matching falls back
// to the surname when the full name does not match. Two students of one team
// sharing a surname can therefore be confused; that ambiguity is accepted.
package identity

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

const (
	teamSeparator = '-'
	shortSplit    = " - "
)

// Canonical NFC-normalizes id, trims it and collapses internal whitespace runs
// (including newlines) to single spaces.
func Canonical(id string) string {
	return strings.Join(strings.Fields(norm.NFC.String(id)), " ")
}

// Compose builds the canonical identifier for a roster row.
func Compose(team, last, first string) string {
	return Canonical(strings.TrimSpace(team) + shortSplit + strings.TrimSpace(last) + ", " + strings.TrimSpace(first))
}

// TeamKeyOf returns the text before the first '-', trimmed. It reports false
// for empty identifiers and for identifiers that start with the separator.
func TeamKeyOf(id string) (string, bool) {
	s := strings.TrimSpace(id)
	if s == "" || s[0] == teamSeparator {
		return "", false
	}
	if i := strings.IndexByte(s, teamSeparator); i >= 0 {
		s = s[:i]
	}
	key := strings.TrimSpace(s)
	return key, key != ""
}

// ShortName strips the team prefix: "2A - Watts, BriAri" -> "Watts, BriAri".
// Identifiers without the " - " separator are returned unchanged.
func ShortName(id string) string {
	parts := strings.Split(id, shortSplit)
	if len(parts) > 1 {
		return strings.TrimSpace(parts[1])
	}
	return strings.TrimSpace(id)
}

// ToLedgerForm converts "{team} - {last}, {first}" to "{first} {last}".
// Without exactly one comma the short name is returned unchanged.
func ToLedgerForm(id string) string {
	short := ShortName(id)
	parts := strings.Split(short, ",")
	if len(parts) != 2 {
		return short
	}
	last, first := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	if last == "" || first == "" {
		return short
	}
	return first + " " + last
}

// MatchLedgerName finds ledgerForm among candidates: exact (whitespace
// insensitive) first, then by case-insensitive surname, the last
// whitespace-delimited token. The first matching candidate wins.
func MatchLedgerName(ledgerForm string, candidates []string) (string, bool) {
	want := Canonical(ledgerForm)
	if want == "" {
		return "", false
	}
	for _, c := range candidates {
		if Canonical(c) == want {
			return c, true
		}
	}

	surname := FoldKey(lastToken(want))
	for _, c := range candidates {
		tok := lastToken(c)
		if tok != "" && FoldKey(tok) == surname {
			return c, true
		}
	}
	return "", false
}

// FoldKey returns a case-folded canonical form of s, suitable for
// case-insensitive map keys such as team keys taken from filenames.
func FoldKey(s string) string {
	// Casers are stateful; one per call keeps FoldKey safe for concurrent use.
	return cases.Fold().String(Canonical(s))
}

func lastToken(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}
