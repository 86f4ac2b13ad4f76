// Package roster reconciles submitted evaluations against the class roster.
package roster

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/okian/peerreview/internal/domain/identity"
	"github.com/okian/peerreview/internal/domain/model"
)

// Roster column names.
const (
	ColPeriod    = "Period"
	ColGroup     = "Group"
	ColFirstName = "Student First Name"
	ColLastName  = "Student Last Name"
)

var requiredColumns = []string{ColPeriod, ColGroup, ColFirstName, ColLastName}

// Binding holds the positions of the roster columns in a header.
type Binding struct {
	period, group, first, last int
}

// Bind locates every roster column; all of them are required.
func Bind(header []string) (Binding, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.Join(strings.Fields(strings.TrimPrefix(h, "\ufeff")), " "))
		if _, dup := idx[key]; !dup {
			idx[key] = i
		}
	}
	var missing []string
	pos := make([]int, len(requiredColumns))
	for i, col := range requiredColumns {
		p, ok := idx[strings.ToLower(col)]
		if !ok {
			missing = append(missing, col)
		}
		pos[i] = p
	}
	if len(missing) > 0 {
		return Binding{}, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return Binding{period: pos[0], group: pos[1], first: pos[2], last: pos[3]}, nil
}

// Parse converts roster records into entries. Rows without a group or without
// any name part are skipped.
func Parse(header []string, records [][]string) ([]model.RosterEntry, error) {
	b, err := Bind(header)
	if err != nil {
		return nil, err
	}
	get := func(rec []string, i int) string {
		if i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	out := make([]model.RosterEntry, 0, len(records))
	for _, rec := range records {
		e := model.RosterEntry{
			Period:    get(rec, b.period),
			Team:      get(rec, b.group),
			FirstName: get(rec, b.first),
			LastName:  get(rec, b.last),
		}
		if e.Team == "" || (e.FirstName == "" && e.LastName == "") {
			continue
		}
		e.ID = identity.Compose(e.Team, e.LastName, e.FirstName)
		out = append(out, e)
	}
	return out, nil
}

// FindMissing returns, in roster order, every entry whose identifier is not
// the submitter of any evaluation. A nil roster yields nothing.
func FindMissing(entries []model.RosterEntry, teams []model.Team) []model.RosterEntry {
	if len(entries) == 0 {
		return nil
	}
	submitted := make(map[string]struct{})
	for _, t := range teams {
		for _, e := range t.Evaluations {
			submitted[identity.Canonical(e.Submitter)] = struct{}{}
		}
	}

	var missing []model.RosterEntry
	for _, e := range entries {
		if _, ok := submitted[identity.Canonical(e.ID)]; !ok {
			missing = append(missing, e)
		}
	}
	return missing
}

// GroupByPeriod groups entries by cohort period. Periods are sorted
// numerically when both are numbers, otherwise as text; entries keep their order.
func GroupByPeriod(entries []model.RosterEntry) []model.PeriodGroup {
	groups := make(map[string]*model.PeriodGroup)
	var periods []string
	for _, e := range entries {
		g, ok := groups[e.Period]
		if !ok {
			g = &model.PeriodGroup{Period: e.Period}
			groups[e.Period] = g
			periods = append(periods, e.Period)
		}
		g.Students = append(g.Students, e)
	}

	sort.SliceStable(periods, func(i, j int) bool { return periodLess(periods[i], periods[j]) })

	out := make([]model.PeriodGroup, 0, len(periods))
	for _, p := range periods {
		out = append(out, *groups[p])
	}
	return out
}

func periodLess(a, b string) bool {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	if errA == nil && errB == nil {
		return na < nb
	}
	return a < b
}
