package survey

import (
	"fmt"
	"strings"

	"github.com/okian/peerreview/internal/domain/model"
)

// MemberCells holds the raw cells describing one team member.
type MemberCells struct {
	Name       string
	Percentage string
	Work       map[model.Category]string
}

// Row is one survey response with every field the ingestor needs.
type Row struct {
	// Line is the 1-based data row number, for diagnostics.
	Line      int
	Timestamp string
	Submitter string
	// Members[0] is the submitter's self-assessment; Members[1..3] are
	// Group Members 2-4.
	Members    [MaxMembers]MemberCells
	HasFourth  string
	Evidence   string
	Photos     string
	Challenges string
	Positives  string
	Advice     string
}

// Binding maps schema columns to positions in a concrete header.
type Binding struct {
	index map[string]int
}

// Bind matches header against the schema. Only the required columns must be
// present; every other column reads as blank when absent.
func Bind(header []string) (Binding, error) {
	if len(header) == 0 {
		return Binding{}, ErrEmptyTable
	}
	b := Binding{index: make(map[string]int, len(header))}
	for i, h := range header {
		key := normalizeHeader(h)
		if _, dup := b.index[key]; !dup {
			b.index[key] = i
		}
	}

	var missing []string
	for _, col := range RequiredColumns {
		if !b.Has(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return Binding{}, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return b, nil
}

// Has reports whether the header carried column col.
func (b Binding) Has(col string) bool {
	_, ok := b.index[normalizeHeader(col)]
	return ok
}

// Row builds a typed Row from one record. Short records are padded with blanks.
func (b Binding) Row(line int, cells []string) Row {
	get := func(col string) string {
		i, ok := b.index[normalizeHeader(col)]
		if !ok || i >= len(cells) {
			return ""
		}
		return cells[i]
	}

	r := Row{
		Line:       line,
		Timestamp:  get(ColTimestamp),
		Submitter:  get(ColSubmitter),
		HasFourth:  get(ColHasFourth),
		Evidence:   get(ColEvidence),
		Photos:     get(ColPhotos),
		Challenges: get(ColChallenges),
		Positives:  get(ColPositives),
		Advice:     get(ColAdvice),
	}
	for n := 1; n <= MaxMembers; n++ {
		mc := columnsFor(n)
		cells := MemberCells{
			Name:       get(mc.name),
			Percentage: get(mc.percentage),
			Work:       make(map[model.Category]string, len(model.Categories)),
		}
		for _, c := range model.Categories {
			cells.Work[c] = get(mc.work[c])
		}
		r.Members[n-1] = cells
	}
	return r
}

// Parse binds header and converts every record into a Row.
func Parse(header []string, records [][]string) ([]Row, error) {
	b, err := Bind(header)
	if err != nil {
		return nil, err
	}
	rows := make([]Row, 0, len(records))
	for i, rec := range records {
		rows = append(rows, b.Row(i+1, rec))
	}
	return rows, nil
}
