package model

// StudentFinancial is one student's row from a team's Summary sheet. Name is
// in ledger form ("First Last").
type StudentFinancial struct {
	Name      string  `json:"name" yaml:"name"`
	Income    float64 `json:"income" yaml:"income"`
	Expenses  float64 `json:"expenses" yaml:"expenses"`
	Profit    float64 `json:"profit" yaml:"profit"`
	Inventory float64 `json:"inventory" yaml:"inventory"`
}

// Ledger is the ordered set of per-student rows of one team, in sheet order.
// A later row with the same name replaces the earlier one in place.
type Ledger []StudentFinancial

// Names returns the ledger names in sheet order.
func (l Ledger) Names() []string {
	out := make([]string, len(l))
	for i, r := range l {
		out[i] = r.Name
	}
	return out
}

// Lookup returns the row with the exact name.
func (l Ledger) Lookup(name string) (StudentFinancial, bool) {
	for _, r := range l {
		if r.Name == name {
			return r, true
		}
	}
	return StudentFinancial{}, false
}

// Put inserts or replaces the row for r.Name.
func (l Ledger) Put(r StudentFinancial) Ledger {
	for i := range l {
		if l[i].Name == r.Name {
			l[i] = r
			return l
		}
	}
	return append(l, r)
}

// TeamFinancials is what was extracted from one team's financial file.
// A nil Profit means the profit is unknown, which is not the same as zero.
type TeamFinancials struct {
	Team     string   `json:"team" yaml:"team"`
	Source   string   `json:"source,omitempty" yaml:"source,omitempty"`
	Profit   *float64 `json:"profit" yaml:"profit"`
	Students Ledger   `json:"students,omitempty" yaml:"students,omitempty"`
}
