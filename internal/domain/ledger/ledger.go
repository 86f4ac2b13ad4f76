// Package ledger extracts profit figures from loosely structured,
// hand-maintained financial sheets using label heuristics.
package ledger

import (
	"strings"

	"github.com/okian/peerreview/internal/domain/model"
	"github.com/okian/peerreview/internal/domain/numeric"
)

// SummarySheet is the sheet name that carries per-student rows.
const SummarySheet = "Summary"

// Table is a sheet as rows of cell text. Row 0 is the sheet's first row;
// rows may be ragged.
type Table [][]string

func (t Table) cell(r, c int) string {
	if r < 0 || r >= len(t) || c < 0 || c >= len(t[r]) {
		return ""
	}
	return t[r][c]
}

var (
	headerMarker = "group member"
	summaryWords = []string{"total", "summary", "grand"}
)

// TeamProfit finds the team's profit. Strategies, first success wins:
//  1. a cell containing "total profit": the value to its right
//  2. a first-column label containing "profit" and "total": the second column
//  3. "total income" minus "total expense", each read to the right of its label
//  4. a cell containing "profit" or "net": the first number from there on in its row
//
// Cells that do not parse are skipped, never read as zero. ok is false when
// no strategy succeeds; the profit is then unknown.
func TeamProfit(t Table) (profit float64, ok bool) {
	for _, find := range []func(Table) (float64, bool){
		totalProfitCell,
		totalProfitLabel,
		incomeMinusExpenses,
		anyProfitRow,
	} {
		if v, found := find(t); found {
			return v, true
		}
	}
	return 0, false
}

func lower(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func currency(s string) (float64, bool) {
	v, err := numeric.Currency(s)
	return v, err == nil
}

func totalProfitCell(t Table) (float64, bool) {
	for r, row := range t {
		for c, cell := range row {
			if strings.Contains(lower(cell), "total profit") {
				if v, ok := currency(t.cell(r, c+1)); ok {
					return v, true
				}
			}
		}
	}
	return 0, false
}

func totalProfitLabel(t Table) (float64, bool) {
	for r := range t {
		label := lower(t.cell(r, 0))
		if strings.Contains(label, "profit") && strings.Contains(label, "total") {
			if v, ok := currency(t.cell(r, 1)); ok {
				return v, true
			}
		}
	}
	return 0, false
}

func incomeMinusExpenses(t Table) (float64, bool) {
	var income, expenses float64
	var haveIncome, haveExpenses bool
	for r, row := range t {
		for c, cell := range row {
			label := lower(cell)
			if strings.Contains(label, "total income") {
				if v, ok := currency(t.cell(r, c+1)); ok {
					income, haveIncome = v, true
				}
			}
			if strings.Contains(label, "total expense") {
				if v, ok := currency(t.cell(r, c+1)); ok {
					expenses, haveExpenses = v, true
				}
			}
		}
	}
	if haveIncome && haveExpenses {
		return income - expenses, true
	}
	return 0, false
}

func anyProfitRow(t Table) (float64, bool) {
	for _, row := range t {
		for c, cell := range row {
			label := lower(cell)
			if !strings.Contains(label, "profit") && !strings.Contains(label, "net") {
				continue
			}
			for _, candidate := range row[c:] {
				if v, ok := currency(candidate); ok {
					return v, true
				}
			}
		}
	}
	return 0, false
}

// StudentFinancials reads the per-student block: every row after the first
// one whose first column contains "group member", skipping blank names and
// total/summary/grand rows. Columns 2-5 hold income, expenses, profit and
// inventory; missing or unparseable cells read as 0.
func StudentFinancials(t Table) model.Ledger {
	header := -1
	for r := range t {
		if strings.Contains(lower(t.cell(r, 0)), headerMarker) {
			header = r
			break
		}
	}
	if header < 0 {
		return nil
	}

	var out model.Ledger
	for r := header + 1; r < len(t); r++ {
		name := strings.TrimSpace(t.cell(r, 0))
		if name == "" || strings.EqualFold(name, "nan") || containsAny(strings.ToLower(name), summaryWords) {
			continue
		}
		out = out.Put(model.StudentFinancial{
			Name:      name,
			Income:    numeric.OrZero(numeric.Currency(t.cell(r, 1))),
			Expenses:  numeric.OrZero(numeric.Currency(t.cell(r, 2))),
			Profit:    numeric.OrZero(numeric.Currency(t.cell(r, 3))),
			Inventory: numeric.OrZero(numeric.Currency(t.cell(r, 4))),
		})
	}
	return out
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// Extract runs both passes. Student rows are only read from Summary sheets,
// so callers pass summary=false for any other sheet.
func Extract(team string, t Table, summary bool) model.TeamFinancials {
	tf := model.TeamFinancials{Team: team}
	if v, ok := TeamProfit(t); ok {
		tf.Profit = &v
	}
	if summary {
		tf.Students = StudentFinancials(t)
	}
	return tf
}
