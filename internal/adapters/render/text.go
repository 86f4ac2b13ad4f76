package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/okian/peerreview/internal/domain/identity"
	"github.com/okian/peerreview/internal/domain/model"
)

var (
	colorFlagged = lipgloss.Color("#e53935")
	colorOK      = lipgloss.Color("#8BC34A")
	colorWarning = lipgloss.Color("#FFC107")
	colorMuted   = lipgloss.Color("#6b7280")
)

// Text renders the human summary. Styling is resolved against the
// destination writer, so colors are dropped when it is not a terminal.
type Text struct {
	title   lipgloss.Style
	heading lipgloss.Style
	flagged lipgloss.Style
	ok      lipgloss.Style
	warning lipgloss.Style
	muted   lipgloss.Style
	cell    lipgloss.Style
}

// NewText builds the text styles for w.
func NewText(w io.Writer) *Text {
	r := lipgloss.NewRenderer(w)
	return &Text{
		title:   r.NewStyle().Bold(true),
		heading: r.NewStyle().Bold(true).Underline(true),
		flagged: r.NewStyle().Bold(true).Foreground(colorFlagged),
		ok:      r.NewStyle().Foreground(colorOK),
		warning: r.NewStyle().Foreground(colorWarning),
		muted:   r.NewStyle().Foreground(colorMuted),
		cell:    r.NewStyle().PaddingRight(2),
	}
}

// Write renders report.
func (t *Text) Write(w io.Writer, report *model.Report) error {
	var sb strings.Builder

	sb.WriteString(t.title.Render("Peer Review Report"))
	if report.RunID != "" {
		sb.WriteString(" " + t.muted.Render("run "+report.RunID))
	}
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "Teams: %d  Flagged: %d  Submissions: %d  Missing: %d  Students: %d  With financials: %d  Variance threshold: %.1f%%\n",
		report.Totals.Teams, report.Totals.Flagged, report.Totals.Submissions, report.Totals.Missing,
		report.Totals.Students, report.Totals.WithFinancials, report.VarianceThreshold)

	if len(report.Warnings) > 0 {
		sb.WriteString("\n" + t.heading.Render("Warnings") + "\n")
		for _, msg := range report.Warnings {
			sb.WriteString("  " + t.warning.Render("! "+msg) + "\n")
		}
	}

	if len(report.MissingByPeriod) > 0 {
		sb.WriteString("\n" + t.heading.Render("Missing submissions") + "\n")
		for _, g := range report.MissingByPeriod {
			names := make([]string, len(g.Students))
			for i, s := range g.Students {
				names[i] = s.ID
			}
			period := g.Period
			if period == "" {
				period = "-"
			}
			fmt.Fprintf(&sb, "  Period %s (%d): %s\n", period, len(g.Students), strings.Join(names, "; "))
		}
	}

	for i := range report.Teams {
		sb.WriteString("\n")
		t.team(&sb, &report.Teams[i])
	}

	if _, err := io.WriteString(w, sb.String()); err != nil {
		return fmt.Errorf("write text report: %w", err)
	}
	return nil
}

func (t *Text) team(sb *strings.Builder, r *model.TeamReport) {
	switch {
	case r.Error != "":
		sb.WriteString(t.warning.Render("[ERROR] "+r.Team) + " " + r.Error + "\n")
		return
	case r.Flagged:
		sb.WriteString(t.flagged.Render("[FLAGGED] " + r.Team))
	default:
		sb.WriteString(t.ok.Render("[OK] " + r.Team))
	}
	fmt.Fprintf(sb, "  %s\n", t.muted.Render(fmt.Sprintf("%d submissions, max variance %.1f%%", len(r.Evaluations), r.MaxVariance)))

	for _, f := range r.Flags {
		sb.WriteString("  - " + f + "\n")
	}
	if r.Financials != nil && r.Financials.Profit != nil {
		fmt.Fprintf(sb, "  Profit: $%.2f\n", *r.Financials.Profit)
	}

	if len(r.Students) == 0 {
		return
	}
	rows := [][]string{{"Student", "Avg %", "Variance", "Ratings", "Income", "Submitted"}}
	for _, s := range r.Students {
		income := "-"
		if s.Income != nil {
			income = fmt.Sprintf("$%.2f", *s.Income)
		}
		name := s.Name
		if s.LowContributor || s.LowSeller {
			name += " *"
		}
		rows = append(rows, []string{
			name,
			fmt.Sprintf("%.1f", s.Average),
			fmt.Sprintf("%.1f", s.Variance),
			fmt.Sprintf("%d", s.Ratings),
			income,
			yesNo(s.Submitted),
		})
	}
	t.table(sb, rows)

	for _, e := range r.Evaluations {
		if len(e.Thumbnails) == 0 {
			continue
		}
		fmt.Fprintf(sb, "  Photos from %s:\n", identity.ShortName(e.Submitter))
		for _, u := range e.Thumbnails {
			sb.WriteString("    " + t.muted.Render(u) + "\n")
		}
	}
}

// table renders rows with columns padded to their widest cell.
func (t *Text) table(sb *strings.Builder, rows [][]string) {
	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}
	for r, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = t.cell.Width(widths[i] + 2).Render(cell)
		}
		line := strings.TrimRight(lipgloss.JoinHorizontal(lipgloss.Top, cells...), " ")
		if r == 0 {
			line = t.muted.Render(line)
		}
		sb.WriteString("    " + line + "\n")
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
