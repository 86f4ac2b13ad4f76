// Package scoring computes red flags for a team from its evaluations,
// feedback and financial data.
package scoring

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/okian/peerreview/internal/domain/identity"
	"github.com/okian/peerreview/internal/domain/model"
)

// Default scoring configuration constants.
const (
	DefaultVarianceThreshold = 15.0
	defaultShortfallRatio    = 0.6
	defaultLowSalesRatio     = 0.5
	defaultSalesNoiseFloor   = 10.0
	defaultSumTolerance      = 0.1
	minIncomesToCompare      = 2
	fullEffort               = 100.0
)

// Kinds label each flag for metrics.
const (
	KindVariance  = "variance"
	KindShortfall = "shortfall"
	KindProfit    = "negative_profit"
	KindLowSales  = "low_sales"
	KindKeywords  = "keywords"
	KindSums      = "percentage_sum"
)

// DefaultKeywords is the red-flag lexicon searched for in free text.
var DefaultKeywords = []string{"lazy", "absent", "rude", "nothing", "late", "didn't", "never", "refused"}

// Input is everything needed to score one team. A nil Profit means the
// profit is unknown; a nil Ledger means no per-student financials.
type Input struct {
	Team   model.Team
	Profit *float64
	Ledger model.Ledger
}

// Flag is one red flag with its kind.
type Flag struct {
	Kind    string
	Message string
}

// LowContributor is a student averaging below the shortfall threshold.
type LowContributor struct {
	Student  string
	Average  float64
	Expected float64
}

// LowSeller is a student whose income is well below the team average.
type LowSeller struct {
	Student string
	Income  float64
	Average float64
}

// SumIssue is a submission whose percentages do not add up to 100.
type SumIssue struct {
	Submitter string
	Total     float64
}

// Result contains the flags computed for a team.
type Result struct {
	Team            string
	Flags           []Flag
	Variance        map[string]float64
	MaxVariance     float64
	FairShare       float64
	Students        []model.StudentSummary
	LowContributors []LowContributor
	LowSellers      []LowSeller
	Keywords        []string
	SumIssues       []SumIssue
}

// Flagged reports whether any check fired.
func (r Result) Flagged() bool { return len(r.Flags) > 0 }

// Messages returns the flag texts in order.
func (r Result) Messages() []string {
	out := make([]string, len(r.Flags))
	for i, f := range r.Flags {
		out[i] = f.Message
	}
	return out
}

// Scorer computes the flags of one team.
type Scorer interface {
	// Score evaluates every check, honoring ctx for cancellation.
	Score(ctx context.Context, in Input) (Result, error)
}

// Engine implements Scorer. It holds no per-team state and is safe for
// concurrent use.
type Engine struct {
	varianceThreshold float64
	shortfallRatio    float64
	lowSalesRatio     float64
	salesNoiseFloor   float64
	sumTolerance      float64
	keywords          []string
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithVarianceThreshold sets the variance above which a team is flagged.
func WithVarianceThreshold(v float64) Option {
	return func(e *Engine) {
		if v >= 0 {
			e.varianceThreshold = v
		}
	}
}

// WithShortfallRatio sets the fraction of the fair share under which a
// student is a low contributor.
func WithShortfallRatio(r float64) Option {
	return func(e *Engine) {
		if r > 0 {
			e.shortfallRatio = r
		}
	}
}

// WithLowSalesRatio sets the fraction of the team average income under which
// a student is a low seller.
func WithLowSalesRatio(r float64) Option {
	return func(e *Engine) {
		if r > 0 {
			e.lowSalesRatio = r
		}
	}
}

// WithSalesNoiseFloor sets the average income at or below which sales are
// not compared.
func WithSalesNoiseFloor(v float64) Option {
	return func(e *Engine) {
		if v >= 0 {
			e.salesNoiseFloor = v
		}
	}
}

// WithSumTolerance sets the allowed deviation of a submission total from 100.
func WithSumTolerance(v float64) Option {
	return func(e *Engine) {
		if v >= 0 {
			e.sumTolerance = v
		}
	}
}

// WithKeywords replaces the red-flag lexicon. Terms are lowercased.
func WithKeywords(words []string) Option {
	return func(e *Engine) {
		if len(words) == 0 {
			return
		}
		kw := make([]string, 0, len(words))
		for _, w := range words {
			if w = strings.ToLower(strings.TrimSpace(apostrophes.Replace(w))); w != "" {
				kw = append(kw, w)
			}
		}
		e.keywords = kw
	}
}

// NewEngine creates a scorer with configuration options.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		varianceThreshold: DefaultVarianceThreshold,
		shortfallRatio:    defaultShortfallRatio,
		lowSalesRatio:     defaultLowSalesRatio,
		salesNoiseFloor:   defaultSalesNoiseFloor,
		sumTolerance:      defaultSumTolerance,
		keywords:          DefaultKeywords,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Score runs all six checks; none short-circuits another.
func (e *Engine) Score(ctx context.Context, in Input) (Result, error) {
	team := in.Team
	res := Result{Team: team.Key}

	steps := []func(*Result, Input){
		e.checkVariance,
		e.checkShortfall,
		e.checkProfit,
		e.checkSales,
		e.checkKeywords,
		e.checkSums,
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return Result{}, fmt.Errorf("scoring team %s: %w", team.Key, err)
		}
		step(&res, in)
	}

	res.Students = summarize(in, res)
	return res, nil
}

func (e *Engine) checkVariance(res *Result, in Input) {
	res.Variance = Variance(in.Team)
	for _, v := range res.Variance {
		res.MaxVariance = math.Max(res.MaxVariance, v)
	}
	if res.MaxVariance > e.varianceThreshold {
		res.add(KindVariance, fmt.Sprintf("High workload variance (%.1f%%)", res.MaxVariance))
	}
}

func (e *Engine) checkShortfall(res *Result, in Input) {
	if in.Team.Size() == 0 {
		return
	}
	res.FairShare = fullEffort / float64(in.Team.Size())
	threshold := res.FairShare * e.shortfallRatio

	for _, s := range in.Team.Students {
		avg, n := Average(in.Team, s)
		if n == 0 || avg >= threshold {
			continue
		}
		res.LowContributors = append(res.LowContributors, LowContributor{Student: s, Average: avg, Expected: res.FairShare})
		res.add(KindShortfall, fmt.Sprintf("Low workload: %s (%.1f%% vs expected %.1f%%)", identity.ShortName(s), avg, res.FairShare))
	}
}

func (e *Engine) checkProfit(res *Result, in Input) {
	if in.Profit != nil && *in.Profit < 0 {
		res.add(KindProfit, fmt.Sprintf("Negative profit ($%.2f)", *in.Profit))
	}
}

func (e *Engine) checkSales(res *Result, in Input) {
	res.LowSellers = e.LowSales(in.Team, in.Ledger)
	for _, ls := range res.LowSellers {
		res.add(KindLowSales, fmt.Sprintf("Low sales: %s ($%.2f vs avg $%.2f)", identity.ShortName(ls.Student), ls.Income, ls.Average))
	}
}

func (e *Engine) checkKeywords(res *Result, in Input) {
	res.Keywords = e.TeamKeywords(in.Team)
	if len(res.Keywords) > 0 {
		res.add(KindKeywords, "Red flag keywords: "+strings.Join(res.Keywords, ", "))
	}
}

func (e *Engine) checkSums(res *Result, in Input) {
	res.SumIssues = e.PercentageSumIssues(in.Team)
	if len(res.SumIssues) > 0 {
		res.add(KindSums, fmt.Sprintf("Percentage sum errors (%d submissions)", len(res.SumIssues)))
	}
}

func (r *Result) add(kind, msg string) {
	r.Flags = append(r.Flags, Flag{Kind: kind, Message: msg})
}

// Variance maps every student to max-min of the percentages they were given,
// or 0 with fewer than two ratings.
func Variance(team model.Team) map[string]float64 {
	out := make(map[string]float64, team.Size())
	for _, s := range team.Students {
		pcts := ratings(team, s)
		if len(pcts) < 2 {
			out[s] = 0
			continue
		}
		lo, hi := pcts[0], pcts[0]
		for _, p := range pcts[1:] {
			lo, hi = math.Min(lo, p), math.Max(hi, p)
		}
		out[s] = hi - lo
	}
	return out
}

// Average is the mean percentage a student received and how many ratings it
// is based on.
func Average(team model.Team, student string) (float64, int) {
	pcts := ratings(team, student)
	if len(pcts) == 0 {
		return 0, 0
	}
	var sum float64
	for _, p := range pcts {
		sum += p
	}
	return sum / float64(len(pcts)), len(pcts)
}

func ratings(team model.Team, student string) []float64 {
	var pcts []float64
	for _, ev := range team.Evaluations {
		if p, ok := ev.Percentage(student); ok {
			pcts = append(pcts, p)
		}
	}
	return pcts
}

// LowSales matches each student to the ledger (exact ledger name, then
// surname) and reports those earning under lowSalesRatio of the matched
// average. It needs at least two matches and an average above the noise floor.
func (e *Engine) LowSales(team model.Team, l model.Ledger) []LowSeller {
	matched := matchIncomes(team, l)
	if len(matched) < minIncomesToCompare {
		return nil
	}
	var sum float64
	for _, m := range matched {
		sum += m.income
	}
	avg := sum / float64(len(matched))
	if avg <= e.salesNoiseFloor {
		return nil
	}

	var out []LowSeller
	for _, m := range matched {
		if m.income < avg*e.lowSalesRatio {
			out = append(out, LowSeller{Student: m.student, Income: m.income, Average: avg})
		}
	}
	return out
}

type matchedIncome struct {
	student string
	income  float64
}

func matchIncomes(team model.Team, l model.Ledger) []matchedIncome {
	if len(l) == 0 {
		return nil
	}
	names := l.Names()
	var out []matchedIncome
	for _, s := range team.Students {
		name, ok := identity.MatchLedgerName(identity.ToLedgerForm(s), names)
		if !ok {
			continue
		}
		row, _ := l.Lookup(name)
		out = append(out, matchedIncome{student: s, income: row.Income})
	}
	return out
}

var apostrophes = strings.NewReplacer("’", "'", "‘", "'", "ʼ", "'")

// DetectKeywords returns the lexicon terms occurring in text, case-insensitively,
// in lexicon order.
func (e *Engine) DetectKeywords(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	lowered := strings.ToLower(apostrophes.Replace(text))
	var found []string
	for _, k := range e.keywords {
		if strings.Contains(lowered, k) {
			found = append(found, k)
		}
	}
	return found
}

// TeamKeywords scans every feedback answer and every work description of the
// team and returns the distinct terms found, sorted.
func (e *Engine) TeamKeywords(team model.Team) []string {
	seen := make(map[string]struct{})
	collect := func(text string) {
		for _, k := range e.DetectKeywords(text) {
			seen[k] = struct{}{}
		}
	}
	for _, fb := range team.Feedback {
		for _, text := range fb.Texts() {
			collect(text)
		}
	}
	for _, ev := range team.Evaluations {
		for _, a := range ev.Assessments {
			for _, c := range model.Categories {
				collect(a.Work[c])
			}
		}
	}

	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	if len(out) == 0 {
		return nil
	}
	return out
}

// PercentageSumIssues lists submissions whose percentages deviate from 100 by
// more than the tolerance.
func (e *Engine) PercentageSumIssues(team model.Team) []SumIssue {
	var out []SumIssue
	for _, ev := range team.Evaluations {
		total := ev.PercentageTotal()
		if math.Abs(total-fullEffort) > e.sumTolerance {
			out = append(out, SumIssue{Submitter: ev.Submitter, Total: total})
		}
	}
	return out
}

func summarize(in Input, res Result) []model.StudentSummary {
	team := in.Team
	submitted := make(map[string]bool, len(team.Evaluations))
	for _, s := range team.Submitters() {
		submitted[s] = true
	}
	low := make(map[string]bool, len(res.LowContributors))
	for _, lc := range res.LowContributors {
		low[lc.Student] = true
	}
	lowSales := make(map[string]bool, len(res.LowSellers))
	for _, ls := range res.LowSellers {
		lowSales[ls.Student] = true
	}
	incomes := make(map[string]float64)
	for _, m := range matchIncomes(team, in.Ledger) {
		incomes[m.student] = m.income
	}

	out := make([]model.StudentSummary, 0, team.Size())
	for _, s := range team.Students {
		avg, n := Average(team, s)
		sum := model.StudentSummary{
			Student:        s,
			Name:           identity.ShortName(s),
			Ratings:        n,
			Average:        avg,
			Variance:       res.Variance[s],
			LowContributor: low[s],
			LowSeller:      lowSales[s],
			Submitted:      submitted[s],
		}
		if inc, ok := incomes[s]; ok {
			sum.Income = &inc
		}
		out = append(out, sum)
	}
	return out
}
