package survey

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/okian/peerreview/internal/domain/dedupe"
	"github.com/okian/peerreview/internal/domain/identity"
	"github.com/okian/peerreview/internal/domain/model"
	"github.com/okian/peerreview/internal/domain/numeric"
	"github.com/okian/peerreview/pkg/logger"
)

// Stats counts what happened to the input rows.
type Stats struct {
	Rows          int
	Duplicates    int
	Unattributed  int
	DegradedCells int
	BadTimestamps int
}

// Result is the output of Ingest. Teams are ordered by key.
type Result struct {
	Teams []model.Team
	Stats Stats
}

// Option applies a configuration option to the Ingestor.
type Option func(*Ingestor)

// WithLogger sets a custom logger for the ingestor.
func WithLogger(l logger.Logger) Option {
	return func(in *Ingestor) {
		if l != nil {
			in.logger = l
		}
	}
}

// Ingestor builds teams from survey rows.
type Ingestor struct {
	logger logger.Logger
}

// NewIngestor creates an ingestor with configuration options.
func NewIngestor(opts ...Option) *Ingestor {
	in := &Ingestor{logger: logger.Nop()}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

type stampedRow struct {
	row Row
	at  time.Time
}

// Ingest deduplicates rows (most recent per submitter wins) and folds the
// survivors into teams. Rows whose submitter yields no team key are dropped;
// malformed percentages count as 0.
func (in *Ingestor) Ingest(ctx context.Context, rows []Row) Result {
	res := Result{Stats: Stats{Rows: len(rows)}}

	stamped := make([]stampedRow, len(rows))
	for i, r := range rows {
		at, ok := ParseTimestamp(r.Timestamp)
		if !ok && strings.TrimSpace(r.Timestamp) != "" {
			res.Stats.BadTimestamps++
			in.logger.Debug(ctx, "unparseable timestamp", logger.Int("line", r.Line), logger.String("timestamp", r.Timestamp))
		}
		stamped[i] = stampedRow{row: r, at: at}
	}

	kept, dropped := dedupe.Latest(ctx,
		dedupe.NewInMemoryDeduper(dedupe.WithExpectedSize(len(rows)), dedupe.WithKeyFunc(identity.Canonical)),
		stamped,
		func(s stampedRow) string { return s.row.Submitter },
		func(s stampedRow) time.Time { return s.at },
	)
	res.Stats.Duplicates = dropped

	b := newBuilder()
	for _, s := range kept {
		submitter := identity.Canonical(s.row.Submitter)
		key, ok := identity.TeamKeyOf(submitter)
		if !ok {
			res.Stats.Unattributed++
			in.logger.Debug(ctx, "row has no team key, dropped", logger.Int("line", s.row.Line))
			continue
		}
		eval, fb, degraded := in.evaluate(ctx, s.row, submitter, s.at)
		res.Stats.DegradedCells += degraded
		b.add(key, eval, fb)
	}

	res.Teams = b.finalize()
	return res
}

func (in *Ingestor) evaluate(ctx context.Context, r Row, submitter string, at time.Time) (model.Evaluation, model.Feedback, int) {
	eval := model.Evaluation{
		Submitter:    submitter,
		SubmittedAt:  at,
		RawTimestamp: strings.TrimSpace(r.Timestamp),
		EvidenceURLs: ParseURLs(r.Evidence),
		PhotoURLs:    ParseURLs(r.Photos),
	}
	eval.Thumbnails = Thumbnails(eval.PhotoURLs)
	degraded := 0

	hasFourth := strings.EqualFold(strings.TrimSpace(r.HasFourth), "yes")
	for n, cells := range r.Members {
		name := identity.Canonical(cells.Name)
		if n == 0 {
			name = submitter
		}
		if name == "" || (n == MaxMembers-1 && !hasFourth) {
			continue
		}

		pct, err := numeric.Percentage(cells.Percentage)
		if err != nil && !errors.Is(err, numeric.ErrEmpty) {
			degraded++
			in.logger.Debug(ctx, "malformed percentage, using 0",
				logger.Int("line", r.Line),
				logger.String("student", name),
				logger.Error(err),
			)
		}
		eval.Assessments = putAssessment(eval.Assessments, model.Assessment{
			Student:    name,
			Percentage: numeric.OrZero(pct, err),
			Work:       workOf(cells.Work),
		})
	}

	fb := model.Feedback{
		Submitter:  submitter,
		Challenges: strings.TrimSpace(r.Challenges),
		Positives:  strings.TrimSpace(r.Positives),
		Advice:     strings.TrimSpace(r.Advice),
	}
	return eval, fb, degraded
}

// putAssessment replaces an existing assessment of the same student, so a
// student named twice in one submission is counted once with the last value.
func putAssessment(list []model.Assessment, a model.Assessment) []model.Assessment {
	for i := range list {
		if list[i].Student == a.Student {
			list[i] = a
			return list
		}
	}
	return append(list, a)
}

func workOf(cells map[model.Category]string) model.WorkDescription {
	var w model.WorkDescription
	for _, c := range model.Categories {
		text := strings.TrimSpace(cells[c])
		if text == "" {
			continue
		}
		if w == nil {
			w = make(model.WorkDescription, len(model.Categories))
		}
		w[c] = text
	}
	return w
}

// teamBuilder accumulates one team while rows are ingested.
type teamBuilder struct {
	key       string
	students  []string
	known     map[string]struct{}
	evals     []model.Evaluation
	feedbacks []model.Feedback
}

func (tb *teamBuilder) addStudent(id string) {
	if _, ok := tb.known[id]; ok {
		return
	}
	tb.known[id] = struct{}{}
	tb.students = append(tb.students, id)
}

type builder struct {
	teams map[string]*teamBuilder
}

func newBuilder() *builder {
	return &builder{teams: make(map[string]*teamBuilder)}
}

func (b *builder) add(key string, eval model.Evaluation, fb model.Feedback) {
	tb, ok := b.teams[key]
	if !ok {
		tb = &teamBuilder{key: key, known: make(map[string]struct{})}
		b.teams[key] = tb
	}
	tb.addStudent(eval.Submitter)
	for _, a := range eval.Assessments {
		tb.addStudent(a.Student)
	}
	tb.evals = append(tb.evals, eval)
	tb.feedbacks = append(tb.feedbacks, fb)
}

// finalize freezes every team, ordered by key.
func (b *builder) finalize() []model.Team {
	keys := make([]string, 0, len(b.teams))
	for k := range b.teams {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	teams := make([]model.Team, 0, len(keys))
	for _, k := range keys {
		tb := b.teams[k]
		teams = append(teams, model.Team{
			Key:         tb.key,
			Students:    append([]string(nil), tb.students...),
			Evaluations: append([]model.Evaluation(nil), tb.evals...),
			Feedback:    append([]model.Feedback(nil), tb.feedbacks...),
		})
	}
	return teams
}
