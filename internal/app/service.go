// Package service wires the sources, the scorer and the worker pool into one
// pipeline run that produces a report.
package service

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"

	eventqueue "github.com/okian/peerreview/internal/adapters/mq/queue"
	workerpool "github.com/okian/peerreview/internal/adapters/mq/worker"
	"github.com/okian/peerreview/internal/adapters/repository"
	"github.com/okian/peerreview/internal/adapters/source"
	"github.com/okian/peerreview/internal/config"
	"github.com/okian/peerreview/internal/domain/model"
	"github.com/okian/peerreview/internal/domain/roster"
	"github.com/okian/peerreview/internal/domain/scoring"
	"github.com/okian/peerreview/internal/domain/survey"
	"github.com/okian/peerreview/pkg/logger"
	"github.com/okian/peerreview/pkg/metrics"
)

// Inputs names the files of one run. Only SurveyPath is required.
type Inputs struct {
	SurveyPath     string
	RosterPath     string
	FinancialPaths []string
}

// Service runs the peer review pipeline.
type Service struct {
	workerCount       int
	queueSize         int
	varianceThreshold float64
	scoringOpts       []scoring.Option
	onlyFlagged       bool

	logger logger.Logger
	now    func() time.Time
	newID  func() string
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of scoring workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the scoring queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithVarianceThreshold sets the variance above which a team is flagged.
func WithVarianceThreshold(v float64) Option {
	return func(s *Service) {
		if v >= 0 {
			s.varianceThreshold = v
		}
	}
}

// WithScoringOptions passes extra options to the scoring engine.
func WithScoringOptions(opts ...scoring.Option) Option {
	return func(s *Service) {
		s.scoringOpts = append(s.scoringOpts, opts...)
	}
}

// WithOnlyFlagged keeps only flagged teams in the report's team list.
// Totals still count every team.
func WithOnlyFlagged(only bool) Option {
	return func(s *Service) {
		s.onlyFlagged = only
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock sets the time source used for GeneratedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDFunc sets the generator of run identifiers.
func WithIDFunc(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// OptionsFromConfig translates cfg into service options.
func OptionsFromConfig(cfg *config.Config) []Option {
	return []Option{
		WithWorkerCount(cfg.WorkerCount),
		WithQueueSize(cfg.QueueSize),
		WithVarianceThreshold(cfg.VarianceThreshold),
		WithOnlyFlagged(cfg.OnlyFlagged),
		WithScoringOptions(
			scoring.WithShortfallRatio(cfg.ShortfallRatio),
			scoring.WithLowSalesRatio(cfg.LowSalesRatio),
			scoring.WithSalesNoiseFloor(cfg.SalesNoiseFloor),
			scoring.WithSumTolerance(cfg.SumTolerance),
		),
	}
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:       runtime.NumCPU(),
		queueSize:         config.DefaultQueueSize,
		varianceThreshold: scoring.DefaultVarianceThreshold,
		now:               time.Now,
		newID:             uuid.NewString,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Run executes one pipeline pass. Schema errors in the survey or the roster,
// and unreadable survey or roster files, abort the run; financial file
// problems become report warnings.
func (s *Service) Run(ctx context.Context, in Inputs) (*model.Report, error) {
	start := time.Now()
	log := s.logger
	if log == nil {
		log = logger.Get()
	}

	rows, err := source.LoadSurvey(in.SurveyPath)
	if err != nil {
		return nil, fmt.Errorf("load survey: %w", err)
	}
	metrics.RecordSurveyRows(len(rows))

	ingested := survey.NewIngestor(survey.WithLogger(log.Named("survey"))).Ingest(ctx, rows)
	metrics.RecordSurveyDuplicates(ingested.Stats.Duplicates)
	metrics.RecordSurveyUnattributed(ingested.Stats.Unattributed)
	metrics.RecordDegradedCells(ingested.Stats.DegradedCells)
	log.Info(ctx, "survey ingested",
		logger.Int("rows", ingested.Stats.Rows),
		logger.Int("teams", len(ingested.Teams)),
		logger.Int("duplicates", ingested.Stats.Duplicates),
		logger.Int("unattributed", ingested.Stats.Unattributed),
		logger.Int("degraded_cells", ingested.Stats.DegradedCells),
	)

	var entries []model.RosterEntry
	if in.RosterPath != "" {
		entries, err = source.LoadRoster(in.RosterPath)
		if err != nil {
			return nil, fmt.Errorf("load roster: %w", err)
		}
	}

	loader := source.NewLoader(source.WithLogger(log.Named("financials")), source.WithConcurrency(s.workerCount))
	financials, warns := loader.LoadFinancials(ctx, in.FinancialPaths)
	warnings := make([]string, 0, len(warns))
	for _, w := range warns {
		warnings = append(warnings, w.String())
	}

	all, err := s.score(ctx, log, ingested.Teams, financials)
	if err != nil {
		return nil, err
	}

	missing := roster.FindMissing(entries, ingested.Teams)
	metrics.UpdateMissingStudents(len(missing))

	report := &model.Report{
		RunID:             s.newID(),
		GeneratedAt:       s.now(),
		VarianceThreshold: s.varianceThreshold,
		Teams:             make([]model.TeamReport, 0, len(all)),
		Missing:           missing,
		MissingByPeriod:   roster.GroupByPeriod(missing),
		Warnings:          warnings,
	}
	report.Totals.Teams = len(all)
	report.Totals.Missing = len(missing)
	report.Totals.Students = len(entries)
	for _, t := range ingested.Teams {
		report.Totals.Submissions += len(t.Evaluations)
		if in.RosterPath == "" {
			report.Totals.Students += t.Size()
		}
	}
	for _, r := range all {
		if r.Flagged {
			report.Totals.Flagged++
		}
		if r.Financials != nil {
			report.Totals.WithFinancials++
		}
		if s.onlyFlagged && !r.Flagged {
			continue
		}
		report.Teams = append(report.Teams, r)
	}

	elapsed := time.Since(start)
	metrics.UpdateRunDuration(elapsed.Seconds())
	log.Info(ctx, "run complete",
		logger.String("run_id", report.RunID),
		logger.Int("teams", report.Totals.Teams),
		logger.Int("flagged", report.Totals.Flagged),
		logger.Int("missing", report.Totals.Missing),
		logger.Int("warnings", len(warnings)),
		logger.String("elapsed", elapsed.String()),
	)
	return report, nil
}

// score fans the teams out to the worker pool and returns every report in
// team key order.
func (s *Service) score(ctx context.Context, log logger.Logger, teams []model.Team, financials source.FinancialSet) ([]model.TeamReport, error) {
	store := repository.NewMemoryStore(repository.WithExpectedTeams(len(teams)))
	queue := eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	engine := scoring.NewEngine(append([]scoring.Option{scoring.WithVarianceThreshold(s.varianceThreshold)}, s.scoringOpts...)...)

	pool := workerpool.NewPool(s.workerCount, queue, engine, store, workerpool.WithLogger(log.Named("worker")))
	pool.Start(ctx)

	var enqueueErr error
	for _, t := range teams {
		job := eventqueue.Job{Team: t}
		if tf, ok := financials.Lookup(t.Key); ok {
			job.Financials = &tf
		}
		if enqueueErr = queue.Enqueue(ctx, job); enqueueErr != nil {
			break
		}
	}
	// Shutdown closes the queue and lets the workers drain it. The run
	// context may already be cancelled, so the drain gets its own.
	if err := pool.Shutdown(context.WithoutCancel(ctx)); err != nil {
		return nil, fmt.Errorf("score teams: %w", err)
	}

	if enqueueErr != nil {
		return nil, fmt.Errorf("schedule scoring: %w", enqueueErr)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("score teams: %w", err)
	}

	for _, key := range financials.Teams() {
		if _, err := store.Get(ctx, key); err != nil {
			log.Debug(ctx, "financial file for a team without submissions", logger.String("team", key))
		}
	}

	reports, err := store.List(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("collect reports: %w", err)
	}
	return reports, nil
}
