// Package worker scores queued teams concurrently and stores their reports.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/okian/peerreview/internal/adapters/mq/queue"
	"github.com/okian/peerreview/internal/domain/model"
	"github.com/okian/peerreview/internal/domain/scoring"
	"github.com/okian/peerreview/pkg/logger"
	"github.com/okian/peerreview/pkg/metrics"
)

// Default worker configuration constants.
const (
	poolShutdownTimeout = 30 * time.Second
	workerStopGrace     = 5 * time.Second
)

// Scorer computes the flags of a team.
type Scorer interface {
	Score(ctx context.Context, in scoring.Input) (scoring.Result, error)
}

// Store receives the report of every processed team.
type Store interface {
	Put(ctx context.Context, report model.TeamReport) error
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker processes jobs and writes reports using the provided interfaces.
type Worker interface {
	// Run starts the worker loop until the queue is drained or ctx is canceled.
	Run(ctx context.Context)

	// Shutdown stops the worker after its current job.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue  Queue
	scorer Scorer
	store  Store
	name   string

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, scorer Scorer, store Store, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		scorer:   scorer,
		store:    store,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		// A stop request wins over queued jobs.
		select {
		case <-w.shutdown:
			return
		default:
		}

		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.process(ctx, job); err != nil {
				w.logger.Error(ctx, "error processing team", logger.String("team", job.Team.Key), logger.Error(err))
			}
		}
	}
}

// Shutdown stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

// process scores one team. A scoring failure is still stored, as a report
// carrying the error, so the team is never silently dropped.
func (w *InMemoryWorker) process(ctx context.Context, job queue.Job) error { //nolint:gocritic // hugeParam: Job is passed by value for channel semantics
	metrics.AddWorkerActive(1)
	defer metrics.AddWorkerActive(-1)

	in := scoring.Input{Team: job.Team}
	if job.Financials != nil {
		in.Profit = job.Financials.Profit
		in.Ledger = job.Financials.Students
	}

	start := time.Now()
	res, scoreErr := w.scorer.Score(ctx, in)
	metrics.RecordScoringLatency(float64(time.Since(start).Microseconds()) / 1e3)

	report := NewReport(job, res, scoreErr)
	if scoreErr != nil {
		metrics.RecordScoringError()
		w.logger.Error(ctx, "scoring failed for team",
			logger.String("team", job.Team.Key),
			logger.Error(scoreErr),
		)
	} else {
		kinds := make([]string, len(res.Flags))
		for i, f := range res.Flags {
			kinds[i] = f.Kind
		}
		metrics.RecordTeamScored(kinds)
		w.logger.Debug(ctx, "team scored",
			logger.String("team", job.Team.Key),
			logger.Int("flags", len(res.Flags)),
			logger.Float64("max_variance", res.MaxVariance),
		)
	}

	if err := w.store.Put(ctx, report); err != nil {
		return fmt.Errorf("store report for team %s: %w", job.Team.Key, err)
	}
	return nil
}

// NewReport assembles the report of a processed job.
func NewReport(job queue.Job, res scoring.Result, scoreErr error) model.TeamReport { //nolint:gocritic // hugeParam: values mirror the queue payload
	r := model.TeamReport{
		Team:        job.Team.Key,
		Financials:  job.Financials,
		Evaluations: job.Team.Evaluations,
		Feedback:    job.Team.Feedback,
	}
	if scoreErr != nil {
		r.Error = scoreErr.Error()
		return r
	}
	r.Flagged = res.Flagged()
	r.Flags = res.Messages()
	r.Variance = res.Variance
	r.MaxVariance = res.MaxVariance
	r.FairShare = res.FairShare
	r.Students = res.Students
	r.Keywords = res.Keywords
	r.SumIssues = len(res.SumIssues)
	return r
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	logger logger.Logger
}

// NewPool creates a worker pool. Options apply to every worker.
func NewPool(workerCount int, q Queue, scorer Scorer, store Store, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		workerOpts := append(append([]Option{}, opts...), WithName("worker-"+strconv.Itoa(i)))
		pool.workers[i] = NewInMemoryWorker(q, scorer, store, workerOpts...)
	}

	metrics.UpdateWorkerCount(workerCount)

	return pool
}

// Size is the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue when it can be closed and waits for the workers
// to drain it, bounded by ctx and poolShutdownTimeout. Workers still busy when
// the bound expires are told to stop after their current job; the jobs left
// in the queue are abandoned.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	drainCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-drainCtx.Done():
			p.logger.Warn(ctx, "queue not drained in time, stopping workers", logger.Int("worker_id", i))
			p.stop(context.WithoutCancel(ctx))
			return fmt.Errorf("drain queue: %w", drainCtx.Err())
		}
	}

	return nil
}

// stop asks every worker to finish its current job and waits for them.
func (p *Pool) stop(ctx context.Context) {
	graceCtx, cancel := context.WithTimeout(ctx, workerStopGrace)
	defer cancel()

	for i, w := range p.workers {
		if err := w.Shutdown(graceCtx); err != nil {
			p.logger.Error(ctx, "worker did not stop", logger.Int("worker_id", i), logger.Error(err))
		}
	}
}
