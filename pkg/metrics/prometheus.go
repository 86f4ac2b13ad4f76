// Package metrics provides Prometheus metrics for the peer review pipeline.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Financial file outcomes.
const (
	FileLoaded  = "loaded"
	FileFailed  = "failed"
	FileSkipped = "skipped"
)

// Manager manages all Prometheus metrics of a pipeline run.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Ingestion
	surveyRows         prometheus.Counter
	surveyDuplicates   prometheus.Counter
	surveyUnattributed prometheus.Counter
	degradedCells      prometheus.Counter
	financialFiles     *prometheus.CounterVec
	missingStudents    prometheus.Gauge

	// Scoring
	teamsScored    prometheus.Counter
	teamsFlagged   prometheus.Counter
	flagsByKind    *prometheus.CounterVec
	scoringErrors  prometheus.Counter
	scoringLatency prometheus.Histogram

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Workers
	workerCount  prometheus.Gauge
	workerActive prometheus.Gauge

	runDuration prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton used by the Record helpers

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // registry written by WriteTextfile

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "peerreview",
		subsystem:        "pipeline",
		histogramBuckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100},
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counter(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gauge(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.surveyRows = auto.NewCounter(m.counter("survey_rows_total", "Survey rows read"))
	m.surveyDuplicates = auto.NewCounter(m.counter("survey_duplicates_total", "Older submissions dropped for a repeat submitter"))
	m.surveyUnattributed = auto.NewCounter(m.counter("survey_unattributed_total", "Rows skipped because no team could be derived"))
	m.degradedCells = auto.NewCounter(m.counter("degraded_cells_total", "Cells that could not be parsed and were treated as absent"))
	m.financialFiles = auto.NewCounterVec(m.counter("financial_files_total", "Financial files by load outcome"), []string{"result"})
	m.missingStudents = auto.NewGauge(m.gauge("missing_students", "Roster students without a survey submission"))

	m.teamsScored = auto.NewCounter(m.counter("teams_scored_total", "Teams scored"))
	m.teamsFlagged = auto.NewCounter(m.counter("teams_flagged_total", "Teams with at least one red flag"))
	m.flagsByKind = auto.NewCounterVec(m.counter("flags_total", "Red flags emitted by kind"), []string{"kind"})
	m.scoringErrors = auto.NewCounter(m.counter("scoring_errors_total", "Teams whose scoring failed"))
	m.scoringLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "scoring_latency_milliseconds",
		Help:        "Histogram of per-team scoring latency in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.customLabels,
	})

	m.queueSize = auto.NewGauge(m.gauge("queue_size", "Current number of queued scoring jobs"))
	m.queueCapacity = auto.NewGauge(m.gauge("queue_capacity", "Capacity of the scoring job queue"))
	m.queueEnqueued = auto.NewCounter(m.counter("queue_enqueue_total", "Jobs enqueued"))
	m.queueDequeued = auto.NewCounter(m.counter("queue_dequeue_total", "Jobs dequeued"))
	m.queueEnqueueErrors = auto.NewCounter(m.counter("queue_enqueue_errors_total", "Jobs rejected by the queue"))

	m.workerCount = auto.NewGauge(m.gauge("worker_count", "Configured scoring workers"))
	m.workerActive = auto.NewGauge(m.gauge("worker_active_count", "Workers currently scoring a team"))

	m.runDuration = auto.NewGauge(m.gauge("run_duration_seconds", "Duration of the last pipeline run"))
}

// RecordSurveyRows adds n rows read from the survey.
func RecordSurveyRows(n int) { globalManager.surveyRows.Add(float64(n)) }

// RecordSurveyDuplicates adds n dropped duplicate submissions.
func RecordSurveyDuplicates(n int) { globalManager.surveyDuplicates.Add(float64(n)) }

// RecordSurveyUnattributed adds n rows without a team.
func RecordSurveyUnattributed(n int) { globalManager.surveyUnattributed.Add(float64(n)) }

// RecordDegradedCells adds n unparseable cells.
func RecordDegradedCells(n int) { globalManager.degradedCells.Add(float64(n)) }

// RecordFinancialFile counts one financial file with its outcome.
func RecordFinancialFile(result string) {
	globalManager.financialFiles.WithLabelValues(result).Inc()
}

// UpdateMissingStudents sets the number of roster students who did not submit.
func UpdateMissingStudents(n int) { globalManager.missingStudents.Set(float64(n)) }

// RecordTeamScored counts a scored team and its flags by kind.
func RecordTeamScored(flagKinds []string) {
	globalManager.teamsScored.Inc()
	if len(flagKinds) > 0 {
		globalManager.teamsFlagged.Inc()
	}
	for _, k := range flagKinds {
		globalManager.flagsByKind.WithLabelValues(k).Inc()
	}
}

// RecordScoringError increments the scoring error counter.
func RecordScoringError() { globalManager.scoringErrors.Inc() }

// RecordScoringLatency records scoring latency in milliseconds.
func RecordScoringLatency(latencyMs float64) { globalManager.scoringLatency.Observe(latencyMs) }

// UpdateQueueSize sets the current queue length.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() { globalManager.queueEnqueued.Inc() }

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() { globalManager.queueDequeued.Inc() }

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() { globalManager.queueEnqueueErrors.Inc() }

// UpdateWorkerCount sets the number of workers.
func UpdateWorkerCount(count int) { globalManager.workerCount.Set(float64(count)) }

// AddWorkerActive adjusts the number of busy workers by delta.
func AddWorkerActive(delta int) { globalManager.workerActive.Add(float64(delta)) }

// UpdateRunDuration sets the duration of the last run in seconds.
func UpdateRunDuration(seconds float64) { globalManager.runDuration.Set(seconds) }

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// WriteTextfile writes every metric of the custom registry to path in the
// text exposition format, replacing the file atomically.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, customRegistry); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWriteFailed, path, err)
	}
	return nil
}
