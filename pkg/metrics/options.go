package metrics

import (
	"sort"

	"github.com/prometheus/client_golang/prometheus"
)

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithNamespace replaces the "peerreview" metric prefix.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithSubsystem replaces the "pipeline" metric subsystem.
func WithSubsystem(subsystem string) Option {
	return func(m *Manager) {
		if subsystem != "" {
			m.subsystem = subsystem
		}
	}
}

// WithLatencyBuckets sets the scoring latency buckets in milliseconds.
// Buckets that are not strictly increasing are ignored.
func WithLatencyBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) == 0 || !sort.Float64sAreSorted(buckets) {
			return
		}
		for i := 1; i < len(buckets); i++ {
			if buckets[i] == buckets[i-1] {
				return
			}
		}
		m.histogramBuckets = append([]float64(nil), buckets...)
	}
}

// WithConstLabel attaches name=value to every metric, e.g. the cohort or
// term a run belongs to. Repeated names keep the last value.
func WithConstLabel(name, value string) Option {
	return func(m *Manager) {
		if name == "" {
			return
		}
		m.customLabels[name] = value
	}
}

// WithConstLabels merges labels into the constant labels of every metric.
func WithConstLabels(labels map[string]string) Option {
	return func(m *Manager) {
		for k, v := range labels {
			WithConstLabel(k, v)(m)
		}
	}
}

// WithPrometheusRegistry registers the metrics with registry instead of the
// default registerer.
func WithPrometheusRegistry(registry prometheus.Registerer) Option {
	return func(m *Manager) {
		if registry != nil {
			m.registry = registry
		}
	}
}
