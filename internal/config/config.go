// Package config defines run configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - All functions accept context.Context as the first parameter.
// - External errors are wrapped via this package's sentinel errors.
package config

import (
	"context"
	"fmt"
	"runtime"
	"strings"
)

// Default values used by New.
const (
	DefaultVarianceThreshold = 15.0
	DefaultShortfallRatio    = 0.6
	DefaultLowSalesRatio     = 0.5
	DefaultSalesNoiseFloor   = 10.0
	DefaultSumTolerance      = 0.1
	DefaultQueueSize         = 1024
)

// Output formats understood by the renderer.
var OutputFormats = []string{"text", "json", "yaml"}

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the slog handler: text or json.
	LogFormat string `koanf:"log_format"`

	// VarianceThreshold is the max-minus-min disagreement (in percentage
	// points) above which a team is flagged.
	VarianceThreshold float64 `koanf:"variance_threshold"`

	// ShortfallRatio is the fraction of fair share below which a student is
	// reported as a low contributor.
	ShortfallRatio float64 `koanf:"shortfall_ratio"`

	// LowSalesRatio is the fraction of the team's average income below which
	// a student is reported for low sales.
	LowSalesRatio float64 `koanf:"low_sales_ratio"`

	// SalesNoiseFloor is the minimum team average income for the low-sales
	// comparison to apply.
	SalesNoiseFloor float64 `koanf:"sales_noise_floor"`

	// SumTolerance is the allowed deviation of one submission's percentages from 100.
	SumTolerance float64 `koanf:"sum_tolerance"`

	// WorkerCount sets the number of team scoring workers.
	WorkerCount int `koanf:"worker_count"`

	// QueueSize bounds the in-memory scoring job queue.
	QueueSize int `koanf:"queue_size"`

	// OutputFormat is one of OutputFormats.
	OutputFormat string `koanf:"output_format"`

	// OnlyFlagged limits the rendered team list to flagged teams.
	OnlyFlagged bool `koanf:"only_flagged"`

	// MetricsFile, when set, receives a Prometheus textfile snapshot at the end of the run.
	MetricsFile string `koanf:"metrics_file"`
}

// New creates a Config populated with defaults. Context is accepted first to
// satisfy the project-wide convention.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		VarianceThreshold: DefaultVarianceThreshold,
		ShortfallRatio:    DefaultShortfallRatio,
		LowSalesRatio:     DefaultLowSalesRatio,
		SalesNoiseFloor:   DefaultSalesNoiseFloor,
		SumTolerance:      DefaultSumTolerance,
		WorkerCount:       runtime.NumCPU(),
		QueueSize:         DefaultQueueSize,
		OutputFormat:      "text",
	}
}

// Validate reports the first invalid field, wrapped in ErrInvalidConfig.
func (c *Config) Validate(_ context.Context) error {
	switch {
	case c.VarianceThreshold < 0:
		return fmt.Errorf("%w: variance_threshold must be >= 0, got %v", ErrInvalidConfig, c.VarianceThreshold)
	case c.ShortfallRatio <= 0 || c.ShortfallRatio > 1:
		return fmt.Errorf("%w: shortfall_ratio must be in (0,1], got %v", ErrInvalidConfig, c.ShortfallRatio)
	case c.LowSalesRatio <= 0 || c.LowSalesRatio > 1:
		return fmt.Errorf("%w: low_sales_ratio must be in (0,1], got %v", ErrInvalidConfig, c.LowSalesRatio)
	case c.SalesNoiseFloor < 0:
		return fmt.Errorf("%w: sales_noise_floor must be >= 0, got %v", ErrInvalidConfig, c.SalesNoiseFloor)
	case c.SumTolerance < 0:
		return fmt.Errorf("%w: sum_tolerance must be >= 0, got %v", ErrInvalidConfig, c.SumTolerance)
	case c.WorkerCount < 1:
		return fmt.Errorf("%w: worker_count must be > 0, got %d", ErrInvalidConfig, c.WorkerCount)
	case c.QueueSize < 1:
		return fmt.Errorf("%w: queue_size must be > 0, got %d", ErrInvalidConfig, c.QueueSize)
	}
	if !validFormat(c.OutputFormat) {
		return fmt.Errorf("%w: output_format %q must be one of %v", ErrInvalidConfig, c.OutputFormat, OutputFormats)
	}
	return nil
}

func validFormat(format string) bool {
	for _, f := range OutputFormats {
		if strings.EqualFold(f, format) {
			return true
		}
	}
	return false
}
