package source

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/okian/peerreview/internal/domain/identity"
	"github.com/okian/peerreview/internal/domain/ledger"
	"github.com/okian/peerreview/internal/domain/model"
	"github.com/okian/peerreview/pkg/logger"
	"github.com/okian/peerreview/pkg/metrics"
)

// FinancialSet holds the extracted financials of every team. Team keys are
// matched case-insensitively.
type FinancialSet struct {
	byKey map[string]model.TeamFinancials
}

// Lookup returns the financials of team.
func (s FinancialSet) Lookup(team string) (model.TeamFinancials, bool) {
	tf, ok := s.byKey[identity.FoldKey(team)]
	return tf, ok
}

// Len is the number of teams with financial data.
func (s FinancialSet) Len() int { return len(s.byKey) }

// Teams returns the team keys as written in the file names, sorted.
func (s FinancialSet) Teams() []string {
	out := make([]string, 0, len(s.byKey))
	for _, tf := range s.byKey {
		out = append(out, tf.Team)
	}
	sort.Strings(out)
	return out
}

func (s *FinancialSet) put(tf model.TeamFinancials) {
	if s.byKey == nil {
		s.byKey = make(map[string]model.TeamFinancials)
	}
	s.byKey[identity.FoldKey(tf.Team)] = tf
}

// Warning is a financial file that could not be used.
type Warning struct {
	Path string
	Err  error
}

func (w Warning) String() string {
	return fmt.Sprintf("could not process %s: %v", filepath.Base(w.Path), w.Err)
}

// TeamKeyFromPath derives the team key from a financial file name:
// "2A-Income and Expense Tracking.xlsx" -> "2A".
func TeamKeyFromPath(path string) (string, error) {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	key, ok := identity.TeamKeyOf(stem)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNoTeamKey, base)
	}
	return key, nil
}

// Option applies a configuration option to the Loader.
type Option func(*Loader)

// WithLogger sets a custom logger for the loader.
func WithLogger(l logger.Logger) Option {
	return func(ld *Loader) {
		if l != nil {
			ld.logger = l
		}
	}
}

// WithConcurrency bounds how many files are read at once.
func WithConcurrency(n int) Option {
	return func(ld *Loader) {
		if n > 0 {
			ld.concurrency = n
		}
	}
}

// Loader reads financial files.
type Loader struct {
	logger      logger.Logger
	concurrency int
}

// NewLoader creates a loader with configuration options.
func NewLoader(opts ...Option) *Loader {
	ld := &Loader{logger: logger.Nop(), concurrency: runtime.NumCPU()}
	for _, opt := range opts {
		opt(ld)
	}
	return ld
}

type loaded struct {
	tf  model.TeamFinancials
	err error
}

// LoadFinancials reads every path concurrently and merges the results in
// path order; a later file for the same team replaces an earlier one. A file
// that cannot be used becomes a Warning and never aborts the load.
func (ld *Loader) LoadFinancials(ctx context.Context, paths []string) (FinancialSet, []Warning) {
	results := make([]loaded, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ld.concurrency)
	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = loaded{err: err}
				return nil
			}
			tf, err := ld.loadOne(p)
			results[i] = loaded{tf: tf, err: err}
			return nil
		})
	}
	_ = g.Wait()

	var (
		set      FinancialSet
		warnings []Warning
	)
	for i, r := range results {
		path := paths[i]
		if r.err != nil {
			outcome := metrics.FileFailed
			if isSkip(r.err) {
				outcome = metrics.FileSkipped
			}
			metrics.RecordFinancialFile(outcome)
			ld.logger.Warn(ctx, "financial file not used",
				logger.String("path", path),
				logger.String("outcome", outcome),
				logger.Error(r.err))
			warnings = append(warnings, Warning{Path: path, Err: r.err})
			continue
		}
		metrics.RecordFinancialFile(metrics.FileLoaded)
		fields := []logger.Field{
			logger.String("path", path),
			logger.String("team", r.tf.Team),
			logger.Int("students", len(r.tf.Students)),
		}
		if r.tf.Profit != nil {
			fields = append(fields, logger.Float64("profit", *r.tf.Profit))
		}
		ld.logger.Debug(ctx, "financial file loaded", fields...)
		set.put(r.tf)
	}
	return set, warnings
}

func isSkip(err error) bool {
	return errors.Is(err, ErrUnsupportedFormat) || errors.Is(err, ErrNoTeamKey)
}

func (ld *Loader) loadOne(path string) (model.TeamFinancials, error) {
	team, err := TeamKeyFromPath(path)
	if err != nil {
		return model.TeamFinancials{}, err
	}

	var tf model.TeamFinancials
	switch strings.ToLower(filepath.Ext(path)) {
	case ExtXLSX:
		sheet, err := ReadWorkbook(path)
		if err != nil {
			return model.TeamFinancials{}, err
		}
		tf = ledger.Extract(team, sheet.Table, sheet.Name == ledger.SummarySheet)
	case ExtCSV:
		all, err := readTable(path)
		if err != nil {
			return model.TeamFinancials{}, err
		}
		tf = ledger.Extract(team, all, false)
	default:
		return model.TeamFinancials{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Base(path))
	}
	tf.Source = filepath.Base(path)
	return tf, nil
}
