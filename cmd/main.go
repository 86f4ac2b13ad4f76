package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/okian/peerreview/internal/adapters/render"
	service "github.com/okian/peerreview/internal/app"
	"github.com/okian/peerreview/internal/config"
	"github.com/okian/peerreview/pkg/logger"
	"github.com/okian/peerreview/pkg/metrics"
)

// Process exit codes.
const (
	exitOK    = 0
	exitInput = 2
)

// options holds the command line flags.
type options struct {
	survey      string
	roster      string
	financials  []string
	threshold   float64
	format      string
	onlyFlagged bool
	metricsFile string
	verbose     bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// execute runs the root command and maps its outcome to an exit code.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCommand(stderr)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return exitInput
	}
	return exitOK
}

func newRootCommand(stderr io.Writer) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "peerreview --survey responses.csv [--roster roster.csv] [--financial file]...",
		Short: "Flag project teams from peer evaluations, rosters and financial ledgers",
		Long: `Reads a peer evaluation survey export, optionally a class roster and
per-team financial workbooks, and reports teams that show signs of unequal
contribution or trouble.

Financial files are matched to teams by the text before the first '-' in the
file name, e.g. "2A-Income and Expense Tracking.xlsx" belongs to team 2A.

Configuration is read from defaults, the YAML file named by PEERREVIEW_CONFIG,
and PEERREVIEW_* environment variables; flags override all of them.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, opts, stderr)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.survey, "survey", "", "survey export (.csv or .xlsx)")
	f.StringVar(&opts.roster, "roster", "", "class roster (.csv or .xlsx)")
	f.StringArrayVar(&opts.financials, "financial", nil, "team financial file (.xlsx or .csv), repeatable")
	f.Float64Var(&opts.threshold, "threshold", config.DefaultVarianceThreshold, "variance threshold in percentage points")
	f.StringVar(&opts.format, "format", "", "output format ("+strings.Join(config.OutputFormats, "|")+")")
	f.BoolVar(&opts.onlyFlagged, "only-flagged", false, "list only flagged teams")
	f.StringVar(&opts.metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	_ = cmd.MarkFlagRequired("survey")

	return cmd
}

func run(cmd *cobra.Command, opts *options, stderr io.Writer) error {
	ctx := cmd.Context()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	applyFlags(cmd, opts, cfg)
	if err := cfg.Validate(ctx); err != nil {
		return err
	}

	if err := logger.Init(logger.WithWriter(stderr), logger.WithFormat(cfg.LogFormat)); err != nil {
		return fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}
	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc := service.New(append(service.OptionsFromConfig(cfg), service.WithLogger(log))...)
	report, err := svc.Run(ctx, service.Inputs{
		SurveyPath:     opts.survey,
		RosterPath:     opts.roster,
		FinancialPaths: opts.financials,
	})

	// Metrics describe failed runs too.
	if cfg.MetricsFile != "" {
		if werr := metrics.WriteTextfile(cfg.MetricsFile); werr != nil {
			log.Warn(ctx, "metrics textfile not written", logger.Error(werr))
		}
	}
	if err != nil {
		return err
	}

	if err := render.Write(cmd.OutOrStdout(), report, cfg.OutputFormat); err != nil {
		if errors.Is(err, render.ErrUnknownFormat) {
			return fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
		}
		return err
	}
	return nil
}

// applyFlags lets explicitly set flags override the loaded configuration.
func applyFlags(cmd *cobra.Command, opts *options, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("threshold") {
		cfg.VarianceThreshold = opts.threshold
	}
	if f.Changed("format") {
		cfg.OutputFormat = strings.ToLower(strings.TrimSpace(opts.format))
	}
	if f.Changed("only-flagged") {
		cfg.OnlyFlagged = opts.onlyFlagged
	}
	if f.Changed("metrics-file") {
		cfg.MetricsFile = opts.metricsFile
	}
	if opts.verbose {
		cfg.LogLevel = "debug"
	}
}
