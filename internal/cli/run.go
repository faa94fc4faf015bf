package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/tickr/internal/driver"
	"github.com/roach88/tickr/internal/harness"
	"github.com/roach88/tickr/internal/metrics"
	"github.com/roach88/tickr/internal/server"
	"github.com/roach88/tickr/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	Realtime bool
	Period   time.Duration
	Listen   string
}

// RunSummary is the outcome of one scenario run.
type RunSummary struct {
	RunID    string               `json:"run_id,omitempty"`
	Scenario string               `json:"scenario"`
	Ticks    int64                `json:"ticks"`
	Pass     bool                 `json:"pass"`
	Trace    []harness.TraceEvent `json:"trace"`
	Running  []string             `json:"running"`
	Owners   map[string]string    `json:"owners"`
	Errors   []string             `json:"errors,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario>",
		Short: "Run one scenario and print its trace",
		Long: `Run a scenario file and print its lifecycle trace.

By default the scenario runs on a manual clock as fast as possible.
With --realtime it is driven by the wall clock, one tick per --period,
and --listen serves /healthz, /metrics, /status and /gate while it runs.
With --db every lifecycle event is recorded under a fresh run ID.

Defaults for --db, --period and --listen come from TICKR_DB,
TICKR_PERIOD and TICKR_LISTEN.

Example:
  tickr run ./scenarios/arm_handoff.yaml
  tickr run ./scenarios/arm_handoff.yaml --db ./tickr.db
  tickr run ./scenarios/arm_handoff.yaml --realtime --period 50ms --listen :9090`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			applyRunDefaults(opts, cmd)
			return runScenarioFile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "record the trace into this SQLite database")
	cmd.Flags().BoolVar(&opts.Realtime, "realtime", false, "drive ticks from the wall clock")
	cmd.Flags().DurationVar(&opts.Period, "period", 0, "real-time tick period (default: scenario period, then TICKR_PERIOD)")
	cmd.Flags().StringVar(&opts.Listen, "listen", "", "serve the status router on this address (with --realtime)")

	return cmd
}

// applyRunDefaults fills flags the user did not set from the environment.
func applyRunDefaults(opts *RunOptions, cmd *cobra.Command) {
	if !cmd.Flags().Changed("db") {
		opts.Database = opts.Config.DB
	}
	if !cmd.Flags().Changed("listen") {
		opts.Listen = opts.Config.Listen
	}
}

func runScenarioFile(opts *RunOptions, path string, cmd *cobra.Command) error {
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return WrapExitError(ExitCommandError, "scenario file not found", err)
		}
		_ = formatter.Error(ErrCodeInvalid, err.Error(), nil)
		return WrapExitError(ExitFailure, "invalid scenario", err)
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var rec *store.Recorder
	if opts.Database != "" {
		st, err := store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()

		runID, err := st.BeginRun(ctx, scenario.Name, scenario.Ticks)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to record run", err)
		}
		// The run is still recorded and finished after an interrupt.
		rec = st.NewRecorder(context.WithoutCancel(ctx), runID)
		logger.Info("recording run", "run_id", runID, "db", opts.Database)
	}

	var result *harness.Result
	if opts.Realtime {
		result, err = runRealtime(ctx, opts, scenario, rec, logger)
	} else {
		var hopts []harness.Option
		hopts = append(hopts, harness.WithLogger(logger))
		if rec != nil {
			hopts = append(hopts, harness.WithObserver(recordEvent(rec)))
		}
		result, err = harness.Run(scenario, hopts...)
	}
	if err != nil {
		return WrapExitError(ExitFailure, "scenario failed to start", err)
	}

	summary := RunSummary{
		Scenario: scenario.Name,
		Ticks:    scenario.Ticks,
		Pass:     result.Pass,
		Trace:    result.Trace,
		Running:  result.Running,
		Owners:   result.Owners,
		Errors:   result.Errors,
	}

	if rec != nil {
		summary.RunID = rec.RunID()
		if err := rec.Err(); err != nil {
			return WrapExitError(ExitCommandError, "failed to record trace", err)
		}
		if err := rec.Store().FinishRun(context.WithoutCancel(ctx), rec.RunID(), result.Pass, result.Errors); err != nil {
			return WrapExitError(ExitCommandError, "failed to record run outcome", err)
		}
	}

	return outputRunSummary(cmd, formatter, summary)
}

func recordEvent(rec *store.Recorder) func(harness.TraceEvent) {
	return func(ev harness.TraceEvent) {
		rec.Record(ev.Tick, ev.Event, ev.Command)
	}
}

// runRealtime drives the scenario from the wall clock and optionally
// serves the status router until the last tick.
func runRealtime(ctx context.Context, opts *RunOptions, scenario *harness.Scenario, rec *store.Recorder, logger *slog.Logger) (*harness.Result, error) {
	period, err := realtimePeriod(opts, scenario)
	if err != nil {
		return nil, err
	}

	w, err := harness.Build(scenario, harness.Config{Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("failed to build scenario: %w", err)
	}

	result := harness.NewResult()
	w.OnEvent(func(ev harness.TraceEvent) {
		result.Trace = append(result.Trace, ev)
	})
	if rec != nil {
		w.OnEvent(recordEvent(rec))
	}

	m := metrics.New(metrics.WithProcessCollectors())
	m.Attach(w.Scheduler)

	loop := driver.New(w.Scheduler, period,
		driver.WithLogger(logger),
		driver.WithMetrics(m),
		driver.WithMaxTicks(scenario.Ticks),
		driver.WithBeforeTick(w.BeginTick),
		driver.WithErrorHandler(func(tick int64, err error) {
			result.AddError(fmt.Sprintf("tick %d: %v", tick, err))
		}),
	)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		defer cancel()
		return loop.Run(gctx)
	})
	if opts.Listen != "" {
		handler := server.NewHandler(server.Config{
			Status:  loop,
			Gate:    w.Scheduler.Gate(),
			Metrics: m.Handler(),
			Logger:  logger,
		})
		g.Go(func() error {
			return server.ListenAndServe(gctx, opts.Listen, handler, logger)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	w.Finish(result)
	return result, nil
}

// realtimePeriod picks --period, then the scenario's period, then
// TICKR_PERIOD.
func realtimePeriod(opts *RunOptions, scenario *harness.Scenario) (time.Duration, error) {
	if opts.Period > 0 {
		return opts.Period, nil
	}
	if scenario.Period != "" {
		return scenario.TickPeriod()
	}
	if opts.Config.Period > 0 {
		return opts.Config.Period, nil
	}
	return harness.DefaultPeriod, nil
}

func outputRunSummary(cmd *cobra.Command, formatter *OutputFormatter, summary RunSummary) error {
	if formatter.Format == "json" {
		if !summary.Pass {
			if err := formatter.Failure(ErrCodeScenarioFail, "scenario failed", summary); err != nil {
				return err
			}
			return NewExitError(ExitFailure, "scenario failed")
		}
		return formatter.Success(summary)
	}

	w := cmd.OutOrStdout()
	if summary.RunID != "" {
		fmt.Fprintf(w, "Run: %s\n", summary.RunID)
	}
	fmt.Fprintf(w, "Scenario: %s (%d ticks)\n\n", summary.Scenario, summary.Ticks)
	for _, ev := range summary.Trace {
		fmt.Fprintf(w, "  [tick %d] %-10s %s\n", ev.Tick, ev.Event, ev.Command)
	}
	fmt.Fprintf(w, "\nRunning: %v\n", summary.Running)

	if !summary.Pass {
		fmt.Fprintln(w, "✗ FAIL")
		for _, e := range summary.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
		return NewExitError(ExitFailure, "scenario failed")
	}
	fmt.Fprintln(w, "✓ PASS")
	return nil
}

// commandContext returns the command's context, or Background when run
// outside Execute (as in tests).
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
