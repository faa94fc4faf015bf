package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/tickr/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string // empty lists runs; "latest" picks the newest
	Command  string // optional - filter to one command
}

// TraceResult is one run's recorded timeline.
type TraceResult struct {
	Run      store.Run     `json:"run"`
	Timeline []store.Event `json:"timeline"`
	Stats    TraceStats    `json:"stats"`
}

// TraceStats counts events by type.
type TraceStats struct {
	TotalEvents int `json:"total_events"`
	Initialize  int `json:"initialize"`
	Execute     int `json:"execute"`
	Interrupt   int `json:"interrupt"`
	Finish      int `json:"finish"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect recorded runs",
		Long: `Inspect scenario runs recorded with "tickr run --db".

Without --run, lists every recorded run, oldest first.
With --run, prints that run's lifecycle timeline in the order the
scheduler raised the events. --run latest selects the newest run.

Examples:
  tickr trace --db ./tickr.db
  tickr trace --db ./tickr.db --run latest
  tickr trace --db ./tickr.db --run 0192... --command raise --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("db") {
				opts.Database = opts.Config.DB
			}
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default: TICKR_DB)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run ID to print, or \"latest\"")
	cmd.Flags().StringVar(&opts.Command, "command", "", "filter to one command")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if opts.Database == "" {
		return NewExitError(ExitCommandError, "--db is required (or set TICKR_DB)")
	}
	// Opening would create an empty database; a typo should fail instead.
	if _, err := os.Stat(opts.Database); err != nil {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("database not found: %s", opts.Database), nil)
		return WrapExitError(ExitCommandError, "database not found", err)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if opts.RunID == "" {
		return listRuns(ctx, st, formatter, cmd)
	}

	var run store.Run
	if opts.RunID == "latest" {
		run, err = st.LatestRun(ctx)
	} else {
		run, err = st.GetRun(ctx, opts.RunID)
	}
	if errors.Is(err, store.ErrRunNotFound) {
		_ = formatter.Error(ErrCodeRunNotFound, fmt.Sprintf("run not found: %s", opts.RunID), nil)
		return WrapExitError(ExitCommandError, "run not found", err)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	var events []store.Event
	if opts.Command != "" {
		events, err = st.ReadCommandEvents(ctx, run.ID, opts.Command)
	} else {
		events, err = st.ReadEvents(ctx, run.ID)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read events", err)
	}

	result := TraceResult{Run: run, Timeline: events, Stats: countEvents(events)}
	if opts.Format == "json" {
		return formatter.Success(result)
	}
	return outputTraceText(cmd, result)
}

func listRuns(ctx context.Context, st *store.Store, formatter *OutputFormatter, cmd *cobra.Command) error {
	runs, err := st.ListRuns(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}
	if formatter.Format == "json" {
		return formatter.Success(runs)
	}

	w := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(w, "%s  %-24s %s  %d event(s)\n", r.ID, r.Scenario, runStatus(r), r.Events)
	}
	return nil
}

func runStatus(r store.Run) string {
	switch {
	case !r.Finished:
		return "INCOMPLETE"
	case r.Pass:
		return "PASS"
	default:
		return "FAIL"
	}
}

func countEvents(events []store.Event) TraceStats {
	stats := TraceStats{TotalEvents: len(events)}
	for _, ev := range events {
		switch ev.Event {
		case "initialize":
			stats.Initialize++
		case "execute":
			stats.Execute++
		case "interrupt":
			stats.Interrupt++
		case "finish":
			stats.Finish++
		}
	}
	return stats
}

func outputTraceText(cmd *cobra.Command, result TraceResult) error {
	w := cmd.OutOrStdout()
	r := result.Run

	fmt.Fprintf(w, "Run: %s\n", r.ID)
	fmt.Fprintf(w, "Scenario: %s (%d ticks) %s\n", r.Scenario, r.Ticks, runStatus(r))
	fmt.Fprintf(w, "Started: %s\n\n", r.StartedAt.Format("2006-01-02 15:04:05.000"))

	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "No events recorded.")
	}
	for _, ev := range result.Timeline {
		fmt.Fprintf(w, "  %4d  [tick %d] %-10s %s\n", ev.Seq, ev.Tick, ev.Event, ev.Command)
	}

	s := result.Stats
	fmt.Fprintf(w, "\n%d event(s): %d initialize, %d execute, %d interrupt, %d finish\n",
		s.TotalEvents, s.Initialize, s.Execute, s.Interrupt, s.Finish)
	for _, e := range r.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
	return nil
}
