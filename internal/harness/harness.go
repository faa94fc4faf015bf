package harness

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/tickr/internal/scheduler"
	"github.com/roach88/tickr/internal/testutil"
)

// Option configures Run.
type Option func(*runOptions)

type runOptions struct {
	logger    *slog.Logger
	observers []func(TraceEvent)
	setups    []func(*scheduler.Scheduler)
}

// WithLogger sets the logger shared by the harness and the scheduler.
func WithLogger(l *slog.Logger) Option {
	return func(o *runOptions) { o.logger = l }
}

// WithObserver receives every trace event as it is recorded.
func WithObserver(fn func(TraceEvent)) Option {
	return func(o *runOptions) { o.observers = append(o.observers, fn) }
}

// WithSchedulerSetup runs fn on the scheduler before the first tick, e.g.
// to attach metrics hooks.
func WithSchedulerSetup(fn func(*scheduler.Scheduler)) Option {
	return func(o *runOptions) { o.setups = append(o.setups, fn) }
}

// Run executes a scenario and returns the result.
//
// Each run builds a fresh scheduler and a manual clock standing at
// testutil.Epoch, so identical scenarios produce identical traces.
//
// Execution flow per tick k (1..Ticks):
//  1. advance the clock by the scenario period
//  2. apply the steps for tick k
//  3. call Scheduler.Tick
//
// Step and tick errors are recorded in the result, not returned. The error
// return is reserved for scenarios that cannot be built.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	o := runOptions{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}

	period, err := scenario.TickPeriod()
	if err != nil {
		return nil, err
	}

	clock := testutil.NewManualClock()
	w, err := Build(scenario, Config{Clock: clock, Logger: o.logger})
	if err != nil {
		return nil, fmt.Errorf("failed to build scenario: %w", err)
	}

	result := NewResult()
	w.OnEvent(func(ev TraceEvent) {
		result.Trace = append(result.Trace, ev)
	})
	for _, fn := range o.observers {
		w.OnEvent(fn)
	}
	for _, fn := range o.setups {
		fn(w.Scheduler)
	}

	for k := int64(1); k <= scenario.Ticks; k++ {
		clock.Advance(period)
		if err := w.BeginTick(k); err != nil {
			result.AddError(fmt.Sprintf("tick %d steps: %v", k, err))
		}
		if err := w.Scheduler.Tick(); err != nil {
			result.AddError(fmt.Sprintf("tick %d: %v", k, err))
		}
	}

	w.Finish(result)

	o.logger.Info("scenario completed",
		"scenario", scenario.Name,
		"ticks", scenario.Ticks,
		"events", len(result.Trace),
		"pass", result.Pass,
	)
	return result, nil
}

// Finish copies the scheduler's final running set and ownership into
// result and evaluates the scenario's assertions against it.
func (w *World) Finish(result *Result) {
	snap := w.Scheduler.Snapshot()
	for _, rc := range snap.Running {
		result.Running = append(result.Running, rc.Name)
	}
	for _, rs := range snap.Resources {
		if rs.Owner != "" {
			result.Owners[rs.Name] = rs.Owner
		}
	}

	for _, msg := range EvaluateAssertions(result, w.scenario.Assertions) {
		result.AddError(msg)
	}
}

// Scenario returns the scenario the world was built from.
func (w *World) Scenario() *Scenario { return w.scenario }
