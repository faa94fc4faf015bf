// Package driver runs a scheduler in real time, calling Tick once per
// period until the context ends or a tick limit is reached.
//
// The loop is the only goroutine that touches the scheduler. After every
// tick it publishes a Snapshot that other goroutines (the status server)
// may read at any time.
package driver

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/roach88/tickr/internal/metrics"
	"github.com/roach88/tickr/internal/scheduler"
)

// Loop drives one scheduler.
type Loop struct {
	sched    *scheduler.Scheduler
	period   time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
	before   func(tick int64) error
	onError  func(tick int64, err error)
	maxTicks int64

	ticks    atomic.Int64
	snapshot atomic.Pointer[scheduler.Snapshot]
}

// Option configures a Loop.
type Option func(*Loop)

// WithLogger sets the logger. Nil is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(lp *Loop) {
		if l != nil {
			lp.logger = l
		}
	}
}

// WithMetrics records every tick's duration and error.
func WithMetrics(m *metrics.Metrics) Option {
	return func(lp *Loop) { lp.metrics = m }
}

// WithBeforeTick runs fn ahead of each Scheduler.Tick with the 1-based
// tick number, e.g. to apply scripted steps.
func WithBeforeTick(fn func(tick int64) error) Option {
	return func(lp *Loop) { lp.before = fn }
}

// WithErrorHandler receives errors from the before hook and from Tick.
// The default logs them at warn level.
func WithErrorHandler(fn func(tick int64, err error)) Option {
	return func(lp *Loop) {
		if fn != nil {
			lp.onError = fn
		}
	}
}

// WithMaxTicks stops the loop after n ticks. 0 runs until cancelled.
func WithMaxTicks(n int64) Option {
	return func(lp *Loop) { lp.maxTicks = n }
}

// New creates a loop ticking s every period.
func New(s *scheduler.Scheduler, period time.Duration, opts ...Option) *Loop {
	lp := &Loop{
		sched:  s,
		period: period,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	lp.onError = func(tick int64, err error) {
		lp.logger.Warn("tick failed", "tick", tick, "err", err)
	}
	for _, opt := range opts {
		opt(lp)
	}
	return lp
}

// Run ticks until ctx is done or the tick limit is reached. It returns nil
// on either; a non-positive period is the only error.
func (lp *Loop) Run(ctx context.Context) error {
	if lp.period <= 0 {
		return fmt.Errorf("driver period must be positive, got %s", lp.period)
	}

	lp.publish()
	lp.logger.Info("driver started", "period", lp.period, "max_ticks", lp.maxTicks)

	ticker := time.NewTicker(lp.period)
	defer ticker.Stop()

	for {
		if ctx.Err() != nil {
			lp.logger.Info("driver stopped", "ticks", lp.ticks.Load())
			return nil
		}
		select {
		case <-ctx.Done():
			continue
		case <-ticker.C:
		}

		lp.step()

		if lp.maxTicks > 0 && lp.ticks.Load() >= lp.maxTicks {
			lp.logger.Info("driver finished", "ticks", lp.ticks.Load())
			return nil
		}
	}
}

func (lp *Loop) step() {
	tick := lp.ticks.Add(1)

	if lp.before != nil {
		if err := lp.before(tick); err != nil {
			lp.onError(tick, err)
		}
	}

	start := time.Now()
	err := lp.sched.Tick()
	if lp.metrics != nil {
		lp.metrics.ObserveTick(time.Since(start), err)
	}
	if err != nil {
		lp.onError(tick, err)
	}

	lp.publish()
}

func (lp *Loop) publish() {
	snap := lp.sched.Snapshot()
	lp.snapshot.Store(&snap)
}

// Snapshot returns the state published after the latest tick. It is safe
// to call from any goroutine. Nil before Run starts.
func (lp *Loop) Snapshot() *scheduler.Snapshot {
	return lp.snapshot.Load()
}

// Ticks returns the number of ticks run so far.
func (lp *Loop) Ticks() int64 {
	return lp.ticks.Load()
}
