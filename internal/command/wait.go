package command

import "time"

// Clock supplies the current time to time-based commands.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// Wait finishes once its duration has elapsed since Initialize.
//
// Waiting is polled across ticks; nothing blocks. Wait holds no resources
// and keeps running while the disable gate is set.
type Wait struct {
	Base
	clock    Clock
	duration time.Duration
	start    time.Time
	elapsed  time.Duration
	running  bool
}

// NewWait returns a Wait of d measured on clock. A nil clock means
// SystemClock.
func NewWait(d time.Duration, clock Clock) *Wait {
	if clock == nil {
		clock = SystemClock{}
	}
	w := &Wait{clock: clock, duration: d}
	w.SetName("Wait:" + d.String())
	return w
}

// Initialize starts the timer.
func (w *Wait) Initialize() {
	w.start = w.clock.Now()
	w.elapsed = 0
	w.running = true
}

// End freezes the timer.
func (w *Wait) End(bool) {
	if w.running {
		w.elapsed = w.clock.Now().Sub(w.start)
		w.running = false
	}
}

// Elapsed returns the time measured so far.
func (w *Wait) Elapsed() time.Duration {
	if w.running {
		return w.clock.Now().Sub(w.start)
	}
	return w.elapsed
}

// IsFinished reports whether the duration has elapsed.
func (w *Wait) IsFinished() bool {
	return w.Elapsed() >= w.duration
}

// RunsWhenDisabled is true: waits touch no resource.
func (w *Wait) RunsWhenDisabled() bool { return true }
