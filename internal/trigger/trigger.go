// Package trigger turns boolean signals into scheduler actions.
//
// A Trigger wraps a predicate. Binding a command to a Trigger registers a
// Poller with the scheduler; the Poller samples the predicate once per tick
// and compares it with the value it saw last tick. Every binding keeps its
// own previous value, seeded by sampling the predicate at bind time, so a
// signal that is already true when bound does not count as a rising edge.
package trigger

import "github.com/roach88/tickr/internal/command"

// Poller is run by the scheduler once per tick, before commands execute.
type Poller func() error

// Scheduler is the part of the scheduler bindings drive.
type Scheduler interface {
	Schedule(cmd command.Command, interruptible bool) error
	Cancel(cmds ...command.Command)
	IsScheduled(cmds ...command.Command) bool
	AddPoller(p Poller)
}

// Trigger is a boolean signal.
type Trigger struct {
	cond func() bool
}

// New wraps cond. A nil cond is always false.
func New(cond func() bool) *Trigger {
	if cond == nil {
		cond = func() bool { return false }
	}
	return &Trigger{cond: cond}
}

// Get samples the signal.
func (t *Trigger) Get() bool { return t.cond() }

// And is true when both signals are true. Both are sampled every time.
func (t *Trigger) And(other *Trigger) *Trigger {
	return New(func() bool {
		a, b := t.Get(), other.Get()
		return a && b
	})
}

// Or is true when either signal is true. Both are sampled every time.
func (t *Trigger) Or(other *Trigger) *Trigger {
	return New(func() bool {
		a, b := t.Get(), other.Get()
		return a || b
	})
}

// Negate inverts the signal.
func (t *Trigger) Negate() *Trigger {
	return New(func() bool { return !t.Get() })
}

// edge builds a Poller that tracks the previous sample and calls step with
// the previous and current values.
func (t *Trigger) edge(step func(last, now bool) error) Poller {
	last := t.Get()
	return func() error {
		now := t.Get()
		err := step(last, now)
		last = now
		return err
	}
}

// OnRisingEdge schedules cmd when the signal goes false to true.
func (t *Trigger) OnRisingEdge(s Scheduler, cmd command.Command, interruptible bool) *Trigger {
	s.AddPoller(t.edge(func(last, now bool) error {
		if !last && now {
			return s.Schedule(cmd, interruptible)
		}
		return nil
	}))
	return t
}

// OnRisingEdgeFunc runs action as an Instant command on every rising edge.
func (t *Trigger) OnRisingEdgeFunc(s Scheduler, action func()) *Trigger {
	return t.OnRisingEdge(s, command.NewInstant(action), true)
}

// WhileTrueRepeating schedules cmd on every tick the signal is true and
// cancels it when the signal goes true to false. A command that finishes
// while the signal is held is restarted on the next tick.
func (t *Trigger) WhileTrueRepeating(s Scheduler, cmd command.Command, interruptible bool) *Trigger {
	s.AddPoller(t.edge(func(last, now bool) error {
		if now {
			return s.Schedule(cmd, interruptible)
		}
		if last {
			s.Cancel(cmd)
		}
		return nil
	}))
	return t
}

// WhileTrueRepeatingFunc runs action on every tick the signal is true.
func (t *Trigger) WhileTrueRepeatingFunc(s Scheduler, action func()) *Trigger {
	return t.WhileTrueRepeating(s, command.NewInstant(action), true)
}

// WhileTrueOnce schedules cmd when the signal goes false to true and cancels
// it when the signal goes true to false.
func (t *Trigger) WhileTrueOnce(s Scheduler, cmd command.Command, interruptible bool) *Trigger {
	s.AddPoller(t.edge(func(last, now bool) error {
		switch {
		case !last && now:
			return s.Schedule(cmd, interruptible)
		case last && !now:
			s.Cancel(cmd)
		}
		return nil
	}))
	return t
}

// OnFallingEdge schedules cmd when the signal goes true to false.
func (t *Trigger) OnFallingEdge(s Scheduler, cmd command.Command, interruptible bool) *Trigger {
	s.AddPoller(t.edge(func(last, now bool) error {
		if last && !now {
			return s.Schedule(cmd, interruptible)
		}
		return nil
	}))
	return t
}

// OnFallingEdgeFunc runs action on every falling edge.
func (t *Trigger) OnFallingEdgeFunc(s Scheduler, action func()) *Trigger {
	return t.OnFallingEdge(s, command.NewInstant(action), true)
}

// ToggleOnRisingEdge cancels cmd on a rising edge if it is running and
// schedules it otherwise.
func (t *Trigger) ToggleOnRisingEdge(s Scheduler, cmd command.Command, interruptible bool) *Trigger {
	s.AddPoller(t.edge(func(last, now bool) error {
		if last || !now {
			return nil
		}
		if s.IsScheduled(cmd) {
			s.Cancel(cmd)
			return nil
		}
		return s.Schedule(cmd, interruptible)
	}))
	return t
}

// ToggleBetween alternates first and second on successive rising edges,
// starting with first. The other command is cancelled before scheduling.
func (t *Trigger) ToggleBetween(s Scheduler, first, second command.Command, interruptible bool) *Trigger {
	secondNext := false
	s.AddPoller(t.edge(func(last, now bool) error {
		if last || !now {
			return nil
		}
		stop, start := second, first
		if secondNext {
			stop, start = first, second
		}
		secondNext = !secondNext
		if s.IsScheduled(stop) {
			s.Cancel(stop)
		}
		return s.Schedule(start, interruptible)
	}))
	return t
}

// ToggleBetweenFunc runs first and second on alternate rising edges.
func (t *Trigger) ToggleBetweenFunc(s Scheduler, first, second func()) *Trigger {
	return t.ToggleBetween(s, command.NewInstant(first), command.NewInstant(second), true)
}

// CancelOnRisingEdge cancels cmd when the signal goes false to true.
func (t *Trigger) CancelOnRisingEdge(s Scheduler, cmd command.Command) *Trigger {
	s.AddPoller(t.edge(func(last, now bool) error {
		if !last && now {
			s.Cancel(cmd)
		}
		return nil
	}))
	return t
}
