package scheduler

import "sync/atomic"

// Gate is the process-wide enable/disable switch (e.g. the field
// controller's disable signal).
//
// While the gate is disabled, commands that do not run when disabled are
// refused by Schedule and stopped by Tick. Gate is safe to flip from any
// goroutine; the scheduler reads it once per command per tick.
type Gate struct {
	disabled atomic.Bool
}

// NewGate returns an enabled gate.
func NewGate() *Gate { return &Gate{} }

// Disable sets the gate.
func (g *Gate) Disable() { g.disabled.Store(true) }

// Enable clears the gate.
func (g *Gate) Enable() { g.disabled.Store(false) }

// Disabled reports whether the gate is set.
func (g *Gate) Disabled() bool { return g.disabled.Load() }
