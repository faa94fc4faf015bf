package scheduler

import "sync/atomic"

// Clock numbers processed ticks. Tick 0 means no tick has run; a disabled
// scheduler skips Tick without consuming a number.
//
// Current may be read from any goroutine, e.g. by a status handler, while
// the scheduler's goroutine calls Next.
type Clock struct {
	n atomic.Int64
}

// NewClock returns a clock at tick 0.
func NewClock() *Clock { return new(Clock) }

// Next starts a new tick and returns its number.
func (c *Clock) Next() int64 { return c.n.Add(1) }

// Current returns the number of the latest tick.
func (c *Clock) Current() int64 { return c.n.Load() }
