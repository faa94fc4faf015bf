package testutil

import (
	"sync"
	"time"
)

// Epoch is the start time of every ManualClock.
var Epoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// ManualClock is a command.Clock that only moves when told to.
//
// Tests advance it between ticks so time-based commands finish on a known
// tick. Thread-safe: the real-time driver and tests may share one.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock creates a clock standing at Epoch.
func NewManualClock() *ManualClock {
	return &ManualClock{now: Epoch}
}

// Now returns the current manual time.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d and returns the new time.
func (c *ManualClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// Since returns the time elapsed since Epoch.
func (c *ManualClock) Since() time.Duration {
	return c.Now().Sub(Epoch)
}

// Reset puts the clock back at Epoch.
func (c *ManualClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = Epoch
}
