package testutil

import (
	"sync"
	"time"
)

// DefaultEpoch is the starting time of NewManualClock.
var DefaultEpoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// ManualClock is a wall clock that only moves when told to.
//
// Unlike engine.SystemClock, ManualClock can be set and advanced so tests
// can age submissions past retention and bulk-reject cutoffs without
// sleeping.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock creates a clock reading DefaultEpoch.
func NewManualClock() *ManualClock {
	return &ManualClock{now: DefaultEpoch}
}

// NewManualClockAt creates a clock reading t.
func NewManualClockAt(t time.Time) *ManualClock {
	return &ManualClock{now: t.UTC()}
}

// Now returns the current reading.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d and returns the new reading.
func (c *ManualClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// Set moves the clock to t.
func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t.UTC()
}
