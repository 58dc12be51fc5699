package temporal

import (
	"sync"
	"time"
)

// Clock supplies the processing-time instants stamped on new versions.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

// Now returns the current wall-clock time in UTC.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// MonotonicClock wraps another clock and never returns the same instant
// twice: each reading is at least one nanosecond after the previous one.
// Processing intervals opened and closed by consecutive writes therefore
// never collapse to zero width.
//
// Thread-safety: MonotonicClock is safe for concurrent use.
type MonotonicClock struct {
	mu   sync.Mutex
	base Clock
	last time.Time
}

// NewMonotonicClock wraps base. A nil base uses SystemClock.
func NewMonotonicClock(base Clock) *MonotonicClock {
	if base == nil {
		base = SystemClock{}
	}
	return &MonotonicClock{base: base}
}

// Now returns max(base.Now(), last+1ns).
func (c *MonotonicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.base.Now().UTC().Round(0)
	if !now.After(c.last) {
		now = c.last.Add(time.Nanosecond)
	}
	c.last = now
	return now
}
