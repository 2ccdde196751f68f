package testfixtures

import (
	"sync"
	"time"
)

// Clock is a manually driven time source. Services take their clock as a
// now func() time.Time, so tests hand them NowFunc and move time explicitly
// with Advance or Set instead of sleeping. Token expiry tests depend on
// this: a TTL boundary is crossed by advancing the clock, never by waiting.
type Clock struct {
	mu      sync.Mutex
	instant time.Time
}

// NewClock returns a clock pinned to start. The zero value pins it to the
// shared ReferenceTime so unrelated tests agree on "now".
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = ReferenceTime()
	}
	return &Clock{instant: start}
}

// Now returns the instant the clock is pinned to.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.instant
}

// NowFunc adapts the clock to the now-function shape services expect. A nil
// clock degrades to the real time.Now.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

// Set pins the clock to an absolute instant.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.instant = t
	c.mu.Unlock()
}

// Advance moves the clock forward by d and returns the new instant.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	c.instant = c.instant.Add(d)
	moved := c.instant
	c.mu.Unlock()
	return moved
}

// Current reads the clock without implying any progression. It exists for
// call sites where Now would read as wall-clock time.
func (c *Clock) Current() time.Time {
	return c.Now()
}
