package eventloop

import (
	"sync"
	"time"
)

// Clock supplies the loop's notion of time.
type Clock interface {
	Now() time.Time
}

// SettableClock is a Clock whose time can be moved forward by the loop.
type SettableClock interface {
	Clock
	Set(t time.Time)
}

// RealClock reads the wall clock.
type RealClock struct{}

// Now returns time.Now.
func (RealClock) Now() time.Time { return time.Now() }

// VirtualClock advances only when told to. Timers scheduled on a loop driven
// by a VirtualClock fire from Loop.Advance, never on their own.
type VirtualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewVirtualClock returns a clock frozen at start.
func NewVirtualClock(start time.Time) *VirtualClock {
	return &VirtualClock{now: start}
}

// Now returns the current virtual time.
func (c *VirtualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock. Moving backwards is ignored.
func (c *VirtualClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.After(c.now) {
		c.now = t
	}
}
