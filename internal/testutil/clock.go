package testutil

import (
	"sync"
	"time"
)

// DeterministicClock is a wall clock replacement for tests.
//
// Each call to Now advances the clock by a fixed step and returns the new
// time, so repeated runs stamp identical readAt values and snapshot times.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu    sync.Mutex
	start time.Time
	step  time.Duration
	ticks int64
}

// Epoch is the default start time: 2023-11-14T22:13:20Z (Unix ms 1700000000000).
var Epoch = time.UnixMilli(1700000000000).UTC()

// NewDeterministicClock creates a clock starting at Epoch that advances one
// second per call.
//
// The first call to Now() returns Epoch + 1s.
func NewDeterministicClock() *DeterministicClock {
	return NewDeterministicClockAt(Epoch, time.Second)
}

// NewDeterministicClockAt creates a clock with an explicit start and step.
func NewDeterministicClockAt(start time.Time, step time.Duration) *DeterministicClock {
	return &DeterministicClock{start: start.UTC(), step: step}
}

// Now advances the clock and returns the new time.
func (c *DeterministicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks++
	return c.start.Add(time.Duration(c.ticks) * c.step)
}

// Current returns the current time without advancing.
func (c *DeterministicClock) Current() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.start.Add(time.Duration(c.ticks) * c.step)
}

// Reset rewinds the clock to its start.
//
// After Reset(), the next call to Now() returns start + step.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks = 0
}
