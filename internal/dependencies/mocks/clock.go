package mocks

import (
	"sort"
	"sync"
	"time"

	"github.com/mcoot/partygames/internal/dependencies/clock"
)

// MockClock is a mock implementation of Clock for testing.
// Timers created with AfterFunc fire synchronously inside Advance and Set.
type MockClock struct {
	mu      sync.Mutex
	current time.Time
	timers  []*mockTimer
	seq     int
}

// Ensure MockClock implements Clock
var _ clock.Clock = (*MockClock)(nil)

type mockTimer struct {
	clock   *MockClock
	when    time.Time
	seq     int
	f       func()
	stopped bool
	fired   bool
}

// NewMockClock creates a MockClock set to the given time
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{current: t}
}

// Now returns the mocked current time
func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// AfterFunc registers f to run once the clock has been advanced past d
func (c *MockClock) AfterFunc(d time.Duration, f func()) clock.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	t := &mockTimer{clock: c, when: c.current.Add(d), seq: c.seq, f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves the clock forward by the given duration, firing due timers in order
func (c *MockClock) Advance(d time.Duration) {
	c.Set(c.Now().Add(d))
}

// Set sets the clock to the given time, firing due timers in order
func (c *MockClock) Set(t time.Time) {
	for {
		c.mu.Lock()
		due := c.nextDue(t)
		if due == nil {
			c.current = t
			c.mu.Unlock()
			return
		}
		due.fired = true
		if due.when.After(c.current) {
			c.current = due.when
		}
		c.mu.Unlock()
		due.f()
	}
}

// PendingTimers returns the number of timers that have neither fired nor been stopped
func (c *MockClock) PendingTimers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.fired && !t.stopped {
			n++
		}
	}
	return n
}

// nextDue returns the earliest pending timer due at or before t. Caller holds mu.
func (c *MockClock) nextDue(t time.Time) *mockTimer {
	var pending []*mockTimer
	for _, tm := range c.timers {
		if !tm.fired && !tm.stopped {
			pending = append(pending, tm)
		}
	}
	c.timers = pending
	sort.Slice(pending, func(i, j int) bool {
		if pending[i].when.Equal(pending[j].when) {
			return pending[i].seq < pending[j].seq
		}
		return pending[i].when.Before(pending[j].when)
	})
	if len(pending) == 0 || pending[0].when.After(t) {
		return nil
	}
	return pending[0]
}

// Stop cancels the timer
func (t *mockTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}
