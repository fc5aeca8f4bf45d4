package rig

import (
	"sort"
	"sync"
	"time"
)

// Clock provides the current time and single-shot deferred execution. It
// allows injecting a controllable time source for testing, and it is the
// only way tasks schedule work in the future: every inter-stimulus-interval
// delay is a cancellable [Timer], never a bare sleeping goroutine, so
// teardown can guarantee no stray callback fires into a torn-down hardware
// context.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// AfterFunc schedules fn to run once, on its own goroutine, after d has
	// elapsed. The returned Timer can cancel the callback before it runs.
	AfterFunc(d time.Duration, fn func()) Timer
}

// Timer is a handle to a pending single-shot callback.
type Timer interface {
	// Stop cancels the callback. It returns true if the call was prevented,
	// false if the callback already ran or was already stopped. Stop does
	// not wait for a running callback to complete.
	Stop() bool
}

// SystemClock is the standard Clock backed by the system time and
// [time.AfterFunc].
type SystemClock struct{}

// NewSystemClock creates a new SystemClock.
func NewSystemClock() *SystemClock {
	return &SystemClock{}
}

// Now returns the current system time.
func (c *SystemClock) Now() time.Time {
	return time.Now()
}

// AfterFunc schedules fn with time.AfterFunc.
func (c *SystemClock) AfterFunc(d time.Duration, fn func()) Timer {
	return &systemTimer{t: time.AfterFunc(d, fn)}
}

type systemTimer struct {
	t *time.Timer
}

func (t *systemTimer) Stop() bool {
	return t.t.Stop()
}

// MockClock is a Clock whose time only moves when Advance is called. Useful
// for testing timer-dependent behavior deterministically.
type MockClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*mockTimer
}

// NewMockClock creates a MockClock starting at the given time.
func NewMockClock(start time.Time) *MockClock {
	return &MockClock{now: start}
}

// Now returns the mock's current time.
func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// AfterFunc registers fn to run when the mock's time has advanced past d.
// The callback runs synchronously inside the Advance call that makes it due.
func (c *MockClock) AfterFunc(d time.Duration, fn func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &mockTimer{
		clock:    c,
		deadline: c.now.Add(d),
		fn:       fn,
	}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves the mock's time forward by d and fires every pending timer
// whose deadline has been reached, in deadline order. Each timer fires at
// most once. Callbacks run outside the clock's lock, so they may schedule
// new timers or stop existing ones.
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)

	var due []*mockTimer
	remaining := c.timers[:0]
	for _, t := range c.timers {
		if !t.stopped && !t.deadline.After(c.now) {
			t.fired = true
			due = append(due, t)
			continue
		}
		remaining = append(remaining, t)
	}
	c.timers = remaining
	c.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool {
		return due[i].deadline.Before(due[j].deadline)
	})
	for _, t := range due {
		t.fn()
	}
}

// PendingTimers returns the number of timers that have neither fired nor
// been stopped.
func (c *MockClock) PendingTimers() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, t := range c.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}

type mockTimer struct {
	clock    *MockClock
	deadline time.Time
	fn       func()
	stopped  bool
	fired    bool
}

func (t *mockTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// Compile-time checks that both clocks implement Clock.
var (
	_ Clock = (*SystemClock)(nil)
	_ Clock = (*MockClock)(nil)
)
