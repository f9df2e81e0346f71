// Package testutil provides time and timer fakes for scheduler tests.
package testutil

import (
	"sync"
	"time"

	"github.com/vherrmann/twilight/pkg/scheduler"
)

// FakeClock implements scheduler.TimeProvider with a settable time.
type FakeClock struct {
	mu  sync.RWMutex
	now time.Time
}

// NewFakeClock creates a fake clock starting at the given time.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

// Set moves the fake clock to a specific time.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Advance moves the fake clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// ManualTimer implements scheduler.Timer. Arms are recorded instead of
// scheduled; tests fire them explicitly with Fire.
type ManualTimer struct {
	mu    sync.Mutex
	arms  []*ManualArm
	stops int
}

// ManualArm is one recorded Arm call.
type ManualArm struct {
	Delay   time.Duration
	Fn      func()
	stopped bool
	timer   *ManualTimer
}

// Stop marks the arm cancelled.
func (a *ManualArm) Stop() {
	a.timer.mu.Lock()
	defer a.timer.mu.Unlock()
	if !a.stopped {
		a.stopped = true
		a.timer.stops++
	}
}

// Stopped reports whether the arm was cancelled.
func (a *ManualArm) Stopped() bool {
	a.timer.mu.Lock()
	defer a.timer.mu.Unlock()
	return a.stopped
}

// NewManualTimer creates an empty manual timer.
func NewManualTimer() *ManualTimer {
	return &ManualTimer{}
}

// Arm records the request and returns its handle.
func (m *ManualTimer) Arm(d time.Duration, fn func()) scheduler.Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	arm := &ManualArm{Delay: d, Fn: fn, timer: m}
	m.arms = append(m.arms, arm)
	return arm
}

// Arms returns every recorded arm in order.
func (m *ManualTimer) Arms() []*ManualArm {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*ManualArm, len(m.arms))
	copy(out, m.arms)
	return out
}

// Pending returns the arms that have not been stopped.
func (m *ManualTimer) Pending() []*ManualArm {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*ManualArm
	for _, a := range m.arms {
		if !a.stopped {
			out = append(out, a)
		}
	}
	return out
}

// Stops returns how many arms were cancelled.
func (m *ManualTimer) Stops() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stops
}

// FireLast runs the most recent pending arm's callback, as if the timer had
// fired. The arm stays recorded but is marked stopped first, mirroring a
// one-shot timer that has already delivered.
func (m *ManualTimer) FireLast() {
	m.mu.Lock()
	var arm *ManualArm
	for i := len(m.arms) - 1; i >= 0; i-- {
		if !m.arms[i].stopped {
			arm = m.arms[i]
			break
		}
	}
	if arm != nil {
		arm.stopped = true
	}
	m.mu.Unlock()

	if arm != nil && arm.Fn != nil {
		arm.Fn()
	}
}
