// Package clock is the single source of wall-clock time for attempt timing.
package clock

import (
	"sync"
	"time"
)

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

// System reads the host clock.
type System struct{}

// Now returns time.Now in UTC.
func (System) Now() time.Time { return time.Now().UTC() }

// Manual is a settable clock for tests and tooling.
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

// NewManual returns a Manual clock positioned at t.
func NewManual(t time.Time) *Manual {
	return &Manual{now: t}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Set moves the clock to t.
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	m.now = t
	m.mu.Unlock()
}

// Advance moves the clock forward by d.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

// Deadline returns the instant an attempt started at startedAt runs out of time.
func Deadline(startedAt time.Time, durationMinutes int) time.Time {
	return startedAt.Add(time.Duration(durationMinutes) * time.Minute)
}

// Remaining returns the time left before deadline, never negative.
func Remaining(now, deadline time.Time) time.Duration {
	if r := deadline.Sub(now); r > 0 {
		return r
	}
	return 0
}

// Expired reports whether now is at or past deadline.
func Expired(now, deadline time.Time) bool {
	return !now.Before(deadline)
}
