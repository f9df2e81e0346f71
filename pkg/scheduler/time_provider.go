package scheduler

import "time"

// TimeProvider is an interface for getting the current time.
// This allows for dependency injection of time sources for testing.
type TimeProvider interface {
	Now() time.Time
}

// RealTimeProvider provides the actual system time
type RealTimeProvider struct{}

// Now returns the current system time
func (r *RealTimeProvider) Now() time.Time {
	return time.Now()
}
