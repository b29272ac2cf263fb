package process

import (
	"errors"
	"time"
)

// PollPolicy controls how often the supervisor checks a running job and how
// long a job may run. All fields except Unit are counted in Units.
type PollPolicy struct {
	// Unit is the length of one time unit.
	Unit time.Duration

	// Base is the polling interval used until Threshold has elapsed.
	Base int64

	// Threshold is the elapsed time after which the interval grows.
	Threshold int64

	// Divisor sets the grown interval to elapsed/Divisor.
	Divisor int64

	// Deadline is the total budget from launch.
	Deadline int64
}

// DefaultPollPolicy returns the production policy: poll every 5 seconds,
// grow to elapsed/50 after 250 seconds, give up after one day.
func DefaultPollPolicy() PollPolicy {
	return PollPolicy{
		Unit:      time.Second,
		Base:      5,
		Threshold: 250,
		Divisor:   50,
		Deadline:  86400,
	}
}

// Budget returns the deadline as a duration from launch.
func (p PollPolicy) Budget() time.Duration {
	return time.Duration(p.Deadline) * p.Unit
}

// Next returns the interval to sleep before the next liveness check, given
// the time elapsed since launch. The interval never overshoots the remaining
// budget, and is zero once the budget is spent.
func (p PollPolicy) Next(elapsed time.Duration) time.Duration {
	remaining := p.Budget() - elapsed
	if remaining <= 0 {
		return 0
	}

	interval := time.Duration(p.Base) * p.Unit
	if elapsed > time.Duration(p.Threshold)*p.Unit {
		interval = elapsed / time.Duration(p.Divisor)
	}

	return min(interval, remaining)
}

// Validate checks that every field is positive.
func (p PollPolicy) Validate() error {
	switch {
	case p.Unit <= 0:
		return errors.New("poll policy: unit must be positive")
	case p.Base <= 0:
		return errors.New("poll policy: base interval must be positive")
	case p.Threshold < 0:
		return errors.New("poll policy: threshold must not be negative")
	case p.Divisor <= 0:
		return errors.New("poll policy: divisor must be positive")
	case p.Deadline <= 0:
		return errors.New("poll policy: deadline must be positive")
	}
	return nil
}
