// Package readiness computes the wait schedule used between service launch
// and health verification. The functions here are pure; the shell performs
// the actual sleeping and probing.
package readiness

import (
	"errors"
	"fmt"
	"time"
)

// Mode selects how readiness is awaited.
type Mode string

const (
	// ModePoll probes the service with exponential backoff until it answers
	// or the timeout elapses.
	ModePoll Mode = "poll"

	// ModeFixed sleeps for a fixed delay and assumes the services are up.
	ModeFixed Mode = "fixed"
)

// DefaultFixedDelay is the blind pause used by ModeFixed.
const DefaultFixedDelay = 10 * time.Second

var (
	ErrUnknownMode     = errors.New("unknown readiness mode")
	ErrInvalidInterval = errors.New("readiness intervals must be positive")
	ErrInvalidTimeout  = errors.New("readiness timeout must be positive")
)

// Policy configures the wait.
type Policy struct {
	Mode            Mode
	Delay           time.Duration
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Timeout         time.Duration
}

// DefaultPolicy returns the polling policy used when nothing is configured.
func DefaultPolicy() Policy {
	return Policy{
		Mode:            ModePoll,
		Delay:           DefaultFixedDelay,
		InitialInterval: time.Second,
		MaxInterval:     8 * time.Second,
		Timeout:         60 * time.Second,
	}
}

// Validate checks the policy for the selected mode.
func (p Policy) Validate() error {
	switch p.Mode {
	case ModeFixed:
		if p.Delay < 0 {
			return fmt.Errorf("readiness delay %s: %w", p.Delay, ErrInvalidInterval)
		}
		return nil
	case ModePoll:
		if p.InitialInterval <= 0 || p.MaxInterval <= 0 {
			return ErrInvalidInterval
		}
		if p.Timeout <= 0 {
			return ErrInvalidTimeout
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMode, p.Mode)
	}
}

// Interval returns the wait before attempt n+1, where n counts completed
// attempts starting at 0. Intervals double from InitialInterval and are
// capped at MaxInterval.
func (p Policy) Interval(attempt int) time.Duration {
	d := p.InitialInterval
	for i := 0; i < attempt; i++ {
		if d >= p.MaxInterval/2 {
			return p.MaxInterval
		}
		d *= 2
	}
	if d > p.MaxInterval {
		return p.MaxInterval
	}
	return d
}

// NextWait returns how long to wait after attempt given the time already
// spent, and false when the deadline leaves no room for another attempt.
// The returned wait never overshoots the deadline.
func (p Policy) NextWait(attempt int, elapsed time.Duration) (time.Duration, bool) {
	remaining := p.Timeout - elapsed
	if remaining <= 0 {
		return 0, false
	}
	wait := p.Interval(attempt)
	if wait > remaining {
		wait = remaining
	}
	return wait, true
}
