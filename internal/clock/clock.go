package clock

import (
	"context"
	"time"
)

// Clock abstracts time so playback pacing works with both real and virtual time.
// Time-dependent code in editplay uses this interface instead of time.Now().
type Clock interface {
	// Now returns the current time.
	Now() time.Time
	// Since returns the duration elapsed since t.
	Since(t time.Time) time.Duration
	// After returns a channel that receives the current time after duration d.
	After(d time.Duration) <-chan time.Time
}

// RealClock delegates to the standard time package.
type RealClock struct{}

func NewRealClock() *RealClock {
	return &RealClock{}
}

func (c *RealClock) Now() time.Time {
	return time.Now()
}

func (c *RealClock) Since(t time.Time) time.Duration {
	return time.Since(t)
}

func (c *RealClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// Sleep suspends the caller for d as measured by c. It returns ctx.Err()
// if the context is done first. A non-positive d returns immediately.
func Sleep(ctx context.Context, c Clock, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.After(d):
		return nil
	}
}

// SleepUntil suspends the caller until c reaches deadline.
func SleepUntil(ctx context.Context, c Clock, deadline time.Time) error {
	return Sleep(ctx, c, deadline.Sub(c.Now()))
}
