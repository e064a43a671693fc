// Package clock exposes the clocks playback runs on, so embedders can drive
// a Scheduler on virtual time.
package clock

import (
	"context"
	"time"

	internalclock "github.com/SmitUplenchwar2687/editplay/internal/clock"
)

// Clock abstracts time so playback works with both real and virtual time.
type Clock = internalclock.Clock

// RealClock delegates to the standard time package.
type RealClock = internalclock.RealClock

// VirtualClock is a controllable clock. With auto-advance on, waits
// complete at once and move the clock forward.
type VirtualClock = internalclock.VirtualClock

// NewRealClock creates a real wall-clock implementation.
func NewRealClock() *RealClock {
	return internalclock.NewRealClock()
}

// NewVirtualClock creates a virtual clock starting at the given time.
func NewVirtualClock(start time.Time) *VirtualClock {
	return internalclock.NewVirtualClock(start)
}

// Sleep waits d on c or until ctx ends.
func Sleep(ctx context.Context, c Clock, d time.Duration) error {
	return internalclock.Sleep(ctx, c, d)
}

// SleepUntil waits until c reaches deadline or ctx ends.
func SleepUntil(ctx context.Context, c Clock, deadline time.Time) error {
	return internalclock.SleepUntil(ctx, c, deadline)
}
