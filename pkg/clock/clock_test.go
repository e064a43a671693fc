package clock

import (
	"context"
	"testing"
	"time"
)

func TestClockImplementations(t *testing.T) {
	var _ Clock = NewRealClock()
	var _ Clock = NewVirtualClock(time.Now())
}

func TestVirtualClockAdvance(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	vc := NewVirtualClock(start)
	vc.Advance(time.Minute)

	if got := vc.Now(); !got.Equal(start.Add(time.Minute)) {
		t.Fatalf("Now() = %v, want %v", got, start.Add(time.Minute))
	}
}

func TestSleepAutoAdvance(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	vc := NewVirtualClock(start)
	vc.SetAutoAdvance(true)

	if err := Sleep(context.Background(), vc, 3*time.Second); err != nil {
		t.Fatalf("Sleep() error = %v", err)
	}
	if err := SleepUntil(context.Background(), vc, start.Add(5*time.Second)); err != nil {
		t.Fatalf("SleepUntil() error = %v", err)
	}
	if got := vc.Now(); !got.Equal(start.Add(5 * time.Second)) {
		t.Fatalf("Now() = %v, want %v", got, start.Add(5*time.Second))
	}
}
