package server

import (
	"context"
	"strconv"
	"time"

	"github.com/SmitUplenchwar2687/editplay/internal/clock"
	"github.com/SmitUplenchwar2687/editplay/internal/storage"
)

const (
	defaultLoginAttempts = 5
	defaultLoginWindow   = time.Minute
)

// loginThrottle limits failed logins per username with a fixed window
// counter. Counts live in storage, so servers sharing a Redis backend share
// the limit.
//
// Like any fixed window it can let up to twice the limit through around a
// window boundary.
type loginThrottle struct {
	store  storage.Storage
	clock  clock.Clock
	limit  int
	window time.Duration
}

// throttleDecision is the outcome of a throttle check.
type throttleDecision struct {
	Allowed   bool
	Remaining int
	RetryAt   time.Time // zero when allowed
}

func newLoginThrottle(store storage.Storage, c clock.Clock, limit int, window time.Duration) *loginThrottle {
	if limit == 0 {
		limit = defaultLoginAttempts
	}
	if window <= 0 {
		window = defaultLoginWindow
	}
	return &loginThrottle{store: store, clock: c, limit: limit, window: window}
}

// windowID numbers the fixed window containing t.
func (t *loginThrottle) windowID(now time.Time) int64 {
	return now.UnixNano() / int64(t.window)
}

func (t *loginThrottle) resetAt(now time.Time) time.Time {
	return time.Unix(0, (t.windowID(now)+1)*int64(t.window)).In(now.Location())
}

func (t *loginThrottle) key(username string, now time.Time) string {
	return storage.Key("login", "failures", username, strconv.FormatInt(t.windowID(now), 10))
}

// check reports whether username may try to log in now. A negative limit
// disables throttling.
func (t *loginThrottle) check(ctx context.Context, username string) (throttleDecision, error) {
	if t.limit < 0 {
		return throttleDecision{Allowed: true}, nil
	}
	now := t.clock.Now()
	raw, err := t.store.Get(ctx, t.key(username, now))
	if err != nil {
		return throttleDecision{}, err
	}
	failures := 0
	if raw != nil {
		if failures, err = strconv.Atoi(string(raw)); err != nil {
			return throttleDecision{}, err
		}
	}
	if failures >= t.limit {
		return throttleDecision{RetryAt: t.resetAt(now)}, nil
	}
	return throttleDecision{Allowed: true, Remaining: t.limit - failures}, nil
}

// fail counts one failed login for username in the current window.
func (t *loginThrottle) fail(ctx context.Context, username string) error {
	if t.limit < 0 {
		return nil
	}
	now := t.clock.Now()
	_, err := t.store.Increment(ctx, t.key(username, now), 1, t.resetAt(now).Sub(now))
	return err
}
