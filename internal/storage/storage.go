// Package storage holds the stub webapp's mutable state: active problems,
// pending submissions and per-user counters. Backends are in-memory or Redis.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Storage is a small key/value store with expiry.
// Implementations must be safe for concurrent use.
type Storage interface {
	// Get retrieves the stored value for a key.
	// Returns nil, nil if the key does not exist or has expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value for a key with an expiration duration.
	// If exp is 0, the key does not expire.
	Set(ctx context.Context, key string, value []byte, exp time.Duration) error

	// Increment atomically adds delta to a decimal counter and returns the
	// new value. A missing key starts at zero. exp is only applied when the
	// key is created.
	Increment(ctx context.Context, key string, delta int64, exp time.Duration) (int64, error)

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Key joins parts into a namespaced key, e.g. Key("user", "2", "problem").
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}

// GetJSON decodes the value at key into v. It reports false when the key is
// missing.
func GetJSON(ctx context.Context, s Storage, key string, v any) (bool, error) {
	raw, err := s.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if raw == nil {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("decoding %s: %w", key, err)
	}
	return true, nil
}

// SetJSON encodes v and stores it at key.
func SetJSON(ctx context.Context, s Storage, key string, v any, exp time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	return s.Set(ctx, key, raw, exp)
}
