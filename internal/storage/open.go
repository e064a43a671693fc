package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/SmitUplenchwar2687/editplay/internal/clock"
)

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Store is a Storage that must be closed.
type Store interface {
	Storage
	io.Closer
}

// Open builds the backend named by backend. redisCfg is only used for
// BackendRedis; c is only used for BackendMemory.
func Open(ctx context.Context, backend string, redisCfg *RedisConfig, c clock.Clock) (Store, error) {
	switch backend {
	case "", BackendMemory:
		return NewMemoryStorage(c), nil
	case BackendRedis:
		s, err := NewRedisStorage(ctx, redisCfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q (want %s or %s)", backend, BackendMemory, BackendRedis)
	}
}
