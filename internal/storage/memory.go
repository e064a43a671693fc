package storage

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/SmitUplenchwar2687/editplay/internal/clock"
)

// MemoryStorage keeps everything in a map and checks expiry against a Clock,
// so a virtual clock can expire pending submissions in tests.
type MemoryStorage struct {
	mu    sync.RWMutex
	items map[string]memItem
	clock clock.Clock
}

type memItem struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

func (it memItem) live(now time.Time) bool {
	return it.expiresAt.IsZero() || now.Before(it.expiresAt)
}

// NewMemoryStorage creates an empty store using the given clock.
func NewMemoryStorage(c clock.Clock) *MemoryStorage {
	return &MemoryStorage{
		items: make(map[string]memItem),
		clock: c,
	}
}

func (s *MemoryStorage) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[key]
	if !ok || !item.live(s.clock.Now()) {
		return nil, nil
	}
	return append([]byte(nil), item.value...), nil
}

func (s *MemoryStorage) Set(_ context.Context, key string, value []byte, exp time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := memItem{value: append([]byte(nil), value...)}
	if exp > 0 {
		item.expiresAt = s.clock.Now().Add(exp)
	}
	s.items[key] = item
	return nil
}

func (s *MemoryStorage) Increment(_ context.Context, key string, delta int64, exp time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	var current int64

	item, ok := s.items[key]
	if ok && item.live(now) {
		n, err := strconv.ParseInt(string(item.value), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("value at %s is not a counter: %w", key, err)
		}
		current = n
	} else {
		item = memItem{}
		if exp > 0 {
			item.expiresAt = now.Add(exp)
		}
	}

	current += delta
	item.value = strconv.AppendInt(nil, current, 10)
	s.items[key] = item
	return current, nil
}

func (s *MemoryStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items, key)
	return nil
}

// Cleanup drops expired items. The server runs it on a ticker.
func (s *MemoryStorage) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	removed := 0
	for key, item := range s.items {
		if !item.live(now) {
			delete(s.items, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of items, expired ones not yet cleaned up included.
func (s *MemoryStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Close is a no-op so MemoryStorage and RedisStorage share a shutdown path.
func (s *MemoryStorage) Close() error { return nil }
