package storage

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/SmitUplenchwar2687/editplay/internal/clock"
)

var (
	epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ctx   = context.Background()
)

func newTestStorage() (*MemoryStorage, *clock.VirtualClock) {
	vc := clock.NewVirtualClock(epoch)
	return NewMemoryStorage(vc), vc
}

func TestMemoryStorage_GetMissing(t *testing.T) {
	s, _ := newTestStorage()

	val, err := s.Get(ctx, "missing")
	if err != nil {
		t.Fatal(err)
	}
	if val != nil {
		t.Errorf("Get(missing) = %v, want nil", val)
	}
}

func TestMemoryStorage_ExpiresAtDeadline(t *testing.T) {
	s, vc := newTestStorage()

	if err := s.Set(ctx, "submission:a", []byte("pending"), 10*time.Second); err != nil {
		t.Fatal(err)
	}

	vc.Advance(9 * time.Second)
	if val, _ := s.Get(ctx, "submission:a"); val == nil {
		t.Fatal("key should exist before expiration")
	}

	vc.Advance(time.Second)
	if val, _ := s.Get(ctx, "submission:a"); val != nil {
		t.Errorf("key should be expired at its deadline, got %q", val)
	}
}

func TestMemoryStorage_NoExpiration(t *testing.T) {
	s, vc := newTestStorage()

	s.Set(ctx, "user:2:problem", []byte("10"), 0)
	vc.Advance(24 * 365 * time.Hour)

	val, _ := s.Get(ctx, "user:2:problem")
	if string(val) != "10" {
		t.Errorf("Get() = %q, want %q", val, "10")
	}
}

func TestMemoryStorage_OverwriteAndDelete(t *testing.T) {
	s, _ := newTestStorage()

	s.Set(ctx, "k", []byte("v1"), 0)
	s.Set(ctx, "k", []byte("v2"), 0)
	if val, _ := s.Get(ctx, "k"); string(val) != "v2" {
		t.Errorf("Get() after overwrite = %q, want %q", val, "v2")
	}

	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if val, _ := s.Get(ctx, "k"); val != nil {
		t.Error("key should be deleted")
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Errorf("Delete(missing) should not error, got %v", err)
	}
}

func TestMemoryStorage_Increment(t *testing.T) {
	s, _ := newTestStorage()

	for i, tc := range []struct{ delta, want int64 }{{1, 1}, {1, 2}, {5, 7}} {
		got, err := s.Increment(ctx, "changes:2", tc.delta, 0)
		if err != nil {
			t.Fatal(err)
		}
		if got != tc.want {
			t.Errorf("Increment #%d = %d, want %d", i, got, tc.want)
		}
	}

	// Counters are stored as decimal text, the same as Redis INCRBY.
	if val, _ := s.Get(ctx, "changes:2"); string(val) != "7" {
		t.Errorf("stored counter = %q, want %q", val, "7")
	}
}

func TestMemoryStorage_IncrementNonCounter(t *testing.T) {
	s, _ := newTestStorage()

	s.Set(ctx, "k", []byte("hello"), 0)
	if _, err := s.Increment(ctx, "k", 1, 0); err == nil {
		t.Error("Increment on a non-numeric value should fail")
	}
}

func TestMemoryStorage_IncrementWithExpiration(t *testing.T) {
	s, vc := newTestStorage()

	s.Increment(ctx, "counter", 1, 10*time.Second)
	s.Increment(ctx, "counter", 1, 10*time.Second)
	vc.Advance(11 * time.Second)

	val, _ := s.Increment(ctx, "counter", 1, 10*time.Second)
	if val != 1 {
		t.Errorf("Increment after expiration = %d, want 1", val)
	}
}

func TestMemoryStorage_Cleanup(t *testing.T) {
	s, vc := newTestStorage()

	s.Set(ctx, "expire1", []byte("v"), 5*time.Second)
	s.Set(ctx, "expire2", []byte("v"), 10*time.Second)
	s.Set(ctx, "persist", []byte("v"), 0)

	vc.Advance(7 * time.Second)
	if n := s.Cleanup(); n != 1 {
		t.Errorf("Cleanup() removed %d, want 1", n)
	}
	if s.Len() != 2 {
		t.Errorf("Len() after cleanup = %d, want 2", s.Len())
	}

	vc.Advance(5 * time.Second)
	s.Cleanup()
	if s.Len() != 1 {
		t.Errorf("Len() after second cleanup = %d, want 1", s.Len())
	}
}

func TestMemoryStorage_GetReturnsCopy(t *testing.T) {
	s, _ := newTestStorage()

	s.Set(ctx, "k", []byte("original"), 0)
	val, _ := s.Get(ctx, "k")
	val[0] = 'X'

	if val2, _ := s.Get(ctx, "k"); string(val2) != "original" {
		t.Errorf("Get() returned mutable reference, got %q", val2)
	}
}

func TestMemoryStorage_ConcurrentIncrement(t *testing.T) {
	s, _ := newTestStorage()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Increment(ctx, "counter", 1, 0)
		}()
	}
	wg.Wait()

	if val, _ := s.Increment(ctx, "counter", 0, 0); val != 100 {
		t.Errorf("concurrent Increment result = %d, want 100", val)
	}
}

func TestJSONHelpers(t *testing.T) {
	s, _ := newTestStorage()

	type active struct {
		ProblemID int64 `json:"problem_id"`
	}

	var got active
	found, err := GetJSON(ctx, s, Key("user", "2", "problem"), &got)
	if err != nil || found {
		t.Fatalf("GetJSON(missing) = %v, %v; want false, nil", found, err)
	}

	if err := SetJSON(ctx, s, Key("user", "2", "problem"), active{ProblemID: 10}, 0); err != nil {
		t.Fatal(err)
	}
	found, err = GetJSON(ctx, s, "user:2:problem", &got)
	if err != nil || !found {
		t.Fatalf("GetJSON() = %v, %v; want true, nil", found, err)
	}
	if got.ProblemID != 10 {
		t.Errorf("ProblemID = %d, want 10", got.ProblemID)
	}

	s.Set(ctx, "bad", []byte("{"), 0)
	if _, err := GetJSON(ctx, s, "bad", &got); err == nil {
		t.Error("GetJSON should fail on malformed JSON")
	}
}

func TestOpen(t *testing.T) {
	s, err := Open(ctx, "", nil, clock.NewVirtualClock(epoch))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*MemoryStorage); !ok {
		t.Errorf("Open(\"\") = %T, want *MemoryStorage", s)
	}

	if _, err := Open(ctx, "etcd", nil, nil); err == nil {
		t.Error("Open should reject unknown backends")
	}
	if _, err := Open(ctx, BackendRedis, &RedisConfig{}, nil); err == nil {
		t.Error("Open(redis) should reject a config without a host")
	}
}

func TestNormalizeRedisConfig(t *testing.T) {
	conf, err := normalizeRedisConfig(&RedisConfig{Host: "localhost", Port: 6379})
	if err != nil {
		t.Fatal(err)
	}
	if conf.PoolSize != defaultRedisPoolSize || conf.Prefix != defaultRedisPrefix {
		t.Errorf("defaults not applied: %+v", conf)
	}

	if _, err := normalizeRedisConfig(&RedisConfig{Cluster: true}); err == nil {
		t.Error("cluster without nodes should be rejected")
	}
	if _, err := normalizeRedisConfig(nil); err == nil {
		t.Error("nil config should be rejected")
	}
}

func TestImplementsStore(t *testing.T) {
	var _ Store = NewMemoryStorage(clock.NewRealClock())
	var _ Store = (*RedisStorage)(nil)
}
