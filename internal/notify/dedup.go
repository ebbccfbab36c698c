package notify

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DedupStore is the suppression window behind the dispatcher's
// at-most-once guarantee. Arm claims a dedup key for the window and
// reports whether the claim is new; a false return means an identical
// observation was already notified inside the window. Release frees a
// key early so a failed delivery does not burn its observation.
type DedupStore interface {
	Arm(ctx context.Context, key string, window time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// RedisDedup implements the suppression window on Redis so that the
// window survives restarts and is shared by every process.
type RedisDedup struct {
	rdb *redis.Client
}

// NewRedisDedup wraps a Redis client as a DedupStore.
func NewRedisDedup(rdb *redis.Client) *RedisDedup {
	return &RedisDedup{rdb: rdb}
}

// Arm claims key with SET NX EX; the TTL is the whole window.
func (s *RedisDedup) Arm(ctx context.Context, key string, window time.Duration) (bool, error) {
	return s.rdb.SetNX(ctx, key, 1, window).Result()
}

// Release drops the key.
func (s *RedisDedup) Release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}

// MemoryDedup is the in-process fallback used when no Redis client is
// configured. Suppression then only spans the current process, which is
// the same graceful degradation the HTTP cache middleware applies.
type MemoryDedup struct {
	mu      sync.Mutex
	expires map[string]time.Time
	now     func() time.Time
}

// NewMemoryDedup builds an empty in-process store.
func NewMemoryDedup() *MemoryDedup {
	return &MemoryDedup{expires: make(map[string]time.Time), now: time.Now}
}

// Arm claims key until the window elapses. Expired entries found along
// the way are dropped so the map does not grow without bound.
func (s *MemoryDedup) Arm(_ context.Context, key string, window time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, exp := range s.expires {
		if now.After(exp) {
			delete(s.expires, k)
		}
	}
	if exp, ok := s.expires[key]; ok && now.Before(exp) {
		return false, nil
	}
	s.expires[key] = now.Add(window)
	return true, nil
}

// Release drops the key.
func (s *MemoryDedup) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.expires, key)
	return nil
}
