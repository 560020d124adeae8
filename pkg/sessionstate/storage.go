// Package sessionstate persists per-visitor state (carts, wizard progress)
// keyed by an opaque session id.
package sessionstate

import (
	"context"
	"errors"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// ErrNotFound is returned by Storage.Load when nothing is stored for the key.
var ErrNotFound = errors.New("session state not found")

// Storage is the persistence adapter behind a Store.
type Storage interface {
	Load(ctx context.Context, kind, sessionID string) ([]byte, error)
	Save(ctx context.Context, kind, sessionID string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, kind, sessionID string) error
}

type redisKV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	StateKey(kind, sessionID string) string
}

// RedisStorage keeps state under dl:state:<kind>:<session>.
type RedisStorage struct {
	client redisKV
}

func NewRedisStorage(client redisKV) *RedisStorage {
	return &RedisStorage{client: client}
}

func (s *RedisStorage) Load(ctx context.Context, kind, sessionID string) ([]byte, error) {
	raw, err := s.client.Get(ctx, s.client.StateKey(kind, sessionID))
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return []byte(raw), nil
}

func (s *RedisStorage) Save(ctx context.Context, kind, sessionID string, data []byte, ttl time.Duration) error {
	return s.client.Set(ctx, s.client.StateKey(kind, sessionID), data, ttl)
}

func (s *RedisStorage) Delete(ctx context.Context, kind, sessionID string) error {
	return s.client.Del(ctx, s.client.StateKey(kind, sessionID))
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryStorage is a process-local Storage used in dev without Redis and in tests.
type MemoryStorage struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{entries: make(map[string]memoryEntry), now: time.Now}
}

func (s *MemoryStorage) Load(_ context.Context, kind, sessionID string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := kind + ":" + sessionID
	entry, ok := s.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	if !entry.expiresAt.IsZero() && s.now().After(entry.expiresAt) {
		delete(s.entries, key)
		return nil, ErrNotFound
	}
	out := make([]byte, len(entry.data))
	copy(out, entry.data)
	return out, nil
}

func (s *MemoryStorage) Save(_ context.Context, kind, sessionID string, data []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := memoryEntry{data: append([]byte(nil), data...)}
	if ttl > 0 {
		entry.expiresAt = s.now().Add(ttl)
	}
	s.entries[kind+":"+sessionID] = entry
	return nil
}

func (s *MemoryStorage) Delete(_ context.Context, kind, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, kind+":"+sessionID)
	return nil
}
