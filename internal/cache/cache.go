package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vijay-prabhu/mailcode/internal/email"
)

// Cache memoizes the last successful resolution per alias (lower-cased and
// trimmed, +tag kept).
// Entries are stored serialized so callers never share a value.
type Cache interface {
	// Get returns the cached result for alias; found is false on a miss
	Get(ctx context.Context, alias string) (result *email.ResolvedResult, found bool, err error)

	// Set stores a result for the cache lifetime
	Set(ctx context.Context, alias string, result *email.ResolvedResult) error
}

type entry struct {
	payload  []byte
	storedAt time.Time
}

// Memory is an in-process cache with a fixed TTL
type Memory struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]entry
}

// NewMemory creates an in-process cache
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]entry),
	}
}

// SetClock overrides the time source
func (m *Memory) SetClock(now func() time.Time) {
	m.now = now
}

func (m *Memory) Get(ctx context.Context, alias string) (*email.ResolvedResult, bool, error) {
	m.mu.Lock()
	e, ok := m.entries[alias]
	if ok && !m.fresh(e) {
		delete(m.entries, alias)
		ok = false
	}
	m.mu.Unlock()

	if !ok {
		return nil, false, nil
	}
	return decode(e.payload)
}

func (m *Memory) Set(ctx context.Context, alias string, result *email.ResolvedResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for k, e := range m.entries {
		if !m.fresh(e) {
			delete(m.entries, k)
		}
	}
	m.entries[alias] = entry{payload: payload, storedAt: m.now()}
	return nil
}

func (m *Memory) fresh(e entry) bool {
	return m.now().Sub(e.storedAt) < m.ttl
}

const redisPrefix = "mailcode:result:"

// Redis shares the cache between instances. Expiry is left to redis.
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedis creates a redis-backed cache
func NewRedis(rdb *redis.Client, ttl time.Duration) *Redis {
	return &Redis{rdb: rdb, ttl: ttl}
}

func (r *Redis) Get(ctx context.Context, alias string) (*email.ResolvedResult, bool, error) {
	payload, err := r.rdb.Get(ctx, redisPrefix+alias).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache: %w", err)
	}
	return decode(payload)
}

func (r *Redis) Set(ctx context.Context, alias string, result *email.ResolvedResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	if err := r.rdb.Set(ctx, redisPrefix+alias, payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}
	return nil
}

func decode(payload []byte) (*email.ResolvedResult, bool, error) {
	var result email.ResolvedResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached result: %w", err)
	}
	return &result, true, nil
}
