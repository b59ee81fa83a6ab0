package credential

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const redisKey = "mailcode:credential"

// RedisStore keeps the credential as one JSON value
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore wraps a redis client. The client is shared and not
// closed by the store.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Load(ctx context.Context) (*Credential, error) {
	data, err := s.rdb.Get(ctx, redisKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load credential: %w", err)
	}

	var c Credential
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse credential: %w", err)
	}
	if c.RefreshToken == "" {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (s *RedisStore) Save(ctx context.Context, c *Credential) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode credential: %w", err)
	}

	// No expiry: the refresh token outlives any access token
	if err := s.rdb.Set(ctx, redisKey, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}
	return nil
}

// Ping checks the redis connection
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *RedisStore) Close() error { return nil }
