package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/okian/locapi/internal/domain/model"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps sessions in redis so every function instance sees the
// same signed-in user.
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisStore wraps an existing redis client. ttl <= 0 keeps keys forever.
func NewRedisStore(client redis.UniversalClient, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// NewRedisStoreFromURL parses a redis:// or rediss:// URL.
func NewRedisStoreFromURL(redisURL string, ttl time.Duration) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSessionStorage, err)
	}
	return NewRedisStore(redis.NewClient(opt), ttl), nil
}

// Ping checks connectivity.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Load returns the stored session, or nil when the key is missing.
func (r *RedisStore) Load(ctx context.Context, key string) (*model.Session, error) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s model.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &s, nil
}

// Save stores s under key with the configured TTL.
func (r *RedisStore) Save(ctx context.Context, key string, s *model.Session) error {
	if s == nil {
		return r.Remove(ctx, key)
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return r.client.Set(ctx, key, raw, r.ttl).Err()
}

// Remove deletes key.
func (r *RedisStore) Remove(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

// Close releases the redis connection pool.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
