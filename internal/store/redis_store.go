package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const (
	followersCountKeyPrefix = "social:followers:"
	followedCountKeyPrefix  = "social:followed:"
)

// CountStore defines Redis operations for follower/followed count caching.
// The feed itself is never cached; only these aggregate counts are.
type CountStore interface {
	GetCount(ctx context.Context, key string) (int64, bool, error)
	SetCount(ctx context.Context, key string, count int64) error
	CondIncr(ctx context.Context, key string) error
	CondDecr(ctx context.Context, key string) error
	Close() error
}

// FollowersCountKey is the cache key for a user's follower total.
func FollowersCountKey(userID string) string {
	return followersCountKeyPrefix + userID
}

// FollowedCountKey is the cache key for how many users a user follows.
func FollowedCountKey(userID string) string {
	return followedCountKeyPrefix + userID
}

// RedisCountStore implements CountStore backed by Redis.
type RedisCountStore struct {
	client *redis.Client
}

// NewRedisCountStore creates a new Redis-backed count store.
func NewRedisCountStore(address, password string, db int) (*RedisCountStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisCountStore{client: client}, nil
}

// GetCount returns a cached count.
// Returns (count, true, nil) on hit, (0, false, nil) on miss, (0, false, err) on error.
func (s *RedisCountStore) GetCount(ctx context.Context, key string) (int64, bool, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("redis get count: %w", err)
	}

	count, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse count: %w", err)
	}
	return count, true, nil
}

// SetCount sets a count in Redis.
func (s *RedisCountStore) SetCount(ctx context.Context, key string, count int64) error {
	err := s.client.Set(ctx, key, count, 0).Err()
	if err != nil {
		return fmt.Errorf("redis set count: %w", err)
	}
	return nil
}

// condIncrScript atomically increments the key only if it exists.
// Returns 1 if incremented, 0 if key did not exist.
var condIncrScript = redis.NewScript(`
local key = KEYS[1]
if redis.call("EXISTS", key) == 1 then
  return redis.call("INCR", key)
end
return 0
`)

// condDecrScript atomically decrements the key only if it exists and result >= 0.
// Returns the new value if decremented, 0 if key did not exist.
var condDecrScript = redis.NewScript(`
local key = KEYS[1]
if redis.call("EXISTS", key) == 1 then
  local val = tonumber(redis.call("GET", key))
  if val and val > 0 then
    return redis.call("DECR", key)
  end
end
return 0
`)

// CondIncr atomically increments the key only if it exists. A cold key stays
// cold until a read populates it from the database.
func (s *RedisCountStore) CondIncr(ctx context.Context, key string) error {
	err := condIncrScript.Run(ctx, s.client, []string{key}).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis cond incr count: %w", err)
	}
	return nil
}

// CondDecr atomically decrements the key only if it exists.
func (s *RedisCountStore) CondDecr(ctx context.Context, key string) error {
	err := condDecrScript.Run(ctx, s.client, []string{key}).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis cond decr count: %w", err)
	}
	return nil
}

// Close closes the Redis client.
func (s *RedisCountStore) Close() error {
	return s.client.Close()
}

// Ensure interface is satisfied at compile time.
var _ CountStore = (*RedisCountStore)(nil)
