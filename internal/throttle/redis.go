package throttle

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "vowgate:throttle:"

// RedisStore shares window counters between instances through Redis. Each
// key maps to a counter with a TTL equal to the policy window: INCR opens
// the window on the first hit and every later hit inside the TTL counts
// against the same window. Over-limit hits still increment but never extend
// the TTL, so the window resets on schedule like the in-memory store.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisStore{client: client}, nil
}

// Allow evaluates one key against a policy window.
func (s *RedisStore) Allow(ctx context.Context, key string, policy Policy) (Decision, error) {
	k := redisKeyPrefix + key

	count, err := s.client.Incr(ctx, k).Result()
	if err != nil {
		return Decision{}, err
	}
	if count == 1 {
		if err := s.client.PExpire(ctx, k, policy.Window).Err(); err != nil {
			return Decision{}, err
		}
	}

	if count > int64(policy.MaxRequests) {
		ttl, err := s.client.PTTL(ctx, k).Result()
		if err != nil || ttl < 0 {
			ttl = policy.Window
		}
		return Decision{Allowed: false, RetryAfter: ttl}, nil
	}

	return Decision{Allowed: true, Remaining: policy.MaxRequests - int(count)}, nil
}

// Ping verifies the connection is still usable.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
