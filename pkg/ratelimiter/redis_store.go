package ratelimiter

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// consumeScript implements the token bucket refill-and-consume step atomically
// on the Redis side, so concurrent requests from multiple instances cannot
// interleave between the read and the write.
//
// KEYS[1] bucket key
// ARGV[1] capacity, ARGV[2] refill rate, ARGV[3] refill interval (ms),
// ARGV[4] now (ms), ARGV[5] requested tokens
// Returns {remaining, resetAt ms}; remaining is negative when denied.
var consumeScript = redis.NewScript(`
local capacity = tonumber(ARGV[1])
local rate = tonumber(ARGV[2])
local interval = tonumber(ARGV[3])
local now = tonumber(ARGV[4])
local requested = tonumber(ARGV[5])

local state = redis.call('HMGET', KEYS[1], 'tokens', 'last_refill')
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])
if tokens == nil or last_refill == nil then
  tokens = capacity
  last_refill = now
end

local max_intervals = math.floor(capacity / rate) + 1
local intervals = math.floor((now - last_refill) / interval)
if intervals > max_intervals then
  intervals = max_intervals
  last_refill = now - intervals * interval
end
if intervals > 0 then
  tokens = math.min(capacity, tokens + intervals * rate)
  last_refill = last_refill + intervals * interval
end

local remaining
if tokens >= requested then
  tokens = tokens - requested
  remaining = tokens
else
  remaining = tokens - requested
end

redis.call('HSET', KEYS[1], 'tokens', tokens, 'last_refill', last_refill)
redis.call('PEXPIRE', KEYS[1], interval * max_intervals * 2)

return {remaining, last_refill + interval}
`)

// RedisStore implements Store on Redis so limits are shared across instances.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a Redis-backed store. Keys are namespaced with prefix
// to avoid collisions with other Redis users.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (rs *RedisStore) key(key string) string {
	return rs.prefix + ":" + key
}

// ConsumeTokens attempts to consume tokens from the bucket atomically.
func (rs *RedisStore) ConsumeTokens(ctx context.Context, key string, tokens int, config Config) (int, time.Time, error) {
	now := time.Now()
	res, err := consumeScript.Run(ctx, rs.client, []string{rs.key(key)},
		config.Capacity,
		config.RefillRate,
		config.RefillInterval.Milliseconds(),
		now.UnixMilli(),
		tokens,
	).Int64Slice()
	if err != nil {
		return 0, time.Time{}, errors.Join(ErrStoreFailure, err)
	}
	if len(res) != 2 {
		return 0, time.Time{}, ErrStoreFailure
	}

	return int(res[0]), time.UnixMilli(res[1]), nil
}

// Reset clears the rate limit state for the given key.
func (rs *RedisStore) Reset(ctx context.Context, key string) error {
	if err := rs.client.Del(ctx, rs.key(key)).Err(); err != nil {
		return errors.Join(ErrStoreFailure, err)
	}
	return nil
}
