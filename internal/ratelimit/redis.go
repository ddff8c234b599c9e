package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// hitScript increments the counter and starts the window on the first hit.
// It returns the count and the remaining window in milliseconds.
var hitScript = redis.NewScript(`
	local count = redis.call('INCR', KEYS[1])
	if count == 1 then
		redis.call('PEXPIRE', KEYS[1], ARGV[1])
	end
	local ttl = redis.call('PTTL', KEYS[1])
	if ttl < 0 then
		redis.call('PEXPIRE', KEYS[1], ARGV[1])
		ttl = tonumber(ARGV[1])
	end
	return { count, ttl }
`)

// RedisStore is a Store shared through Redis.
type RedisStore struct {
	rdb    redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRedisStore returns a store that namespaces keys under prefix.
func NewRedisStore(rdb redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "rl"
	}
	return &RedisStore{rdb: rdb, prefix: prefix, now: time.Now}
}

func (s *RedisStore) key(k string) string { return s.prefix + ":" + k }

func (s *RedisStore) Hit(ctx context.Context, key string, d time.Duration) (Hit, error) {
	vals, err := hitScript.Run(ctx, s.rdb, []string{s.key(key)}, d.Milliseconds()).Int64Slice()
	if err != nil {
		return Hit{}, fmt.Errorf("ratelimit hit %s: %w", key, err)
	}
	if len(vals) != 2 {
		return Hit{}, fmt.Errorf("ratelimit hit %s: unexpected script result %v", key, vals)
	}
	return Hit{
		Count:   int(vals[0]),
		ResetAt: s.now().Add(time.Duration(vals[1]) * time.Millisecond),
	}, nil
}
