package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "rate_limit:"

// The read, compare, increment and first-expiry steps run as one script so
// concurrent callers cannot both slip under the limit.
var fixedWindow = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
if current >= tonumber(ARGV[1]) then
  return 0
end
local n = redis.call('INCR', KEYS[1])
if n == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return 1
`)

// RedisLimiter keeps counters in Redis.
type RedisLimiter struct {
	client redis.Scripter
}

func NewRedisLimiter(client redis.Scripter) *RedisLimiter {
	return &RedisLimiter{client: client}
}

func (l *RedisLimiter) CheckAndIncrement(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	res, err := fixedWindow.Run(ctx, l.client, []string{keyPrefix + key}, limit, window.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}
