package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// incrWindow bumps a counter and starts its TTL on the first hit, in one
// round trip so a crash between the two cannot leave an immortal key.
var incrWindow = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 and tonumber(ARGV[1]) > 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if c.rdb == nil {
		return errNotInitialized
	}
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

func (c *Client) Get(ctx context.Context, key string) (string, error) {
	if c.rdb == nil {
		return "", errNotInitialized
	}
	return c.rdb.Get(ctx, key).Result()
}

func (c *Client) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if c.rdb == nil {
		return false, errNotInitialized
	}
	return c.rdb.SetNX(ctx, key, value, ttl).Result()
}

func (c *Client) Del(ctx context.Context, keys ...string) error {
	if c.rdb == nil {
		return errNotInitialized
	}
	return c.rdb.Del(ctx, keys...).Err()
}

// IncrWithTTL backs the fixed-window rate limiter. The window starts at the
// first increment and is never extended by later ones.
func (c *Client) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if c.rdb == nil {
		return 0, errNotInitialized
	}
	return incrWindow.Run(ctx, c.rdb, []string{key}, ttl.Milliseconds()).Int64()
}

func (c *Client) Publish(ctx context.Context, channel string, message any) error {
	if c.rdb == nil {
		return errNotInitialized
	}
	return c.rdb.Publish(ctx, channel, message).Err()
}
