package notification

import (
	"context"
	"time"

	platformredis "chrona/internal/platform/redis"
)

// dedupeTTL keeps claim keys long enough to survive restarts without letting
// the keyspace grow unbounded.
const dedupeTTL = 24 * time.Hour

// RedisDeduper implements Deduper with SETNX claims.
type RedisDeduper struct {
	client *platformredis.Client
}

func NewRedisDeduper(client *platformredis.Client) *RedisDeduper {
	return &RedisDeduper{client: client}
}

func (d *RedisDeduper) Claim(ctx context.Context, key string) (bool, error) {
	return d.client.SetNX(ctx, key, 1, dedupeTTL).Result()
}
