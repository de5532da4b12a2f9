package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBytes stores raw feed bodies in Redis, so replicas share one fetch
// against a rate-limited upstream instead of each spending feed budget. It
// wraps an existing client; the prefix keeps raw bodies apart from the JSON
// object cache on the same connection.
type RedisBytes struct {
	cli    *redis.Client
	prefix string
}

func NewRedisBytes(cli *redis.Client, prefix string) *RedisBytes {
	if prefix == "" {
		prefix = "raw"
	}
	return &RedisBytes{cli: cli, prefix: prefix}
}

func (r *RedisBytes) GetBytes(key string) ([]byte, bool, error) {
	b, err := r.cli.Get(context.Background(), r.wrap(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return b, true, nil
}

func (r *RedisBytes) SetBytes(key string, value []byte, ttl time.Duration) error {
	return r.cli.Set(context.Background(), r.wrap(key), value, ttl).Err()
}

func (r *RedisBytes) wrap(key string) string {
	return fmt.Sprintf("%s:%s", r.prefix, key)
}

var _ BytesCache = (*RedisBytes)(nil)
