package cache

import (
	"context"
	"time"
)

// LayeredCache fronts Redis with a small in-process layer. Writes go through
// to both; reads come from memory when hot. Locks always go straight to
// Redis so they hold across processes.
type LayeredCache struct {
	memCache   *MemoryCache
	redisCache *RedisCache
	fillTTL    time.Duration
}

// NewLayeredCache creates a layered cache over an existing Redis connection.
func NewLayeredCache(redisCache *RedisCache, opts ...LayeredOption) *LayeredCache {
	cfg := &LayeredConfig{
		MemoryMaxSize: 1000,
		MemoryFillTTL: 30 * time.Second,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return &LayeredCache{
		// L1 entries are short-lived, so sweep more often than the
		// standalone default.
		memCache: NewMemoryCache(
			WithMemoryMaxSize(cfg.MemoryMaxSize),
			WithMemoryCleanup(time.Minute),
		),
		redisCache: redisCache,
		fillTTL:    cfg.MemoryFillTTL,
	}
}

func (lc *LayeredCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if err := lc.redisCache.Set(ctx, key, value, expiration); err != nil {
		return err
	}
	memTTL := expiration
	if memTTL <= 0 || memTTL > lc.fillTTL {
		memTTL = lc.fillTTL
	}
	_ = lc.memCache.Set(ctx, key, value, memTTL)
	return nil
}

func (lc *LayeredCache) Get(ctx context.Context, key string, dest interface{}) error {
	if err := lc.memCache.Get(ctx, key, dest); err == nil {
		return nil
	}

	if err := lc.redisCache.Get(ctx, key, dest); err != nil {
		return err
	}

	// Refill memory with the filled dest. Bounded by fillTTL: Redis owns
	// the real expiration, memory must not outlive it by much.
	_ = lc.memCache.Set(ctx, key, dest, lc.fillTTL)
	return nil
}

func (lc *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	_ = lc.memCache.Delete(ctx, keys...)
	return lc.redisCache.Delete(ctx, keys...)
}

func (lc *LayeredCache) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return lc.redisCache.TryLock(ctx, key, ttl)
}

func (lc *LayeredCache) Unlock(ctx context.Context, key string) error {
	return lc.redisCache.Unlock(ctx, key)
}

// Close closes both cache layers.
func (lc *LayeredCache) Close() error {
	_ = lc.memCache.Close()
	return lc.redisCache.Close()
}
