package cache

import (
	"sync"
	"time"
)

type record struct {
	v   any
	exp time.Time
}

// TTLCache is a process-local map with per-entry expiration. Expired entries
// are dropped lazily on read; there is no background sweeper, which is fine
// for the handful of short-lived feed bodies it holds.
type TTLCache struct {
	mu sync.RWMutex
	m  map[string]record
}

func NewTTLCache() *TTLCache {
	return &TTLCache{m: make(map[string]record)}
}

// Get returns the live value for key. A zero expiration never expires.
func (c *TTLCache) Get(key string) (any, bool) {
	c.mu.RLock()
	r, ok := c.m[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !r.exp.IsZero() && time.Now().After(r.exp) {
		c.mu.Lock()
		delete(c.m, key)
		c.mu.Unlock()
		return nil, false
	}
	return r.v, true
}

func (c *TTLCache) Set(key string, v any, ttl time.Duration) {
	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	c.mu.Lock()
	c.m[key] = record{v: v, exp: exp}
	c.mu.Unlock()
}

func (c *TTLCache) GetBytes(key string) ([]byte, bool, error) {
	v, ok := c.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, ok := v.([]byte)
	if !ok {
		return nil, false, nil
	}
	return b, true, nil
}

func (c *TTLCache) SetBytes(key string, value []byte, ttl time.Duration) error {
	c.Set(key, value, ttl)
	return nil
}

var _ BytesCache = (*TTLCache)(nil)
