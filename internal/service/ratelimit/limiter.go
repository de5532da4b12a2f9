// Package ratelimit implements a token-bucket limiter keyed by
// caller-chosen strings. One instance can police many keys, so per-IP
// API gates and per-upstream feed budgets share the code path.
package ratelimit

import (
	"sync"
	"time"
)

type bucket struct {
	tokens float64
	stamp  time.Time
}

// Limiter hands out tokens from per-key buckets. Capacity and refill
// rate travel with each Allow call, so different keys run under
// different budgets without pre-registration.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

func New() *Limiter {
	return &Limiter{buckets: make(map[string]*bucket), now: time.Now}
}

// Allow consumes one token for key if the bucket holds at least one.
// A key seen for the first time starts full.
func (l *Limiter) Allow(key string, capacity, refillPerSec float64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: capacity, stamp: now}
		l.buckets[key] = b
	}

	if elapsed := now.Sub(b.stamp).Seconds(); elapsed > 0 {
		b.tokens += elapsed * refillPerSec
		if b.tokens > capacity {
			b.tokens = capacity
		}
		b.stamp = now
	}

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}
