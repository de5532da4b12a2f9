// Package cache holds the byte-level caches used in front of external feeds.
// They store raw response bodies, not decoded objects, so a cache hit skips
// both the network call and the JSON parse.
package cache

import "time"

// BytesCache stores raw bytes with a TTL.
type BytesCache interface {
	GetBytes(key string) (b []byte, ok bool, err error)
	SetBytes(key string, value []byte, ttl time.Duration) error
}
