package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/zeebo/xxh3"
)

// DefaultOpCacheSize bounds the number of remembered operations.
const DefaultOpCacheSize = 256

// DefaultOpWindow is how long a repeated identical operation is considered
// a duplicate. This window dedups repeated in-flight work; the strategy
// engine separately dedups already-executed calls in the conversation.
const DefaultOpWindow = 2 * time.Minute

// OpCache remembers recently seen operations so identical repeats within a
// short window can be skipped.
type OpCache struct {
	lru *expirable.LRU[uint64, time.Time]
}

// NewOpCache returns an operation-dedup cache. Zero values select the
// defaults.
func NewOpCache(size int, window time.Duration) *OpCache {
	if size <= 0 {
		size = DefaultOpCacheSize
	}
	if window <= 0 {
		window = DefaultOpWindow
	}
	return &OpCache{
		lru: expirable.NewLRU[uint64, time.Time](size, nil, window),
	}
}

// Seen records the operation and reports whether an identical one was
// already recorded within the window.
func (c *OpCache) Seen(op string) bool {
	key := xxh3.HashString(op)
	_, seen := c.lru.Get(key)
	c.lru.Add(key, time.Now())
	return seen
}

// Len returns the number of remembered operations.
func (c *OpCache) Len() int {
	return c.lru.Len()
}
