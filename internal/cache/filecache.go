// Package cache provides the bounded caches backing pruning: a TTL'd
// file-content cache with mtime/size invalidation and a short-window
// operation-dedup cache. Instances are explicitly constructed and owned
// by the host process; there are no package-level singletons.
package cache

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

// DefaultFileCacheSize bounds the number of cached files.
const DefaultFileCacheSize = 128

// DefaultFileCacheTTL bounds how long a cached file is trusted even if its
// stat info has not changed.
const DefaultFileCacheTTL = 5 * time.Minute

type fileEntry struct {
	content string
	modTime time.Time
	size    int64
}

// FileCache caches file contents keyed by path, invalidated by mtime/size
// changes and a TTL. Concurrent reads of the same path are coalesced.
type FileCache struct {
	lru   *expirable.LRU[string, fileEntry]
	group singleflight.Group
}

// NewFileCache returns a file cache holding at most size entries for at
// most ttl. Zero values select the defaults.
func NewFileCache(size int, ttl time.Duration) *FileCache {
	if size <= 0 {
		size = DefaultFileCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultFileCacheTTL
	}
	return &FileCache{
		lru: expirable.NewLRU[string, fileEntry](size, nil, ttl),
	}
}

// Get returns the content of path, from cache when the file is unchanged.
func (c *FileCache) Get(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		c.lru.Remove(path)
		return "", fmt.Errorf("stat %s: %w", path, err)
	}

	if e, ok := c.lru.Get(path); ok {
		if e.modTime.Equal(info.ModTime()) && e.size == info.Size() {
			return e.content, nil
		}
		c.lru.Remove(path)
	}

	v, err, _ := c.group.Do(path, func() (any, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		entry := fileEntry{content: string(data), modTime: info.ModTime(), size: info.Size()}
		c.lru.Add(path, entry)
		return entry.content, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Invalidate drops a path from the cache.
func (c *FileCache) Invalidate(path string) {
	c.lru.Remove(path)
}

// Len returns the number of cached files.
func (c *FileCache) Len() int {
	return c.lru.Len()
}
