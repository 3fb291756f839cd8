package engine

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/botrelay/botrelay/logging"
)

// DefaultCacheSize bounds the number of cached engines.
const DefaultCacheSize = 128

// Cache holds one engine per agent/workflow type. Eviction follows LRU order;
// an evicted entry only costs a rebuild on next use since engines hold no
// durable state beyond their shared function registrations.
//
// One mutex guards build-on-miss, so a slow build blocks lookups of other
// keys. Accepted simplification: builds are rare and cheap relative to turns.
type Cache struct {
	mu      sync.Mutex
	entries *lru.Cache[string, *Engine]
	logger  logging.Logger
}

// NewCache creates a cache bounded to size entries (DefaultCacheSize if <= 0).
func NewCache(size int, logger logging.Logger) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	entries, err := lru.New[string, *Engine](size)
	if err != nil {
		return nil, err
	}
	return &Cache{entries: entries, logger: logger}, nil
}

// GetOrCreate returns the cached engine for key, building and storing it on
// miss. An empty key bypasses the cache entirely and always builds fresh;
// used for ad hoc completion calls not scoped to an agent type.
func (c *Cache) GetOrCreate(key string, build func() (*Engine, error)) (*Engine, error) {
	if key == "" {
		return build()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries.Get(key); ok {
		return e, nil
	}

	e, err := build()
	if err != nil {
		return nil, err
	}
	c.entries.Add(key, e)
	c.logger.Debug("engine.cache.built", "key", key, "cached", c.entries.Len())
	return e, nil
}

// Len returns the number of cached engines.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

// Purge drops all cached engines.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Purge()
}
