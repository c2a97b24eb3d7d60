package reports

import (
	"sync"
	"time"
)

// ReportCache provides in-memory caching for computed reports so that
// aggregation reads never block on upstream services when a fresh result
// already exists.
type ReportCache struct {
	data    map[string]*cacheEntry
	ttl     time.Duration
	mu      sync.RWMutex
	cleanup *time.Ticker
	done    chan struct{}
}

// cacheEntry represents a cache entry with expiration
type cacheEntry struct {
	value      interface{}
	expiration time.Time
}

// NewReportCache creates a new report cache
func NewReportCache(ttl time.Duration) *ReportCache {
	cache := &ReportCache{
		data:    make(map[string]*cacheEntry),
		ttl:     ttl,
		cleanup: time.NewTicker(time.Minute),
		done:    make(chan struct{}),
	}

	go cache.cleanupLoop()

	return cache
}

// Get retrieves a value from the cache
func (c *ReportCache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.data[key]
	if !ok {
		return nil, false
	}

	if time.Now().After(entry.expiration) {
		return nil, false
	}

	return entry.value, true
}

// Set stores a value in the cache
func (c *ReportCache) Set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[key] = &cacheEntry{
		value:      value,
		expiration: time.Now().Add(c.ttl),
	}
}

// Invalidate removes a single key
func (c *ReportCache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.data, key)
}

// Stop halts the background cleanup loop
func (c *ReportCache) Stop() {
	close(c.done)
	c.cleanup.Stop()
}

func (c *ReportCache) cleanupLoop() {
	for {
		select {
		case <-c.done:
			return
		case <-c.cleanup.C:
			c.removeExpired()
		}
	}
}

func (c *ReportCache) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, entry := range c.data {
		if now.After(entry.expiration) {
			delete(c.data, key)
		}
	}
}
