package utils

import (
	"sync"
	"time"
)

type cacheEntry[V any] struct {
	value      V
	expiration time.Time
}

// InMemoryCache is a map-backed TTL cache. A janitor goroutine drops expired
// entries every cleanupInterval until Close is called.
type InMemoryCache[V any] struct {
	entries map[string]cacheEntry[V]
	mu      sync.RWMutex
	now     func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewInMemoryCache creates a new in-memory cache. A cleanupInterval of zero
// disables the janitor.
func NewInMemoryCache[V any](cleanupInterval time.Duration, now func() time.Time) *InMemoryCache[V] {
	if now == nil {
		now = time.Now
	}
	cache := &InMemoryCache[V]{
		entries: make(map[string]cacheEntry[V]),
		now:     now,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}

	if cleanupInterval > 0 {
		go cache.cleanup(cleanupInterval)
	} else {
		close(cache.done)
	}

	return cache
}

// Get retrieves a live value from the cache.
func (c *InMemoryCache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[key]
	if !exists || !c.now().Before(entry.expiration) {
		var zero V
		return zero, false
	}
	return entry.value, true
}

// Set stores a value in the cache with a TTL.
func (c *InMemoryCache[V]) Set(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry[V]{
		value:      value,
		expiration: c.now().Add(ttl),
	}
}

// Delete removes a value from the cache.
func (c *InMemoryCache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
}

// DeleteExpired removes every expired entry and returns how many were dropped.
func (c *InMemoryCache[V]) DeleteExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, entry := range c.entries {
		if !now.Before(entry.expiration) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, expired or not.
func (c *InMemoryCache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close stops the janitor and waits for it to exit.
func (c *InMemoryCache[V]) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
	<-c.done
}

func (c *InMemoryCache[V]) cleanup(interval time.Duration) {
	defer close(c.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.DeleteExpired()
		case <-c.stop:
			return
		}
	}
}
