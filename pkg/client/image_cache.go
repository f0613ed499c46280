package client

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// NoImage is cached for items that resolved without a cover image, so they
// are never looked up again while the entry lives.
const NoImage = ""

// ImageCache maps client item ids to cover image URLs. Size bounds the
// number of entries (least recently used go first) and ttl bounds their
// age; a ttl of zero keeps entries until evicted.
type ImageCache struct {
	lru *expirable.LRU[int64, string]
}

// NewImageCache creates an image cache.
func NewImageCache(size int, ttl time.Duration) *ImageCache {
	return &ImageCache{lru: expirable.NewLRU[int64, string](size, nil, ttl)}
}

// Get returns the cached URL. A hit with NoImage means the item has no image.
func (c *ImageCache) Get(id int64) (string, bool) {
	return c.lru.Get(id)
}

func (c *ImageCache) Put(id int64, imageURL string) {
	c.lru.Add(id, imageURL)
}

// Has reports a live entry without touching its recency.
func (c *ImageCache) Has(id int64) bool {
	_, ok := c.lru.Peek(id)
	return ok
}

// Reset drops every entry.
func (c *ImageCache) Reset() {
	c.lru.Purge()
}

func (c *ImageCache) Len() int {
	return c.lru.Len()
}
