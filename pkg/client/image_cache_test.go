package client_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/narwhalmedia/mediaresolver/pkg/client"
)

func TestImageCache(t *testing.T) {
	cache := client.NewImageCache(2, time.Hour)

	cache.Put(1, "https://img/1.jpg")
	cache.Put(2, client.NoImage)

	url, ok := cache.Get(1)
	assert.True(t, ok)
	assert.Equal(t, "https://img/1.jpg", url)

	url, ok = cache.Get(2)
	assert.True(t, ok, "the no-image sentinel is a hit")
	assert.Equal(t, client.NoImage, url)

	assert.False(t, cache.Has(3))
	assert.Equal(t, 2, cache.Len())
}

func TestImageCache_EvictsLeastRecentlyUsed(t *testing.T) {
	cache := client.NewImageCache(2, 0)
	cache.Put(1, "a")
	cache.Put(2, "b")
	_, _ = cache.Get(1)

	cache.Put(3, "c")

	assert.True(t, cache.Has(1))
	assert.False(t, cache.Has(2))
	assert.True(t, cache.Has(3))
}

func TestImageCache_Expires(t *testing.T) {
	cache := client.NewImageCache(10, 20*time.Millisecond)
	cache.Put(1, "a")

	assert.Eventually(t, func() bool { return !cache.Has(1) }, time.Second, 10*time.Millisecond)
}

func TestImageCache_Reset(t *testing.T) {
	cache := client.NewImageCache(10, time.Hour)
	cache.Put(1, "a")
	cache.Put(2, "b")

	cache.Reset()

	assert.Zero(t, cache.Len())
	assert.False(t, cache.Has(1))
}
