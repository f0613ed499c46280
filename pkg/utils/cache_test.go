package utils_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"

	"github.com/narwhalmedia/mediaresolver/pkg/utils"
)

func TestInMemoryCache_Expiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	cache := utils.NewInMemoryCache[string](0, func() time.Time { return now })
	defer cache.Close()

	cache.Set("naruto_anime", "hit", time.Hour)

	got, ok := cache.Get("naruto_anime")
	assert.True(t, ok)
	assert.Equal(t, "hit", got)

	now = now.Add(time.Hour)
	_, ok = cache.Get("naruto_anime")
	assert.False(t, ok, "entry must be invisible at its expiry instant")

	assert.Equal(t, 1, cache.Len())
	assert.Equal(t, 1, cache.DeleteExpired())
	assert.Equal(t, 0, cache.Len())
}

func TestInMemoryCache_CloseStopsJanitor(t *testing.T) {
	defer goleak.VerifyNone(t)

	cache := utils.NewInMemoryCache[int](time.Millisecond, nil)
	cache.Set("a", 1, time.Nanosecond)

	assert.Eventually(t, func() bool { return cache.Len() == 0 }, time.Second, 5*time.Millisecond)
	cache.Close()
	cache.Close()
}
