package reports

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReportCacheSetGet(t *testing.T) {
	cache := NewReportCache(time.Minute)
	defer cache.Stop()

	_, ok := cache.Get("summary")
	assert.False(t, ok)

	cache.Set("summary", "value")
	value, ok := cache.Get("summary")
	assert.True(t, ok)
	assert.Equal(t, "value", value)
}

func TestReportCacheExpiry(t *testing.T) {
	cache := NewReportCache(10 * time.Millisecond)
	defer cache.Stop()

	cache.Set("summary", "value")
	time.Sleep(30 * time.Millisecond)

	_, ok := cache.Get("summary")
	assert.False(t, ok)
}

func TestReportCacheInvalidate(t *testing.T) {
	cache := NewReportCache(time.Minute)
	defer cache.Stop()

	cache.Set("summary", "value")
	cache.Invalidate("summary")

	_, ok := cache.Get("summary")
	assert.False(t, ok)
}
