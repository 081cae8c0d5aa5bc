package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSetAndGet(t *testing.T) {
	c := New()

	c.Set("SPORTS:1:20", []byte(`[{"title":"Win"}]`), time.Minute)

	got, ok := c.Get("SPORTS:1:20")
	assert.True(t, ok)
	assert.Equal(t, `[{"title":"Win"}]`, string(got))
}

func TestGetMiss(t *testing.T) {
	c := New()

	_, ok := c.Get("absent")
	assert.False(t, ok)
}

func TestAbsoluteExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := New()
	c.now = func() time.Time { return now }

	c.Set("k", []byte("v"), 30*time.Second)

	now = now.Add(29 * time.Second)
	_, ok := c.Get("k")
	assert.True(t, ok, "entry must live until the ttl elapses")

	now = now.Add(2 * time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok, "expiry is absolute from write time")
}

func TestNonPositiveTTLStoresNothing(t *testing.T) {
	c := New()

	c.Set("k", []byte("v"), 0)

	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Zero(t, c.Len())
}

func TestWriteSweepsExpiredEntries(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := New()
	c.now = func() time.Time { return now }

	c.Set("old", []byte("v"), 10*time.Second)
	now = now.Add(time.Minute)
	c.Set("new", []byte("v"), 10*time.Second)

	assert.Equal(t, 1, c.Len(), "expired entries are swept on write")
}

func TestOverwriteRefreshesExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := New()
	c.now = func() time.Time { return now }

	c.Set("k", []byte("v1"), 10*time.Second)
	now = now.Add(8 * time.Second)
	c.Set("k", []byte("v2"), 10*time.Second)
	now = now.Add(8 * time.Second)

	got, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v2", string(got))
}
