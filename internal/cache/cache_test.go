package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryExpiry(t *testing.T) {
	now := time.Date(2025, 5, 20, 12, 0, 0, 0, time.UTC)
	c := NewMemoryWithClock(5*time.Minute, func() time.Time { return now })

	c.Set("sheet:1", "value")

	got, ok := c.Get("sheet:1")
	require.True(t, ok)
	assert.Equal(t, "value", got)

	// Still valid exactly at the TTL boundary.
	now = now.Add(5 * time.Minute)
	_, ok = c.Get("sheet:1")
	assert.True(t, ok)

	now = now.Add(time.Second)
	_, ok = c.Get("sheet:1")
	assert.False(t, ok)
}

func TestMemorySetRefreshesTTL(t *testing.T) {
	now := time.Date(2025, 5, 20, 12, 0, 0, 0, time.UTC)
	c := NewMemoryWithClock(time.Minute, func() time.Time { return now })

	c.Set("k", 1)
	now = now.Add(50 * time.Second)
	c.Set("k", 2)
	now = now.Add(50 * time.Second)

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, 2, got)
}

func TestMemoryInvalidate(t *testing.T) {
	c := NewMemory(time.Minute)
	c.Set("k", "v")
	c.Invalidate("k")

	_, ok := c.Get("k")
	assert.False(t, ok)

	// Invalidating an absent key is a no-op.
	c.Invalidate("missing")
}

func TestNoneNeverStores(t *testing.T) {
	var c Cache = None{}
	c.Set("k", "v")

	_, ok := c.Get("k")
	assert.False(t, ok)
	c.Invalidate("k")
}
