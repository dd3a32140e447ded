package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTTLCacheHitAndExpiry(t *testing.T) {
	current := time.Date(2025, time.March, 1, 10, 0, 0, 0, time.UTC)
	c := New[int](30 * time.Second)
	c.now = func() time.Time { return current }

	c.Set("metrics", 42)

	got, ok := c.Get("metrics")
	require.True(t, ok)
	require.Equal(t, 42, got)

	current = current.Add(31 * time.Second)
	_, ok = c.Get("metrics")
	require.False(t, ok)
}

func TestTTLCacheMiss(t *testing.T) {
	c := New[string](time.Minute)
	_, ok := c.Get("absent")
	require.False(t, ok)
}

func TestTTLCacheDelete(t *testing.T) {
	c := New[string](time.Minute)
	c.Set("key", "value")
	c.Delete("key")
	_, ok := c.Get("key")
	require.False(t, ok)
}

func TestTTLCacheOverwrite(t *testing.T) {
	c := New[int](time.Minute)
	c.Set("key", 1)
	c.Set("key", 2)
	got, ok := c.Get("key")
	require.True(t, ok)
	require.Equal(t, 2, got)
}
