// file: internal/cache/cache_test.go
// version: 2.0.0
// guid: b2c3d4e5-f6a7-8b9c-0d1e-2f3a4b5c6d7e

package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetGet(t *testing.T) {
	c := New[[]string](time.Minute)

	_, ok := c.Get("fp:214")
	assert.False(t, ok)

	c.Set("fp:214", []string{"group-1", "group-2"})
	got, ok := c.Get("fp:214")
	require.True(t, ok)
	assert.Equal(t, []string{"group-1", "group-2"}, got)
	assert.Equal(t, 1, c.Len())
}

func TestSetReplacesValue(t *testing.T) {
	c := New[int](time.Minute)
	c.Set("k", 1)
	c.Set("k", 2)

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, 2, got)
	assert.Equal(t, 1, c.Len())
}

func TestExpiredEntryIsInvisible(t *testing.T) {
	c := New[int](time.Millisecond)
	c.Set("k", 42)
	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Zero(t, c.Len())
}

func TestSweepReclaimsExpiredEntries(t *testing.T) {
	c := New[int](time.Millisecond)
	for i := 0; i < sweepEvery; i++ {
		c.Set(fmt.Sprintf("old-%d", i), i)
	}
	time.Sleep(5 * time.Millisecond)

	// Writes up to the sweep boundary trigger a reclaim of the expired
	// entries, so the map does not grow without bound.
	for i := 0; i < sweepEvery; i++ {
		c.Set(fmt.Sprintf("new-%d", i), i)
	}
	assert.LessOrEqual(t, len(c.items), sweepEvery+1)
}
