package lru

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequiresLimit(t *testing.T) {
	_, err := New[string, int](Config[string, int]{TTL: time.Minute})
	require.ErrorIs(t, err, ErrNoLimit)
}

func TestCapacityEviction(t *testing.T) {
	var evicted []string
	c, err := New(Config[string, int]{
		Capacity: 2,
		OnEvict:  func(k string, _ int) { evicted = append(evicted, k) },
	})
	require.NoError(t, err)

	c.Put("a", 1, 1)
	c.Put("b", 2, 1)
	_, _ = c.Get("a") // a is now most recent
	c.Put("c", 3, 1)

	_, ok := c.Get("b")
	assert.False(t, ok)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, []string{"b"}, evicted)
	assert.Equal(t, 2, c.Len())
}

func TestWeightEviction(t *testing.T) {
	c, err := New(Config[string, string]{MaxWeight: 10})
	require.NoError(t, err)

	c.Put("x", "xxxx", 4)
	c.Put("y", "yyyy", 4)
	c.Put("z", "zzzzzz", 6)
	assert.Equal(t, 6+4, c.Weight())
	_, ok := c.Get("x")
	assert.False(t, ok)

	// Too heavy to cache at all.
	c.Put("huge", "h", 11)
	_, ok = c.Get("huge")
	assert.False(t, ok)
	assert.Equal(t, 10, c.Weight())

	c.Put("y", "y", 1)
	assert.Equal(t, 7, c.Weight())
}

func TestTTL(t *testing.T) {
	c, err := New(Config[string, int]{Capacity: 10, TTL: time.Minute})
	require.NoError(t, err)
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Put("k", 1, 1)
	_, ok := c.Get("k")
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestDeleteAndPurge(t *testing.T) {
	c, err := New(Config[int, int]{Capacity: 5})
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		c.Put(i, i, 1)
	}
	assert.True(t, c.Delete(2))
	assert.False(t, c.Delete(2))
	assert.Equal(t, 3, c.Len())
	c.Purge()
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, 0, c.Weight())
}
