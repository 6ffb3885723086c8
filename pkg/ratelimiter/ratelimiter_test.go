package ratelimiter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func allowN(l RateLimiter, n int) int {
	allowed := 0
	for i := 0; i < n; i++ {
		if l.Allow() {
			allowed++
		}
	}
	return allowed
}

func TestTokenBucket(t *testing.T) {
	clk := &fakeClock{t: time.Now()}
	tb := newTokenBucket(2, 3, clk.now)

	assert.Equal(t, 3, allowN(tb, 5))
	clk.advance(time.Second)
	assert.Equal(t, 2, allowN(tb, 5))
	clk.advance(time.Hour)
	assert.Equal(t, 3, allowN(tb, 5), "refill is capped at capacity")
}

func TestFixedWindowCounter(t *testing.T) {
	clk := &fakeClock{t: time.Now()}
	fw := newFixedWindowCounter(2, time.Minute, clk.now)

	assert.Equal(t, 2, allowN(fw, 4))
	clk.advance(59 * time.Second)
	assert.False(t, fw.Allow())
	clk.advance(time.Second)
	assert.Equal(t, 2, allowN(fw, 4))
}

func TestSlidingWindowLog(t *testing.T) {
	clk := &fakeClock{t: time.Now()}
	sl := newSlidingWindowLog(2, time.Minute, clk.now)

	assert.True(t, sl.Allow())
	clk.advance(30 * time.Second)
	assert.True(t, sl.Allow())
	assert.False(t, sl.Allow())
	clk.advance(31 * time.Second)
	assert.True(t, sl.Allow(), "the first request left the window")
	assert.False(t, sl.Allow())
}

func TestLeakyBucket(t *testing.T) {
	clk := &fakeClock{t: time.Now()}
	lb := newLeakyBucket(2, 3, clk.now)

	assert.Equal(t, 3, allowN(lb, 5))
	clk.advance(500 * time.Millisecond)
	assert.Equal(t, 1, allowN(lb, 5))
	clk.advance(time.Hour)
	assert.Equal(t, 3, allowN(lb, 5), "the bucket never drains below empty")
}

func TestSlidingWindowCounter(t *testing.T) {
	clk := &fakeClock{t: time.Now()}
	sc := newSlidingWindowCounter(3, time.Minute, 6, clk.now)

	assert.Equal(t, 2, allowN(sc, 2))
	clk.advance(30 * time.Second)
	assert.Equal(t, 1, allowN(sc, 3))
	// The first two requests leave the window after a full minute.
	clk.advance(30 * time.Second)
	assert.Equal(t, 2, allowN(sc, 3))
	clk.advance(2 * time.Minute)
	assert.Equal(t, 3, allowN(sc, 5))
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		s       Settings
		wantErr bool
	}{
		{"default is token bucket", Settings{Rate: 1, Capacity: 1}, false},
		{"fixed window", Settings{Algorithm: AlgorithmFixedWindow, Limit: 1, Window: time.Second}, false},
		{"sliding log", Settings{Algorithm: AlgorithmSlidingLog, Limit: 1, Window: time.Second}, false},
		{"missing window", Settings{Algorithm: AlgorithmSlidingLog, Limit: 1}, true},
		{"leaky bucket", Settings{Algorithm: AlgorithmLeakyBucket, Rate: 1, Capacity: 1}, false},
		{"sliding counter", Settings{Algorithm: AlgorithmSlidingCounter, Limit: 1, Window: time.Second}, false},
		{"leaky bucket without rate", Settings{Algorithm: AlgorithmLeakyBucket, Capacity: 1}, true},
		{"unknown", Settings{Algorithm: "gcra"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.s)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestKeyed(t *testing.T) {
	k, err := NewKeyed(Settings{Algorithm: AlgorithmFixedWindow, Limit: 1, Window: time.Hour}, 2)
	require.NoError(t, err)

	assert.True(t, k.Allow("alice"))
	assert.False(t, k.Allow("alice"))
	assert.True(t, k.Allow("bob"))
	assert.True(t, k.Allow("carol"))
	// alice was evicted and starts over.
	assert.True(t, k.Allow("alice"))
}
