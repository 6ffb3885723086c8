package ratelimiter

import (
	"sync"
	"time"
)

// TokenBucket allows bursts up to its capacity and refills at a fixed rate.
type TokenBucket struct {
	rate     float64 // Tokens generated per second.
	capacity float64
	tokens   float64
	last     time.Time
	now      Clock
	mutex    sync.Mutex
}

// NewTokenBucket creates a full bucket.
// rate: the number of tokens to generate per second.
// capacity: the maximum number of tokens (burst size).
func NewTokenBucket(rate float64, capacity int) *TokenBucket {
	return newTokenBucket(rate, capacity, time.Now)
}

func newTokenBucket(rate float64, capacity int, now Clock) *TokenBucket {
	return &TokenBucket{
		rate:     rate,
		capacity: float64(capacity),
		tokens:   float64(capacity),
		last:     now(),
		now:      now,
	}
}

// Allow refills the bucket for the elapsed time and takes one token.
func (tb *TokenBucket) Allow() bool {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	now := tb.now()
	if elapsed := now.Sub(tb.last); elapsed > 0 {
		tb.tokens = min(tb.capacity, tb.tokens+elapsed.Seconds()*tb.rate)
		tb.last = now
	}
	if tb.tokens >= 1 {
		tb.tokens--
		return true
	}
	return false
}
