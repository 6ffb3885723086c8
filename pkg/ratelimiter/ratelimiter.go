package ratelimiter

import (
	"fmt"
	"time"
)

// RateLimiter decides whether one more request may pass.
type RateLimiter interface {
	// Allow returns true if the request is allowed, otherwise returns false.
	Allow() bool
}

// Clock returns the current time. Limiters use time.Now unless a test
// replaces it.
type Clock func() time.Time

// Algorithm names accepted by New.
const (
	AlgorithmTokenBucket    = "tokenBucket"
	AlgorithmLeakyBucket    = "leakyBucket"
	AlgorithmFixedWindow    = "fixedWindow"
	AlgorithmSlidingLog     = "slidingLog"
	AlgorithmSlidingCounter = "slidingCounter"
)

// Settings describe one limiter. Rate and Capacity apply to the buckets,
// Limit and Window to the window algorithms. Buckets only applies to the
// sliding counter.
type Settings struct {
	Algorithm string
	Rate      float64
	Capacity  int
	Limit     int
	Window    time.Duration
	Buckets   int
}

// New builds the limiter named by s.Algorithm. An empty name means token
// bucket.
func New(s Settings) (RateLimiter, error) {
	switch s.Algorithm {
	case "", AlgorithmTokenBucket:
		if s.Rate <= 0 || s.Capacity <= 0 {
			return nil, fmt.Errorf("tokenBucket needs a positive rate and capacity")
		}
		return NewTokenBucket(s.Rate, s.Capacity), nil
	case AlgorithmLeakyBucket:
		if s.Rate <= 0 || s.Capacity <= 0 {
			return nil, fmt.Errorf("leakyBucket needs a positive rate and capacity")
		}
		return NewLeakyBucket(s.Rate, s.Capacity), nil
	case AlgorithmFixedWindow:
		if s.Limit <= 0 || s.Window <= 0 {
			return nil, fmt.Errorf("fixedWindow needs a positive limit and window")
		}
		return NewFixedWindowCounter(s.Limit, s.Window), nil
	case AlgorithmSlidingLog:
		if s.Limit <= 0 || s.Window <= 0 {
			return nil, fmt.Errorf("slidingLog needs a positive limit and window")
		}
		return NewSlidingWindowLog(s.Limit, s.Window), nil
	case AlgorithmSlidingCounter:
		if s.Limit <= 0 || s.Window <= 0 {
			return nil, fmt.Errorf("slidingCounter needs a positive limit and window")
		}
		return NewSlidingWindowCounter(s.Limit, s.Window, s.Buckets), nil
	default:
		return nil, fmt.Errorf("unknown rate limiter algorithm: %s", s.Algorithm)
	}
}
