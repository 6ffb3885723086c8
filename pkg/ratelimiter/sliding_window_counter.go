package ratelimiter

import (
	"sync"
	"time"
)

// SlidingWindowCounter splits the window into buckets and counts the
// requests of the buckets still inside it. It needs less memory than the
// sliding log and is more even than the fixed window at the boundaries.
type SlidingWindowCounter struct {
	limit          int
	bucketSize     time.Duration
	buckets        []int
	currentBucket  int
	lastUpdateTime time.Time
	now            Clock
	mutex          sync.Mutex
}

// NewSlidingWindowCounter creates a counter of numBuckets buckets. A
// non-positive numBuckets means 10.
func NewSlidingWindowCounter(limit int, window time.Duration, numBuckets int) *SlidingWindowCounter {
	return newSlidingWindowCounter(limit, window, numBuckets, time.Now)
}

func newSlidingWindowCounter(limit int, window time.Duration, numBuckets int, now Clock) *SlidingWindowCounter {
	if numBuckets <= 0 {
		numBuckets = 10
	}
	return &SlidingWindowCounter{
		limit:          limit,
		bucketSize:     max(window/time.Duration(numBuckets), time.Nanosecond),
		buckets:        make([]int, numBuckets),
		lastUpdateTime: now(),
		now:            now,
	}
}

// slide clears the buckets that left the window.
func (swc *SlidingWindowCounter) slide() {
	now := swc.now()
	steps := int(now.Sub(swc.lastUpdateTime) / swc.bucketSize)
	if steps <= 0 {
		return
	}
	n := len(swc.buckets)
	for i := 1; i <= min(steps, n); i++ {
		swc.buckets[(swc.currentBucket+i)%n] = 0
	}
	swc.currentBucket = (swc.currentBucket + steps) % n
	swc.lastUpdateTime = swc.lastUpdateTime.Add(time.Duration(steps) * swc.bucketSize)
}

// Allow counts the request in the current bucket if the window has room.
func (swc *SlidingWindowCounter) Allow() bool {
	swc.mutex.Lock()
	defer swc.mutex.Unlock()

	swc.slide()
	total := 0
	for _, c := range swc.buckets {
		total += c
	}
	if total < swc.limit {
		swc.buckets[swc.currentBucket]++
		return true
	}
	return false
}
