package ratelimiter

import (
	"sync"
	"time"
)

// LeakyBucket smooths bursts into a steady outflow. Each request adds a drop
// and the bucket drains at rate drops per second.
type LeakyBucket struct {
	rate         float64
	capacity     float64
	waterLevel   float64
	lastLeakTime time.Time
	now          Clock
	mutex        sync.Mutex
}

// NewLeakyBucket creates an empty bucket.
// rate: the number of requests to process per second.
// capacity: the maximum burst size (bucket capacity).
func NewLeakyBucket(rate float64, capacity int) *LeakyBucket {
	return newLeakyBucket(rate, capacity, time.Now)
}

func newLeakyBucket(rate float64, capacity int, now Clock) *LeakyBucket {
	return &LeakyBucket{rate: rate, capacity: float64(capacity), lastLeakTime: now(), now: now}
}

// Allow drains the bucket for the elapsed time and adds one drop if it fits.
func (lb *LeakyBucket) Allow() bool {
	lb.mutex.Lock()
	defer lb.mutex.Unlock()

	now := lb.now()
	if leaked := now.Sub(lb.lastLeakTime).Seconds() * lb.rate; leaked > 0 {
		lb.waterLevel = max(0, lb.waterLevel-leaked)
		lb.lastLeakTime = now
	}
	if lb.waterLevel+1 <= lb.capacity {
		lb.waterLevel++
		return true
	}
	return false
}
