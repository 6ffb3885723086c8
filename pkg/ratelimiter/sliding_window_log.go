package ratelimiter

import (
	"container/list"
	"sync"
	"time"
)

// SlidingWindowLog keeps the timestamps of accepted requests and allows at
// most limit of them within any window.
type SlidingWindowLog struct {
	limit  int
	window time.Duration
	log    *list.List
	now    Clock
	mutex  sync.Mutex
}

// NewSlidingWindowLog creates an empty log.
func NewSlidingWindowLog(limit int, window time.Duration) *SlidingWindowLog {
	return newSlidingWindowLog(limit, window, time.Now)
}

func newSlidingWindowLog(limit int, window time.Duration, now Clock) *SlidingWindowLog {
	return &SlidingWindowLog{limit: limit, window: window, log: list.New(), now: now}
}

// Allow drops timestamps older than the window and logs the request when
// there is room.
func (swl *SlidingWindowLog) Allow() bool {
	swl.mutex.Lock()
	defer swl.mutex.Unlock()

	now := swl.now()
	boundary := now.Add(-swl.window)
	// Timestamps are ordered, so stop at the first one inside the window.
	for e := swl.log.Front(); e != nil && !e.Value.(time.Time).After(boundary); e = swl.log.Front() {
		swl.log.Remove(e)
	}
	if swl.log.Len() < swl.limit {
		swl.log.PushBack(now)
		return true
	}
	return false
}
