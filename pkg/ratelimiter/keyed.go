package ratelimiter

import (
	"sync"

	"office_word_mcp_server/pkg/lru"
)

// Keyed holds one limiter per client key. The least recently seen clients
// are forgotten once maxKeys is exceeded.
type Keyed struct {
	settings Settings
	limiters *lru.Cache[string, RateLimiter]
	mu       sync.Mutex
}

// NewKeyed validates s and returns a keyed limiter.
func NewKeyed(s Settings, maxKeys int) (*Keyed, error) {
	if _, err := New(s); err != nil {
		return nil, err
	}
	cache, err := lru.New(lru.Config[string, RateLimiter]{Capacity: max(maxKeys, 1)})
	if err != nil {
		return nil, err
	}
	return &Keyed{settings: s, limiters: cache}, nil
}

// Allow applies the limiter of key.
func (k *Keyed) Allow(key string) bool {
	k.mu.Lock()
	l, ok := k.limiters.Get(key)
	if !ok {
		l, _ = New(k.settings)
		k.limiters.Put(key, l, 1)
	}
	k.mu.Unlock()
	return l.Allow()
}
