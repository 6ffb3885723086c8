package lru

import (
	"container/list"
	"errors"
	"sync"
	"time"
)

// ErrNoLimit 表示既没有设置 Capacity 也没有设置 MaxWeight。
var ErrNoLimit = errors.New("lru: at least one of Capacity or MaxWeight must be set")

// Config 用于配置缓存的行为。
type Config[K comparable, V any] struct {
	// Capacity 是缓存的最大元素数量。如果为0，则不限制数量。
	Capacity int
	// MaxWeight 是所有元素的最大权重总和。如果为0，则不限制权重。
	MaxWeight int
	// TTL 是元素的存活时间。如果为0，则元素永不过期。
	TTL time.Duration
	// OnEvict 在元素因容量、权重或过期被移除时调用，调用时已持有锁。
	OnEvict func(key K, value V)
}

type entry[K comparable, V any] struct {
	key       K
	value     V
	weight    int
	expiresAt time.Time
}

// Cache 是一个支持泛型、带权重和TTL的线程安全LRU缓存。
type Cache[K comparable, V any] struct {
	cfg    Config[K, V]
	ll     *list.List
	items  map[K]*list.Element
	weight int
	mu     sync.Mutex
	now    func() time.Time
}

// New 使用指定的配置创建缓存实例。
func New[K comparable, V any](cfg Config[K, V]) (*Cache[K, V], error) {
	if cfg.Capacity <= 0 && cfg.MaxWeight <= 0 {
		return nil, ErrNoLimit
	}
	return &Cache[K, V]{
		cfg:   cfg,
		ll:    list.New(),
		items: make(map[K]*list.Element),
		now:   time.Now,
	}, nil
}

// Get 根据键获取值，过期的元素在这里被动淘汰。
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	el, ok := c.items[key]
	if !ok {
		return zero, false
	}
	e := el.Value.(*entry[K, V])
	if c.expired(e) {
		c.remove(el, true)
		return zero, false
	}
	c.ll.MoveToFront(el)
	return e.value, true
}

// Put 添加或更新一个键值对。基于数量淘汰时 weight 传 1 即可。
// 单个元素的权重超过 MaxWeight 时不会被缓存。
func (c *Cache[K, V]) Put(key K, value V, weight int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfg.MaxWeight > 0 && weight > c.cfg.MaxWeight {
		if el, ok := c.items[key]; ok {
			c.remove(el, false)
		}
		return
	}

	var expiresAt time.Time
	if c.cfg.TTL > 0 {
		expiresAt = c.now().Add(c.cfg.TTL)
	}
	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry[K, V])
		c.weight += weight - e.weight
		e.value, e.weight, e.expiresAt = value, weight, expiresAt
		c.ll.MoveToFront(el)
	} else {
		c.items[key] = c.ll.PushFront(&entry[K, V]{key: key, value: value, weight: weight, expiresAt: expiresAt})
		c.weight += weight
	}

	// 一个大元素可能需要淘汰多个旧元素
	for c.overLimit() {
		c.remove(c.ll.Back(), true)
	}
}

// Delete 移除一个键，返回它是否存在。
func (c *Cache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if ok {
		c.remove(el, false)
	}
	return ok
}

// Purge 清空缓存。
func (c *Cache[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	c.items = make(map[K]*list.Element)
	c.weight = 0
}

// Len 返回当前的条目数量，包括尚未被访问到的过期条目。
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// Weight 返回当前所有元素的总权重。
func (c *Cache[K, V]) Weight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.weight
}

func (c *Cache[K, V]) expired(e *entry[K, V]) bool {
	return c.cfg.TTL > 0 && c.now().After(e.expiresAt)
}

func (c *Cache[K, V]) overLimit() bool {
	if c.ll.Len() == 0 {
		return false
	}
	if c.cfg.Capacity > 0 && c.ll.Len() > c.cfg.Capacity {
		return true
	}
	return c.cfg.MaxWeight > 0 && c.weight > c.cfg.MaxWeight
}

// remove 假设已持有锁。
func (c *Cache[K, V]) remove(el *list.Element, evicted bool) {
	e := el.Value.(*entry[K, V])
	c.ll.Remove(el)
	delete(c.items, e.key)
	c.weight -= e.weight
	if evicted && c.cfg.OnEvict != nil {
		c.cfg.OnEvict(e.key, e.value)
	}
}
