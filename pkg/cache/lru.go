package cache

import (
	"container/list"
	"sync"
	"time"
)

type entry[K comparable, V any] struct {
	key       K
	value     V
	expiresAt time.Time
}

// LRU is a thread-safe least-recently-used cache with an optional
// time-to-live per entry. Expired entries are dropped lazily on access.
type LRU[K comparable, V any] struct {
	capacity int
	ttl      time.Duration
	now      func() time.Time
	onEvict  func(key K, value V)

	mu       sync.Mutex
	items    map[K]*list.Element
	eviction *list.List
}

// Option configures an LRU.
type Option[K comparable, V any] func(*LRU[K, V])

// WithTTL sets the lifetime of every entry. Zero disables expiry.
func WithTTL[K comparable, V any](ttl time.Duration) Option[K, V] {
	return func(c *LRU[K, V]) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock overrides the time source.
func WithClock[K comparable, V any](now func() time.Time) Option[K, V] {
	return func(c *LRU[K, V]) {
		if now != nil {
			c.now = now
		}
	}
}

// WithEvictCallback registers fn to be called for entries removed by
// capacity pressure, expiry, Remove or Clear.
func WithEvictCallback[K comparable, V any](fn func(key K, value V)) Option[K, V] {
	return func(c *LRU[K, V]) {
		c.onEvict = fn
	}
}

// New creates an LRU with the given capacity. It panics if capacity is not positive.
func New[K comparable, V any](capacity int, opts ...Option[K, V]) *LRU[K, V] {
	if capacity <= 0 {
		panic("cache: LRU capacity must be positive")
	}
	c := &LRU[K, V]{
		capacity: capacity,
		now:      time.Now,
		items:    make(map[K]*list.Element),
		eviction: list.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the value for key and marks it as recently used.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	elem, ok := c.items[key]
	if !ok {
		return zero, false
	}
	e := elem.Value.(*entry[K, V])
	if c.expired(e) {
		c.removeElement(elem)
		return zero, false
	}
	c.eviction.MoveToFront(elem)
	return e.value, true
}

// Put adds or replaces the value for key and resets its expiry.
// Returns the previous live value, if any.
func (c *LRU[K, V]) Put(key K, value V) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	if elem, ok := c.items[key]; ok {
		e := elem.Value.(*entry[K, V])
		old, live := e.value, !c.expired(e)
		e.value = value
		e.expiresAt = c.deadline()
		c.eviction.MoveToFront(elem)
		if !live {
			return zero, false
		}
		return old, true
	}

	elem := c.eviction.PushFront(&entry[K, V]{key: key, value: value, expiresAt: c.deadline()})
	c.items[key] = elem

	if c.eviction.Len() > c.capacity {
		if oldest := c.eviction.Back(); oldest != nil {
			c.removeElement(oldest)
		}
	}
	return zero, false
}

// Remove deletes key. Returns the removed value and whether it existed.
func (c *LRU[K, V]) Remove(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.removeElement(elem)
		return elem.Value.(*entry[K, V]).value, true
	}
	var zero V
	return zero, false
}

// Len reports the number of entries, including expired ones not yet collected.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.eviction.Len()
}

// Clear removes every entry.
func (c *LRU[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.onEvict != nil {
		for _, elem := range c.items {
			e := elem.Value.(*entry[K, V])
			c.onEvict(e.key, e.value)
		}
	}
	c.items = make(map[K]*list.Element)
	c.eviction.Init()
}

func (c *LRU[K, V]) deadline() time.Time {
	if c.ttl == 0 {
		return time.Time{}
	}
	return c.now().Add(c.ttl)
}

// Must be called with lock held.
func (c *LRU[K, V]) expired(e *entry[K, V]) bool {
	return !e.expiresAt.IsZero() && !c.now().Before(e.expiresAt)
}

// Must be called with lock held.
func (c *LRU[K, V]) removeElement(elem *list.Element) {
	c.eviction.Remove(elem)
	e := elem.Value.(*entry[K, V])
	delete(c.items, e.key)
	if c.onEvict != nil {
		c.onEvict(e.key, e.value)
	}
}
