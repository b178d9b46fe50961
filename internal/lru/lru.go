// Package lru provides a small LRU cache with per-entry expiry, used by the
// prepared statement cache. Not safe for concurrent use; callers hold their
// own lock.
package lru

import (
	"container/list"
	"time"
)

type entry[K comparable, V any] struct {
	key       K
	value     V
	expiresAt time.Time
}

// LRU evicts the least recently used entry past capacity and expired
// entries lazily on access. A zero ttl disables expiry.
type LRU[K comparable, V any] struct {
	capacity int
	ttl      time.Duration
	onEvict  func(K, V)

	// Now is the clock, replaceable in tests.
	Now func() time.Time

	order *list.List // front is most recently used
	items map[K]*list.Element
}

func New[K comparable, V any](capacity int, ttl time.Duration, onEvict func(K, V)) *LRU[K, V] {
	return &LRU[K, V]{
		capacity: capacity,
		ttl:      ttl,
		onEvict:  onEvict,
		Now:      time.Now,
		order:    list.New(),
		items:    make(map[K]*list.Element),
	}
}

// Add inserts or replaces the entry, marking it most recently used. A
// replaced value is handed to the eviction callback.
func (c *LRU[K, V]) Add(key K, value V) {
	if element, ok := c.items[key]; ok {
		c.order.MoveToFront(element)
		ent := element.Value.(*entry[K, V])
		if c.onEvict != nil {
			c.onEvict(key, ent.value)
		}
		ent.value = value
		ent.expiresAt = c.expiry()
		return
	}

	c.items[key] = c.order.PushFront(&entry[K, V]{key: key, value: value, expiresAt: c.expiry()})
	if c.capacity > 0 && c.order.Len() > c.capacity {
		if oldest := c.order.Back(); oldest != nil {
			c.removeElement(oldest)
		}
	}
}

// Get returns the live entry and marks it most recently used. Expired
// entries are evicted and reported as missing.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	element, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	ent := element.Value.(*entry[K, V])
	if c.expired(ent) {
		c.removeElement(element)
		var zero V
		return zero, false
	}
	c.order.MoveToFront(element)
	return ent.value, true
}

// Remove evicts the entry, false when absent.
func (c *LRU[K, V]) Remove(key K) bool {
	element, ok := c.items[key]
	if !ok {
		return false
	}
	c.removeElement(element)
	return true
}

// Keys lists cached keys from most to least recently used.
func (c *LRU[K, V]) Keys() []K {
	keys := make([]K, 0, len(c.items))
	for element := c.order.Front(); element != nil; element = element.Next() {
		keys = append(keys, element.Value.(*entry[K, V]).key)
	}
	return keys
}

func (c *LRU[K, V]) Len() int {
	return c.order.Len()
}

// Purge evicts every entry.
func (c *LRU[K, V]) Purge() {
	for element := c.order.Front(); element != nil; element = element.Next() {
		ent := element.Value.(*entry[K, V])
		delete(c.items, ent.key)
		if c.onEvict != nil {
			c.onEvict(ent.key, ent.value)
		}
	}
	c.order.Init()
}

func (c *LRU[K, V]) expiry() time.Time {
	if c.ttl <= 0 {
		return time.Time{}
	}
	return c.Now().Add(c.ttl)
}

func (c *LRU[K, V]) expired(ent *entry[K, V]) bool {
	return !ent.expiresAt.IsZero() && c.Now().After(ent.expiresAt)
}

func (c *LRU[K, V]) removeElement(element *list.Element) {
	c.order.Remove(element)
	ent := element.Value.(*entry[K, V])
	delete(c.items, ent.key)
	if c.onEvict != nil {
		c.onEvict(ent.key, ent.value)
	}
}
