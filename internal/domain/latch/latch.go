// Package latch records that work for a key has happened and remembers its
// result, so repeated triggers become no-ops.
package latch

import (
	"context"
	"sync"
	"sync/atomic"
)

const defaultMaxSize = 10_000

// node is one entry in insertion order.
type node struct {
	key  string
	next *node
}

// Cache is a bounded key -> value latch. When full, the oldest entry is
// evicted first. The zero value is not usable; call New.
type Cache[V any] struct {
	mu      sync.Mutex
	values  map[string]V
	head    *node // oldest
	tail    *node // newest
	maxSize int   // <= 0 means unbounded
	size    atomic.Int64
}

// Option applies a configuration option to a Cache.
type Option func(*settings)

type settings struct {
	maxSize int
}

// WithMaxSize bounds the number of remembered keys. Zero or negative
// disables eviction.
func WithMaxSize(n int) Option {
	return func(s *settings) {
		s.maxSize = n
	}
}

// New creates a latch cache.
func New[V any](opts ...Option) *Cache[V] {
	s := settings{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(&s)
	}
	return &Cache[V]{
		values:  make(map[string]V),
		maxSize: s.maxSize,
	}
}

// Load returns the value stored for key.
func (c *Cache[V]) Load(_ context.Context, key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[key]
	return v, ok
}

// LoadOrStore returns the existing value for key if present. Otherwise it
// stores v and returns it. loaded is true when the value was already there.
func (c *Cache[V]) LoadOrStore(_ context.Context, key string, v V) (actual V, loaded bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.values[key]; ok {
		return existing, true
	}
	if c.maxSize > 0 && len(c.values) >= c.maxSize {
		c.evictOldest()
	}

	n := &node{key: key}
	if c.tail == nil {
		c.head = n
	} else {
		c.tail.next = n
	}
	c.tail = n
	c.values[key] = v
	c.size.Add(1)
	return v, false
}

// evictOldest drops the head entry. Must be called with c.mu held.
func (c *Cache[V]) evictOldest() {
	if c.head == nil {
		return
	}
	old := c.head
	c.head = old.next
	if c.head == nil {
		c.tail = nil
	}
	delete(c.values, old.key)
	c.size.Add(-1)
}

// Size returns the number of remembered keys.
func (c *Cache[V]) Size() int64 {
	return c.size.Load()
}
