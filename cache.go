/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package objectstore

import (
	"sync"

	"github.com/suparena/objectstore/storagemodels"
)

// Cache is an unbounded in-memory map from primary key to entity for one class.
// There is no eviction and no expiry; entries leave only through Remove,
// Replace or Clear. Entries are always stored under the entity's own key.
type Cache[E storagemodels.Identifiable] struct {
	mu    sync.RWMutex
	items map[int64]E
}

// NewCache creates an empty cache.
func NewCache[E storagemodels.Identifiable]() *Cache[E] {
	return &Cache[E]{
		items: make(map[int64]E),
	}
}

// Get returns the entity cached under key.
func (c *Cache[E]) Get(key int64) (E, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.items[key]
	return e, ok
}

// GetAll returns every cached entity, in no particular order.
func (c *Cache[E]) GetAll() []E {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]E, 0, len(c.items))
	for _, e := range c.items {
		out = append(out, e)
	}
	return out
}

// Put stores e under its primary key, overwriting any previous entry.
func (c *Cache[E]) Put(e E) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[e.PrimaryKey()] = e
}

// PutAll stores every entity of entities.
func (c *Cache[E]) PutAll(entities []E) {
	if len(entities) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range entities {
		c.items[e.PrimaryKey()] = e
	}
}

// Replace discards every entry and stores entities instead.
func (c *Cache[E]) Replace(entities []E) {
	items := make(map[int64]E, len(entities))
	for _, e := range entities {
		items[e.PrimaryKey()] = e
	}
	c.mu.Lock()
	c.items = items
	c.mu.Unlock()
}

// Remove evicts key. Removing an absent key is a no-op.
func (c *Cache[E]) Remove(key int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// Clear discards every entry.
func (c *Cache[E]) Clear() {
	c.Replace(nil)
}

// Len returns the number of cached entities.
func (c *Cache[E]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
