package backend

import (
	"strings"
	"sync"
)

// Cache memoizes backends by resolved storage path so types that share a
// path share decoded state. Entries live until released.
type Cache struct {
	mu    sync.Mutex
	items map[string]Backend
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{items: make(map[string]Backend)}
}

// Get returns the backend cached for p, building and storing it on a miss.
func (c *Cache) Get(p string, build func() (Backend, error)) (Backend, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if b, ok := c.items[p]; ok {
		return b, nil
	}
	b, err := build()
	if err != nil {
		return nil, err
	}
	c.items[p] = b
	return b, nil
}

// Put stores b under p, replacing any cached backend.
func (c *Cache) Put(p string, b Backend) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[p] = b
}

// Release drops the backend cached for p. The next Get rebuilds it.
func (c *Cache) Release(p string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, p)
}

// ReleaseAffected drops every backend whose root holds the root-relative
// file p and returns how many were dropped.
func (c *Cache) ReleaseAffected(p string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for key, b := range c.items {
		root := b.Root()
		if root == "." || p == root || strings.HasPrefix(p, root+"/") {
			delete(c.items, key)
			n++
		}
	}
	return n
}

// Len returns the number of cached backends.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
