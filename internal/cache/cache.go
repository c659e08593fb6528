// Package cache provides small typed TTL caches used to keep hot singleton
// reads (settings) off the store.
package cache

import (
	"context"
	"sync"
	"time"
)

// Cache is a typed key-value cache with per-entry expiry.
type Cache[V any] interface {
	// Get returns the cached value and whether it was present and fresh.
	Get(ctx context.Context, key string) (V, bool, error)
	Set(ctx context.Context, key string, v V) error
	Delete(ctx context.Context, key string) error
}

type entry[V any] struct {
	v   V
	exp time.Time
}

// Memory is an in-process Cache. Expired entries are dropped lazily on read.
type Memory[V any] struct {
	mu  sync.Mutex
	ttl time.Duration
	now func() time.Time
	m   map[string]entry[V]
}

// NewMemory returns a Memory cache whose entries live for ttl.
func NewMemory[V any](ttl time.Duration) *Memory[V] {
	return &Memory[V]{ttl: ttl, now: time.Now, m: make(map[string]entry[V])}
}

// WithClock replaces the time source. Tests use it to expire entries.
func (c *Memory[V]) WithClock(now func() time.Time) *Memory[V] {
	c.now = now
	return c
}

func (c *Memory[V]) Get(_ context.Context, key string) (V, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.m[key]
	if !ok {
		var zero V
		return zero, false, nil
	}
	if !c.now().Before(e.exp) {
		delete(c.m, key)
		var zero V
		return zero, false, nil
	}
	return e.v, true, nil
}

func (c *Memory[V]) Set(_ context.Context, key string, v V) error {
	c.mu.Lock()
	c.m[key] = entry[V]{v: v, exp: c.now().Add(c.ttl)}
	c.mu.Unlock()
	return nil
}

func (c *Memory[V]) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.m, key)
	c.mu.Unlock()
	return nil
}
