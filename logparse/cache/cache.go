// SPDX-License-Identifier: MIT

// Package cache provides a compile-once store for pattern matchers.
package cache

import (
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// CompileFunc builds the value for a key. It must be a pure function of key.
type CompileFunc[V any] func(key string) (V, error)

// CompileHook observes every compilation the cache performs.
type CompileHook func(key string, took time.Duration, err error)

// Option configures a Cache.
type Option func(*options)

type options struct {
	hook CompileHook
}

// WithCompileHook registers a hook called after each compilation.
func WithCompileHook(hook CompileHook) Option {
	return func(o *options) {
		o.hook = hook
	}
}

// Cache maps a pattern source to its compiled form. Entries are created on
// first request and live as long as the cache. Concurrent first requests for
// the same key share one compilation and observe the same stored value.
// Failed compilations are not stored.
type Cache[V any] struct {
	compile CompileFunc[V]
	hook    CompileHook

	mu      sync.RWMutex
	entries map[string]V
	group   singleflight.Group
}

// New creates a Cache that compiles missing keys with compile.
func New[V any](compile CompileFunc[V], opts ...Option) *Cache[V] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	return &Cache[V]{
		compile: compile,
		hook:    o.hook,
		entries: make(map[string]V),
	}
}

// Get returns the compiled value for key, compiling it on first use.
func (c *Cache[V]) Get(key string) (V, error) {
	if v, ok := c.lookup(key); ok {
		return v, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		// A caller that lost the race to an earlier flight finds the value here.
		if v, ok := c.lookup(key); ok {
			return v, nil
		}

		start := time.Now()
		v, err := c.compile(key)
		if c.hook != nil {
			c.hook(key, time.Since(start), err)
		}
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.entries[key] = v
		c.mu.Unlock()
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return v.(V), nil
}

func (c *Cache[V]) lookup(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

// Len returns the number of stored entries.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// contains reports whether key has a stored entry.
func (c *Cache[V]) contains(key string) bool {
	_, ok := c.lookup(key)
	return ok
}
