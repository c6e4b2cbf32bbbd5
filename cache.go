// SPDX-License-Identifier: GPL-3.0-or-later

package svcres

import (
	"context"
	"io"
	"sync"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// cacheEntry is one cached [Factory], shared by every outstanding
// [ServiceFactoryCache.Get] handle for its key until refcount drops to
// zero and the entry is evicted.
type cacheEntry[C any, S io.Closer] struct {
	factory  Factory[C, S]
	refcount int
}

// ServiceFactoryCache caches [Factory] instances by key, sharing one
// underlying factory across every concurrent caller holding a reference
// to the same key. Eviction only ever removes entries with a zero
// refcount; when the cache is full and every entry is pinned, Get builds
// a one-shot factory outside the cache instead of blocking or evicting a
// factory still in use.
type ServiceFactoryCache[K comparable, C any, S io.Closer] struct {
	mu      sync.Mutex
	lru     *simplelru.LRU[K, *cacheEntry[C, S]]
	maxSize int
	metrics *cacheMetrics
	closed  bool
}

// NewServiceFactoryCache returns a [*ServiceFactoryCache] holding at most
// maxSize factories. namespace names the cache's metrics ("dtabcache" or
// "namecache").
func NewServiceFactoryCache[K comparable, C any, S io.Closer](namespace string, maxSize int) *ServiceFactoryCache[K, C, S] {
	c := &ServiceFactoryCache[K, C, S]{
		maxSize: maxSize,
	}
	lru, _ := simplelru.NewLRU[K, *cacheEntry[C, S]](maxSize, nil)
	c.lru = lru
	c.metrics = newCacheMetrics(namespace, c.sizeFloat)
	return c
}

func (c *ServiceFactoryCache[K, C, S]) sizeFloat() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return float64(c.lru.Len())
}

// Get returns a [Factory] for key, calling build to construct it on a
// cache miss and sharing the result with every subsequent caller of Get
// for the same key until each one calls Close. build is only invoked on
// a miss. On the cached path build runs under the cache lock, so
// concurrent Gets for the same key call it once; on the one-shot path
// (cache full, every entry pinned) each Get calls build for its own
// uncached factory.
func (c *ServiceFactoryCache[K, C, S]) Get(key K, build func() (Factory[C, S], error)) (Factory[C, S], error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, &ServiceClosedError{}
	}
	if entry, ok := c.lru.Get(key); ok {
		entry.refcount++
		c.mu.Unlock()
		return &cacheHandle[K, C, S]{cache: c, key: key, entry: entry}, nil
	}
	if c.lru.Len() >= c.maxSize {
		if evictKey, ok := c.findEvictableLocked(); ok {
			c.evictLocked(evictKey)
		} else {
			c.mu.Unlock()
			factory, err := build()
			if err != nil {
				return nil, err
			}
			c.metrics.oneshots.Inc()
			return &cacheHandle[K, C, S]{cache: c, factory: factory, oneShot: true}, nil
		}
	}
	factory, err := build()
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	entry := &cacheEntry[C, S]{factory: factory, refcount: 1}
	c.lru.Add(key, entry)
	c.mu.Unlock()
	return &cacheHandle[K, C, S]{cache: c, key: key, entry: entry}, nil
}

// findEvictableLocked returns the oldest key whose entry has a zero
// refcount, or ok=false if every cached entry is currently pinned.
func (c *ServiceFactoryCache[K, C, S]) findEvictableLocked() (K, bool) {
	for _, k := range c.lru.Keys() {
		entry, ok := c.lru.Peek(k)
		if ok && entry.refcount == 0 {
			return k, true
		}
	}
	var zero K
	return zero, false
}

// evictLocked removes key from the cache and closes its factory in the
// background. Callers must hold c.mu and have already checked refcount==0.
func (c *ServiceFactoryCache[K, C, S]) evictLocked(key K) {
	entry, ok := c.lru.Peek(key)
	if !ok {
		return
	}
	c.lru.Remove(key)
	c.metrics.evicted.Inc()
	go func() { _ = entry.factory.Close(context.Background()) }()
}

// release decrements key's refcount. If the entry is no longer in the
// cache, the cache is still open, and the refcount reaches zero, it closes
// the factory. After [ServiceFactoryCache.Close] it closes nothing, since
// Close has already closed every cached factory.
func (c *ServiceFactoryCache[K, C, S]) release(key K, entry *cacheEntry[C, S]) {
	c.mu.Lock()
	entry.refcount--
	_, stillCached := c.lru.Peek(key)
	closed := c.closed
	c.mu.Unlock()
	if !stillCached && !closed && entry.refcount == 0 {
		_ = entry.factory.Close(context.Background())
	}
}

// Close closes every cached factory and rejects further [Get] calls.
func (c *ServiceFactoryCache[K, C, S]) Close(ctx context.Context) error {
	c.mu.Lock()
	c.closed = true
	keys := c.lru.Keys()
	entries := make([]*cacheEntry[C, S], 0, len(keys))
	for _, k := range keys {
		if entry, ok := c.lru.Peek(k); ok {
			entries = append(entries, entry)
		}
	}
	c.lru.Purge()
	c.mu.Unlock()

	var firstErr error
	for _, entry := range entries {
		if err := entry.factory.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// cacheHandle is the [Factory] handle returned by [ServiceFactoryCache.Get].
// Acquire and IsAvailable delegate straight to the shared factory; Close
// releases this handle's reference instead of closing the shared factory
// outright, except for a one-shot handle, which owns its factory outright.
type cacheHandle[K comparable, C any, S io.Closer] struct {
	cache   *ServiceFactoryCache[K, C, S]
	key     K
	entry   *cacheEntry[C, S]
	factory Factory[C, S] // set only when oneShot
	oneShot bool
	once    sync.Once
}

var _ Factory[any, io.Closer] = (*cacheHandle[int, any, io.Closer])(nil)

func (h *cacheHandle[K, C, S]) underlying() Factory[C, S] {
	if h.oneShot {
		return h.factory
	}
	return h.entry.factory
}

// Acquire implements [Factory].
func (h *cacheHandle[K, C, S]) Acquire(ctx context.Context, conn C) (S, error) {
	return h.underlying().Acquire(ctx, conn)
}

// IsAvailable implements [Factory].
func (h *cacheHandle[K, C, S]) IsAvailable() bool {
	return h.underlying().IsAvailable()
}

// Close implements [Factory]: releases this handle's reference to the
// cached factory, or closes the factory directly if this handle is a
// one-shot built outside the cache. Idempotent.
func (h *cacheHandle[K, C, S]) Close(ctx context.Context) error {
	var err error
	h.once.Do(func() {
		if h.oneShot {
			err = h.factory.Close(ctx)
			return
		}
		h.cache.release(h.key, h.entry)
	})
	return err
}
