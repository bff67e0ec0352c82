// Package cache implements the size- and time-bounded in-process cache used
// for API responses and search results. Eviction is pure LRU by access time;
// expiry is driven by write time. The two clocks are deliberately decoupled:
// reading an entry improves its eviction priority but never extends its TTL,
// so frequently-read-but-stale entries still expire on schedule.
package cache

import (
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultTTL applies to entries stored without an explicit TTL.
	DefaultTTL = 5 * time.Minute

	// DefaultMaxEntries bounds the store before LRU eviction kicks in.
	DefaultMaxEntries = 100

	// DefaultSweepInterval is how often the background janitor removes
	// expired entries.
	DefaultSweepInterval = time.Minute
)

type entry[V any] struct {
	value          V
	writtenAt      time.Time
	lastAccessedAt time.Time
	ttl            time.Duration
}

// Cache is a TTL + LRU bounded store. All methods are safe for concurrent
// use. Construct with New; call Close to stop the background sweep.
type Cache[V any] struct {
	mu         sync.Mutex
	entries    map[string]*entry[V]
	maxEntries int
	defaultTTL time.Duration

	now    func() time.Time
	logger *slog.Logger
	stop   chan struct{}
	once   sync.Once
}

// Option configures a Cache.
type Option[V any] func(*Cache[V])

// WithMaxEntries overrides the capacity bound.
func WithMaxEntries[V any](n int) Option[V] {
	return func(c *Cache[V]) { c.maxEntries = n }
}

// WithDefaultTTL overrides the default entry lifetime.
func WithDefaultTTL[V any](ttl time.Duration) Option[V] {
	return func(c *Cache[V]) { c.defaultTTL = ttl }
}

// WithClock injects a time source for tests.
func WithClock[V any](now func() time.Time) Option[V] {
	return func(c *Cache[V]) { c.now = now }
}

// New creates a cache and starts its periodic sweep. The sweep is pure
// maintenance: it never blocks foreground operations and stops when Close is
// called.
func New[V any](sweepInterval time.Duration, opts ...Option[V]) *Cache[V] {
	c := &Cache[V]{
		entries:    make(map[string]*entry[V]),
		maxEntries: DefaultMaxEntries,
		defaultTTL: DefaultTTL,
		now:        time.Now,
		logger:     slog.Default().With("component", "cache"),
		stop:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	if sweepInterval > 0 {
		go c.sweepLoop(sweepInterval)
	}
	return c
}

// Set stores a value under the default TTL.
func (c *Cache[V]) Set(key string, value V) {
	c.SetTTL(key, value, c.defaultTTL)
}

// SetTTL stores a value with an explicit TTL. When the key is new and the
// store is at capacity, the entry with the oldest access time is evicted
// first, independent of how close any entry is to expiry.
func (c *Cache[V]) SetTTL(key string, value V, ttl time.Duration) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictOldestLocked()
	}

	c.entries[key] = &entry[V]{
		value:          value,
		writtenAt:      now,
		lastAccessedAt: now,
		ttl:            ttl,
	}
}

// Get returns the value for key if present and unexpired. A hit refreshes
// the entry's access time; an expired entry is deleted and reported absent.
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if now.Sub(e.writtenAt) > e.ttl {
		delete(c.entries, key)
		return zero, false
	}

	e.lastAccessedAt = now
	return e.value, true
}

// Delete removes a key, reporting whether it was present.
func (c *Cache[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.entries[key]
	delete(c.entries, key)
	return ok
}

// Len returns the number of physically present entries, expired or not.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear removes all entries.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry[V])
}

// Cleanup sweeps every entry past its TTL and returns the count removed.
func (c *Cache[V]) Cleanup() int {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, e := range c.entries {
		if now.Sub(e.writtenAt) > e.ttl {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Close stops the background sweep. Safe to call more than once.
func (c *Cache[V]) Close() {
	c.once.Do(func() { close(c.stop) })
}

func (c *Cache[V]) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if removed := c.Cleanup(); removed > 0 {
				c.logger.Debug("cache sweep removed expired entries", "removed", removed)
			}
		case <-c.stop:
			return
		}
	}
}

// evictOldestLocked removes the entry with the least recent access.
// Caller holds c.mu.
func (c *Cache[V]) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time

	found := false
	for key, e := range c.entries {
		if !found || e.lastAccessedAt.Before(oldest) {
			oldestKey = key
			oldest = e.lastAccessedAt
			found = true
		}
	}
	// The empty string is a legal key (a whitespace-only query normalizes
	// to it), so presence is tracked separately from the key value.
	if found {
		delete(c.entries, oldestKey)
	}
}
