// Package cache memoizes analysis results per domain with a TTL and a
// least-recently-used size bound.
package cache

import (
	"errors"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"

	"github.com/tbckr/domainlens/internal/analysis"
	"github.com/tbckr/domainlens/internal/validate"
)

// Defaults applied when Options leaves a field at zero.
const (
	DefaultTTL        = 15 * time.Minute
	DefaultMaxEntries = 1024
)

// ErrMiss is returned by Get when no live entry exists for a domain.
var ErrMiss = errors.New("cache miss")

// ErrNilResult is returned by Put when asked to store a nil result.
var ErrNilResult = errors.New("cannot cache nil result")

// Options configures a Cache.
type Options struct {
	DefaultTTL time.Duration
	MaxEntries int
}

// Option customises a Cache beyond Options.
type Option func(*Cache)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// entry is replaced on refresh, never mutated.
type entry struct {
	value     *analysis.Result
	expiresAt time.Time
}

// Cache is safe for concurrent use. Stored results are owned by the cache;
// callers receive shared read-only pointers from Get.
type Cache struct {
	mu         sync.Mutex
	lru        *simplelru.LRU[validate.Domain, entry]
	defaultTTL time.Duration
	now        func() time.Time
}

// New returns an empty cache.
func New(opts Options, options ...Option) (*Cache, error) {
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = DefaultTTL
	}
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultMaxEntries
	}
	lru, err := simplelru.NewLRU[validate.Domain, entry](opts.MaxEntries, nil)
	if err != nil {
		return nil, err
	}
	c := &Cache{lru: lru, defaultTTL: opts.DefaultTTL, now: time.Now}
	for _, o := range options {
		o(c)
	}
	return c, nil
}

// DefaultTTL returns the TTL used by Put when none is given.
func (c *Cache) DefaultTTL() time.Duration { return c.defaultTTL }

// Get returns the live entry for d, or ErrMiss. An entry found expired is
// removed and reported as a miss.
func (c *Cache) Get(d validate.Domain) (*analysis.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lru.Get(d)
	if !ok {
		return nil, ErrMiss
	}
	if !c.now().Before(e.expiresAt) {
		c.lru.Remove(d)
		return nil, ErrMiss
	}
	return e.value, nil
}

// Put stores a copy of r under d, replacing any existing entry. A ttl <= 0
// selects the default TTL. The least recently used entry is evicted when
// the cache is full.
func (c *Cache) Put(d validate.Domain, r *analysis.Result, ttl time.Duration) error {
	if r == nil {
		return ErrNilResult
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	e := entry{value: r.Clone(), expiresAt: c.now().Add(ttl)}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(d, e)
	return nil
}

// Invalidate removes the entry for d. It reports whether one existed.
func (c *Cache) Invalidate(d validate.Domain) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Remove(d)
}

// Len returns the number of entries, including expired ones not yet removed.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Purge removes every expired entry and returns how many were removed.
func (c *Cache) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for _, k := range c.lru.Keys() {
		e, ok := c.lru.Peek(k)
		if ok && !now.Before(e.expiresAt) {
			c.lru.Remove(k)
			removed++
		}
	}
	return removed
}
