// Package cache provides a bounded LRU cache with optional expiry. It backs
// the page image store and the rendered surah text of the API server.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// Cache is a concurrency-safe key/value cache.
type Cache[K comparable, V any] interface {
	Get(key K) (V, bool)
	Put(key K, value V)
	Remove(key K)
	Clear()
	Len() int
	Stats() Stats
}

// Stats is a point-in-time view of cache counters.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Size      int
	MaxSize   int
}

// Config bounds a cache.
type Config struct {
	// MaxSize caps the number of entries. Zero or negative means unbounded.
	MaxSize int

	// TTL expires entries this long after their last Put. Zero disables
	// expiry.
	TTL time.Duration

	// OnEvict, when set, sees every entry leaving the cache through
	// capacity eviction, expiry or Remove. Clear does not call it.
	OnEvict func(key, value any)
}

// DefaultConfig holds 64 entries for ten minutes, enough for the pages of
// the longest surah.
func DefaultConfig() Config {
	return Config{MaxSize: 64, TTL: 10 * time.Minute}
}

type item[K comparable, V any] struct {
	key     K
	value   V
	expires time.Time // zero when the cache has no TTL
}

func (it *item[K, V]) expired(now time.Time) bool {
	return !it.expires.IsZero() && now.After(it.expires)
}

type lruCache[K comparable, V any] struct {
	mu    sync.Mutex
	cfg   Config
	order *list.List // front is most recently used
	items map[K]*list.Element

	hits, misses, evictions int64
}

// NewLRUCache returns an empty cache bounded by config.
func NewLRUCache[K comparable, V any](config Config) Cache[K, V] {
	config.MaxSize = max(config.MaxSize, 0)
	return &lruCache[K, V]{
		cfg:   config,
		order: list.New(),
		items: make(map[K]*list.Element),
	}
}

func (c *lruCache[K, V]) deadline() time.Time {
	if c.cfg.TTL <= 0 {
		return time.Time{}
	}
	return time.Now().Add(c.cfg.TTL)
}

func (c *lruCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		it := el.Value.(*item[K, V])
		if !it.expired(time.Now()) {
			c.order.MoveToFront(el)
			c.hits++
			return it.value, true
		}
		c.drop(el)
	}
	c.misses++
	var zero V
	return zero, false
}

func (c *lruCache[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		it := el.Value.(*item[K, V])
		it.value, it.expires = value, c.deadline()
		c.order.MoveToFront(el)
		return
	}

	c.items[key] = c.order.PushFront(&item[K, V]{key: key, value: value, expires: c.deadline()})
	if c.cfg.MaxSize > 0 && c.order.Len() > c.cfg.MaxSize {
		c.drop(c.order.Back())
		c.evictions++
	}
}

func (c *lruCache[K, V]) Remove(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.drop(el)
	}
}

func (c *lruCache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.items)
	c.order.Init()
}

func (c *lruCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *lruCache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Size:      c.order.Len(),
		MaxSize:   c.cfg.MaxSize,
	}
}

// drop unlinks el. Callers hold mu.
func (c *lruCache[K, V]) drop(el *list.Element) {
	it := c.order.Remove(el).(*item[K, V])
	delete(c.items, it.key)
	if c.cfg.OnEvict != nil {
		c.cfg.OnEvict(it.key, it.value)
	}
}

// Fetch returns the cached value for key, or calls load and caches its
// result. Errors are returned without being cached.
func Fetch[K comparable, V any](c Cache[K, V], key K, load func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := load()
	if err != nil {
		return v, err
	}
	c.Put(key, v)
	return v, nil
}
