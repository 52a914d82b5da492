package overpass

import (
	"context"
	"fmt"
	"sync"

	"github.com/alluvium/nepal-weap-prep/internal/domain"
	"github.com/alluvium/nepal-weap-prep/internal/observability"
)

// CachedLookup wraps a LocationLookup with an in-memory LRU cache.
type CachedLookup struct {
	inner   domain.LocationLookup
	cache   *lruCache[[]domain.AmenityPoint]
	metrics *observability.Metrics
}

// NewCachedLookup creates a cache decorator around a lookup.
func NewCachedLookup(inner domain.LocationLookup, maxEntries int, metrics *observability.Metrics) *CachedLookup {
	return &CachedLookup{
		inner:   inner,
		cache:   newLRUCache[[]domain.AmenityPoint](maxEntries),
		metrics: metrics,
	}
}

func (c *CachedLookup) FindPoints(ctx context.Context, tags map[string]string, bbox domain.BBox) ([]domain.AmenityPoint, error) {
	key := fmt.Sprintf("%s|%.6f,%.6f,%.6f,%.6f", tagFilter(tags), bbox.MinLat, bbox.MinLon, bbox.MaxLat, bbox.MaxLon)
	if points, ok := c.cache.get(key); ok {
		c.metrics.LookupCache.WithLabelValues("hit").Inc()
		return clonePoints(points), nil
	}
	c.metrics.LookupCache.WithLabelValues("miss").Inc()

	points, err := c.inner.FindPoints(ctx, tags, bbox)
	if err != nil {
		return nil, err
	}
	// Empty answers are often a rate-limited server; keep them retryable.
	if len(points) > 0 {
		c.cache.put(key, clonePoints(points))
	}
	return points, nil
}

func clonePoints(points []domain.AmenityPoint) []domain.AmenityPoint {
	out := make([]domain.AmenityPoint, len(points))
	copy(out, points)
	return out
}

// lruCache is a thread-safe LRU cache keyed by string.
type lruCache[V any] struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry[V]
	head       *entry[V] // most recently used
	tail       *entry[V] // least recently used
}

type entry[V any] struct {
	key   string
	value V
	prev  *entry[V]
	next  *entry[V]
}

func newLRUCache[V any](maxEntries int) *lruCache[V] {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &lruCache[V]{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry[V]),
	}
}

func (c *lruCache[V]) get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache[V]) put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry[V]{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache[V]) moveToFront(e *entry[V]) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache[V]) addToFront(e *entry[V]) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache[V]) remove(e *entry[V]) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache[V]) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
