package templates

import (
	"sync"
	"time"
)

// CacheStats is a point-in-time snapshot of cache occupancy and traffic.
type CacheStats struct {
	Items     int
	Bytes     int64
	MaxItems  int
	MaxBytes  int64
	Hits      int64
	Misses    int64
	Evictions int64
}

type entry struct {
	version        string
	data           []byte
	insertedAt     time.Time
	lastAccessedAt time.Time
	accessCount    int64
}

// Cache is a bounded in-process cache of blank template bytes, keyed by
// storage path. It holds generation *inputs* only; generated artifacts live
// in the durable artifact table, never here.
//
// Eviction is weighted by access frequency, not pure recency: the score is
// accessCount / ageSeconds, and the lowest-scoring entry goes first. A
// template hit often but idle for a moment outlives one loaded once and left
// to age. All scores are computed in one pass against a single clock reading
// before picking the minimum.
type Cache struct {
	mu       sync.Mutex
	entries  map[string]*entry
	maxItems int
	maxBytes int64
	bytes    int64

	hits      int64
	misses    int64
	evictions int64

	nowFunc func() time.Time
}

// NewCache constructs a cache with the given ceilings. Callers own the
// instance and inject it where needed; there is no package-level singleton.
func NewCache(maxItems int, maxBytes int64) *Cache {
	if maxItems <= 0 {
		maxItems = 16
	}
	if maxBytes <= 0 {
		maxBytes = 64 << 20
	}
	return &Cache{
		entries:  make(map[string]*entry),
		maxItems: maxItems,
		maxBytes: maxBytes,
		nowFunc:  time.Now,
	}
}

// Get returns the cached bytes for path if present and the version matches.
// A version mismatch is a miss (forces reload), never a stale return. Hits
// update the entry's access stats.
func (c *Cache) Get(path, expectedVersion string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[path]
	if !ok || (expectedVersion != "" && e.version != expectedVersion) {
		c.misses++
		return nil, false
	}
	e.lastAccessedAt = c.nowFunc()
	e.accessCount++
	c.hits++
	return e.data, true
}

// Set stores template bytes under path, replacing any previous version and
// evicting as needed to respect both ceilings.
func (c *Cache) Set(path string, data []byte, version string) {
	size := int64(len(data))
	if size > c.maxBytes {
		// larger than the whole cache; don't evict everything for it
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.entries[path]; ok {
		c.bytes -= int64(len(old.data))
		delete(c.entries, path)
	}

	for len(c.entries)+1 > c.maxItems || c.bytes+size > c.maxBytes {
		if !c.evictOne() {
			break
		}
	}

	now := c.nowFunc()
	c.entries[path] = &entry{
		version:        version,
		data:           data,
		insertedAt:     now,
		lastAccessedAt: now,
		accessCount:    1,
	}
	c.bytes += size
}

// Invalidate drops the entry for path, if any.
func (c *Cache) Invalidate(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[path]; ok {
		c.bytes -= int64(len(e.data))
		delete(c.entries, path)
	}
}

// Clear drops every entry. Counters survive.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
	c.bytes = 0
}

// Stats returns a snapshot of the cache state.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{
		Items:     len(c.entries),
		Bytes:     c.bytes,
		MaxItems:  c.maxItems,
		MaxBytes:  c.maxBytes,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}

// evictOne removes the entry with the lowest accesses-per-second score.
// Caller holds c.mu.
func (c *Cache) evictOne() bool {
	if len(c.entries) == 0 {
		return false
	}
	now := c.nowFunc()

	var victim string
	lowest := -1.0
	for path, e := range c.entries {
		age := now.Sub(e.insertedAt).Seconds()
		if age < 1 {
			age = 1
		}
		score := float64(e.accessCount) / age
		if lowest < 0 || score < lowest {
			lowest = score
			victim = path
		}
	}

	e := c.entries[victim]
	c.bytes -= int64(len(e.data))
	delete(c.entries, victim)
	c.evictions++
	return true
}
