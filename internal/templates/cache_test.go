package templates

import (
	"fmt"
	"testing"
	"time"
)

func newTestCache(maxItems int, maxBytes int64) (*Cache, *time.Time) {
	c := NewCache(maxItems, maxBytes)
	now := time.Unix(1_700_000_000, 0)
	c.nowFunc = func() time.Time { return now }
	return c, &now
}

func TestGetSetRoundTrip(t *testing.T) {
	c, _ := newTestCache(4, 1<<20)

	if _, ok := c.Get("templates/poa-adult/v1", "v1"); ok {
		t.Fatal("expected miss on empty cache")
	}

	c.Set("templates/poa-adult/v1", []byte("form-bytes"), "v1")

	data, ok := c.Get("templates/poa-adult/v1", "v1")
	if !ok {
		t.Fatal("expected hit")
	}
	if string(data) != "form-bytes" {
		t.Fatalf("wrong bytes: %q", data)
	}

	stats := c.Stats()
	if stats.Items != 1 || stats.Hits != 1 || stats.Misses != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestVersionMismatchIsMiss(t *testing.T) {
	c, _ := newTestCache(4, 1<<20)
	c.Set("templates/poa-adult/v1", []byte("old"), "v1")

	if _, ok := c.Get("templates/poa-adult/v1", "v2"); ok {
		t.Fatal("stale version must be a miss, never a stale return")
	}
	if _, ok := c.Get("templates/poa-adult/v1", "v1"); !ok {
		t.Fatal("matching version should still hit")
	}
}

func TestItemCountCeiling(t *testing.T) {
	c, _ := newTestCache(3, 1<<20)

	for i := 0; i < 10; i++ {
		c.Set(fmt.Sprintf("t%d", i), []byte("x"), "v1")
	}

	stats := c.Stats()
	if stats.Items > 3 {
		t.Fatalf("item ceiling breached: %d", stats.Items)
	}
	if stats.Evictions == 0 {
		t.Fatal("expected evictions")
	}
}

func TestByteSizeCeiling(t *testing.T) {
	c, _ := newTestCache(100, 100)

	for i := 0; i < 10; i++ {
		c.Set(fmt.Sprintf("t%d", i), make([]byte, 40), "v1")
	}

	stats := c.Stats()
	if stats.Bytes > 100 {
		t.Fatalf("byte ceiling breached: %d", stats.Bytes)
	}
	if stats.Items > 2 {
		t.Fatalf("too many items for 100-byte ceiling: %d", stats.Items)
	}
}

func TestOversizeEntryRejected(t *testing.T) {
	c, _ := newTestCache(4, 100)
	c.Set("small", []byte("abc"), "v1")
	c.Set("huge", make([]byte, 200), "v1")

	if _, ok := c.Get("huge", "v1"); ok {
		t.Fatal("oversize entry should not be cached")
	}
	if _, ok := c.Get("small", "v1"); !ok {
		t.Fatal("oversize insert must not evict existing entries")
	}
}

func TestWeightedEviction_HotEntrySurvives(t *testing.T) {
	c, now := newTestCache(2, 1<<20)

	// "hot" is older but hit many times; "cold" is newer but hit once
	c.Set("hot", []byte("h"), "v1")
	*now = now.Add(10 * time.Second)
	for i := 0; i < 50; i++ {
		c.Get("hot", "v1")
	}
	c.Set("cold", []byte("c"), "v1")
	*now = now.Add(10 * time.Second)

	// hot: 51 accesses / 20s; cold: 1 access / 10s, so cold scores lower
	c.Set("new", []byte("n"), "v1")

	if _, ok := c.Get("hot", "v1"); !ok {
		t.Fatal("frequently-hit entry was evicted by pure recency")
	}
	if _, ok := c.Get("cold", "v1"); ok {
		t.Fatal("cold entry should have been the eviction victim")
	}
}

func TestInvalidateAndClear(t *testing.T) {
	c, _ := newTestCache(4, 1<<20)
	c.Set("a", []byte("1"), "v1")
	c.Set("b", []byte("2"), "v1")

	c.Invalidate("a")
	if _, ok := c.Get("a", "v1"); ok {
		t.Fatal("invalidated entry still present")
	}

	c.Clear()
	stats := c.Stats()
	if stats.Items != 0 || stats.Bytes != 0 {
		t.Fatalf("clear left residue: %+v", stats)
	}
}

func TestReplaceSamePathAccountsBytes(t *testing.T) {
	c, _ := newTestCache(4, 1<<20)
	c.Set("a", make([]byte, 100), "v1")
	c.Set("a", make([]byte, 10), "v2")

	stats := c.Stats()
	if stats.Items != 1 {
		t.Fatalf("expected single entry, got %d", stats.Items)
	}
	if stats.Bytes != 10 {
		t.Fatalf("byte accounting drifted on replace: %d", stats.Bytes)
	}
}
