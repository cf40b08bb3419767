package mapping

import (
	"sort"
	"strings"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"manifest/internal"
)

const (
	DefaultCacheSize = 4096
	DefaultCacheTTL  = 7 * 24 * time.Hour
)

type cacheEntry struct {
	mapping  internal.FieldMapping
	storedAt time.Time
}

// Cache memoizes AI header mappings. Entries are bounded by an LRU and expire
// lazily: an entry older than the TTL is dropped when it is next read.
type Cache struct {
	entries *lru.Cache[string, cacheEntry]
	ttl     time.Duration
	now     func() time.Time

	hits    atomic.Int64
	misses  atomic.Int64
	expired atomic.Int64
}

type CacheStats struct {
	Size    int
	Hits    int64
	Misses  int64
	Expired int64
}

func NewCache(size int, ttl time.Duration) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	entries, err := lru.New[string, cacheEntry](size)
	if err != nil {
		return nil, err
	}
	return &Cache{entries: entries, ttl: ttl, now: time.Now}, nil
}

// SetClock replaces the time source; tests use it to step past the TTL.
func (c *Cache) SetClock(now func() time.Time) {
	c.now = now
}

// CacheKey identifies a lookup by header and the candidate set offered to the
// collaborator, independent of candidate order.
func CacheKey(header string, candidates []string) string {
	sorted := append([]string(nil), candidates...)
	sort.Strings(sorted)
	return strings.TrimSpace(header) + "\x1f" + strings.Join(sorted, ",")
}

func (c *Cache) Get(key string) (internal.FieldMapping, bool) {
	entry, ok := c.entries.Get(key)
	if !ok {
		c.misses.Add(1)
		return internal.FieldMapping{}, false
	}
	if c.now().Sub(entry.storedAt) > c.ttl {
		c.entries.Remove(key)
		c.expired.Add(1)
		c.misses.Add(1)
		return internal.FieldMapping{}, false
	}
	c.hits.Add(1)
	return entry.mapping, true
}

func (c *Cache) Set(key string, mapping internal.FieldMapping) {
	c.entries.Add(key, cacheEntry{mapping: mapping, storedAt: c.now()})
}

func (c *Cache) Len() int {
	return c.entries.Len()
}

func (c *Cache) Purge() {
	c.entries.Purge()
}

func (c *Cache) Stats() CacheStats {
	return CacheStats{
		Size:    c.entries.Len(),
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Expired: c.expired.Load(),
	}
}
