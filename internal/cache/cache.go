package cache

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/guttosm/idxpulse/internal/logger"
)

// Loader produces the content for a cache key on a miss. Loader errors
// propagate to the caller; nothing is stored on failure.
type Loader func(ctx context.Context) (string, error)

// Stats is a snapshot of the cache counters, exposed for observability.
type Stats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
	Entries   int   `json:"entries"`
	Bytes     int64 `json:"bytes"`
}

// entry is one cached download. Content is an immutable string, so readers
// get copy-out semantics for free and eviction can never invalidate a value
// a concurrent caller already holds.
type entry struct {
	content    string
	size       int64
	insertedAt time.Time
}

// ContentCache is a TTL- and size-bounded cache of raw downloaded text,
// shared by every calculator in a run to avoid redundant remote reads.
//
// Semantics:
//   - Entries older than the TTL are treated as misses on access; they are
//     not proactively removed until room is needed.
//   - Before an insert that would push total size over the ceiling, entries
//     are evicted oldest-first until projected usage is at most 90% of the
//     ceiling. The 10% slack avoids evicting on every subsequent insert.
//
// Safe for concurrent use.
type ContentCache struct {
	mu       sync.Mutex
	entries  map[string]entry
	total    int64
	maxBytes int64
	ttl      time.Duration

	hits      int64
	misses    int64
	evictions int64

	now func() time.Time // injectable for tests
}

// New creates a ContentCache bounded by maxBytes total content size and a
// per-entry ttl.
func New(maxBytes int64, ttl time.Duration) *ContentCache {
	return &ContentCache{
		entries:  make(map[string]entry),
		maxBytes: maxBytes,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Get returns the cached content for key, invoking load on a miss (absent
// key or expired entry) and storing the result. A loader error is returned
// unchanged and leaves the cache untouched.
func (c *ContentCache) Get(ctx context.Context, key string, load Loader) (string, error) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		if c.now().Sub(e.insertedAt) < c.ttl {
			c.hits++
			c.mu.Unlock()
			return e.content, nil
		}
		// Expired: drop it now so the reload below is a plain insert.
		c.total -= e.size
		delete(c.entries, key)
	}
	c.misses++
	c.mu.Unlock()

	content, err := load(ctx)
	if err != nil {
		return "", err
	}
	c.put(key, content)
	return content, nil
}

// put inserts content under key, evicting oldest entries first when the
// projected total would exceed the configured ceiling.
func (c *ContentCache) put(key, content string) {
	size := int64(len(content))

	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.entries[key]; ok {
		c.total -= old.size
	}

	if c.maxBytes > 0 && c.total+size > c.maxBytes {
		c.evictLocked(c.maxBytes*9/10 - size)
	}

	c.entries[key] = entry{content: content, size: size, insertedAt: c.now()}
	c.total += size
}

// evictLocked removes entries in ascending insertion-time order until the
// total is at most target. Caller holds c.mu.
func (c *ContentCache) evictLocked(target int64) {
	if target < 0 {
		target = 0
	}

	type aged struct {
		key        string
		size       int64
		insertedAt time.Time
	}
	victims := make([]aged, 0, len(c.entries))
	for k, e := range c.entries {
		victims = append(victims, aged{key: k, size: e.size, insertedAt: e.insertedAt})
	}
	sort.Slice(victims, func(i, j int) bool {
		return victims[i].insertedAt.Before(victims[j].insertedAt)
	})

	for _, v := range victims {
		if c.total <= target {
			break
		}
		delete(c.entries, v.key)
		c.total -= v.size
		c.evictions++
		logger.L().Debug().Str("key", v.key).Int64("size", v.size).Msg("cache evict")
	}
}

// Stats returns a snapshot of the cache counters.
func (c *ContentCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Entries:   len(c.entries),
		Bytes:     c.total,
	}
}
