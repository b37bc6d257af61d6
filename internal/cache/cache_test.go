package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

// fixedClock lets tests control entry age deterministically.
type fixedClock struct {
	t time.Time
}

func (c *fixedClock) now() time.Time          { return c.t }
func (c *fixedClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestCache(maxBytes int64, ttl time.Duration) (*ContentCache, *fixedClock) {
	clock := &fixedClock{t: time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)}
	c := New(maxBytes, ttl)
	c.now = clock.now
	return c, clock
}

func countingLoader(content string) (Loader, *int) {
	calls := 0
	return func(context.Context) (string, error) {
		calls++
		return content, nil
	}, &calls
}

func TestGet_HitWithinTTL(t *testing.T) {
	c, clock := newTestCache(1024, time.Hour)
	load, calls := countingLoader("payload")

	for i := 0; i < 3; i++ {
		got, err := c.Get(context.Background(), "k", load)
		if err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
		if got != "payload" {
			t.Fatalf("got %q", got)
		}
		clock.advance(time.Minute)
	}
	if *calls != 1 {
		t.Fatalf("loader calls: got %d want 1", *calls)
	}

	stats := c.Stats()
	if stats.Hits != 2 || stats.Misses != 1 {
		t.Fatalf("stats: %+v", stats)
	}
}

func TestGet_TTLExpiryReloads(t *testing.T) {
	c, clock := newTestCache(1024, time.Hour)
	load, calls := countingLoader("payload")

	if _, err := c.Get(context.Background(), "k", load); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	clock.advance(time.Hour + time.Second)
	if _, err := c.Get(context.Background(), "k", load); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if *calls != 2 {
		t.Fatalf("loader calls after expiry: got %d want 2", *calls)
	}
}

func TestGet_LoaderErrorPropagates(t *testing.T) {
	c, _ := newTestCache(1024, time.Hour)
	boom := errors.New("boom")

	_, err := c.Get(context.Background(), "k", func(context.Context) (string, error) {
		return "", boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("want loader error, got %v", err)
	}
	if s := c.Stats(); s.Entries != 0 {
		t.Fatalf("failed load must not be stored: %+v", s)
	}
}

func TestEviction_OldestFirstToNinetyPercent(t *testing.T) {
	// Ceiling 100 bytes; 90% target = 90 bytes.
	c, clock := newTestCache(100, time.Hour)
	ctx := context.Background()

	put := func(key string, size int) {
		_, err := c.Get(ctx, key, func(context.Context) (string, error) {
			return strings.Repeat("x", size), nil
		})
		if err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
		clock.advance(time.Second)
	}

	put("a", 40) // oldest
	put("b", 40)
	put("c", 40) // projected 120 > 100: evicts "a" to make room

	stats := c.Stats()
	if stats.Evictions == 0 {
		t.Fatalf("expected evictions, got %+v", stats)
	}
	if stats.Bytes > 100 {
		t.Fatalf("total above ceiling: %+v", stats)
	}

	// "a" must be the evicted one: a fresh Get on it calls the loader again,
	// while the newest entry is still served from cache.
	loadA, callsA := countingLoader("aa")
	if _, err := c.Get(ctx, "a", loadA); err != nil {
		t.Fatalf("get a: %v", err)
	}
	if *callsA != 1 {
		t.Fatalf("expected reload of evicted oldest entry")
	}
}

func TestGet_ConcurrentAccess(t *testing.T) {
	c, _ := newTestCache(1<<20, time.Hour)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("k%d", j%10)
				got, err := c.Get(ctx, key, func(context.Context) (string, error) {
					return key + "-content", nil
				})
				if err != nil || got != key+"-content" {
					t.Errorf("get %s: %q %v", key, got, err)
					return
				}
			}
		}(i)
	}
	wg.Wait()
}
