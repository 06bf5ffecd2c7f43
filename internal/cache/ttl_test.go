package cache

import (
	"testing"
	"time"

	"github.com/wattshare/wattshare/internal/clock"
)

func TestGetMissAndSet(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	c := NewTTLCacheWithClock[string, int](clk)

	if _, ok := c.Get("k"); ok {
		t.Fatal("expected miss on empty cache")
	}

	c.Set("k", 42, 5*time.Second)
	v, ok := c.Get("k")
	if !ok || v != 42 {
		t.Fatalf("got %v %v, want 42 true", v, ok)
	}
}

func TestEntryExpires(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	c := NewTTLCacheWithClock[string, int](clk)

	c.Set("k", 1, 5*time.Second)

	clk.Advance(5 * time.Second)
	if _, ok := c.Get("k"); !ok {
		t.Fatal("entry at exactly its deadline is still live")
	}

	clk.Advance(time.Nanosecond)
	if _, ok := c.Get("k"); ok {
		t.Fatal("entry past its deadline must be gone")
	}
}

func TestZeroTTLIsNotStored(t *testing.T) {
	c := NewTTLCache[string, int]()
	c.Set("k", 1, 0)
	if _, ok := c.Get("k"); ok {
		t.Fatal("zero ttl must not store")
	}
}

func TestInvalidate(t *testing.T) {
	c := NewTTLCache[string, int]()
	c.Set("a", 1, time.Minute)
	c.Set("b", 2, time.Minute)

	c.Invalidate("a")
	if _, ok := c.Get("a"); ok {
		t.Fatal("invalidated key must miss")
	}
	if _, ok := c.Get("b"); !ok {
		t.Fatal("other keys survive a single invalidate")
	}

	c.InvalidateAll()
	if _, ok := c.Get("b"); ok {
		t.Fatal("InvalidateAll must clear everything")
	}
}
