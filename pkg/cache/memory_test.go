package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(WithMemoryPrefix("test"))

	type payload struct {
		Close float64 `json:"close"`
	}
	if err := c.Set(ctx, "snapshot:analyst", payload{Close: 101.5}, 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	var got payload
	if err := c.Get(ctx, "snapshot:analyst", &got); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Close != 101.5 {
		t.Fatalf("close = %v", got.Close)
	}

	var raw []byte
	if err := c.Get(ctx, "snapshot:analyst", &raw); err != nil || string(raw) != `{"close":101.5}` {
		t.Fatalf("raw get = %s, %v", raw, err)
	}
}

func TestMemoryCacheMissAndDelete(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	var s string
	if err := c.Get(ctx, "nope", &s); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss, got %v", err)
	}
	_ = c.Set(ctx, "k", "v", 0)
	if ok, _ := c.Exists(ctx, "k"); !ok {
		t.Fatalf("expected key to exist")
	}
	_ = c.Delete(ctx, "k")
	if ok, _ := c.Exists(ctx, "k"); ok {
		t.Fatalf("expected key to be gone")
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	_ = c.Set(ctx, "k", "v", time.Minute)
	now = now.Add(2 * time.Minute)

	var s string
	if err := c.Get(ctx, "k", &s); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected expired key to miss, got %v", err)
	}
}

func TestMemoryCacheEvictsOldest(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(WithMemoryMaxSize(2))
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { now = now.Add(time.Second); return now }

	_ = c.Set(ctx, "a", "1", 0)
	_ = c.Set(ctx, "b", "2", 0)
	_ = c.Set(ctx, "c", "3", 0)

	if ok, _ := c.Exists(ctx, "a"); ok {
		t.Fatalf("oldest key should have been evicted")
	}
	if ok, _ := c.Exists(ctx, "c"); !ok {
		t.Fatalf("newest key missing")
	}
}
