package caching

import (
	"testing"
	"time"
)

func TestCacheRoundTrip(t *testing.T) {
	c, err := NewCache(t.TempDir(), time.Hour)
	if err != nil {
		t.Fatalf("NewCache() error = %v", err)
	}

	url := "https://api.example.com/projects/p/entries?limit=1000"
	if _, ok := c.Get(url); ok {
		t.Fatal("Get() on empty cache should miss")
	}

	if err := c.Set(url, []byte(`[]`)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	data, ok := c.Get(url)
	if !ok || string(data) != `[]` {
		t.Errorf("Get() = %q, %v, want [] true", data, ok)
	}

	if _, ok := c.Get(url + "&updated_before=x"); ok {
		t.Error("different URL should miss")
	}
}

func TestCacheExpiry(t *testing.T) {
	c, err := NewCache(t.TempDir(), time.Minute)
	if err != nil {
		t.Fatalf("NewCache() error = %v", err)
	}

	url := "https://api.example.com/a"
	if err := c.Set(url, []byte(`[1]`)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	c.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	if _, ok := c.Get(url); ok {
		t.Error("expired entry should miss")
	}

	removed, err := c.Prune()
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if removed != 1 {
		t.Errorf("Prune() removed %d, want 1", removed)
	}
}

func TestNewCacheRejectsZeroTTL(t *testing.T) {
	if _, err := NewCache(t.TempDir(), 0); err == nil {
		t.Error("NewCache() with zero ttl should fail")
	}
}
