package outbound

import (
	"fmt"
	"testing"

	"beaconmesh/internal/mesh"
)

func TestCachePutGet(t *testing.T) {
	c := NewCache(10)
	c.Put("id1", mesh.Message{Content: "a"})
	m, ok := c.Get("id1")
	if !ok || m.Content != "a" {
		t.Fatalf("get = %q, %v", m.Content, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Fatalf("missing id resolved")
	}
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewCache(50)
	for i := 0; i < 50; i++ {
		c.Put(fmt.Sprintf("id%d", i), mesh.Message{})
	}
	// Touch id0 so it is the most recently used, then overflow.
	if _, ok := c.Get("id0"); !ok {
		t.Fatalf("id0 missing before overflow")
	}
	c.Put("id50", mesh.Message{})
	if _, ok := c.Get("id0"); !ok {
		t.Fatalf("recently used entry evicted")
	}
	if _, ok := c.Get("id1"); ok {
		t.Fatalf("least recently used entry survived")
	}
	if c.Len() != 50 {
		t.Fatalf("cache size = %d, want 50", c.Len())
	}
}

func TestCachePutRefreshesExisting(t *testing.T) {
	c := NewCache(2)
	c.Put("a", mesh.Message{Content: "1"})
	c.Put("b", mesh.Message{})
	c.Put("a", mesh.Message{Content: "2"})
	c.Put("c", mesh.Message{})
	// "b" was coldest once "a" got refreshed.
	if _, ok := c.Get("b"); ok {
		t.Fatalf("cold entry survived")
	}
	m, ok := c.Get("a")
	if !ok || m.Content != "2" {
		t.Fatalf("refreshed entry = %q, %v", m.Content, ok)
	}
}

func TestCacheDelete(t *testing.T) {
	c := NewCache(10)
	c.Put("a", mesh.Message{})
	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Fatalf("deleted entry resolved")
	}
	c.Delete("a") // no-op
}
