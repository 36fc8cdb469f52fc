package resolver

import (
	"fmt"
	"testing"
	"time"

	"github.com/onnwee/deckwatch/deck"
)

func TestCacheExpiry(t *testing.T) {
	c := newCache(30*time.Minute, 100)
	now := time.Now()
	c.put("k", deck.Deck{Class: "Mage"}, now)

	if _, ok := c.get("k", now.Add(29*time.Minute)); !ok {
		t.Fatal("expected hit before ttl")
	}
	if _, ok := c.get("k", now.Add(31*time.Minute)); ok {
		t.Fatal("expected miss after ttl")
	}
	if c.len() != 0 {
		t.Fatalf("expired entry not evicted, len=%d", c.len())
	}
}

func TestCacheCapacityEvictsOldest(t *testing.T) {
	c := newCache(time.Hour, 100)
	now := time.Now()
	for i := 0; i < 100; i++ {
		c.put(fmt.Sprintf("k%d", i), deck.Deck{}, now.Add(time.Duration(i)*time.Second))
	}
	c.put("overflow", deck.Deck{}, now.Add(200*time.Second))

	// A tenth of capacity goes, oldest first.
	if c.len() != 91 {
		t.Fatalf("len = %d, want 91", c.len())
	}
	for i := 0; i < 10; i++ {
		if _, ok := c.get(fmt.Sprintf("k%d", i), now); ok {
			t.Fatalf("k%d should have been evicted", i)
		}
	}
	if _, ok := c.get("k10", now); !ok {
		t.Fatal("k10 should survive")
	}
	if _, ok := c.get("overflow", now); !ok {
		t.Fatal("overflow should be present")
	}
}

func TestCacheReturnsClones(t *testing.T) {
	c := newCache(time.Hour, 100)
	now := time.Now()
	c.put("k", deck.Deck{Cards: []deck.Card{{ID: 1, Name: "Wisp"}}}, now)

	first, _ := c.get("k", now)
	first.Cards[0].Missing = true

	second, _ := c.get("k", now)
	if second.Cards[0].Missing {
		t.Fatal("mutation of a returned deck leaked into the cache")
	}
}

func TestCacheClear(t *testing.T) {
	c := newCache(time.Hour, 100)
	c.put("k", deck.Deck{}, time.Now())
	c.clear()
	if c.len() != 0 {
		t.Fatalf("len = %d after clear", c.len())
	}
}
