package resolver

import (
	"sort"
	"sync"
	"time"

	"github.com/onnwee/deckwatch/deck"
)

// cache is the TTL-and-capacity bounded resolution cache. The mutex guards
// only map reads and writes; it is never held across a network call.
type cache struct {
	mu         sync.Mutex
	entries    map[string]cacheEntry
	ttl        time.Duration
	maxEntries int
}

type cacheEntry struct {
	deck     deck.Deck
	cachedAt time.Time
}

func newCache(ttl time.Duration, maxEntries int) *cache {
	return &cache{entries: make(map[string]cacheEntry), ttl: ttl, maxEntries: maxEntries}
}

// get returns a copy of the cached deck if present and fresh. Expired entries
// are evicted on read.
func (c *cache) get(key string, now time.Time) (deck.Deck, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return deck.Deck{}, false
	}
	if now.Sub(e.cachedAt) >= c.ttl {
		delete(c.entries, key)
		return deck.Deck{}, false
	}
	return cloneDeck(e.deck), true
}

// put inserts a snapshot, evicting the oldest tenth of the configured
// capacity when the cache is full.
func (c *cache) put(key string, d deck.Deck, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictOldestLocked(c.maxEntries / 10)
	}
	c.entries[key] = cacheEntry{deck: cloneDeck(d), cachedAt: now}
}

func (c *cache) evictOldestLocked(n int) {
	if n < 1 {
		n = 1
	}
	type aged struct {
		key string
		at  time.Time
	}
	all := make([]aged, 0, len(c.entries))
	for k, e := range c.entries {
		all = append(all, aged{key: k, at: e.cachedAt})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].at.Before(all[j].at) })
	if n > len(all) {
		n = len(all)
	}
	for _, a := range all[:n] {
		delete(c.entries, a.key)
	}
}

func (c *cache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *cache) clear() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}

// cloneDeck copies the deck deeply enough that annotation of one consumer's
// copy never bleeds into another's (card slices and rune/enrichment blocks).
func cloneDeck(d deck.Deck) deck.Deck {
	out := d
	if d.Runes != nil {
		r := *d.Runes
		out.Runes = &r
	}
	if d.Enrichment != nil {
		e := *d.Enrichment
		out.Enrichment = &e
	}
	if d.Cards != nil {
		out.Cards = make([]deck.Card, len(d.Cards))
		copy(out.Cards, d.Cards)
		for i := range out.Cards {
			if out.Cards[i].Components != nil {
				comps := make([]deck.Card, len(out.Cards[i].Components))
				copy(comps, out.Cards[i].Components)
				out.Cards[i].Components = comps
			}
		}
	}
	return out
}
