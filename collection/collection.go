// Package collection maintains the owned-cards snapshot and reconciles
// resolved decks against it: per-card missing flags plus dust totals.
package collection

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/onnwee/deckwatch/deck"
	"github.com/onnwee/deckwatch/telemetry"
)

// Source supplies the full owned-cards map, keyed by card id.
type Source interface {
	Load(ctx context.Context) (map[int]int, error)
}

// Options toggle the individual reconciliation outputs.
type Options struct {
	CheckCollection    bool
	CalculateTotalDust bool
	CalculateDustNeed  bool
}

// refreshInterval is how long a snapshot stays fresh before an annotate call
// attempts a wholesale reload.
const refreshInterval = 5 * time.Minute

// Snapshot is the current owned-cards state. Refreshes replace it wholesale;
// a failed refresh keeps the previous snapshot. Safe for concurrent use.
type Snapshot struct {
	mu        sync.RWMutex
	counts    map[int]int
	fetchedAt time.Time
	present   bool

	src  Source
	opts Options
}

// NewSnapshot builds a snapshot around src. src may be nil (push-only).
func NewSnapshot(src Source, opts Options) *Snapshot {
	return &Snapshot{src: src, opts: opts}
}

// ensureFresh reloads the snapshot when it is absent or older than the
// refresh interval. At most one reload per interval; failures keep the
// previous snapshot.
func (s *Snapshot) ensureFresh(ctx context.Context) {
	if s.src == nil {
		return
	}
	s.mu.RLock()
	fresh := s.present && time.Since(s.fetchedAt) < refreshInterval
	s.mu.RUnlock()
	if fresh {
		return
	}
	_ = s.Refresh(ctx)
}

// Refresh replaces the snapshot from the source. On failure the previous
// snapshot stays in place and the error is returned.
func (s *Snapshot) Refresh(ctx context.Context) error {
	if s.src == nil {
		return nil
	}
	counts, err := s.src.Load(ctx)
	if err != nil {
		slog.Warn("collection refresh failed, keeping previous snapshot", slog.Any("err", err))
		return err
	}
	s.Set(counts)
	slog.Debug("collection snapshot refreshed", slog.Int("cards", len(counts)))
	return nil
}

// Set replaces the snapshot wholesale, e.g. from a pushed payload.
func (s *Snapshot) Set(counts map[int]int) {
	s.mu.Lock()
	s.counts = counts
	s.fetchedAt = time.Now()
	s.present = true
	s.mu.Unlock()
	telemetry.SetSnapshotAge(0)
}

// Present reports whether any snapshot has ever been loaded.
func (s *Snapshot) Present() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.present
}

// Age returns how old the current snapshot is, or zero when absent.
func (s *Snapshot) Age() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.present {
		return 0
	}
	return time.Since(s.fetchedAt)
}

// Owned returns how many copies of a card id the collection holds.
func (s *Snapshot) Owned(id int) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.counts[id]
}

// Annotate reconciles a deck against the snapshot in place: Missing flags on
// cards and components, dust needed for unowned copies, and the full crafting
// cost of the list. A stale or absent snapshot gets one reload attempt first.
// With no snapshot the deck keeps Costs.Known=false and no Missing flag is
// set.
//
// Sideboard components follow the parent: an owned parent contributes its
// components to the crafting total only, while a missing parent has each
// component checked against the collection on its own.
func (s *Snapshot) Annotate(ctx context.Context, d *deck.Deck) {
	s.ensureFresh(ctx)

	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.present || !s.opts.CheckCollection {
		return
	}

	var needed, total int
	for i := range d.Cards {
		c := &d.Cards[i]
		owned := s.counts[c.ID]
		missing := c.Count - owned
		if missing < 0 {
			missing = 0
		}
		c.Missing = missing > 0
		cost := CraftingCost(c.RarityID, c.CardSetID)
		needed += missing * cost
		total += c.Count * cost

		for j := range c.Components {
			comp := &c.Components[j]
			compCost := CraftingCost(comp.RarityID, comp.CardSetID)
			total += comp.Count * compCost
			if !c.Missing {
				continue
			}
			compOwned := s.counts[comp.ID]
			compMissing := comp.Count - compOwned
			if compMissing < 0 {
				compMissing = 0
			}
			comp.Missing = compMissing > 0
			needed += compMissing * compCost
		}
	}

	d.Costs.Known = true
	if s.opts.CalculateDustNeed {
		d.Costs.DustNeeded = needed
	}
	if s.opts.CalculateTotalDust {
		d.Costs.TotalDust = total
	}
}

// CraftingCost is the dust price of one copy. Free cards and cards from the
// uncraftable core set cost nothing.
func CraftingCost(rarityID, cardSetID int) int {
	if cardSetID == 1637 {
		return 0
	}
	switch rarityID {
	case 1:
		return 40
	case 3:
		return 100
	case 4:
		return 400
	case 5:
		return 1600
	default:
		return 0
	}
}
