// Package feed holds the bounded, newest-first list of resolved decks and
// the manager that drives the chat-to-feed pipeline.
package feed

import (
	"sync"

	"github.com/onnwee/deckwatch/config"
	"github.com/onnwee/deckwatch/deck"
	"github.com/onnwee/deckwatch/telemetry"
)

// EventType tags feed change notifications.
type EventType string

const (
	EventInsert EventType = "insert"
	EventTrim   EventType = "trim"
	EventUpdate EventType = "update"
)

// Event is one feed change. Insert and update events carry the deck; trim
// events carry only the dropped code.
type Event struct {
	Type EventType  `json:"type"`
	Code string     `json:"code"`
	Deck *deck.Deck `json:"deck,omitempty"`
}

// Feed is the ordered, capacity-bounded deck list. Insertion is always at
// the head; overflow trims the tail. The cap is read live from the runtime
// config on every mutation. Safe for concurrent use.
type Feed struct {
	rt *config.Runtime

	mu      sync.RWMutex
	entries []*deck.Deck
	subs    map[int]chan Event
	nextSub int
}

// New builds an empty feed bounded by rt's live cap.
func New(rt *config.Runtime) *Feed {
	return &Feed{rt: rt, subs: make(map[int]chan Event)}
}

func (f *Feed) cap() int {
	if f.rt != nil {
		return f.rt.FeedCap()
	}
	return 5
}

// Insert places d at the head and trims the tail to the cap.
func (f *Feed) Insert(d *deck.Deck) {
	f.mu.Lock()
	f.entries = append([]*deck.Deck{d}, f.entries...)
	trimmed := f.trimLocked()
	size := len(f.entries)
	f.publishLocked(Event{Type: EventInsert, Code: d.Code, Deck: d})
	for _, t := range trimmed {
		f.publishLocked(Event{Type: EventTrim, Code: t.Code})
	}
	f.mu.Unlock()
	telemetry.SetFeedSize(size)
}

// UpdateEnrichment attaches stats to an already-published deck, newest match
// first. Returns false when the deck has already left the feed.
//
// The entry is replaced, never written in place: event subscribers and
// SubmitCode callers hold the old pointer and may be marshalling it without
// the feed lock.
func (f *Feed) UpdateEnrichment(code string, enr *deck.Enrichment) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, d := range f.entries {
		if d.Code != code {
			continue
		}
		updated := *d
		updated.Enrichment = enr
		f.entries[i] = &updated
		f.publishLocked(Event{Type: EventUpdate, Code: code, Deck: &updated})
		return true
	}
	return false
}

// EnforceCap re-trims after a live cap change.
func (f *Feed) EnforceCap() {
	f.mu.Lock()
	trimmed := f.trimLocked()
	size := len(f.entries)
	for _, t := range trimmed {
		f.publishLocked(Event{Type: EventTrim, Code: t.Code})
	}
	f.mu.Unlock()
	telemetry.SetFeedSize(size)
}

// trimLocked drops tail entries beyond the cap and returns them.
func (f *Feed) trimLocked() []*deck.Deck {
	limit := f.cap()
	if len(f.entries) <= limit {
		return nil
	}
	trimmed := f.entries[limit:]
	f.entries = f.entries[:limit:limit]
	return trimmed
}

// Snapshot returns the current entries newest-first.
func (f *Feed) Snapshot() []deck.Deck {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]deck.Deck, len(f.entries))
	for i, d := range f.entries {
		out[i] = *d
	}
	return out
}

// Len reports the current feed length.
func (f *Feed) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.entries)
}

// Subscribe registers a change listener. The returned cancel func must be
// called to release it. Slow subscribers lose events rather than blocking
// the feed.
func (f *Feed) Subscribe() (<-chan Event, func()) {
	f.mu.Lock()
	id := f.nextSub
	f.nextSub++
	ch := make(chan Event, 16)
	f.subs[id] = ch
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		if c, ok := f.subs[id]; ok {
			delete(f.subs, id)
			close(c)
		}
		f.mu.Unlock()
	}
	return ch, cancel
}

func (f *Feed) publishLocked(ev Event) {
	for _, ch := range f.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
