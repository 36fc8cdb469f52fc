package collection

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/onnwee/deckwatch/deck"
)

func allOpts() Options {
	return Options{CheckCollection: true, CalculateTotalDust: true, CalculateDustNeed: true}
}

func TestAnnotateDustTotals(t *testing.T) {
	s := NewSnapshot(nil, allOpts())
	s.Set(map[int]int{100: 2})

	d := &deck.Deck{Cards: []deck.Card{
		{ID: 100, Name: "Fireball", Count: 3, RarityID: 1}, // own 2 of 3
		{ID: 101, Name: "Pyroblast", Count: 1, RarityID: 4}, // own 0 of 1
	}}
	s.Annotate(context.Background(), d)

	if !d.Costs.Known {
		t.Fatal("costs should be known with a snapshot present")
	}
	// One common copy plus one epic copy missing.
	if want := 1*40 + 1*400; d.Costs.DustNeeded != want {
		t.Fatalf("DustNeeded = %d, want %d", d.Costs.DustNeeded, want)
	}
	// Full list price regardless of ownership.
	if want := 3*40 + 1*400; d.Costs.TotalDust != want {
		t.Fatalf("TotalDust = %d, want %d", d.Costs.TotalDust, want)
	}
	if !d.Cards[0].Missing || !d.Cards[1].Missing {
		t.Fatalf("missing flags = %v %v", d.Cards[0].Missing, d.Cards[1].Missing)
	}
}

func TestAnnotateNoSnapshot(t *testing.T) {
	s := NewSnapshot(nil, allOpts())

	d := &deck.Deck{Cards: []deck.Card{{ID: 100, Count: 2, RarityID: 5}}}
	s.Annotate(context.Background(), d)

	if d.Costs.Known {
		t.Fatal("costs should stay unknown without a snapshot")
	}
	if d.Cards[0].Missing {
		t.Fatal("missing flag set without a snapshot")
	}
}

func TestAnnotateSideboardOwnedParent(t *testing.T) {
	s := NewSnapshot(nil, allOpts())
	s.Set(map[int]int{200: 1})

	d := &deck.Deck{Cards: []deck.Card{{
		ID: 200, Name: "E.T.C., Band Manager", Count: 1, RarityID: 5,
		HasComponents: true,
		Components: []deck.Card{
			{ID: 201, Name: "Blade Flurry", Count: 1, RarityID: 3},
		},
	}}}
	s.Annotate(context.Background(), d)

	// Owned parent: component counts toward the list price only.
	if want := 1600 + 100; d.Costs.TotalDust != want {
		t.Fatalf("TotalDust = %d, want %d", d.Costs.TotalDust, want)
	}
	if d.Costs.DustNeeded != 0 {
		t.Fatalf("DustNeeded = %d, want 0", d.Costs.DustNeeded)
	}
	if d.Cards[0].Components[0].Missing {
		t.Fatal("component flagged missing under an owned parent")
	}
}

func TestAnnotateSideboardMissingParent(t *testing.T) {
	s := NewSnapshot(nil, allOpts())
	s.Set(map[int]int{201: 1}) // own the component but not the parent

	d := &deck.Deck{Cards: []deck.Card{{
		ID: 200, Name: "E.T.C., Band Manager", Count: 1, RarityID: 5,
		HasComponents: true,
		Components: []deck.Card{
			{ID: 201, Name: "Blade Flurry", Count: 1, RarityID: 3},
			{ID: 202, Name: "Lorthemar Theron", Count: 1, RarityID: 5},
		},
	}}}
	s.Annotate(context.Background(), d)

	// Missing parent: each component checked on its own.
	if want := 1600 + 1600; d.Costs.DustNeeded != want {
		t.Fatalf("DustNeeded = %d, want %d", d.Costs.DustNeeded, want)
	}
	if d.Cards[0].Components[0].Missing {
		t.Fatal("owned component flagged missing")
	}
	if !d.Cards[0].Components[1].Missing {
		t.Fatal("unowned component not flagged missing")
	}
}

func TestCraftingCost(t *testing.T) {
	cases := []struct {
		rarity, set, want int
	}{
		{1, 0, 40},
		{2, 0, 0}, // free
		{3, 0, 100},
		{4, 0, 400},
		{5, 0, 1600},
		{5, 1637, 0}, // core set, uncraftable
	}
	for _, tc := range cases {
		if got := CraftingCost(tc.rarity, tc.set); got != tc.want {
			t.Errorf("CraftingCost(%d, %d) = %d, want %d", tc.rarity, tc.set, got, tc.want)
		}
	}
}

func TestRefreshKeepsStaleOnFailure(t *testing.T) {
	src := &flakySource{counts: map[int]int{1: 2}}
	s := NewSnapshot(src, allOpts())

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if s.Owned(1) != 2 {
		t.Fatalf("owned = %d", s.Owned(1))
	}

	src.fail = true
	if err := s.Refresh(context.Background()); err == nil {
		t.Fatal("expected refresh error")
	}
	if !s.Present() || s.Owned(1) != 2 {
		t.Fatal("previous snapshot not preserved across a failed refresh")
	}
}

func TestAnnotateRefreshesAbsentSnapshot(t *testing.T) {
	src := &flakySource{counts: map[int]int{100: 2}}
	s := NewSnapshot(src, allOpts())

	d := &deck.Deck{Cards: []deck.Card{{ID: 100, Count: 2, RarityID: 1}}}
	s.Annotate(context.Background(), d)

	if !d.Costs.Known {
		t.Fatal("annotate should have loaded the snapshot from the source")
	}
	if d.Cards[0].Missing {
		t.Fatal("owned card flagged missing")
	}
}

type flakySource struct {
	counts map[int]int
	fail   bool
}

func (f *flakySource) Load(ctx context.Context) (map[int]int, error) {
	if f.fail {
		return nil, errors.New("source unavailable")
	}
	return f.counts, nil
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "collection.json")
	body := `[{"dbf_id": 100, "count": 2}, {"dbf_id": 101, "count": 1}]`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	src := &FileSource{Path: path}
	counts, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if counts[100] != 2 || counts[101] != 1 {
		t.Fatalf("counts = %v", counts)
	}

	src.Path = filepath.Join(t.TempDir(), "missing.json")
	if _, err := src.Load(context.Background()); err == nil {
		t.Fatal("expected error for missing file")
	}
}
