package hsguru

import (
	"context"
	"errors"
	"testing"

	"github.com/onnwee/deckwatch/testutil"
)

const deckPageHTML = `<html>
<head><title>Pirate Rogue Standard - HSGuru</title></head>
<body>
<div class="title is-2">Pirate Rogue Standard</div>
<table>
<tr>
<td><span class="tag player-name mage"><span class="basic-black-text">Mage</span></span></td>
<td>
<span class="tag"><span class="basic-black-text">55.1</span></span>
</td>
<td>1200</td>
</tr>
<tr>
<td><span class="tag player-name demonhunter"><span class="basic-black-text">Demon Hunter</span></span></td>
<td>
<span class="tag"><span class="basic-black-text">43.7</span></span>
</td>
<td>800</td>
</tr>
<tr>
<td>Total</td>
<td><span class="tag" style="background-color: #888"><span class="basic-black-text">49.2</span></span></td>
<td>44551</td>
</tr>
</table>
</body>
</html>`

const metaPageHTML = `<html><body>
<table>
<tr>
<td class="decklist-info"><a href="/archetype/pirate-rogue">Pirate Rogue</a></td>
<td>6.5</td>
</tr>
<tr>
<td class="decklist-info"><a href="/archetype/control-warrior">Control Warrior</a></td>
<td>11.2</td>
</tr>
</table>
</body></html>`

func newTestEnricher(t *testing.T) (*Enricher, *testutil.MockHSGuruServer) {
	t.Helper()
	mock := testutil.NewMockHSGuruServer(t)
	e := New(mock.URL, nil)
	e.HTTPClient = mock.Client()
	return e, mock
}

func TestEnrichParsesDeckPage(t *testing.T) {
	e, mock := newTestEnricher(t)
	mock.MockPage("/deck/AAECAtest", deckPageHTML)
	mock.MockPage("/meta", metaPageHTML)

	enr, err := e.Enrich(context.Background(), "AAECAtest")
	if err != nil {
		t.Fatalf("enrich: %v", err)
	}
	if enr.WinRate != 49.2 {
		t.Errorf("WinRate = %v, want 49.2", enr.WinRate)
	}
	if enr.TotalGames != 44551 {
		t.Errorf("TotalGames = %d, want 44551", enr.TotalGames)
	}
	if enr.DeckName != "Pirate Rogue" {
		t.Errorf("DeckName = %q, want %q", enr.DeckName, "Pirate Rogue")
	}
	if enr.Matchups["Mage"] != 55.1 {
		t.Errorf("Mage matchup = %v, want 55.1", enr.Matchups["Mage"])
	}
	if enr.Matchups["DemonHunter"] != 43.7 {
		t.Errorf("DemonHunter matchup = %v, want 43.7", enr.Matchups["DemonHunter"])
	}
	if _, ok := enr.Matchups["Total"]; ok {
		t.Error("Total row leaked into matchups")
	}
	if enr.AverageTurns != 6.5 {
		t.Errorf("AverageTurns = %v, want 6.5", enr.AverageTurns)
	}
	if enr.ArchetypeCategory != "Aggro" {
		t.Errorf("ArchetypeCategory = %q, want Aggro", enr.ArchetypeCategory)
	}
	if enr.FetchedAt.IsZero() {
		t.Error("FetchedAt not stamped")
	}
}

func TestEnrichCachesResults(t *testing.T) {
	e, mock := newTestEnricher(t)
	mock.MockPage("/deck/AAECAtest", deckPageHTML)
	mock.MockPage("/meta", metaPageHTML)

	if _, err := e.Enrich(context.Background(), "AAECAtest"); err != nil {
		t.Fatalf("first enrich: %v", err)
	}
	after := mock.Calls.Load() // deck page + meta page
	if after != 2 {
		t.Fatalf("calls = %d, want 2", after)
	}
	if _, err := e.Enrich(context.Background(), "AAECAtest"); err != nil {
		t.Fatalf("second enrich: %v", err)
	}
	if got := mock.Calls.Load(); got != after {
		t.Fatalf("calls = %d after cached enrich, want %d", got, after)
	}
}

func TestEnrichNoStats(t *testing.T) {
	e, mock := newTestEnricher(t)
	mock.MockPage("/deck/AAECAtest", "<html><body>deck not found</body></html>")

	_, err := e.Enrich(context.Background(), "AAECAtest")
	if !errors.Is(err, ErrNoStats) {
		t.Fatalf("err = %v, want ErrNoStats", err)
	}
}

func TestEnrichHTTPError(t *testing.T) {
	e, mock := newTestEnricher(t)
	_ = mock // no handlers registered, every path 404s

	if _, err := e.Enrich(context.Background(), "AAECAtest"); err == nil {
		t.Fatal("expected error on 404")
	}
}

func TestEnrichMetaFailureIsSoft(t *testing.T) {
	e, mock := newTestEnricher(t)
	mock.MockPage("/deck/AAECAtest", deckPageHTML)
	// meta page unregistered: 404

	enr, err := e.Enrich(context.Background(), "AAECAtest")
	if err != nil {
		t.Fatalf("enrich: %v", err)
	}
	if enr.WinRate != 49.2 {
		t.Errorf("WinRate = %v", enr.WinRate)
	}
	if enr.ArchetypeCategory != "" {
		t.Errorf("ArchetypeCategory = %q, want empty when meta unavailable", enr.ArchetypeCategory)
	}
}

func TestDeckURLFilters(t *testing.T) {
	e := New("https://stats.example", nil)

	if got := e.deckURL("ABC", "", ""); got != "https://stats.example/deck/ABC" {
		t.Errorf("no filters: %q", got)
	}
	// Defaults add nothing.
	if got := e.deckURL("ABC", "all", "past_week"); got != "https://stats.example/deck/ABC" {
		t.Errorf("default filters: %q", got)
	}
	if got := e.deckURL("ABC", "diamond_to_legend", "past_day"); got != "https://stats.example/deck/ABC?period=past_day&rank=diamond_to_legend" {
		t.Errorf("custom filters: %q", got)
	}
}

func TestArchetypeCategory(t *testing.T) {
	cases := []struct {
		turns float64
		want  string
	}{
		{0, ""},
		{6.9, "Aggro"},
		{7.0, "Aggro"},
		{8.5, "Midrange"},
		{9.0, "Midrange"},
		{11.2, "Control/Combo"},
	}
	for _, tc := range cases {
		if got := archetypeCategory(tc.turns); got != tc.want {
			t.Errorf("archetypeCategory(%v) = %q, want %q", tc.turns, got, tc.want)
		}
	}
}

func TestArchetypeTurnsSubstringMatch(t *testing.T) {
	if turns, ok := archetypeTurns(metaPageHTML, "Quest Pirate Rogue"); !ok || turns != 6.5 {
		t.Fatalf("turns = %v ok = %v, want 6.5 via substring", turns, ok)
	}
	if _, ok := archetypeTurns(metaPageHTML, "Big Spell Mage"); ok {
		t.Fatal("unexpected match for unrelated archetype")
	}
}

func TestNormalizeClassName(t *testing.T) {
	cases := map[string]string{
		"mage":         "Mage",
		"Demon Hunter": "DemonHunter",
		"death knight": "DeathKnight",
		"Whizbang":     "Whizbang", // unknown passes through
	}
	for in, want := range cases {
		if got := NormalizeClassName(in); got != want {
			t.Errorf("NormalizeClassName(%q) = %q, want %q", in, got, want)
		}
	}
}
