// Package deck holds the resolved deck model shared by the resolver, the
// collection reconciler, the stats enricher, and the feed.
package deck

import (
	"sort"
	"time"
)

// RuneSlots are the Death Knight rune counters carried by some decks.
type RuneSlots struct {
	Blood  int `json:"blood"`
	Frost  int `json:"frost"`
	Unholy int `json:"unholy"`
}

// Card is one deck entry. Sideboard alternates hang off their parent card as
// Components; nesting never goes deeper than one level.
type Card struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	Count         int    `json:"count"`
	Cost          int    `json:"cost"`
	ImageURL      string `json:"image_url,omitempty"`
	CropImageURL  string `json:"crop_image_url,omitempty"`
	RarityID      int    `json:"rarity_id"`
	CardSetID     int    `json:"card_set_id"`
	Missing       bool   `json:"missing"`
	HasComponents bool   `json:"has_components"`
	Components    []Card `json:"components,omitempty"`
}

// Costs carries the dust totals derived from the collection snapshot.
// Known is false until a snapshot has ever been available.
type Costs struct {
	Known      bool `json:"known"`
	DustNeeded int  `json:"dust_needed"`
	TotalDust  int  `json:"total_dust"`
}

// Enrichment is the optional HSGuru stats block attached after publication.
type Enrichment struct {
	WinRate           float64            `json:"win_rate"`
	TotalGames        int                `json:"total_games"`
	Matchups          map[string]float64 `json:"matchups,omitempty"`
	DeckName          string             `json:"deck_name,omitempty"`
	AverageTurns      float64            `json:"average_turns,omitempty"`
	ArchetypeCategory string             `json:"archetype_category,omitempty"`
	FetchedAt         time.Time          `json:"fetched_at"`
}

// Composition summarizes the deck list: rarity counts and mana curve.
type Composition struct {
	Common      int         `json:"common"`
	Rare        int         `json:"rare"`
	Epic        int         `json:"epic"`
	Legendary   int         `json:"legendary"`
	AverageMana float64     `json:"average_mana"`
	ManaCurve   map[int]int `json:"mana_curve,omitempty"`
}

// Deck is the fully resolved record published to the feed.
type Deck struct {
	Code           string      `json:"code"`
	Class          string      `json:"class"`
	Mode           string      `json:"mode"`
	HeroImage      string      `json:"hero_image,omitempty"`
	HeroPowerImage string      `json:"hero_power_image,omitempty"`
	Runes          *RuneSlots  `json:"runes,omitempty"`
	Cards          []Card      `json:"cards"`
	Author         string      `json:"author"`
	AddedAt        time.Time   `json:"added_at"`
	Costs          Costs       `json:"costs"`
	Composition    Composition `json:"composition"`
	Enrichment     *Enrichment `json:"enrichment,omitempty"`
}

// SortCards orders cards ascending by mana cost, then name. Applied once at
// resolution time; the order is never revisited.
func SortCards(cards []Card) {
	sort.SliceStable(cards, func(i, j int) bool {
		if cards[i].Cost != cards[j].Cost {
			return cards[i].Cost < cards[j].Cost
		}
		return cards[i].Name < cards[j].Name
	})
}

// ComputeComposition fills the rarity counts, mana curve, and average mana
// from the card list. Costs of 7+ share one curve bucket.
func (d *Deck) ComputeComposition() {
	c := Composition{ManaCurve: make(map[int]int)}
	totalMana := 0
	totalCards := 0
	for _, card := range d.Cards {
		switch card.RarityID {
		case 1, 2:
			c.Common += card.Count
		case 3:
			c.Rare += card.Count
		case 4:
			c.Epic += card.Count
		case 5:
			c.Legendary += card.Count
		}
		bucket := card.Cost
		if bucket > 7 {
			bucket = 7
		}
		c.ManaCurve[bucket] += card.Count
		totalMana += card.Cost * card.Count
		totalCards += card.Count
	}
	if totalCards > 0 {
		c.AverageMana = float64(totalMana) / float64(totalCards)
	}
	if len(c.ManaCurve) == 0 {
		c.ManaCurve = nil
	}
	d.Composition = c
}
