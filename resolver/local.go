package resolver

import (
	"fmt"
	"strings"

	"github.com/onnwee/deckwatch/carddb"
	"github.com/onnwee/deckwatch/deck"
	"github.com/onnwee/deckwatch/deckcode"
)

// LocalDecoder is the in-process fast path. A nil decoder on the Resolver
// means the capability is unavailable and every code goes to the remote API;
// that is a normal condition, not an error.
type LocalDecoder interface {
	Decode(code string) (*deck.Deck, error)
}

// CardDBDecoder decodes deckstrings against the in-memory card table.
type CardDBDecoder struct {
	DB *carddb.DB
}

func (d *CardDBDecoder) Decode(code string) (*deck.Deck, error) {
	decoded, err := deckcode.Decode(code)
	if err != nil {
		return nil, err
	}

	out := &deck.Deck{Mode: deckcode.FormatName(decoded.Format), Class: "Unknown"}
	if hero, ok := d.DB.ByDbfID(decoded.HeroDbfID); ok {
		out.Class = className(hero.CardClass)
		out.HeroImage = hero.ArtURL()
	}

	for id, count := range decoded.Cards {
		card, ok := d.DB.ByDbfID(id)
		if !ok {
			// The dump may lag behind new releases; unknown ids are skipped
			// rather than failing the whole deck.
			continue
		}
		out.Cards = append(out.Cards, deck.Card{
			ID:        id,
			Name:      card.Name,
			Count:     count,
			Cost:      card.Cost,
			ImageURL:  card.ArtURL(),
			RarityID:  card.RarityID(),
			CardSetID: card.SetID(),
		})
	}
	if len(out.Cards) == 0 && len(decoded.Cards) > 0 {
		return nil, fmt.Errorf("local decode: no cards of %d resolved against card db", len(decoded.Cards))
	}
	deck.SortCards(out.Cards)
	return out, nil
}

// className converts a card-db class constant (WARRIOR, DEMONHUNTER) to the
// display form used everywhere else (Warrior, DemonHunter).
func className(cardClass string) string {
	switch cardClass {
	case "DEMONHUNTER":
		return "DemonHunter"
	case "DEATHKNIGHT":
		return "DeathKnight"
	case "":
		return "Unknown"
	default:
		return strings.ToUpper(cardClass[:1]) + strings.ToLower(cardClass[1:])
	}
}
