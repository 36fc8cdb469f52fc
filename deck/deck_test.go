package deck

import "testing"

func TestSortCardsStableByCostThenName(t *testing.T) {
	cards := []Card{
		{Name: "Zilliax", Cost: 5},
		{Name: "Aquatic Form", Cost: 0},
		{Name: "Bloodmage Thalnos", Cost: 2},
		{Name: "Astalor Bloodsworn", Cost: 2},
	}
	SortCards(cards)

	wantOrder := []string{"Aquatic Form", "Astalor Bloodsworn", "Bloodmage Thalnos", "Zilliax"}
	for i, name := range wantOrder {
		if cards[i].Name != name {
			t.Errorf("cards[%d] = %q, want %q", i, cards[i].Name, name)
		}
	}
}

func TestComputeComposition(t *testing.T) {
	d := &Deck{Cards: []Card{
		{Name: "a", Cost: 1, Count: 2, RarityID: 1},
		{Name: "b", Cost: 3, Count: 2, RarityID: 3},
		{Name: "c", Cost: 9, Count: 1, RarityID: 5},
		{Name: "d", Cost: 2, Count: 1, RarityID: 2},
	}}
	d.ComputeComposition()

	c := d.Composition
	if c.Common != 3 { // rarity 1 and 2 both count as common
		t.Errorf("Common = %d, want 3", c.Common)
	}
	if c.Rare != 2 || c.Epic != 0 || c.Legendary != 1 {
		t.Errorf("rarities = %d/%d/%d", c.Rare, c.Epic, c.Legendary)
	}
	if c.ManaCurve[7] != 1 {
		t.Errorf("9-cost card should land in the 7+ bucket, curve=%v", c.ManaCurve)
	}
	// (1*2 + 3*2 + 9*1 + 2*1) / 6
	if want := 19.0 / 6.0; c.AverageMana != want {
		t.Errorf("AverageMana = %v, want %v", c.AverageMana, want)
	}
}

func TestComputeCompositionEmptyDeck(t *testing.T) {
	d := &Deck{}
	d.ComputeComposition()
	if d.Composition.AverageMana != 0 || d.Composition.ManaCurve != nil {
		t.Errorf("empty deck composition = %+v", d.Composition)
	}
}
