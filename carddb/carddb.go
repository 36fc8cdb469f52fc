// Package carddb loads a HearthstoneJSON card dump into memory so deck codes
// can be resolved without the remote API. The database is an optional
// capability: loading may fail (no file, network down) and callers treat a
// nil *DB as "decoder unavailable", falling back to the remote path.
package carddb

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
)

// Card is one entry of the card table, keyed by dbf id.
type Card struct {
	DbfID     int    `json:"dbfId"`
	ID        string `json:"id"`
	Name      string `json:"name"`
	Cost      int    `json:"cost"`
	Rarity    string `json:"rarity"`
	Set       string `json:"set"`
	CardClass string `json:"cardClass"`
}

// RarityID maps the HearthstoneJSON rarity string to the numeric tier used
// for crafting costs (1 common, 2 free, 3 rare, 4 epic, 5 legendary).
func (c Card) RarityID() int {
	switch c.Rarity {
	case "COMMON":
		return 1
	case "FREE":
		return 2
	case "RARE":
		return 3
	case "EPIC":
		return 4
	case "LEGENDARY":
		return 5
	default:
		return 0
	}
}

// coreSetID is the numeric id of the reward-track core set, whose cards are
// never craftable.
const coreSetID = 1637

// SetID returns the numeric card set id for the sets the dust logic cares
// about; other sets map to 0.
func (c Card) SetID() int {
	if c.Set == "CORE" {
		return coreSetID
	}
	return 0
}

// ArtURL is the HearthstoneJSON render for this card.
func (c Card) ArtURL() string {
	if c.ID == "" {
		return ""
	}
	return "https://art.hearthstonejson.com/v1/256x/" + c.ID + ".jpg"
}

// DB is an immutable in-memory card table.
type DB struct {
	byDbf map[int]Card
}

// ByDbfID looks a card up by its dbf id.
func (db *DB) ByDbfID(id int) (Card, bool) {
	c, ok := db.byDbf[id]
	return c, ok
}

// Len returns the number of cards in the table.
func (db *DB) Len() int { return len(db.byDbf) }

func build(cards []Card) *DB {
	byDbf := make(map[int]Card, len(cards))
	for _, c := range cards {
		if c.DbfID != 0 {
			byDbf[c.DbfID] = c
		}
	}
	return &DB{byDbf: byDbf}
}

// Load reads a card dump from a local file.
func Load(path string) (*DB, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read card db: %w", err)
	}
	var cards []Card
	if err := json.Unmarshal(data, &cards); err != nil {
		return nil, fmt.Errorf("parse card db: %w", err)
	}
	db := build(cards)
	slog.Info("card db loaded", slog.String("path", path), slog.Int("cards", db.Len()))
	return db, nil
}

// Fetch downloads a card dump. client may be nil for http.DefaultClient.
func Fetch(ctx context.Context, url string, client *http.Client) (*DB, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch card db: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch card db: status %d", resp.StatusCode)
	}
	var cards []Card
	if err := json.NewDecoder(resp.Body).Decode(&cards); err != nil {
		return nil, fmt.Errorf("parse card db: %w", err)
	}
	db := build(cards)
	slog.Info("card db fetched", slog.String("url", url), slog.Int("cards", db.Len()))
	return db, nil
}
