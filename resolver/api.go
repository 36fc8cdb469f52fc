package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/onnwee/deckwatch/config"
	"github.com/onnwee/deckwatch/deck"
	"github.com/onnwee/deckwatch/telemetry"
)

// battleNetTokenURL is the OAuth client-credentials endpoint for the deck API.
const battleNetTokenURL = "https://oauth.battle.net/token" //nolint:gosec // G101: public endpoint URL, not a credential

// NewBlizzardTokenSource returns a client-credentials token source, or nil
// when no client id/secret are configured (the static bearer token from the
// runtime config is used instead).
func NewBlizzardTokenSource(ctx context.Context, clientID, clientSecret string) oauth2.TokenSource {
	if clientID == "" || clientSecret == "" {
		return nil
	}
	cc := &clientcredentials.Config{ClientID: clientID, ClientSecret: clientSecret, TokenURL: battleNetTokenURL}
	return cc.TokenSource(ctx)
}

// APIClient calls the remote deck resolution API.
type APIClient struct {
	BaseURL     string
	HTTPClient  *http.Client
	Runtime     *config.Runtime    // static bearer token fallback
	TokenSource oauth2.TokenSource // preferred when non-nil
}

func (c *APIClient) http() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 10 * time.Second}
}

func (c *APIClient) bearer(ctx context.Context) (string, error) {
	if c.TokenSource != nil {
		tok, err := c.TokenSource.Token()
		if err != nil {
			return "", fmt.Errorf("app token: %w", err)
		}
		return tok.AccessToken, nil
	}
	if c.Runtime != nil {
		return c.Runtime.BearerToken(), nil
	}
	return "", nil
}

// FetchDeck resolves a normalized deck code via the remote API. Any non-2xx
// status, transport error, or body-parse error is a resolution failure; no
// partial deck is returned.
func (c *APIClient) FetchDeck(ctx context.Context, code string) (*deck.Deck, error) {
	ctx, span := telemetry.StartSpan(ctx, "resolver", "deck-api.fetch")
	defer span.End()

	tok, err := c.bearer(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL, nil)
	if err != nil {
		return nil, err
	}
	q := req.URL.Query()
	q.Set("locale", "en_US")
	q.Set("code", code)
	req.URL.RawQuery = q.Encode()
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http().Do(req)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("deck api: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("deck api: status %d", resp.StatusCode)
		telemetry.RecordError(span, err)
		return nil, err
	}

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("deck api: parse: %w", err)
	}
	telemetry.SetSpanSuccess(span)
	return body.toDeck(), nil
}

type apiCard struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	ManaCost  int    `json:"manaCost"`
	Image     string `json:"image"`
	CropImage string `json:"cropImage"`
	RarityID  *int   `json:"rarityId"`
	CardSetID int    `json:"cardSetId"`
}

func (c apiCard) rarity() int {
	if c.RarityID == nil {
		return 1
	}
	return *c.RarityID
}

type apiResponse struct {
	DeckCode string `json:"deckCode"`
	Format   string `json:"format"`
	Class    struct {
		Name string `json:"name"`
	} `json:"class"`
	Hero struct {
		CropImage string `json:"cropImage"`
	} `json:"hero"`
	HeroPower struct {
		Image string `json:"image"`
	} `json:"heroPower"`
	RuneSlots *struct {
		Blood  int `json:"blood"`
		Frost  int `json:"frost"`
		Unholy int `json:"unholy"`
	} `json:"runeSlots"`
	Cards          []apiCard `json:"cards"`
	SideboardCards []struct {
		SideboardCard    apiCard   `json:"sideboardCard"`
		CardsInSideboard []apiCard `json:"cardsInSideboard"`
	} `json:"sideboardCards"`
}

// toDeck converts the API body: repeated card entries collapse into one entry
// with a count, sideboard alternates attach to their parent by exact name,
// and the list gets its final (cost, name) order.
func (r *apiResponse) toDeck() *deck.Deck {
	d := &deck.Deck{
		Class:          r.Class.Name,
		Mode:           r.Format,
		HeroImage:      r.Hero.CropImage,
		HeroPowerImage: r.HeroPower.Image,
	}
	if d.Class == "" {
		d.Class = "Unknown"
	}
	if d.Mode == "" {
		d.Mode = "standard"
	}
	if r.RuneSlots != nil {
		d.Runes = &deck.RuneSlots{Blood: r.RuneSlots.Blood, Frost: r.RuneSlots.Frost, Unholy: r.RuneSlots.Unholy}
	}

	index := make(map[int]int) // card id -> position in d.Cards
	for _, c := range r.Cards {
		if i, ok := index[c.ID]; ok {
			d.Cards[i].Count++
			continue
		}
		index[c.ID] = len(d.Cards)
		d.Cards = append(d.Cards, deck.Card{
			ID:           c.ID,
			Name:         c.Name,
			Count:        1,
			Cost:         c.ManaCost,
			ImageURL:     c.Image,
			CropImageURL: c.CropImage,
			RarityID:     c.rarity(),
			CardSetID:    c.CardSetID,
		})
	}

	for _, sb := range r.SideboardCards {
		for i := range d.Cards {
			if d.Cards[i].Name != sb.SideboardCard.Name {
				continue
			}
			d.Cards[i].HasComponents = true
			for _, comp := range sb.CardsInSideboard {
				d.Cards[i].Components = append(d.Cards[i].Components, deck.Card{
					ID:           comp.ID,
					Name:         comp.Name,
					Count:        1,
					Cost:         comp.ManaCost,
					ImageURL:     comp.Image,
					CropImageURL: comp.CropImage,
					RarityID:     comp.rarity(),
					CardSetID:    comp.CardSetID,
				})
			}
			break
		}
	}

	deck.SortCards(d.Cards)
	return d
}
