package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/onnwee/deckwatch/collection"
	"github.com/onnwee/deckwatch/config"
	"github.com/onnwee/deckwatch/db"
	"github.com/onnwee/deckwatch/deck"
	"github.com/onnwee/deckwatch/feed"
	"github.com/onnwee/deckwatch/irc"
	"github.com/onnwee/deckwatch/telemetry"
)

// Deps carries everything the handlers reach into. Store and Snapshot may be
// nil; the corresponding endpoints degrade rather than panic.
type Deps struct {
	Manager  *feed.Manager
	Runtime  *config.Runtime
	Resolver CacheReporter
	Store    *db.Store
	Snapshot *collection.Snapshot
}

// CacheReporter exposes resolver cache stats for /status.
type CacheReporter interface {
	CacheLen() int
}

// Handlers is the set of HTTP endpoint implementations.
type Handlers struct {
	deps Deps
}

// NewHandlers builds the handler set.
func NewHandlers(deps Deps) *Handlers {
	return &Handlers{deps: deps}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck
}

// HandleHealthz reports liveness.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleReadyz reports readiness: ready when no channel is configured yet,
// or when the chat connection is actually reading.
func (h *Handlers) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	st := h.deps.Manager.Status()
	ready := h.deps.Runtime.Channel() == "" || st.State == irc.StateReading
	if !ready {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ready": false, "connection": st})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ready": true})
}

// HandleStatus reports the full runtime picture in one read.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	st := h.deps.Manager.Status()
	out := map[string]any{
		"connection": st,
		"channel":    h.deps.Runtime.Channel(),
		"feed_size":  h.deps.Manager.Feed().Len(),
		"feed_cap":   h.deps.Runtime.FeedCap(),
	}
	if h.deps.Resolver != nil {
		out["cache_size"] = h.deps.Resolver.CacheLen()
	}
	if h.deps.Snapshot != nil {
		out["collection"] = map[string]any{
			"present":     h.deps.Snapshot.Present(),
			"age_seconds": h.deps.Snapshot.Age().Seconds(),
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleFeed returns the current feed, newest first.
func (h *Handlers) HandleFeed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Manager.Feed().Snapshot())
}

// HandleDeckSubmit runs the pipeline on pasted text, bypassing chat.
func (h *Handlers) HandleDeckSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		Text   string `json:"text"`
		Author string `json:"author"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	d, err := h.deps.Manager.SubmitCode(r.Context(), body.Text, body.Author)
	if err != nil {
		if errors.Is(err, feed.ErrNoCode) {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		telemetry.LoggerWithCorr(r.Context()).Warn("submitted code failed to resolve", "err", err)
		http.Error(w, "resolution failed", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusAccepted, d)
}

// HandleDeckHistory returns persisted decks, newest first.
func (h *Handlers) HandleDeckHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.deps.Store == nil {
		http.Error(w, "persistence disabled", http.StatusNotFound)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	decks, err := h.deps.Store.ListRecent(r.Context(), limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if decks == nil {
		decks = []deck.Deck{}
	}
	writeJSON(w, http.StatusOK, decks)
}

// HandleCollectionPush replaces the owned-cards snapshot from a pushed
// payload, e.g. exported by a tracker.
func (h *Handlers) HandleCollectionPush(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.deps.Snapshot == nil {
		http.Error(w, "collection tracking disabled", http.StatusServiceUnavailable)
		return
	}
	var entries []struct {
		DbfID int `json:"dbf_id"`
		Count int `json:"count"`
	}
	if err := json.NewDecoder(r.Body).Decode(&entries); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	counts := make(map[int]int, len(entries))
	for _, e := range entries {
		counts[e.DbfID] += e.Count
	}
	h.deps.Snapshot.Set(counts)
	writeJSON(w, http.StatusOK, map[string]any{"cards": len(counts)})
}

// HandleConfig reads or updates the live-mutable settings. Updates apply
// immediately: a channel change reconnects, a cap change re-trims the feed.
func (h *Handlers) HandleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		rank, period := h.deps.Runtime.Filters()
		writeJSON(w, http.StatusOK, map[string]any{
			"channel":       h.deps.Runtime.Channel(),
			"feed_cap":      h.deps.Runtime.FeedCap(),
			"rank_filter":   rank,
			"period_filter": period,
		})
	case http.MethodPut:
		var body struct {
			Channel      *string `json:"channel"`
			FeedCap      *int    `json:"feed_cap"`
			BearerToken  *string `json:"bearer_token"`
			RankFilter   *string `json:"rank_filter"`
			PeriodFilter *string `json:"period_filter"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if body.FeedCap != nil {
			h.deps.Runtime.SetFeedCap(*body.FeedCap)
			h.deps.Manager.Feed().EnforceCap()
		}
		if body.BearerToken != nil {
			h.deps.Manager.ApplyCredentials(*body.BearerToken)
		}
		if body.RankFilter != nil || body.PeriodFilter != nil {
			rank, period := "", ""
			if body.RankFilter != nil {
				rank = *body.RankFilter
			}
			if body.PeriodFilter != nil {
				period = *body.PeriodFilter
			}
			h.deps.Runtime.SetFilters(rank, period)
		}
		if body.Channel != nil {
			if err := h.deps.Manager.SetChannel(r.Context(), *body.Channel); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "applied"})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}
