// Package resolver turns deck codes into resolved decks. It owns the TTL
// resolution cache, the local decode fast path, and the concurrency-limited
// remote API fallback.
package resolver

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/onnwee/deckwatch/deck"
	"github.com/onnwee/deckwatch/deckcode"
	"github.com/onnwee/deckwatch/telemetry"
)

const (
	cacheTTL        = 30 * time.Minute
	cacheMaxEntries = 100
	maxConcurrent   = 3
)

// Resolver resolves deck codes. Safe for concurrent use.
type Resolver struct {
	api   *APIClient
	local LocalDecoder
	cache *cache
	sem   *semaphore.Weighted
}

// New builds a resolver. local may be nil (decoder unavailable).
func New(api *APIClient, local LocalDecoder) *Resolver {
	return &Resolver{
		api:   api,
		local: local,
		cache: newCache(cacheTTL, cacheMaxEntries),
		sem:   semaphore.NewWeighted(maxConcurrent),
	}
}

// Resolve returns the deck for a code. Cache first, then the local decoder,
// then the remote API behind the permit pool. Failures are never cached.
func (r *Resolver) Resolve(ctx context.Context, code string) (*deck.Deck, error) {
	key := deckcode.Normalize(code)
	now := time.Now()

	if d, ok := r.cache.get(key, now); ok {
		if telemetry.ResolutionCacheHits != nil {
			telemetry.ResolutionCacheHits.Inc()
		}
		slog.Debug("resolution cache hit", slog.String("code", key))
		return &d, nil
	}
	if telemetry.ResolutionCacheMiss != nil {
		telemetry.ResolutionCacheMiss.Inc()
	}

	start := time.Now()
	var resolved *deck.Deck
	if r.local != nil {
		d, err := r.local.Decode(key)
		if err != nil {
			slog.Debug("local decode failed, falling back to api", slog.Any("err", err))
		} else {
			resolved = d
			if telemetry.LocalDecodes != nil {
				telemetry.LocalDecodes.Inc()
			}
		}
	}

	if resolved == nil {
		if err := r.sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		d, err := r.api.FetchDeck(ctx, key)
		r.sem.Release(1)
		if err != nil {
			if telemetry.ResolutionsFailed != nil {
				telemetry.ResolutionsFailed.Inc()
			}
			return nil, err
		}
		resolved = d
	}

	resolved.Code = key
	resolved.ComputeComposition()

	r.cache.put(key, *resolved, time.Now())
	telemetry.SetCacheSize(r.cache.len())
	if telemetry.ResolutionsSucceeded != nil {
		telemetry.ResolutionsSucceeded.Inc()
	}
	if telemetry.ResolveDuration != nil {
		telemetry.ResolveDuration.Observe(time.Since(start).Seconds())
	}
	slog.Info("deck resolved", slog.String("class", resolved.Class), slog.Int("cards", len(resolved.Cards)))
	return resolved, nil
}

// CacheLen reports the current cache size.
func (r *Resolver) CacheLen() int { return r.cache.len() }

// ClearCache drops every cached resolution.
func (r *Resolver) ClearCache() {
	r.cache.clear()
	telemetry.SetCacheSize(0)
}
