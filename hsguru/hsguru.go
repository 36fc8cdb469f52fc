// Package hsguru scrapes deck statistics from the stats site: win rate,
// game counts, class matchups, and the archetype read off the meta page.
// Everything here is best effort; a deck is complete without it.
package hsguru

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/onnwee/deckwatch/config"
	"github.com/onnwee/deckwatch/deck"
	"github.com/onnwee/deckwatch/telemetry"
)

const (
	cacheTTL      = 30 * time.Minute
	maxConcurrent = 3
	userAgent     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

	defaultRank   = "all"
	defaultPeriod = "past_week"

	standardFormat = 2
)

// ErrSaturated means the request limiter was full and the fetch was skipped.
var ErrSaturated = errors.New("hsguru: request limiter saturated")

// ErrNoStats means the page parsed but carried no usable numbers.
var ErrNoStats = errors.New("hsguru: no statistics on page")

var (
	totalWinRatePattern = regexp.MustCompile(`(?si)<tr>\s*<td>Total</td>\s*<td>.*?<span[^>]*>\s*<span[^>]*>\s*(\d+\.?\d*)\s*</span>`)
	totalGamesPattern   = regexp.MustCompile(`(?si)<tr>\s*<td>Total</td>.*?<td>(\d+)</td>\s*</tr>`)
	titleDivPattern     = regexp.MustCompile(`(?i)<div class="title is-2">([^<]+)</div>`)
	titleTagPattern     = regexp.MustCompile(`(?i)<title>([^<]+)</title>`)
	formatSuffixPattern = regexp.MustCompile(`(?i)\s+(Standard|Wild|Classic)$`)
	matchupPattern      = regexp.MustCompile(`(?si)<td><span class="tag player-name \w+"><span class="basic-black-text">([^<]+)</span></span></td>\s*<td>\s*<span[^>]*>\s*<span class="basic-black-text">\s*(\d+\.?\d*)\s*</span>`)
	archetypeRowPattern = regexp.MustCompile(`(?si)<td[^>]*class="decklist-info[^>]*>\s*<a[^>]*href="/archetype/[^"]*"[^>]*>\s*([^<]+?)\s*</a>\s*</td>.*?<td[^>]*>([\d.]+)</td>`)
)

type cachedStats struct {
	enrichment deck.Enrichment
	fetchedAt  time.Time
}

// Enricher fetches deck stats with a small concurrency cap and a TTL cache
// keyed on (code, rank filter, period filter). Safe for concurrent use.
type Enricher struct {
	BaseURL    string
	HTTPClient *http.Client
	Runtime    *config.Runtime

	mu    sync.Mutex
	cache map[string]cachedStats
	sem   *semaphore.Weighted
}

// New builds an enricher for baseURL (e.g. "https://www.hsguru.com").
func New(baseURL string, rt *config.Runtime) *Enricher {
	return &Enricher{
		BaseURL: baseURL,
		Runtime: rt,
		cache:   make(map[string]cachedStats),
		sem:     semaphore.NewWeighted(maxConcurrent),
	}
}

func (e *Enricher) http() *http.Client {
	if e.HTTPClient != nil {
		return e.HTTPClient
	}
	return &http.Client{Timeout: 5 * time.Second}
}

func (e *Enricher) filters() (rank, period string) {
	if e.Runtime != nil {
		return e.Runtime.Filters()
	}
	return "", ""
}

// Enrich returns deck statistics for a code. When the limiter is full the
// fetch is skipped with ErrSaturated rather than queued; chat traffic must
// never back up behind the stats site.
func (e *Enricher) Enrich(ctx context.Context, code string) (*deck.Enrichment, error) {
	if code == "" {
		return nil, ErrNoStats
	}
	rank, period := e.filters()
	key := code + "|" + rank + "|" + period

	e.mu.Lock()
	if hit, ok := e.cache[key]; ok {
		if time.Since(hit.fetchedAt) < cacheTTL {
			e.mu.Unlock()
			enr := hit.enrichment
			return &enr, nil
		}
		delete(e.cache, key)
	}
	e.mu.Unlock()

	if !e.sem.TryAcquire(1) {
		if telemetry.EnrichmentsSkipped != nil {
			telemetry.EnrichmentsSkipped.Inc()
		}
		slog.Debug("enrichment skipped, limiter saturated", slog.String("code", code))
		return nil, ErrSaturated
	}
	defer e.sem.Release(1)

	start := time.Now()
	page, err := e.fetch(ctx, e.deckURL(code, rank, period))
	if err != nil {
		return nil, err
	}

	enr, err := parseDeckPage(page)
	if err != nil {
		return nil, err
	}

	// Archetype lookup needs the deck name and is itself best effort.
	if enr.DeckName != "" {
		if meta, err := e.fetch(ctx, e.metaURL()); err == nil {
			if turns, ok := archetypeTurns(meta, enr.DeckName); ok {
				enr.AverageTurns = turns
				enr.ArchetypeCategory = archetypeCategory(turns)
			}
		} else {
			slog.Debug("meta page fetch failed", slog.Any("err", err))
		}
	}
	enr.FetchedAt = time.Now()

	e.mu.Lock()
	e.pruneLocked()
	e.cache[key] = cachedStats{enrichment: *enr, fetchedAt: enr.FetchedAt}
	e.mu.Unlock()

	if telemetry.EnrichDuration != nil {
		telemetry.EnrichDuration.Observe(time.Since(start).Seconds())
	}
	slog.Debug("deck enriched",
		slog.String("name", enr.DeckName),
		slog.Float64("win_rate", enr.WinRate),
		slog.Int("games", enr.TotalGames))
	return enr, nil
}

// ClearCache drops every cached enrichment.
func (e *Enricher) ClearCache() {
	e.mu.Lock()
	e.cache = make(map[string]cachedStats)
	e.mu.Unlock()
}

// pruneLocked drops expired entries. Called opportunistically on insert.
func (e *Enricher) pruneLocked() {
	now := time.Now()
	for k, v := range e.cache {
		if now.Sub(v.fetchedAt) >= cacheTTL {
			delete(e.cache, k)
		}
	}
}

func (e *Enricher) deckURL(code, rank, period string) string {
	u := e.BaseURL + "/deck/" + url.PathEscape(code)
	q := url.Values{}
	if rank != "" && rank != defaultRank {
		q.Set("rank", rank)
	}
	if period != "" && period != defaultPeriod {
		q.Set("period", period)
	}
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

func (e *Enricher) metaURL() string {
	return fmt.Sprintf("%s/meta?format=%d", e.BaseURL, standardFormat)
}

func (e *Enricher) fetch(ctx context.Context, u string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := e.http().Do(req)
	if err != nil {
		return "", fmt.Errorf("hsguru: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("hsguru: status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("hsguru: read body: %w", err)
	}
	return string(body), nil
}

// parseDeckPage pulls win rate, total games, deck name, and class matchups
// out of the deck page HTML.
func parseDeckPage(html string) (*deck.Enrichment, error) {
	enr := &deck.Enrichment{Matchups: make(map[string]float64)}

	if m := totalWinRatePattern.FindStringSubmatch(html); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			enr.WinRate = v
		}
	}
	if m := totalGamesPattern.FindStringSubmatch(html); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			enr.TotalGames = v
		}
	}
	enr.DeckName = parseDeckName(html)

	for _, m := range matchupPattern.FindAllStringSubmatch(html, -1) {
		name := strings.TrimSpace(m[1])
		if strings.EqualFold(name, "Total") {
			continue
		}
		v, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}
		enr.Matchups[NormalizeClassName(name)] = v
	}

	if enr.WinRate == 0 && enr.TotalGames == 0 {
		return nil, ErrNoStats
	}
	return enr, nil
}

func parseDeckName(html string) string {
	if m := titleDivPattern.FindStringSubmatch(html); m != nil {
		return stripFormatSuffix(m[1])
	}
	if m := titleTagPattern.FindStringSubmatch(html); m != nil {
		title := strings.TrimSpace(m[1])
		if name, ok := strings.CutSuffix(title, " - HSGuru"); ok {
			return stripFormatSuffix(name)
		}
	}
	return ""
}

func stripFormatSuffix(name string) string {
	return strings.TrimSpace(formatSuffixPattern.ReplaceAllString(strings.TrimSpace(name), ""))
}

// NormalizeClassName maps display class names to their canonical form.
func NormalizeClassName(name string) string {
	switch strings.ToLower(name) {
	case "warrior":
		return "Warrior"
	case "shaman":
		return "Shaman"
	case "rogue":
		return "Rogue"
	case "paladin":
		return "Paladin"
	case "hunter":
		return "Hunter"
	case "druid":
		return "Druid"
	case "warlock":
		return "Warlock"
	case "mage":
		return "Mage"
	case "priest":
		return "Priest"
	case "demon hunter":
		return "DemonHunter"
	case "death knight":
		return "DeathKnight"
	default:
		return name
	}
}

// archetypeTurns finds the average turn count for a deck name on the meta
// page, exact archetype name first, then substring either way.
func archetypeTurns(html, deckName string) (float64, bool) {
	rows := archetypeRowPattern.FindAllStringSubmatch(html, -1)
	for _, m := range rows {
		if strings.EqualFold(strings.TrimSpace(m[1]), deckName) {
			if v, err := strconv.ParseFloat(m[2], 64); err == nil {
				return v, true
			}
		}
	}
	lower := strings.ToLower(deckName)
	for _, m := range rows {
		name := strings.ToLower(strings.TrimSpace(m[1]))
		if name == "" {
			continue
		}
		if strings.Contains(name, lower) || strings.Contains(lower, name) {
			if v, err := strconv.ParseFloat(m[2], 64); err == nil {
				return v, true
			}
		}
	}
	return 0, false
}

// archetypeCategory buckets an archetype by how long its games run.
func archetypeCategory(averageTurns float64) string {
	switch {
	case averageTurns <= 0:
		return ""
	case averageTurns <= 7.0:
		return "Aggro"
	case averageTurns <= 9.0:
		return "Midrange"
	default:
		return "Control/Combo"
	}
}
