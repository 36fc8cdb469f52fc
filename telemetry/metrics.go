// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	ChatLinesReceived    prometheus.Counter
	ChatMessagesParsed   prometheus.Counter
	DeckCodesDetected    prometheus.Counter
	ResolutionsSucceeded prometheus.Counter
	ResolutionsFailed    prometheus.Counter
	ResolutionCacheHits  prometheus.Counter
	ResolutionCacheMiss  prometheus.Counter
	LocalDecodes         prometheus.Counter
	Reconnects           prometheus.Counter
	EnrichmentsSkipped   prometheus.Counter

	// Histograms (seconds)
	ResolveDuration prometheus.Observer
	EnrichDuration  prometheus.Observer

	// Gauges
	FeedSizeGauge      prometheus.Gauge
	CacheSizeGauge     prometheus.Gauge
	ConnectionUpGauge  prometheus.Gauge // 1=reading, 0=anything else
	SnapshotAgeSeconds prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		ChatLinesReceived = promauto.NewCounter(prometheus.CounterOpts{Name: "deckwatch_chat_lines_total", Help: "Raw IRC lines received"})
		ChatMessagesParsed = promauto.NewCounter(prometheus.CounterOpts{Name: "deckwatch_chat_messages_total", Help: "PRIVMSG lines successfully parsed"})
		DeckCodesDetected = promauto.NewCounter(prometheus.CounterOpts{Name: "deckwatch_deck_codes_total", Help: "Deck codes extracted from chat messages"})
		ResolutionsSucceeded = promauto.NewCounter(prometheus.CounterOpts{Name: "deckwatch_resolutions_succeeded_total", Help: "Deck resolutions that produced a record"})
		ResolutionsFailed = promauto.NewCounter(prometheus.CounterOpts{Name: "deckwatch_resolutions_failed_total", Help: "Deck resolutions that failed"})
		ResolutionCacheHits = promauto.NewCounter(prometheus.CounterOpts{Name: "deckwatch_resolution_cache_hits_total", Help: "Resolver cache hits"})
		ResolutionCacheMiss = promauto.NewCounter(prometheus.CounterOpts{Name: "deckwatch_resolution_cache_misses_total", Help: "Resolver cache misses"})
		LocalDecodes = promauto.NewCounter(prometheus.CounterOpts{Name: "deckwatch_local_decodes_total", Help: "Decks resolved via the local deckstring decoder"})
		Reconnects = promauto.NewCounter(prometheus.CounterOpts{Name: "deckwatch_irc_reconnects_total", Help: "IRC reconnect attempts"})
		EnrichmentsSkipped = promauto.NewCounter(prometheus.CounterOpts{Name: "deckwatch_enrichments_skipped_total", Help: "Stats enrichments skipped because the limiter was saturated"})
		ResolveDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "deckwatch_resolve_duration_seconds", Help: "Deck resolution duration seconds", Buckets: prometheus.DefBuckets})
		EnrichDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "deckwatch_enrich_duration_seconds", Help: "Stats enrichment duration seconds", Buckets: prometheus.DefBuckets})
		FeedSizeGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "deckwatch_feed_size", Help: "Current number of decks in the feed"})
		CacheSizeGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "deckwatch_resolution_cache_size", Help: "Current number of cached deck resolutions"})
		ConnectionUpGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "deckwatch_irc_connected", Help: "IRC connection reading=1 otherwise 0"})
		SnapshotAgeSeconds = promauto.NewGauge(prometheus.GaugeOpts{Name: "deckwatch_collection_snapshot_age_seconds", Help: "Age of the collection snapshot"})
	})
}

// SetConnectionUp sets the connection gauge to 1 if up else 0.
func SetConnectionUp(up bool) {
	if ConnectionUpGauge != nil {
		if up {
			ConnectionUpGauge.Set(1)
		} else {
			ConnectionUpGauge.Set(0)
		}
	}
}

// SetFeedSize records the current feed length.
func SetFeedSize(n int) {
	if FeedSizeGauge != nil {
		FeedSizeGauge.Set(float64(n))
	}
}

// SetCacheSize records the current resolver cache size.
func SetCacheSize(n int) {
	if CacheSizeGauge != nil {
		CacheSizeGauge.Set(float64(n))
	}
}

// SetSnapshotAge records the collection snapshot age.
func SetSnapshotAge(age time.Duration) {
	if SnapshotAgeSeconds != nil {
		SnapshotAgeSeconds.Set(age.Seconds())
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding correlation id (if absent) and the id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	v := ctx.Value(corrKey)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
