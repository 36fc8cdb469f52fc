// Command deckwatch watches a Twitch chat channel for Hearthstone deck
// codes, resolves each one into a full deck list, reconciles it against the
// local collection for dust costs, attaches best-effort HSGuru stats, and
// serves the resulting bounded feed over HTTP (JSON and SSE).
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/onnwee/deckwatch/carddb"
	"github.com/onnwee/deckwatch/collection"
	"github.com/onnwee/deckwatch/config"
	"github.com/onnwee/deckwatch/db"
	"github.com/onnwee/deckwatch/feed"
	"github.com/onnwee/deckwatch/hsguru"
	"github.com/onnwee/deckwatch/resolver"
	"github.com/onnwee/deckwatch/server"
	"github.com/onnwee/deckwatch/telemetry"
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load()

	setupLogging()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}
	rt := config.NewRuntime(cfg)

	telemetry.Init()
	shutdownTracing, err := telemetry.InitTracing("deckwatch", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdownTracing()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Optional deck history persistence.
	var store *db.Store
	if cfg.DBDsn != "" {
		database, err := db.Connect(cfg.DBDsn)
		if err != nil {
			slog.Error("failed to open db", slog.Any("err", err))
			os.Exit(1)
		}
		defer func() {
			if err := database.Close(); err != nil {
				slog.Error("failed to close database", slog.Any("err", err))
			}
		}()
		if err := db.Migrate(ctx, database); err != nil {
			slog.Error("db migrate failed", slog.Any("err", err))
			os.Exit(1)
		}
		store = &db.Store{DB: database}
		slog.Info("deck history persistence enabled")
	}

	// Local decode path: a card table from disk or the public dump. Absence
	// is normal; the resolver falls back to the remote API.
	var local resolver.LocalDecoder
	if table := loadCardTable(ctx, cfg); table != nil {
		local = &resolver.CardDBDecoder{DB: table}
		slog.Info("local deckstring decoder available", slog.Int("cards", table.Len()))
	} else {
		slog.Info("local deckstring decoder unavailable, using remote api only")
	}

	api := &resolver.APIClient{
		BaseURL:     cfg.BlizzardAPIURL,
		Runtime:     rt,
		TokenSource: resolver.NewBlizzardTokenSource(ctx, cfg.BlizzardClientID, cfg.BlizzardClientSecret),
	}
	res := resolver.New(api, local)

	// Collection snapshot; file-backed when a path is configured, push-only
	// otherwise (POST /collection).
	var src collection.Source
	if cfg.CollectionPath != "" {
		src = &collection.FileSource{Path: cfg.CollectionPath}
	}
	snap := collection.NewSnapshot(src, collection.Options{
		CheckCollection:    cfg.CheckCollection,
		CalculateTotalDust: cfg.CalculateTotalDust,
		CalculateDustNeed:  cfg.CalculateDustNeeded,
	})
	if src != nil {
		if err := snap.Refresh(ctx); err != nil {
			slog.Warn("initial collection load failed", slog.Any("err", err))
		}
	}

	enricher := hsguru.New(cfg.HSGuruBaseURL, rt)

	var storeDep feed.Store
	if store != nil {
		storeDep = store
	}
	mgr := feed.NewManager(rt, feed.New(rt), res, snap, enricher, storeDep)
	if err := mgr.Start(ctx); err != nil {
		slog.Warn("initial chat connect failed, health check will retry", slog.Any("err", err))
	}
	defer mgr.Shutdown()

	// Scheduled upkeep: connection health checks and collection refreshes.
	sched := cron.New()
	if _, err := sched.AddFunc(cfg.HealthCheckSpec, func() { mgr.CheckHealth(ctx) }); err != nil {
		slog.Error("invalid health check schedule", slog.Any("err", err))
		os.Exit(1)
	}
	if src != nil {
		if _, err := sched.AddFunc(cfg.CollectionRefreshSpec, func() {
			_ = snap.Refresh(ctx)
			telemetry.SetSnapshotAge(snap.Age())
		}); err != nil {
			slog.Error("invalid collection refresh schedule", slog.Any("err", err))
			os.Exit(1)
		}
	}
	sched.Start()
	defer sched.Stop()

	deps := server.Deps{
		Manager:  mgr,
		Runtime:  rt,
		Resolver: res,
		Store:    store,
		Snapshot: snap,
	}
	if err := server.Start(ctx, deps, cfg.HTTPAddr); err != nil {
		os.Exit(1)
	}
	slog.Info("shutdown complete")
}

// setupLogging configures slog from LOG_LEVEL and LOG_FORMAT (text|json).
func setupLogging() {
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	var handler slog.Handler
	if strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
}

// loadCardTable tries the local dump file first, then the public card dump.
// Either failing just means no local decode path.
func loadCardTable(ctx context.Context, cfg *config.Config) *carddb.DB {
	if cfg.CardDBPath != "" {
		table, err := carddb.Load(cfg.CardDBPath)
		if err != nil {
			slog.Warn("card table load failed", slog.String("path", cfg.CardDBPath), slog.Any("err", err))
		} else {
			return table
		}
	}
	if cfg.CardDBURL != "" {
		fetchCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		table, err := carddb.Fetch(fetchCtx, cfg.CardDBURL, &http.Client{Timeout: 30 * time.Second})
		if err != nil {
			slog.Warn("card table fetch failed", slog.String("url", cfg.CardDBURL), slog.Any("err", err))
			return nil
		}
		return table
	}
	return nil
}
