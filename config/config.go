// Package config loads environment variables and provides a typed Config used across the service.
// It applies sensible defaults so the binary can run locally with minimal setup.
// The live-mutable subset (channel, token, feed cap, stat filters) lives in Runtime.
package config

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	// Twitch
	TwitchChannel string

	// Blizzard deck API
	BlizzardToken        string
	BlizzardClientID     string
	BlizzardClientSecret string
	BlizzardAPIURL       string

	// HSGuru stats
	HSGuruBaseURL      string
	HSGuruRankFilter   string
	HSGuruPeriodFilter string

	// Feed
	FeedCap int

	// Card database (local deckstring decode path)
	CardDBPath string
	CardDBURL  string

	// Collection
	CollectionPath      string
	CheckCollection     bool
	CalculateTotalDust  bool
	CalculateDustNeeded bool

	// Database (empty disables deck history persistence)
	DBDsn string

	// HTTP
	HTTPAddr string

	// Cron schedules
	HealthCheckSpec       string
	CollectionRefreshSpec string
}

// Load reads environment variables and applies defaults. It doesn't fail if the channel is
// missing; the service starts idle and the channel can be set through the config API.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.TwitchChannel = os.Getenv("TWITCH_CHANNEL")

	cfg.BlizzardToken = os.Getenv("BLIZZARD_BEARER_TOKEN")
	cfg.BlizzardClientID = os.Getenv("BLIZZARD_CLIENT_ID")
	cfg.BlizzardClientSecret = os.Getenv("BLIZZARD_CLIENT_SECRET")
	cfg.BlizzardAPIURL = os.Getenv("BLIZZARD_API_URL")
	if cfg.BlizzardAPIURL == "" {
		cfg.BlizzardAPIURL = "https://us.api.blizzard.com/hearthstone/deck"
	}

	cfg.HSGuruBaseURL = os.Getenv("HSGURU_BASE_URL")
	if cfg.HSGuruBaseURL == "" {
		cfg.HSGuruBaseURL = "https://www.hsguru.com"
	}
	cfg.HSGuruRankFilter = os.Getenv("HSGURU_RANK_FILTER")
	if cfg.HSGuruRankFilter == "" {
		cfg.HSGuruRankFilter = "all"
	}
	cfg.HSGuruPeriodFilter = os.Getenv("HSGURU_PERIOD_FILTER")
	if cfg.HSGuruPeriodFilter == "" {
		cfg.HSGuruPeriodFilter = "past_week"
	}

	cfg.FeedCap = 5
	if v := os.Getenv("FEED_CAP"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid FEED_CAP: %q", v)
		}
		cfg.FeedCap = n
	}

	cfg.CardDBPath = os.Getenv("CARDDB_PATH")
	cfg.CardDBURL = os.Getenv("CARDDB_URL")
	if cfg.CardDBURL == "" {
		cfg.CardDBURL = "https://api.hearthstonejson.com/v1/latest/enUS/cards.collectible.json"
	}

	cfg.CollectionPath = os.Getenv("COLLECTION_PATH")
	cfg.CheckCollection = envBool("CHECK_COLLECTION", true)
	cfg.CalculateTotalDust = envBool("CALCULATE_TOTAL_DUST", true)
	cfg.CalculateDustNeeded = envBool("CALCULATE_DUST_NEEDED", true)

	cfg.DBDsn = os.Getenv("DB_DSN")

	cfg.HTTPAddr = os.Getenv("HTTP_ADDR")
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	cfg.HealthCheckSpec = os.Getenv("HEALTH_CHECK_SPEC")
	if cfg.HealthCheckSpec == "" {
		cfg.HealthCheckSpec = "@every 1m"
	}
	cfg.CollectionRefreshSpec = os.Getenv("COLLECTION_REFRESH_SPEC")
	if cfg.CollectionRefreshSpec == "" {
		cfg.CollectionRefreshSpec = "@every 1m"
	}

	return cfg, nil
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
