package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TWITCH_CHANNEL", "")
	t.Setenv("FEED_CAP", "")
	t.Setenv("BLIZZARD_API_URL", "")
	t.Setenv("HSGURU_RANK_FILTER", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.FeedCap != 5 {
		t.Errorf("FeedCap = %d, want 5", cfg.FeedCap)
	}
	if cfg.BlizzardAPIURL != "https://us.api.blizzard.com/hearthstone/deck" {
		t.Errorf("unexpected BlizzardAPIURL %q", cfg.BlizzardAPIURL)
	}
	if cfg.HSGuruRankFilter != "all" || cfg.HSGuruPeriodFilter != "past_week" {
		t.Errorf("unexpected filters %q/%q", cfg.HSGuruRankFilter, cfg.HSGuruPeriodFilter)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
	if !cfg.CheckCollection || !cfg.CalculateTotalDust || !cfg.CalculateDustNeeded {
		t.Error("collection toggles should default true")
	}
}

func TestLoadInvalidFeedCap(t *testing.T) {
	t.Setenv("FEED_CAP", "zero")
	if _, err := Load(); err == nil {
		t.Error("expected error for invalid FEED_CAP")
	}
	t.Setenv("FEED_CAP", "-3")
	if _, err := Load(); err == nil {
		t.Error("expected error for negative FEED_CAP")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("TWITCH_CHANNEL", "somestreamer")
	t.Setenv("FEED_CAP", "12")
	t.Setenv("CHECK_COLLECTION", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TwitchChannel != "somestreamer" {
		t.Errorf("TwitchChannel = %q", cfg.TwitchChannel)
	}
	if cfg.FeedCap != 12 {
		t.Errorf("FeedCap = %d, want 12", cfg.FeedCap)
	}
	if cfg.CheckCollection {
		t.Error("CHECK_COLLECTION=false not honored")
	}
}

func TestRuntimeAccessors(t *testing.T) {
	cfg := &Config{TwitchChannel: "foo", BlizzardToken: "tok", FeedCap: 5, HSGuruRankFilter: "all", HSGuruPeriodFilter: "past_week"}
	rt := NewRuntime(cfg)

	if rt.Channel() != "foo" || rt.BearerToken() != "tok" || rt.FeedCap() != 5 {
		t.Error("runtime not seeded from config")
	}

	rt.SetChannel("bar")
	rt.SetBearerToken("tok2")
	rt.SetFeedCap(9)
	rt.SetFeedCap(0) // ignored
	rt.SetFilters("diamond_to_legend", "")

	if rt.Channel() != "bar" {
		t.Errorf("Channel = %q", rt.Channel())
	}
	if rt.FeedCap() != 9 {
		t.Errorf("FeedCap = %d, want 9", rt.FeedCap())
	}
	rank, period := rt.Filters()
	if rank != "diamond_to_legend" || period != "past_week" {
		t.Errorf("Filters = %q/%q", rank, period)
	}
}
