package config

import "sync"

// Runtime holds the settings the admin API may change while the service runs.
// All access goes through the accessors; the mutex is never held across I/O.
type Runtime struct {
	mu           sync.RWMutex
	channel      string
	bearerToken  string
	feedCap      int
	rankFilter   string
	periodFilter string
}

// NewRuntime seeds the runtime view from the loaded config.
func NewRuntime(cfg *Config) *Runtime {
	return &Runtime{
		channel:      cfg.TwitchChannel,
		bearerToken:  cfg.BlizzardToken,
		feedCap:      cfg.FeedCap,
		rankFilter:   cfg.HSGuruRankFilter,
		periodFilter: cfg.HSGuruPeriodFilter,
	}
}

func (r *Runtime) Channel() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.channel
}

func (r *Runtime) SetChannel(ch string) {
	r.mu.Lock()
	r.channel = ch
	r.mu.Unlock()
}

func (r *Runtime) BearerToken() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.bearerToken
}

func (r *Runtime) SetBearerToken(tok string) {
	r.mu.Lock()
	r.bearerToken = tok
	r.mu.Unlock()
}

func (r *Runtime) FeedCap() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.feedCap
}

func (r *Runtime) SetFeedCap(n int) {
	if n <= 0 {
		return
	}
	r.mu.Lock()
	r.feedCap = n
	r.mu.Unlock()
}

// Filters returns the HSGuru rank and period filters as one read.
func (r *Runtime) Filters() (rank, period string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rankFilter, r.periodFilter
}

func (r *Runtime) SetFilters(rank, period string) {
	r.mu.Lock()
	if rank != "" {
		r.rankFilter = rank
	}
	if period != "" {
		r.periodFilter = period
	}
	r.mu.Unlock()
}
