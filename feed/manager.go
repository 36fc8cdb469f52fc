package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/onnwee/deckwatch/config"
	"github.com/onnwee/deckwatch/deck"
	"github.com/onnwee/deckwatch/deckcode"
	"github.com/onnwee/deckwatch/irc"
	"github.com/onnwee/deckwatch/telemetry"
)

// Resolver turns a deck code into a resolved deck.
type Resolver interface {
	Resolve(ctx context.Context, code string) (*deck.Deck, error)
}

// Annotator reconciles a deck against the owned-cards snapshot.
type Annotator interface {
	Annotate(ctx context.Context, d *deck.Deck)
}

// Enricher attaches best-effort stats to a deck after publication.
type Enricher interface {
	Enrich(ctx context.Context, code string) (*deck.Enrichment, error)
}

// Store persists published decks. Persistence is best effort; a store
// failure never blocks publication.
type Store interface {
	InsertDeck(ctx context.Context, d *deck.Deck) error
}

// ErrNoCode is returned by SubmitCode when the text carries no deck code.
var ErrNoCode = errors.New("no deck code in text")

// test seam
var timeNow = time.Now

// Manager drives the chat-to-feed pipeline: raw IRC lines in, resolved and
// annotated decks out, enrichment attached asynchronously afterward. It also
// carries the control surface the HTTP layer calls into.
type Manager struct {
	client    *irc.Client
	resolver  Resolver
	inventory Annotator
	enricher  Enricher // nil disables enrichment
	store     Store    // nil disables persistence
	feed      *Feed
	rt        *config.Runtime

	ctx context.Context // app lifetime; in-flight resolutions outlive a disconnect
}

// NewManager wires the pipeline. The IRC client is owned by the manager and
// created here so its line callback lands on the pipeline.
func NewManager(rt *config.Runtime, f *Feed, r Resolver, inv Annotator, enr Enricher, store Store) *Manager {
	m := &Manager{
		resolver:  r,
		inventory: inv,
		enricher:  enr,
		store:     store,
		feed:      f,
		rt:        rt,
		ctx:       context.Background(),
	}
	m.client = irc.New(m.handleLine)
	return m
}

// Feed exposes the managed feed.
func (m *Manager) Feed() *Feed { return m.feed }

// Start stores the app context and joins the configured channel, if any.
func (m *Manager) Start(ctx context.Context) error {
	m.ctx = ctx
	ch := m.rt.Channel()
	if ch == "" {
		slog.Info("no chat channel configured, waiting for one")
		return nil
	}
	return m.client.Connect(ctx, ch)
}

// Shutdown tears down the chat connection. In-flight resolutions complete
// and publish on their own.
func (m *Manager) Shutdown() {
	m.client.Disconnect()
}

// Status reports the chat connection state.
func (m *Manager) Status() irc.Status {
	return m.client.Status()
}

// SetChannel switches the watched channel. Same channel is a no-op inside
// the client; a different one reconnects fresh.
func (m *Manager) SetChannel(ctx context.Context, channel string) error {
	channel = strings.TrimPrefix(strings.TrimSpace(channel), "#")
	if channel == "" {
		return fmt.Errorf("empty channel")
	}
	m.rt.SetChannel(channel)
	return m.client.Connect(ctx, channel)
}

// ApplyCredentials installs a new API bearer token for future resolutions.
func (m *Manager) ApplyCredentials(token string) {
	m.rt.SetBearerToken(token)
	slog.Info("api credentials updated")
}

// SubmitCode runs the pipeline on text pasted directly, bypassing chat.
func (m *Manager) SubmitCode(ctx context.Context, text, author string) (*deck.Deck, error) {
	code, ok := deckcode.Extract(text)
	if !ok {
		return nil, ErrNoCode
	}
	if author == "" {
		author = "manual"
	}
	return m.process(ctx, author, code)
}

// CheckHealth re-joins the configured channel when the connection is not in
// a healthy reading state. Safe to call on a schedule; a live connection is
// left alone.
func (m *Manager) CheckHealth(ctx context.Context) {
	ch := m.rt.Channel()
	if ch == "" {
		return
	}
	st := m.client.Status()
	if st.State == irc.StateReading || st.State == irc.StateConnecting || st.State == irc.StateReconnecting {
		return
	}
	slog.Info("health check reconnecting", slog.String("channel", ch), slog.String("state", st.State.String()))
	if err := m.client.Connect(ctx, ch); err != nil {
		slog.Warn("health check reconnect failed", slog.Any("err", err))
	}
}

// handleLine is the IRC client's line callback. Parsing and extraction run
// inline in arrival order; resolution goes to its own goroutine, so the feed
// reflects resolution-completion order.
func (m *Manager) handleLine(raw string) {
	msg, ok := irc.ParsePrivateMessage(raw)
	if !ok {
		return
	}
	if telemetry.ChatMessagesParsed != nil {
		telemetry.ChatMessagesParsed.Inc()
	}
	code, ok := deckcode.Extract(msg.Text)
	if !ok {
		return
	}
	if telemetry.DeckCodesDetected != nil {
		telemetry.DeckCodesDetected.Inc()
	}

	go func() {
		if _, err := m.process(m.ctx, msg.Sender, code); err != nil {
			telemetry.LoggerWithCorr(m.ctx).Warn("deck resolution failed",
				slog.String("author", msg.Sender), slog.Any("err", err))
		}
	}()
}

// process resolves, annotates, publishes, persists, and enriches one code.
// Resolution failure means no feed entry, ever; annotation and enrichment
// only degrade the record.
func (m *Manager) process(ctx context.Context, author, code string) (*deck.Deck, error) {
	ctx = telemetry.WithCorrelation(ctx, uuid.NewString())
	log := telemetry.LoggerWithCorr(ctx)

	d, err := m.resolver.Resolve(ctx, code)
	if err != nil {
		return nil, err
	}
	d.Author = author
	d.AddedAt = timeNow()

	if m.inventory != nil {
		m.inventory.Annotate(ctx, d)
	}

	m.feed.Insert(d)
	log.Info("deck published",
		slog.String("author", author),
		slog.String("class", d.Class),
		slog.Int("feed_size", m.feed.Len()))

	if m.store != nil {
		if err := m.store.InsertDeck(ctx, d); err != nil {
			log.Warn("deck persist failed", slog.Any("err", err))
		}
	}

	if m.enricher != nil {
		// Detached from the caller: a submit request's context dies when the
		// handler returns, and enrichment must outlive it.
		go m.enrich(context.WithoutCancel(ctx), d.Code)
	}
	return d, nil
}

func (m *Manager) enrich(ctx context.Context, code string) {
	enr, err := m.enricher.Enrich(ctx, code)
	if err != nil {
		// Saturation and scrape failures alike: the deck stands on its own.
		telemetry.LoggerWithCorr(ctx).Debug("enrichment unavailable", slog.Any("err", err))
		return
	}
	m.feed.UpdateEnrichment(code, enr)
}
