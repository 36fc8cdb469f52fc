package irc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/onnwee/deckwatch/telemetry"
)

// DefaultAddr is the public Twitch IRC relay.
const DefaultAddr = "irc.chat.twitch.tv:6667"

// State is the connection lifecycle state.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateReading
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateReading:
		return "reading"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// Status is a point-in-time snapshot of the client.
type Status struct {
	State           State  `json:"state"`
	Channel         string `json:"channel"`
	ReconnectFailed bool   `json:"reconnect_failed"`
}

// Client owns one connection to the chat relay. Raw PRIVMSG lines are handed
// to OnLine from the reader goroutine; the callback must not block for long.
type Client struct {
	OnLine func(raw string)

	addr          string
	dialTimeout   time.Duration
	writeTimeout  time.Duration
	readSlice     time.Duration // read deadline granularity for the watchdog
	probeTimeout  time.Duration // silence threshold before declaring the connection dead
	probeInterval time.Duration // how often to send our own PING while silent
	backoffBase   time.Duration
	backoffMax    time.Duration
	maxAttempts   uint

	mu              sync.Mutex
	conn            net.Conn
	channel         string
	state           State
	gen             int // connection generation; bumped on every connect/disconnect
	cancel          context.CancelFunc
	reconnectFailed bool
}

// New returns a client with the production timings.
func New(onLine func(string)) *Client {
	return &Client{
		OnLine:        onLine,
		addr:          DefaultAddr,
		dialTimeout:   10 * time.Second,
		writeTimeout:  10 * time.Second,
		readSlice:     30 * time.Second,
		probeTimeout:  6 * time.Minute,
		probeInterval: 4 * time.Minute,
		backoffBase:   10 * time.Second,
		backoffMax:    5 * time.Minute,
		maxAttempts:   10,
	}
}

// Connect joins the given channel. Connecting to the channel we are already
// reading is a no-op; a different channel tears the old connection down first.
func (c *Client) Connect(ctx context.Context, channel string) error {
	channel = strings.ToLower(strings.TrimSpace(channel))
	if channel == "" {
		return errors.New("channel empty")
	}

	c.mu.Lock()
	if c.state == StateReading && c.channel == channel {
		c.mu.Unlock()
		slog.Info("already connected", slog.String("channel", channel))
		return nil
	}
	alreadyLive := c.state != StateIdle
	c.mu.Unlock()

	if alreadyLive {
		c.Disconnect()
	}
	return c.connect(ctx, channel)
}

func (c *Client) connect(ctx context.Context, channel string) error {
	c.mu.Lock()
	c.state = StateConnecting
	c.mu.Unlock()

	d := net.Dialer{Timeout: c.dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		c.mu.Lock()
		c.state = StateIdle
		c.mu.Unlock()
		return fmt.Errorf("dial %s: %w", c.addr, err)
	}

	for _, line := range []string{"PASS oauth:anonymous", "NICK justinfan12345", "JOIN #" + channel} {
		if err := c.send(conn, line); err != nil {
			_ = conn.Close()
			c.mu.Lock()
			c.state = StateIdle
			c.mu.Unlock()
			return fmt.Errorf("handshake: %w", err)
		}
	}

	// The reader outlives the (possibly request-scoped) connect context.
	rctx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	// Concurrent Connects can both reach here; whoever installs last wins and
	// tears the loser's transport down, so exactly one reader survives.
	c.mu.Lock()
	oldConn, oldCancel := c.conn, c.cancel
	c.conn = conn
	c.channel = channel
	c.cancel = cancel
	c.state = StateReading
	c.reconnectFailed = false
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	if oldCancel != nil {
		oldCancel()
	}
	if oldConn != nil {
		_ = oldConn.Close()
	}

	telemetry.SetConnectionUp(true)
	slog.Info("connected to twitch chat", slog.String("channel", channel))
	go c.readLoop(rctx, conn, channel, gen)
	return nil
}

// Disconnect cancels the reader, releases the transport, and aborts any
// pending reconnect backoff. Safe to call repeatedly and before Connect.
func (c *Client) Disconnect() {
	c.mu.Lock()
	cancel := c.cancel
	conn := c.conn
	c.cancel = nil
	c.conn = nil
	c.state = StateIdle
	c.gen++
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		_ = conn.Close()
	}
	telemetry.SetConnectionUp(false)
}

// Status returns a snapshot of the connection state.
func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{State: c.state, Channel: c.channel, ReconnectFailed: c.reconnectFailed}
}

func (c *Client) send(conn net.Conn, line string) error {
	if err := conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return err
	}
	_, err := fmt.Fprintf(conn, "%s\r\n", line)
	return err
}

// readLoop is the single reader for one connection generation. Every exit
// path either hands off to reconnect (which tears the transport down) or runs
// after Disconnect already has.
func (c *Client) readLoop(ctx context.Context, conn net.Conn, channel string, gen int) {
	reader := bufio.NewReader(conn)
	lastActivity := time.Now()
	lastProbeSent := time.Now()
	var partial strings.Builder

	for {
		if ctx.Err() != nil {
			return
		}
		if err := conn.SetReadDeadline(time.Now().Add(c.readSlice)); err != nil {
			c.reconnect(ctx, channel, gen)
			return
		}
		chunk, err := reader.ReadString('\n')
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				// Keep any bytes of a line that arrived before the deadline.
				partial.WriteString(chunk)
				if time.Since(lastActivity) >= c.probeTimeout {
					slog.Warn("no liveness probe or line within threshold, reconnecting",
						slog.Duration("threshold", c.probeTimeout), slog.String("channel", channel))
					c.reconnect(ctx, channel, gen)
					return
				}
				if time.Since(lastProbeSent) >= c.probeInterval {
					if werr := c.send(conn, "PING :tmi.twitch.tv"); werr != nil {
						slog.Warn("failed to send liveness probe", slog.Any("err", werr))
						c.reconnect(ctx, channel, gen)
						return
					}
					lastProbeSent = time.Now()
				}
				continue
			}
			if ctx.Err() != nil {
				return
			}
			slog.Warn("irc read error", slog.Any("err", err), slog.String("channel", channel))
			c.reconnect(ctx, channel, gen)
			return
		}

		line := strings.TrimRight(partial.String()+chunk, "\r\n")
		partial.Reset()
		lastActivity = time.Now()
		if telemetry.ChatLinesReceived != nil {
			telemetry.ChatLinesReceived.Inc()
		}

		switch {
		case strings.HasPrefix(line, "PING"):
			if werr := c.send(conn, "PONG :tmi.twitch.tv"); werr != nil {
				slog.Warn("failed to answer liveness probe", slog.Any("err", werr))
				c.reconnect(ctx, channel, gen)
				return
			}
		case strings.Contains(line, "PRIVMSG"):
			if c.OnLine != nil {
				c.OnLine(line)
			}
		default:
			// join notices, name lists, etc.
		}
	}
}

// reconnect tears the transport down and retries connect with exponential
// backoff. Exhausting the attempt budget sets the terminal reconnect-failed
// flag and returns to idle; a later Connect (e.g. from the periodic health
// check) clears it.
func (c *Client) reconnect(ctx context.Context, channel string, gen int) {
	c.mu.Lock()
	if gen != c.gen {
		// A newer connection (or an explicit Disconnect) superseded us.
		c.mu.Unlock()
		return
	}
	c.state = StateReconnecting
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	telemetry.SetConnectionUp(false)
	if conn != nil {
		_ = conn.Close()
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.backoffBase
	bo.MaxInterval = c.backoffMax
	bo.Multiplier = 2
	bo.RandomizationFactor = 0

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		if telemetry.Reconnects != nil {
			telemetry.Reconnects.Inc()
		}
		slog.Info("irc reconnect attempt", slog.Int("attempt", attempt), slog.String("channel", channel))
		if cerr := c.connect(ctx, channel); cerr != nil {
			// connect left us idle; we are still inside the reconnect cycle.
			c.mu.Lock()
			if gen == c.gen {
				c.state = StateReconnecting
			}
			c.mu.Unlock()
			return struct{}{}, cerr
		}
		return struct{}{}, nil
	}, backoff.WithBackOff(bo), backoff.WithMaxTries(c.maxAttempts))

	if err != nil {
		c.mu.Lock()
		if gen == c.gen {
			c.state = StateIdle
			c.reconnectFailed = true
		}
		c.mu.Unlock()
		slog.Error("irc reconnect attempts exhausted",
			slog.Int("attempts", attempt), slog.String("channel", channel), slog.Any("err", err))
	}
}
