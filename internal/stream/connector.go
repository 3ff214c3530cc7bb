// SPDX-License-Identifier: MIT

// Package stream maintains one live websocket per platform against the push
// service, forwards event frames to the router and reconnects with capped
// exponential backoff. Connectors are independent; one platform's outage
// never blocks another's pipeline.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ManuGH/auraxd/internal/events"
	"github.com/ManuGH/auraxd/internal/log"
	"github.com/ManuGH/auraxd/internal/metrics"
	"github.com/coder/websocket"
	"github.com/rs/zerolog"
)

// Handler consumes inbound event envelopes. It must not block; routing only
// classifies and enqueues.
type Handler interface {
	Route(env events.Envelope)
}

// Config holds one connector's settings.
type Config struct {
	Platform  events.Platform
	URL       string // websocket endpoint of the push service
	ServiceID string
	Worlds    []string // world ids to subscribe, "all" accepted upstream

	BackoffBase     time.Duration
	BackoffCap      time.Duration
	StabilityWindow time.Duration // connected-for duration that resets backoff
}

// Status is a point-in-time snapshot of a connector's state.
type Status struct {
	Platform            events.Platform `json:"platform"`
	Connected           bool            `json:"connected"`
	ConsecutiveFailures int             `json:"consecutive_failures"`
	LastFrame           time.Time       `json:"last_frame,omitempty"`
	NextDelay           time.Duration   `json:"next_delay,omitempty"`
}

// conn abstracts the websocket session for testing.
type conn interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Close() error
}

// dialFunc opens a session. Swappable in tests.
type dialFunc func(ctx context.Context, url string) (conn, error)

// Connector owns a single platform's stream connection.
type Connector struct {
	cfg    Config
	router Handler
	logger zerolog.Logger
	dial   dialFunc

	running atomic.Bool

	mu     sync.Mutex
	status Status
}

// NewConnector creates a connector for the given platform.
func NewConnector(cfg Config, router Handler) *Connector {
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = time.Second
	}
	if cfg.BackoffCap <= 0 {
		cfg.BackoffCap = 5 * time.Minute
	}
	if cfg.StabilityWindow <= 0 {
		cfg.StabilityWindow = 60 * time.Second
	}
	return &Connector{
		cfg:    cfg,
		router: router,
		logger: log.Derive(func(c *zerolog.Context) {
			*c = c.Str(log.FieldComponent, "stream").Str(log.FieldPlatform, string(cfg.Platform))
		}),
		dial: dialWebsocket,
		status: Status{
			Platform: cfg.Platform,
		},
	}
}

// Run connects and keeps the stream alive until ctx is cancelled. A second
// Run for an already-running connector is a no-op returning nil immediately:
// reconnects are idempotent per platform.
func (c *Connector) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		c.logger.Debug().
			Str(log.FieldEvent, "stream.duplicate_run").
			Msg("connector already running")
		return nil
	}
	defer c.running.Store(false)

	bo := newBackoff(c.cfg.BackoffBase, c.cfg.BackoffCap)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		connectedFor, err := c.session(ctx)
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}

		if connectedFor >= c.cfg.StabilityWindow {
			bo.Reset()
		}
		delay := bo.Next()
		c.setDisconnected(bo.Failures(), delay)
		metrics.ReconnectsTotal.WithLabelValues(string(c.cfg.Platform)).Inc()

		c.logger.Warn().
			Err(err).
			Int(log.FieldAttempt, bo.Failures()).
			Int64(log.FieldBackoffMS, delay.Milliseconds()).
			Str(log.FieldEvent, "stream.reconnect").
			Msg("stream session ended, reconnecting")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// Running reports whether the connector loop is active.
func (c *Connector) Running() bool {
	return c.running.Load()
}

// Status returns a snapshot of the connector state.
func (c *Connector) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// session runs one connection from dial to failure and returns how long the
// subscribed connection was up.
func (c *Connector) session(ctx context.Context) (time.Duration, error) {
	sock, err := c.dial(ctx, c.streamURL())
	if err != nil {
		return 0, fmt.Errorf("dial: %w", err)
	}
	defer sock.Close()

	if err := c.subscribe(ctx, sock); err != nil {
		return 0, fmt.Errorf("subscribe: %w", err)
	}

	start := time.Now()
	c.setConnected()
	defer func() {
		c.mu.Lock()
		c.status.Connected = false
		c.mu.Unlock()
	}()

	c.logger.Info().
		Str(log.FieldEvent, "stream.connected").
		Msg("stream connected and subscribed")

	for {
		data, err := sock.Read(ctx)
		if err != nil {
			return time.Since(start), fmt.Errorf("read: %w", err)
		}
		c.handleFrame(data)
	}
}

// subscribeEnvelope is the outbound subscription request.
type subscribeEnvelope struct {
	Service    string   `json:"service"`
	Action     string   `json:"action"`
	Worlds     []string `json:"worlds"`
	EventNames []string `json:"eventNames"`
}

// subscribe sends one envelope per event-kind group.
func (c *Connector) subscribe(ctx context.Context, sock conn) error {
	groups := [][]string{
		{"PlayerLogin", "PlayerLogout"},
		{"MetagameEvent", "FacilityControl"},
	}
	for _, names := range groups {
		env := subscribeEnvelope{
			Service:    "event",
			Action:     "subscribe",
			Worlds:     c.cfg.Worlds,
			EventNames: names,
		}
		data, err := json.Marshal(env)
		if err != nil {
			return err
		}
		if err := sock.Write(ctx, data); err != nil {
			return err
		}
	}
	return nil
}

// handleFrame decodes one inbound frame. Frames without a payload are the
// service's keep-alives and are dropped; malformed frames are dropped too,
// never terminating the session.
func (c *Connector) handleFrame(data []byte) {
	var frame struct {
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &frame); err != nil {
		metrics.IncFrame(string(c.cfg.Platform), metrics.FrameMalformed)
		c.logger.Debug().
			Err(err).
			Str(log.FieldEvent, "stream.malformed_frame").
			Msg("discarding malformed frame")
		return
	}
	if len(frame.Payload) == 0 || string(frame.Payload) == "null" {
		metrics.IncFrame(string(c.cfg.Platform), metrics.FrameHeartbeat)
		return
	}

	c.mu.Lock()
	c.status.LastFrame = time.Now()
	c.mu.Unlock()

	metrics.IncFrame(string(c.cfg.Platform), metrics.FrameEvent)
	c.router.Route(events.Envelope{
		Platform: c.cfg.Platform,
		Payload:  frame.Payload,
	})
}

func (c *Connector) setConnected() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status.Connected = true
	c.status.ConsecutiveFailures = 0
	c.status.NextDelay = 0
}

func (c *Connector) setDisconnected(failures int, next time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status.Connected = false
	c.status.ConsecutiveFailures = failures
	c.status.NextDelay = next
}

// environment maps a platform to the push service's environment slug.
func environment(p events.Platform) string {
	switch p {
	case events.PlatformPS4US:
		return "ps2ps4us"
	case events.PlatformPS4EU:
		return "ps2ps4eu"
	default:
		return "ps2"
	}
}

func (c *Connector) streamURL() string {
	return fmt.Sprintf("%s?environment=%s&service-id=%s", c.cfg.URL, environment(c.cfg.Platform), c.cfg.ServiceID)
}

// wsConn adapts coder/websocket to the conn interface.
type wsConn struct {
	ws *websocket.Conn
}

func (w *wsConn) Read(ctx context.Context) ([]byte, error) {
	_, data, err := w.ws.Read(ctx)
	return data, err
}

func (w *wsConn) Write(ctx context.Context, data []byte) error {
	return w.ws.Write(ctx, websocket.MessageText, data)
}

func (w *wsConn) Close() error {
	return w.ws.Close(websocket.StatusNormalClosure, "shutdown")
}

func dialWebsocket(ctx context.Context, url string) (conn, error) {
	ws, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return &wsConn{ws: ws}, nil
}
