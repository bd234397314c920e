package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/buildspace/pricebridge/internal/metrics"
	"github.com/buildspace/pricebridge/internal/model"
)

// Client represents the WebSocket connection to the exchange feed.
type Client interface {
	// Connect establishes the session, retrying with exponential backoff
	// up to the configured attempt limit. Idempotent while connected.
	Connect(ctx context.Context) error

	// Close gracefully closes the connection and the event stream.
	Close() error

	// Send writes a control frame on the open session.
	Send(data []byte) error

	// IsOpen reports whether the session is currently open.
	IsOpen() bool

	// State returns the current connection state.
	State() State

	// LastMessageAt returns when the last inbound frame arrived.
	LastMessageAt() time.Time

	// Subscribe attaches a new event stream subscriber. Every subscriber
	// receives all subsequent ticks and decode errors, best-effort.
	Subscribe() (<-chan Event, func())
}

// client implements the Client interface.
type client struct {
	cfg    Config
	logger *slog.Logger
	sink   *metrics.Sink

	hub *hub

	// State
	state         atomic.Int32
	lastMessageAt atomic.Int64 // ms since epoch

	// Write serialization
	writeMu sync.Mutex

	mu     sync.Mutex
	conn   *websocket.Conn
	done   chan struct{}
	closed bool
}

// NewClient creates a new feed client. The sink may be nil.
func NewClient(cfg Config, sink *metrics.Sink, logger *slog.Logger) Client {
	if logger == nil {
		logger = slog.Default()
	}

	c := &client{
		cfg:    cfg,
		logger: logger,
		sink:   sink,
		hub:    newHub(cfg.SubscriberBuffer),
	}
	c.lastMessageAt.Store(time.Now().UnixMilli())
	return c
}

// Connect establishes the WebSocket session.
func (c *client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrAlreadyClosed
	}
	if c.conn != nil && c.State() == StateConnected {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	c.setState(StateConnecting)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.RetryBaseInterval
	bo.Multiplier = c.cfg.RetryMultiplier
	bo.RandomizationFactor = 0

	maxAttempts := c.cfg.RetryMaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		conn, err := c.dial(ctx)
		if err == nil {
			c.attach(conn)
			c.logger.Info("feed connected", "url", c.cfg.URL, "attempt", attempt)
			return nil
		}
		lastErr = err

		// Cancellation is fatal for the whole connect, not retried.
		if ctx.Err() != nil {
			c.setState(StateDisconnected)
			return &ConnectError{Attempts: attempt, Err: ctx.Err()}
		}

		c.logger.Warn("feed connect attempt failed",
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"error", err,
		)

		if attempt == maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			c.setState(StateDisconnected)
			return &ConnectError{Attempts: attempt, Err: ctx.Err()}
		case <-time.After(bo.NextBackOff()):
		}
	}

	c.setState(StateDisconnected)
	return &ConnectError{Attempts: maxAttempts, Err: lastErr}
}

// dial performs a single connection attempt.
func (c *client) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: c.cfg.HandshakeTimeout,
	}
	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, nil)
	return conn, err
}

// attach installs the open session and starts its read loop.
func (c *client) attach(conn *websocket.Conn) {
	done := make(chan struct{})

	c.mu.Lock()
	c.conn = conn
	c.done = done
	c.mu.Unlock()

	c.setState(StateConnected)
	c.markMessage()

	go c.readLoop(conn, done)
}

// Close gracefully closes the connection.
func (c *client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	done := c.done
	c.mu.Unlock()

	c.setState(StateDisconnected)
	if done != nil {
		close(done)
	}
	c.hub.close()

	if conn != nil {
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		return conn.Close()
	}

	return nil
}

// Send writes a control frame to the open session.
func (c *client) Send(data []byte) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil || c.State() != StateConnected {
		return ErrNotOpen
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}

// IsOpen reports whether the session is open.
func (c *client) IsOpen() bool {
	return c.State() == StateConnected
}

// State returns the current connection state.
func (c *client) State() State {
	return State(c.state.Load())
}

// LastMessageAt returns the time of the last inbound frame.
func (c *client) LastMessageAt() time.Time {
	return time.UnixMilli(c.lastMessageAt.Load())
}

// Subscribe attaches a new event subscriber.
func (c *client) Subscribe() (<-chan Event, func()) {
	return c.hub.subscribe()
}

func (c *client) setState(s State) {
	c.state.Store(int32(s))
	c.sink.SetConnected(s == StateConnected)
}

func (c *client) markMessage() {
	c.lastMessageAt.Store(time.Now().UnixMilli())
	c.sink.MarkMessage()
}

// readLoop reads frames until the session drops or Close is called.
// A dropped session only flips the state; reconnecting is the owner's call.
func (c *client) readLoop(conn *websocket.Conn, done chan struct{}) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-done:
				return
			default:
			}
			c.setState(StateDisconnected)
			c.logger.Warn("feed connection closed", "error", err)
			return
		}

		c.markMessage()
		c.handleFrame(data)
	}
}

// handleFrame decodes one inbound text frame and multicasts the result.
func (c *client) handleFrame(data []byte) {
	tick, err := decodeFrame(data)
	switch {
	case err != nil:
		c.sink.IncIgnored()
		c.hub.publish(Event{Err: err})
	case tick != nil:
		c.sink.IncProcessed()
		c.hub.publish(Event{Tick: tick})
	default:
		c.logger.Info("subscription confirmation received")
	}
}

// feedFrame is the inbound wire shape. Pointer fields distinguish a
// present-but-null value from an absent one.
type feedFrame struct {
	Symbol *string         `json:"s"`
	Price  *string         `json:"p"`
	Result json.RawMessage `json:"result"`
}

// decodeFrame classifies one inbound frame.
//
// Returns (tick, nil) for a price tick, (nil, nil) for a subscription
// confirmation, and (nil, err) for anything else.
func decodeFrame(data []byte) (*model.PriceTick, error) {
	var frame feedFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, &InvalidMessageError{Payload: string(data)}
	}

	if frame.Symbol != nil && frame.Price != nil {
		price, err := decimal.NewFromString(*frame.Price)
		if err != nil {
			return nil, &InvalidMessageError{Payload: string(data)}
		}
		tick, err := model.NewPriceTick(*frame.Symbol, &price, 0)
		if err != nil {
			return nil, &InvalidMessageError{Payload: string(data)}
		}
		return &tick, nil
	}

	// Subscription confirmation: a present null result field.
	if string(frame.Result) == "null" {
		return nil, nil
	}

	return nil, &InvalidMessageError{Payload: string(data)}
}
