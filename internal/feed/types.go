package feed

import (
	"errors"
	"fmt"
	"time"

	"github.com/buildspace/pricebridge/internal/model"
)

// Errors
var (
	ErrNotOpen       = errors.New("connection not open")
	ErrAlreadyClosed = errors.New("already closed")
)

// ConnectError reports a connect attempt that was exhausted or interrupted.
type ConnectError struct {
	Attempts int
	Err      error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// InvalidMessageError reports an inbound frame that is neither a price
// tick nor a subscription confirmation.
type InvalidMessageError struct {
	Payload string
}

func (e *InvalidMessageError) Error() string {
	return "invalid feed message: " + e.Payload
}

// State is the connection lifecycle state.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Event is one entry in the feed's multicast stream: a price tick or a
// decode error. Exactly one field is set.
type Event struct {
	Tick *model.PriceTick
	Err  error
}

// Config configures the feed client.
type Config struct {
	URL               string        // WebSocket URL (e.g., wss://fstream.binance.com/ws)
	RetryMaxAttempts  int           // Connect attempts before giving up
	RetryBaseInterval time.Duration // First retry wait
	RetryMultiplier   float64       // Backoff multiplier between attempts
	HandshakeTimeout  time.Duration // Dial handshake deadline
	WriteTimeout      time.Duration // Write deadline for sends
	SubscriberBuffer  int           // Per-subscriber event channel buffer
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		RetryMaxAttempts:  5,
		RetryBaseInterval: 2 * time.Second,
		RetryMultiplier:   2,
		HandshakeTimeout:  10 * time.Second,
		WriteTimeout:      5 * time.Second,
		SubscriberBuffer:  1000,
	}
}
