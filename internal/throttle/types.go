package throttle

import (
	"fmt"
	"time"
)

// Wire methods for the outbound control frame.
const (
	MethodSubscribe   = "SUBSCRIBE"
	MethodUnsubscribe = "UNSUBSCRIBE"
)

// command is the outbound control frame.
type command struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	ID     int64    `json:"id"`
}

// SendError reports an I/O failure while sending a batch. Every entry in
// the failed batch has already been resolved as failed; the throttler
// does not retry, resubmission is the caller's policy.
type SendError struct {
	Method  string
	Symbols int
	Err     error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send %s batch of %d: %v", e.Method, e.Symbols, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

// Config configures the throttler.
type Config struct {
	FlushInterval time.Duration // Fixed flush period
	BatchLimit    int           // Max symbols per request (exchange limit)
	StreamSuffix  string        // Channel suffix appended to the lowercased symbol
}

// DefaultConfig returns the exchange's documented limits.
func DefaultConfig() Config {
	return Config{
		FlushInterval: 1200 * time.Millisecond,
		BatchLimit:    50,
		StreamSuffix:  "usdt@markprice@1s",
	}
}
