// Package metrics provides the operational gauges and counters for the
// price bridge.
//
// Key metrics:
//   - websocket.status: feed connection liveness (0/1)
//   - websocket.silence.seconds: time since the last inbound feed message
//   - websocket.messages.processed / .ignored: decode outcomes
//   - subscriptions.active: persisted subscription count
//
// Values are advisory only; no component reads them to make decisions.
package metrics

import (
	"sync/atomic"
	"time"
)

// Sink collects bridge metrics. All methods are safe for concurrent use
// and safe to call on a nil receiver, so components can treat the sink
// as optional.
type Sink struct {
	wsStatus      atomic.Int64
	lastMessageAt atomic.Int64 // ms since epoch
	processed     atomic.Int64
	ignored       atomic.Int64
	activeSubs    atomic.Int64
}

// NewSink creates a Sink with the silence clock started at now.
func NewSink() *Sink {
	s := &Sink{}
	s.lastMessageAt.Store(time.Now().UnixMilli())
	return s
}

// SetConnected records the feed connection state (websocket.status).
func (s *Sink) SetConnected(up bool) {
	if s == nil {
		return
	}
	var v int64
	if up {
		v = 1
	}
	s.wsStatus.Store(v)
}

// MarkMessage stamps the last-message timestamp.
func (s *Sink) MarkMessage() {
	if s == nil {
		return
	}
	s.lastMessageAt.Store(time.Now().UnixMilli())
}

// IncProcessed counts a decoded price tick.
func (s *Sink) IncProcessed() {
	if s == nil {
		return
	}
	s.processed.Add(1)
}

// IncIgnored counts an inbound frame that failed to decode.
func (s *Sink) IncIgnored() {
	if s == nil {
		return
	}
	s.ignored.Add(1)
}

// SetActiveSubscriptions records the persisted subscription count.
func (s *Sink) SetActiveSubscriptions(n int64) {
	if s == nil {
		return
	}
	s.activeSubs.Store(n)
}

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Connected           bool    `json:"websocket.status"`
	SilenceSeconds      float64 `json:"websocket.silence.seconds"`
	MessagesProcessed   int64   `json:"websocket.messages.processed"`
	MessagesIgnored     int64   `json:"websocket.messages.ignored"`
	ActiveSubscriptions int64   `json:"subscriptions.active"`
}

// Snapshot returns the current metric values.
func (s *Sink) Snapshot() Snapshot {
	if s == nil {
		return Snapshot{}
	}
	return Snapshot{
		Connected:           s.wsStatus.Load() == 1,
		SilenceSeconds:      float64(time.Now().UnixMilli()-s.lastMessageAt.Load()) / 1000.0,
		MessagesProcessed:   s.processed.Load(),
		MessagesIgnored:     s.ignored.Load(),
		ActiveSubscriptions: s.activeSubs.Load(),
	}
}
