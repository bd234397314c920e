package throttle

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Sender is the throttler's view of the feed connection.
type Sender interface {
	// Send writes a control frame on the open session.
	Send(data []byte) error

	// IsOpen reports whether the session is currently open.
	IsOpen() bool
}

// Throttler batches subscribe/unsubscribe requests on a fixed schedule.
type Throttler struct {
	cfg    Config
	logger *slog.Logger
	sender Sender

	subs   pool
	unsubs pool

	reqID atomic.Int64

	// Lifecycle
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	flushTicker *time.Ticker
}

// New creates a Throttler.
func New(cfg Config, sender Sender, logger *slog.Logger) *Throttler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Throttler{
		cfg:    cfg,
		logger: logger,
		sender: sender,
	}
}

// Subscribe queues a subscription request for symbol. done fires later
// with the batch outcome. Never blocks.
func (t *Throttler) Subscribe(symbol string, done func(bool)) {
	t.logger.Info("requesting subscription", "symbol", symbol)
	t.subs.add(entry{symbol: symbol, done: done})
}

// Unsubscribe queues an unsubscription request for symbol. Never blocks.
func (t *Throttler) Unsubscribe(symbol string, done func(bool)) {
	t.logger.Info("requesting unsubscription", "symbol", symbol)
	t.unsubs.add(entry{symbol: symbol, done: done})
}

// Start begins the periodic flush task.
func (t *Throttler) Start(ctx context.Context) error {
	t.ctx, t.cancel = context.WithCancel(ctx)
	t.flushTicker = time.NewTicker(t.cfg.FlushInterval)

	t.wg.Add(1)
	go t.flushLoop()

	t.logger.Info("subscription throttler started",
		"flush_interval", t.cfg.FlushInterval,
		"batch_limit", t.cfg.BatchLimit,
	)
	return nil
}

// Stop halts the flush task.
func (t *Throttler) Stop(ctx context.Context) error {
	t.logger.Info("stopping subscription throttler")

	if t.cancel != nil {
		t.cancel()
	}
	if t.flushTicker != nil {
		t.flushTicker.Stop()
	}

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.logger.Info("subscription throttler stopped")
	case <-ctx.Done():
		t.logger.Warn("subscription throttler stop timed out")
	}

	return nil
}

// Pending returns the current queue depths (subscribe, unsubscribe).
func (t *Throttler) Pending() (int, int) {
	return t.subs.size(), t.unsubs.size()
}

// flushLoop drives Flush on the fixed period.
func (t *Throttler) flushLoop() {
	defer t.wg.Done()

	for {
		select {
		case <-t.ctx.Done():
			return
		case <-t.flushTicker.C:
			if err := t.Flush(); err != nil {
				t.logger.Error("subscription flush failed", "error", err)
			}
		}
	}
}

// Flush drains up to BatchLimit entries from each pool and sends one
// batch per non-empty pool, subscribe first. A send failure in one pool
// does not stop the other pool's batch; errors are joined.
func (t *Throttler) Flush() error {
	subErr := t.flushPool(&t.subs, MethodSubscribe)
	unsubErr := t.flushPool(&t.unsubs, MethodUnsubscribe)
	return errors.Join(subErr, unsubErr)
}

// flushPool sends one batch for a single pool. Every drained entry's
// callback fires exactly once: true only when the send went through.
func (t *Throttler) flushPool(p *pool, method string) error {
	drained := p.drain(t.cfg.BatchLimit)
	if len(drained) == 0 {
		return nil
	}

	if !t.sender.IsOpen() {
		t.logger.Warn("feed not open, failing batch",
			"method", method,
			"count", len(drained),
		)
		resolve(drained, false)
		return nil
	}

	cmd := command{
		Method: method,
		Params: make([]string, 0, len(drained)),
		ID:     t.reqID.Add(1),
	}
	for _, e := range drained {
		cmd.Params = append(cmd.Params, strings.ToLower(e.symbol)+t.cfg.StreamSuffix)
	}

	data, err := json.Marshal(cmd)
	if err != nil {
		resolve(drained, false)
		return &SendError{Method: method, Symbols: len(drained), Err: err}
	}

	if err := t.sender.Send(data); err != nil {
		resolve(drained, false)
		return &SendError{Method: method, Symbols: len(drained), Err: err}
	}

	resolve(drained, true)
	t.logger.Debug("flushed subscription batch",
		"method", method,
		"count", len(drained),
		"request_id", cmd.ID,
	)
	return nil
}

func resolve(entries []entry, ok bool) {
	for _, e := range entries {
		if e.done != nil {
			e.done(ok)
		}
	}
}
