package subscription

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/buildspace/pricebridge/internal/model"
	"github.com/buildspace/pricebridge/internal/trace"
)

// Store is the coordinator's view of the persisted subscription set.
type Store interface {
	Exists(ctx context.Context, symbol string) (bool, error)
	Save(ctx context.Context, symbol string) error
	Delete(ctx context.Context, symbol string) error
	List(ctx context.Context) ([]string, error)
}

// Subscriber is the coordinator's view of the throttler.
type Subscriber interface {
	Subscribe(symbol string, done func(bool))
	Unsubscribe(symbol string, done func(bool))
}

// Coordinator enforces "only act if state must change" per symbol and
// owns all writes to the persisted subscription set.
type Coordinator struct {
	store      Store
	subscriber Subscriber
	logger     *slog.Logger
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(store Store, subscriber Subscriber, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		store:      store,
		subscriber: subscriber,
		logger:     logger,
	}
}

// Handle processes one pending subscription request. Exactly one of the
// pending callbacks fires: OnSuccess when the desired state holds (or
// came to hold, persisted), OnFailure otherwise.
func (c *Coordinator) Handle(ctx context.Context, pending model.PendingSubscription) {
	req := pending.Request
	log := trace.Logger(ctx, c.logger).With("symbol", req.Symbol, "subscribe", req.Subscribe)

	exists, err := c.store.Exists(ctx, req.Symbol)
	if err != nil {
		log.Error("subscription state lookup failed", "error", err)
		pending.OnFailure()
		return
	}

	// Desired end-state already holds: repeated requests are no-ops.
	if exists == req.Subscribe {
		log.Info("subscription state already satisfied")
		pending.OnSuccess()
		return
	}

	// The completion fires later from the flush task; detach it from
	// the delivery context's cancellation but keep its values.
	cbCtx := context.WithoutCancel(ctx)
	done := func(sent bool) {
		if !sent {
			log.Warn("subscription request not sent to feed")
			pending.OnFailure()
			return
		}
		if err := c.persist(cbCtx, req); err != nil {
			log.Error("persisting subscription state failed", "error", err)
			pending.OnFailure()
			return
		}
		log.Info("subscription state updated")
		pending.OnSuccess()
	}

	if req.Subscribe {
		c.subscriber.Subscribe(req.Symbol, done)
	} else {
		c.subscriber.Unsubscribe(req.Symbol, done)
	}
}

// persist records the confirmed state change: save on subscribe, delete
// on unsubscribe. Without the delete the stored set would diverge from
// the live subscription state after any unsubscribe.
func (c *Coordinator) persist(ctx context.Context, req model.SubscriptionRequest) error {
	if req.Subscribe {
		return c.store.Save(ctx, req.Symbol)
	}
	return c.store.Delete(ctx, req.Symbol)
}

// ReloadAll re-issues a subscribe for every persisted symbol. The feed
// holds no subscriptions across restarts; the stored set is the source
// of truth to replay. Per-symbol outcomes are logged, never fatal.
func (c *Coordinator) ReloadAll(ctx context.Context) error {
	symbols, err := c.store.List(ctx)
	if err != nil {
		return fmt.Errorf("list persisted subscriptions: %w", err)
	}

	c.logger.Info("reloading persisted subscriptions", "count", len(symbols))

	for _, symbol := range symbols {
		symbol := symbol
		c.subscriber.Subscribe(symbol, func(sent bool) {
			if sent {
				c.logger.Info("reloaded subscription", "symbol", symbol)
			} else {
				c.logger.Error("failed to reload subscription", "symbol", symbol)
			}
		})
	}

	return nil
}
