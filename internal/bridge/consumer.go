package bridge

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/buildspace/pricebridge/internal/config"
	"github.com/buildspace/pricebridge/internal/model"
	"github.com/buildspace/pricebridge/internal/trace"
)

// Handler is the consumer's view of the subscription coordinator.
type Handler interface {
	Handle(ctx context.Context, pending model.PendingSubscription)
}

// Consumer drains the subscription-change queue and hands each message
// to the coordinator with ack/nack bound as the outcome callbacks.
type Consumer struct {
	ch      Channel
	cfg     config.BrokerConfig
	handler Handler
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewConsumer creates a Consumer on an open channel.
func NewConsumer(ch Channel, cfg config.BrokerConfig, handler Handler, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{
		ch:      ch,
		cfg:     cfg,
		handler: handler,
		logger:  logger,
	}
}

// Start begins consuming with manual per-message acknowledgment.
func (c *Consumer) Start(ctx context.Context) error {
	c.ctx, c.cancel = context.WithCancel(ctx)

	if err := c.ch.Qos(c.cfg.Prefetch, 0, false); err != nil {
		return err
	}

	deliveries, err := c.ch.Consume(
		c.cfg.SubscriptionQueue,
		"", // consumer tag assigned by the broker
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return err
	}

	c.wg.Add(1)
	go c.consumeLoop(deliveries)

	c.logger.Info("subscription consumer started",
		"queue", c.cfg.SubscriptionQueue,
		"prefetch", c.cfg.Prefetch,
	)
	return nil
}

// Stop halts the consume loop.
func (c *Consumer) Stop(ctx context.Context) error {
	c.logger.Info("stopping subscription consumer")

	if c.cancel != nil {
		c.cancel()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("subscription consumer stopped")
	case <-ctx.Done():
		c.logger.Warn("subscription consumer stop timed out")
	}

	return nil
}

func (c *Consumer) consumeLoop(deliveries <-chan amqp.Delivery) {
	defer c.wg.Done()

	for {
		select {
		case <-c.ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				c.logger.Warn("delivery channel closed")
				return
			}
			c.handleDelivery(d)
		}
	}
}

// handleDelivery wraps one delivery into a pending subscription. The
// delivery's outcome is decided by the coordinator: ack on success,
// nack with requeue on failure.
func (c *Consumer) handleDelivery(d amqp.Delivery) {
	ctx := trace.WithID(c.ctx, d.CorrelationId)
	log := trace.Logger(ctx, c.logger)

	var payload struct {
		Symbol    string `json:"symbol"`
		Subscribe bool   `json:"subscribe"`
	}
	if err := json.Unmarshal(d.Body, &payload); err != nil {
		log.Warn("dropping undecodable subscription message", "error", err)
		c.reject(log, d)
		return
	}

	req, err := model.NewSubscriptionRequest(payload.Symbol, payload.Subscribe)
	if err != nil {
		log.Warn("dropping invalid subscription message", "error", err)
		c.reject(log, d)
		return
	}

	pending := model.PendingSubscription{
		Request:   req,
		OnSuccess: func() { c.ack(log, d) },
		OnFailure: func() { c.nack(log, d) },
	}

	c.handler.Handle(ctx, pending)
}

// ack acknowledges one delivery. An ack I/O failure is logged only; the
// broker's redelivery semantics govern correctness, not this bridge.
func (c *Consumer) ack(log *slog.Logger, d amqp.Delivery) {
	if err := d.Ack(false); err != nil {
		log.Error("ack failed", "delivery_tag", d.DeliveryTag, "error", err)
	}
}

// nack returns one delivery for retry. Requeue is always requested; the
// dead-letter path takes over once broker-side retry is exhausted.
func (c *Consumer) nack(log *slog.Logger, d amqp.Delivery) {
	if err := d.Nack(false, true); err != nil {
		log.Error("nack failed", "delivery_tag", d.DeliveryTag, "error", err)
	}
}

// reject discards a poison message without requeue: it can never
// succeed, so the dead-letter path owns it from here.
func (c *Consumer) reject(log *slog.Logger, d amqp.Delivery) {
	if err := d.Nack(false, false); err != nil {
		log.Error("reject failed", "delivery_tag", d.DeliveryTag, "error", err)
	}
}
