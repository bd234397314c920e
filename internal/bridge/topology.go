package bridge

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/buildspace/pricebridge/internal/config"
)

// DeclareTopology declares the exchanges, queues, and bindings the
// bridge depends on. Every declaration is idempotent on the broker
// side, so this is safe to run on every startup.
func DeclareTopology(ch Channel, cfg config.BrokerConfig) error {
	if err := ch.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", cfg.Exchange, err)
	}

	// Price ticks fan into a single durable queue keyed by symbol.
	if _, err := ch.QueueDeclare(cfg.CurrencyUpdateQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", cfg.CurrencyUpdateQueue, err)
	}
	if err := ch.QueueBind(cfg.CurrencyUpdateQueue, cfg.CurrencyUpdateRoutingBind, cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s: %w", cfg.CurrencyUpdateQueue, err)
	}

	// Subscribe and unsubscribe requests share one queue.
	if _, err := ch.QueueDeclare(cfg.SubscriptionQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", cfg.SubscriptionQueue, err)
	}
	if err := ch.QueueBind(cfg.SubscriptionQueue, cfg.SubscriptionRoutingBind, cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s: %w", cfg.SubscriptionQueue, err)
	}
	if err := ch.QueueBind(cfg.SubscriptionQueue, cfg.UnsubscribeRoutingBind, cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s: %w", cfg.SubscriptionQueue, err)
	}

	// Error events dead-letter into the DLX when rejected or expired.
	errArgs := amqp.Table{"x-dead-letter-exchange": cfg.DeadLetterExchange}
	if _, err := ch.QueueDeclare(cfg.CurrencyErrorQueue, true, false, false, false, errArgs); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", cfg.CurrencyErrorQueue, err)
	}
	if err := ch.QueueBind(cfg.CurrencyErrorQueue, cfg.CurrencyErrorRoutingBind, cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s: %w", cfg.CurrencyErrorQueue, err)
	}

	if err := ch.ExchangeDeclare(cfg.DeadLetterExchange, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", cfg.DeadLetterExchange, err)
	}
	if _, err := ch.QueueDeclare(cfg.DeadLetterQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", cfg.DeadLetterQueue, err)
	}
	if err := ch.QueueBind(cfg.DeadLetterQueue, "", cfg.DeadLetterExchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s: %w", cfg.DeadLetterQueue, err)
	}

	return nil
}
