package bridge

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Channel is the subset of the AMQP channel the bridge uses. Satisfied
// by *amqp091.Channel.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Qos(prefetchCount, prefetchSize int, global bool) error
}

// PublishError reports a failed broker publish. Publishing is
// at-most-once from the bridge's perspective; retry is the caller's
// policy.
type PublishError struct {
	Route   string
	Subject string // symbol for ticks, "error" for error events
	Err     error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("failed to publish %s on %s: %v", e.Subject, e.Route, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }
