package bridge

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/buildspace/pricebridge/internal/config"
	"github.com/buildspace/pricebridge/internal/model"
	"github.com/buildspace/pricebridge/internal/trace"
)

// Publisher sends price ticks and error events to the broker.
type Publisher struct {
	ch     Channel
	cfg    config.BrokerConfig
	logger *slog.Logger
}

// NewPublisher creates a Publisher on an open channel.
func NewPublisher(ch Channel, cfg config.BrokerConfig, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{ch: ch, cfg: cfg, logger: logger}
}

// Publish sends a price tick on the symbol-keyed route.
func (p *Publisher) Publish(ctx context.Context, tick model.PriceTick) error {
	route := strings.Replace(p.cfg.CurrencyUpdateRoutingBind, "#", tick.Symbol, 1)

	body, err := json.Marshal(tick)
	if err != nil {
		return &PublishError{Route: route, Subject: tick.Symbol, Err: err}
	}

	if err := p.send(ctx, route, body); err != nil {
		return &PublishError{Route: route, Subject: tick.Symbol, Err: err}
	}

	trace.Logger(ctx, p.logger).Debug("published price tick",
		"symbol", tick.Symbol,
		"route", route,
	)
	return nil
}

// PublishError sends an error event on the fixed error route.
func (p *Publisher) PublishError(ctx context.Context, message string) error {
	route := strings.Replace(p.cfg.CurrencyErrorRoutingBind, "#", "price", 1)

	body, err := json.Marshal(message)
	if err != nil {
		return &PublishError{Route: route, Subject: "error", Err: err}
	}

	if err := p.send(ctx, route, body); err != nil {
		return &PublishError{Route: route, Subject: "error", Err: err}
	}

	trace.Logger(ctx, p.logger).Debug("published error event", "route", route)
	return nil
}

func (p *Publisher) send(ctx context.Context, route string, body []byte) error {
	return p.ch.PublishWithContext(ctx, p.cfg.Exchange, route, false, false, amqp.Publishing{
		ContentType:   "application/json",
		Body:          body,
		CorrelationId: trace.ID(ctx),
		Timestamp:     time.Now(),
	})
}
