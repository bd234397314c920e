package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"

	"github.com/buildspace/pricebridge/internal/config"
	"github.com/buildspace/pricebridge/internal/model"
	"github.com/buildspace/pricebridge/internal/trace"
)

type publishedMsg struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

// fakeChannel records topology declarations and publishes, and feeds a
// controllable delivery stream to consumers.
type fakeChannel struct {
	published []publishedMsg
	exchanges []string
	queues    map[string]amqp.Table
	binds     []string

	deliveries chan amqp.Delivery

	publishErr error
	qosCount   int
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		queues:     make(map[string]amqp.Table),
		deliveries: make(chan amqp.Delivery, 8),
	}
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, publishedMsg{exchange: exchange, key: key, msg: msg})
	return nil
}

func (f *fakeChannel) Consume(string, string, bool, bool, bool, bool, amqp.Table) (<-chan amqp.Delivery, error) {
	return f.deliveries, nil
}

func (f *fakeChannel) ExchangeDeclare(name, _ string, _, _, _, _ bool, _ amqp.Table) error {
	f.exchanges = append(f.exchanges, name)
	return nil
}

func (f *fakeChannel) QueueDeclare(name string, _, _, _, _ bool, args amqp.Table) (amqp.Queue, error) {
	f.queues[name] = args
	return amqp.Queue{Name: name}, nil
}

func (f *fakeChannel) QueueBind(name, key, exchange string, _ bool, _ amqp.Table) error {
	f.binds = append(f.binds, name+"|"+key+"|"+exchange)
	return nil
}

func (f *fakeChannel) Qos(prefetchCount, _ int, _ bool) error {
	f.qosCount = prefetchCount
	return nil
}

func testBrokerConfig() config.BrokerConfig {
	return config.BrokerConfig{
		URL:      "amqp://localhost:5672",
		Prefetch: 50,

		Exchange: "currency.topic",

		SubscriptionQueue:       "currency.subscription",
		SubscriptionRoutingBind: "currency.subscribe",
		UnsubscribeRoutingBind:  "currency.unsubscribe",

		CurrencyUpdateQueue:       "currency.update",
		CurrencyUpdateRoutingBind: "currency.update.#",

		CurrencyErrorQueue:       "currency.error",
		CurrencyErrorRoutingBind: "currency.error.#",

		DeadLetterExchange: "currency.dlx",
		DeadLetterQueue:    "currency.dlq",
	}
}

func TestPublisher_PublishRoutesBySymbol(t *testing.T) {
	ch := newFakeChannel()
	pub := NewPublisher(ch, testBrokerConfig(), nil)

	price := decimal.RequireFromString("2534.17")
	tick, err := model.NewPriceTick("ETH", &price, 1700000000000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := pub.Publish(context.Background(), tick); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(ch.published) != 1 {
		t.Fatalf("expected 1 publish, got %d", len(ch.published))
	}
	got := ch.published[0]
	if got.exchange != "currency.topic" {
		t.Errorf("expected exchange currency.topic, got %s", got.exchange)
	}
	if got.key != "currency.update.ETH" {
		t.Errorf("expected routing key currency.update.ETH, got %s", got.key)
	}
	if got.msg.ContentType != "application/json" {
		t.Errorf("expected json content type, got %s", got.msg.ContentType)
	}

	var decoded model.PriceTick
	if err := json.Unmarshal(got.msg.Body, &decoded); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if decoded.Symbol != "ETH" || !decoded.Price.Equal(price) {
		t.Errorf("unexpected body: %+v", decoded)
	}
}

func TestPublisher_PublishCarriesTraceID(t *testing.T) {
	ch := newFakeChannel()
	pub := NewPublisher(ch, testBrokerConfig(), nil)

	ctx := trace.WithID(context.Background(), "trace-42")
	price := decimal.RequireFromString("64000")
	tick, _ := model.NewPriceTick("BTC", &price, 1700000000000)

	if err := pub.Publish(ctx, tick); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ch.published[0].msg.CorrelationId != "trace-42" {
		t.Errorf("expected correlation id trace-42, got %s", ch.published[0].msg.CorrelationId)
	}
}

func TestPublisher_PublishWrapsChannelError(t *testing.T) {
	ch := newFakeChannel()
	ch.publishErr = errors.New("channel closed")
	pub := NewPublisher(ch, testBrokerConfig(), nil)

	price := decimal.New(1, 0)
	tick, _ := model.NewPriceTick("ETH", &price, 1)

	err := pub.Publish(context.Background(), tick)
	if err == nil {
		t.Fatal("expected error")
	}
	var pubErr *PublishError
	if !errors.As(err, &pubErr) {
		t.Fatalf("expected PublishError, got %T", err)
	}
	if pubErr.Subject != "ETH" {
		t.Errorf("expected subject ETH, got %s", pubErr.Subject)
	}
	if !strings.Contains(err.Error(), "currency.update.ETH") {
		t.Errorf("expected route in message, got %q", err.Error())
	}
}

func TestPublisher_PublishErrorUsesFixedRoute(t *testing.T) {
	ch := newFakeChannel()
	pub := NewPublisher(ch, testBrokerConfig(), nil)

	if err := pub.PublishError(context.Background(), "decode failed"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := ch.published[0]
	if got.key != "currency.error.price" {
		t.Errorf("expected routing key currency.error.price, got %s", got.key)
	}

	var decoded string
	if err := json.Unmarshal(got.msg.Body, &decoded); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if decoded != "decode failed" {
		t.Errorf("unexpected body: %q", decoded)
	}
}
