package bridge

import (
	"context"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/buildspace/pricebridge/internal/model"
	"github.com/buildspace/pricebridge/internal/trace"
)

// fakeAcknowledger records ack/nack outcomes per delivery tag.
type fakeAcknowledger struct {
	mu      sync.Mutex
	acks    []uint64
	nacks   []uint64
	requeue map[uint64]bool
	done    chan struct{}
}

func newFakeAcknowledger() *fakeAcknowledger {
	return &fakeAcknowledger{
		requeue: make(map[uint64]bool),
		done:    make(chan struct{}, 8),
	}
}

func (f *fakeAcknowledger) Ack(tag uint64, _ bool) error {
	f.mu.Lock()
	f.acks = append(f.acks, tag)
	f.mu.Unlock()
	f.done <- struct{}{}
	return nil
}

func (f *fakeAcknowledger) Nack(tag uint64, _ bool, requeue bool) error {
	f.mu.Lock()
	f.nacks = append(f.nacks, tag)
	f.requeue[tag] = requeue
	f.mu.Unlock()
	f.done <- struct{}{}
	return nil
}

func (f *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return f.Nack(tag, false, requeue)
}

func (f *fakeAcknowledger) wait(t *testing.T) {
	t.Helper()
	select {
	case <-f.done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for delivery outcome")
	}
}

// fakeHandler resolves each pending subscription per a canned outcome.
type fakeHandler struct {
	mu       sync.Mutex
	requests []model.SubscriptionRequest
	traceIDs []string
	succeed  bool
}

func (f *fakeHandler) Handle(ctx context.Context, pending model.PendingSubscription) {
	f.mu.Lock()
	f.requests = append(f.requests, pending.Request)
	f.traceIDs = append(f.traceIDs, trace.ID(ctx))
	f.mu.Unlock()

	if f.succeed {
		pending.OnSuccess()
	} else {
		pending.OnFailure()
	}
}

func startConsumer(t *testing.T, ch *fakeChannel, handler Handler) *Consumer {
	t.Helper()
	c := NewConsumer(ch, testBrokerConfig(), handler, nil)
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("failed to start consumer: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		c.Stop(ctx)
	})
	return c
}

func TestConsumer_AcksOnSuccess(t *testing.T) {
	ch := newFakeChannel()
	ack := newFakeAcknowledger()
	handler := &fakeHandler{succeed: true}
	startConsumer(t, ch, handler)

	ch.deliveries <- amqp.Delivery{
		Acknowledger:  ack,
		DeliveryTag:   7,
		CorrelationId: "corr-1",
		Body:          []byte(`{"symbol":"BTC","subscribe":true}`),
	}
	ack.wait(t)

	if len(ack.acks) != 1 || ack.acks[0] != 7 {
		t.Errorf("expected single ack of tag 7, got %v", ack.acks)
	}
	if len(ack.nacks) != 0 {
		t.Errorf("expected no nacks, got %v", ack.nacks)
	}
	if handler.requests[0].Symbol != "BTC" || !handler.requests[0].Subscribe {
		t.Errorf("unexpected request: %+v", handler.requests[0])
	}
	if handler.traceIDs[0] != "corr-1" {
		t.Errorf("expected trace id from correlation id, got %s", handler.traceIDs[0])
	}
}

func TestConsumer_NacksWithRequeueOnFailure(t *testing.T) {
	ch := newFakeChannel()
	ack := newFakeAcknowledger()
	handler := &fakeHandler{succeed: false}
	startConsumer(t, ch, handler)

	ch.deliveries <- amqp.Delivery{
		Acknowledger: ack,
		DeliveryTag:  3,
		Body:         []byte(`{"symbol":"ETH","subscribe":false}`),
	}
	ack.wait(t)

	if len(ack.nacks) != 1 || ack.nacks[0] != 3 {
		t.Fatalf("expected single nack of tag 3, got %v", ack.nacks)
	}
	if !ack.requeue[3] {
		t.Error("expected failed delivery to be requeued")
	}
	if len(ack.acks) != 0 {
		t.Errorf("expected no acks, got %v", ack.acks)
	}
}

func TestConsumer_RejectsUndecodableWithoutRequeue(t *testing.T) {
	ch := newFakeChannel()
	ack := newFakeAcknowledger()
	handler := &fakeHandler{succeed: true}
	startConsumer(t, ch, handler)

	ch.deliveries <- amqp.Delivery{
		Acknowledger: ack,
		DeliveryTag:  5,
		Body:         []byte(`not json`),
	}
	ack.wait(t)

	if len(ack.nacks) != 1 {
		t.Fatalf("expected single nack, got %v", ack.nacks)
	}
	if ack.requeue[5] {
		t.Error("expected poison message not to be requeued")
	}
	if len(handler.requests) != 0 {
		t.Errorf("expected handler not to be called, got %v", handler.requests)
	}
}

func TestConsumer_RejectsEmptySymbol(t *testing.T) {
	ch := newFakeChannel()
	ack := newFakeAcknowledger()
	handler := &fakeHandler{succeed: true}
	startConsumer(t, ch, handler)

	ch.deliveries <- amqp.Delivery{
		Acknowledger: ack,
		DeliveryTag:  9,
		Body:         []byte(`{"symbol":"","subscribe":true}`),
	}
	ack.wait(t)

	if len(ack.nacks) != 1 || ack.requeue[9] {
		t.Errorf("expected single no-requeue nack, got nacks %v requeue %v", ack.nacks, ack.requeue)
	}
	if len(handler.requests) != 0 {
		t.Errorf("expected handler not to be called, got %v", handler.requests)
	}
}

func TestConsumer_SetsPrefetch(t *testing.T) {
	ch := newFakeChannel()
	startConsumer(t, ch, &fakeHandler{succeed: true})

	if ch.qosCount != 50 {
		t.Errorf("expected prefetch 50, got %d", ch.qosCount)
	}
}
