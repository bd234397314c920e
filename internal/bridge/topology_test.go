package bridge

import (
	"slices"
	"testing"
)

func TestDeclareTopology(t *testing.T) {
	ch := newFakeChannel()
	cfg := testBrokerConfig()

	if err := DeclareTopology(ch, cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, ex := range []string{"currency.topic", "currency.dlx"} {
		if !slices.Contains(ch.exchanges, ex) {
			t.Errorf("expected exchange %s to be declared", ex)
		}
	}

	for _, q := range []string{"currency.update", "currency.subscription", "currency.error", "currency.dlq"} {
		if _, ok := ch.queues[q]; !ok {
			t.Errorf("expected queue %s to be declared", q)
		}
	}

	if args := ch.queues["currency.error"]; args == nil || args["x-dead-letter-exchange"] != "currency.dlx" {
		t.Errorf("expected error queue to dead-letter into currency.dlx, got %v", args)
	}

	wantBinds := []string{
		"currency.update|currency.update.#|currency.topic",
		"currency.subscription|currency.subscribe|currency.topic",
		"currency.subscription|currency.unsubscribe|currency.topic",
		"currency.error|currency.error.#|currency.topic",
		"currency.dlq||currency.dlx",
	}
	for _, b := range wantBinds {
		if !slices.Contains(ch.binds, b) {
			t.Errorf("expected binding %s", b)
		}
	}
}
