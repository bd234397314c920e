package trace

import (
	"context"
	"testing"
)

func TestNewContext_AssignsID(t *testing.T) {
	ctx := NewContext(context.Background())
	if ID(ctx) == "" {
		t.Error("ID() = empty, want a generated correlation ID")
	}
}

func TestNewContext_DistinctIDs(t *testing.T) {
	a := NewContext(context.Background())
	b := NewContext(context.Background())
	if ID(a) == ID(b) {
		t.Errorf("two contexts share correlation ID %q", ID(a))
	}
}

func TestWithID(t *testing.T) {
	ctx := WithID(context.Background(), "abc-123")
	if got := ID(ctx); got != "abc-123" {
		t.Errorf("ID() = %q, want %q", got, "abc-123")
	}

	// Empty ID falls back to a generated one.
	ctx = WithID(context.Background(), "")
	if ID(ctx) == "" {
		t.Error("ID() = empty, want generated fallback")
	}
}

func TestID_Unset(t *testing.T) {
	if got := ID(context.Background()); got != "" {
		t.Errorf("ID() = %q, want empty for plain context", got)
	}
}
