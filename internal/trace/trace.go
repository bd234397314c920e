// Package trace threads a correlation ID through request contexts so
// every log line produced while handling one inbound event can be tied
// back to that event.
package trace

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

type ctxKey struct{}

// NewContext returns a child context carrying a fresh correlation ID.
func NewContext(parent context.Context) context.Context {
	return context.WithValue(parent, ctxKey{}, uuid.NewString())
}

// WithID returns a child context carrying the given correlation ID.
// Used when the inbound message already carries one.
func WithID(parent context.Context, id string) context.Context {
	if id == "" {
		return NewContext(parent)
	}
	return context.WithValue(parent, ctxKey{}, id)
}

// ID returns the correlation ID from ctx, or "" if none is set.
func ID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// Logger returns logger with the context's correlation ID attached as
// a trace_id attribute. Returns logger unchanged if no ID is set.
func Logger(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	if id := ID(ctx); id != "" {
		return logger.With("trace_id", id)
	}
	return logger
}
