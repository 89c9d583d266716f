package log

import (
	"context"
	"log/slog"

	"github.com/ErlanBelekov/gotrue-go/internal/requestid"
)

type operationKey struct{}

// WithOperation tags ctx with the name of the auth API operation in progress.
func WithOperation(ctx context.Context, op string) context.Context {
	return context.WithValue(ctx, operationKey{}, op)
}

// OperationFromContext returns the operation name, or "" if none was set.
func OperationFromContext(ctx context.Context) string {
	op, _ := ctx.Value(operationKey{}).(string)
	return op
}

// ContextHandler wraps an slog.Handler and automatically extracts
// request_id and operation from the context of each log record.
type ContextHandler struct {
	inner slog.Handler
}

// NewContextHandler returns a handler that enriches every record with
// context values before delegating to inner.
func NewContextHandler(inner slog.Handler) *ContextHandler {
	return &ContextHandler{inner: inner}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := requestid.FromContext(ctx); id != "" {
		r.AddAttrs(slog.String("request_id", id))
	}
	if op := OperationFromContext(ctx); op != "" {
		r.AddAttrs(slog.String("operation", op))
	}
	return h.inner.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{inner: h.inner.WithGroup(name)}
}
