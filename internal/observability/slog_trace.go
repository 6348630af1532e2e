package observability

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// spanLogHandler stamps trace_id and span_id onto every record emitted
// inside an active span, so a log line can be joined with its trace.
type spanLogHandler struct {
	inner slog.Handler
}

func withSpanIDs(inner slog.Handler) slog.Handler {
	return &spanLogHandler{inner: inner}
}

func (h *spanLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *spanLogHandler) Handle(ctx context.Context, rec slog.Record) error {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		rec.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}

	return h.inner.Handle(ctx, rec)
}

func (h *spanLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &spanLogHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *spanLogHandler) WithGroup(name string) slog.Handler {
	return &spanLogHandler{inner: h.inner.WithGroup(name)}
}
