package observability

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/trace"
)

func TestSpanLogHandlerStampsTraceIDs(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(withSpanIDs(slog.NewJSONHandler(&buf, nil)))

	traceID, _ := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	spanID, _ := trace.SpanIDFromHex("0102030405060708")
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  spanID,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	log.InfoContext(ctx, "hello")

	line := buf.String()

	if !strings.Contains(line, traceID.String()) {
		t.Errorf("log line missing trace_id: %s", line)
	}
	if !strings.Contains(line, spanID.String()) {
		t.Errorf("log line missing span_id: %s", line)
	}
}

func TestSpanLogHandlerSkipsWithoutSpan(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(withSpanIDs(slog.NewJSONHandler(&buf, nil)))

	log.InfoContext(context.Background(), "hello")

	if strings.Contains(buf.String(), "trace_id") {
		t.Errorf("unexpected trace_id without an active span: %s", buf.String())
	}
}
