package observability

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"github.com/amasuba/uraics-revenue-assurance/internal/config"
	"github.com/amasuba/uraics-revenue-assurance/internal/types"
)

// NewLogger builds the process logger from the logging section of the
// config. Records logged with a context carrying a valid span get
// trace_id and span_id attributes.
func NewLogger(cfg config.LoggingConfig, w io.Writer) (*slog.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "", "text":
		handler = NewTextHandler(w, level)
	case "json":
		handler = NewJSONHandler(w, level)
	default:
		return nil, types.NewError(ErrInvalidLogConfig, fmt.Sprintf("unknown log format %q", cfg.Format))
	}

	return slog.New(NewTraceHandler(handler)), nil
}

// ParseLevel maps debug|info|warn|error to a slog level. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, types.NewError(ErrInvalidLogConfig, fmt.Sprintf("unknown log level %q", s))
	}
}

// TraceHandler decorates a slog.Handler with OpenTelemetry trace correlation
// and redaction of sensitive attribute values.
type TraceHandler struct {
	inner slog.Handler
}

// NewTraceHandler wraps inner.
func NewTraceHandler(inner slog.Handler) *TraceHandler {
	return &TraceHandler{inner: inner}
}

// Enabled implements slog.Handler.
func (h *TraceHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *TraceHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(redactAttr(a))
		return true
	})

	if ctx != nil {
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			out.AddAttrs(
				slog.String("trace_id", sc.TraceID().String()),
				slog.String("span_id", sc.SpanID().String()),
			)
		}
	}
	return h.inner.Handle(ctx, out)
}

// WithAttrs implements slog.Handler.
func (h *TraceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redacted[i] = redactAttr(a)
	}
	return &TraceHandler{inner: h.inner.WithAttrs(redacted)}
}

// WithGroup implements slog.Handler.
func (h *TraceHandler) WithGroup(name string) slog.Handler {
	return &TraceHandler{inner: h.inner.WithGroup(name)}
}

// NewJSONHandler creates a new JSON log handler with the specified output and level.
func NewJSONHandler(w io.Writer, level slog.Level) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})
}

// NewTextHandler creates a new text log handler with the specified output and level.
func NewTextHandler(w io.Writer, level slog.Level) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	})
}

var sensitiveFields = map[string]bool{
	"password":   true,
	"secret":     true,
	"token":      true,
	"credential": true,
	"apikey":     true,
}

// redactAttr replaces the value of sensitive keys with "[REDACTED]".
func redactAttr(a slog.Attr) slog.Attr {
	normalizedKey := strings.ToLower(strings.ReplaceAll(a.Key, "_", ""))
	if sensitiveFields[normalizedKey] {
		return slog.String(a.Key, "[REDACTED]")
	}
	return a
}
