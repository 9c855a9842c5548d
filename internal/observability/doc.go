// Package observability wires logging, tracing and metrics for TATIS.
//
// # Logging
//
// NewLogger returns a *slog.Logger whose handler adds trace_id and span_id
// to records logged with a span-carrying context, and redacts values of
// sensitive keys such as password or token:
//
//	logger, err := observability.NewLogger(cfg.Logging, os.Stderr)
//	logger.ErrorContext(ctx, "store query failed", "intent", intent, "error", err)
//
// # Tracing
//
// InitTracing installs a global OpenTelemetry tracer provider. Spans for
// graph queries are produced by graph.TracedClient.
//
//	tp, err := observability.InitTracing(ctx, cfg.Tracing)
//	defer observability.ShutdownTracing(ctx, tp)
//
// # Metrics
//
// InitMetrics returns a meter provider plus the /metrics handler. The router
// records tatis.router.requests and tatis.router.duration through
// RouterInstruments.
package observability
