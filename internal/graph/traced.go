package graph

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/amasuba/uraics-revenue-assurance/internal/types"
)

// Span names emitted by TracedClient.
const (
	SpanGraphQuery   = "tatis.graph.query"
	SpanGraphExecute = "tatis.graph.execute"
	SpanGraphConnect = "tatis.graph.connect"
)

// TracedClient wraps a GraphClient with OpenTelemetry spans.
// Safe for concurrent access; it delegates to the inner client.
type TracedClient struct {
	inner  GraphClient
	tracer trace.Tracer
	dbName string
}

// NewTracedClient wraps inner. database is recorded as db.name on every span.
func NewTracedClient(inner GraphClient, tracer trace.Tracer, database string) *TracedClient {
	return &TracedClient{
		inner:  inner,
		tracer: tracer,
		dbName: database,
	}
}

// Connect traces the startup connection.
func (t *TracedClient) Connect(ctx context.Context) error {
	ctx, span := t.tracer.Start(ctx, SpanGraphConnect)
	defer span.End()

	span.SetAttributes(attribute.String("db.system", "neo4j"))

	if err := t.inner.Connect(ctx); err != nil {
		recordError(span, err)
		return err
	}
	span.SetStatus(codes.Ok, "connected")
	return nil
}

// Close is not traced.
func (t *TracedClient) Close(ctx context.Context) error {
	return t.inner.Close(ctx)
}

// Health is not traced.
func (t *TracedClient) Health(ctx context.Context) types.HealthStatus {
	return t.inner.Health(ctx)
}

// Query traces a read statement.
func (t *TracedClient) Query(ctx context.Context, cypher string, params map[string]any) (QueryResult, error) {
	return t.traced(ctx, SpanGraphQuery, cypher, params, t.inner.Query)
}

// Execute traces a write statement.
func (t *TracedClient) Execute(ctx context.Context, cypher string, params map[string]any) (QueryResult, error) {
	return t.traced(ctx, SpanGraphExecute, cypher, params, t.inner.Execute)
}

type runFunc func(ctx context.Context, cypher string, params map[string]any) (QueryResult, error)

func (t *TracedClient) traced(ctx context.Context, name, cypher string, params map[string]any, run runFunc) (QueryResult, error) {
	ctx, span := t.tracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(
		attribute.String("db.system", "neo4j"),
		attribute.String("db.name", t.dbName),
		attribute.String("db.operation", statementOperation(cypher)),
		attribute.Int("db.param_count", len(params)),
	)

	start := time.Now()
	result, err := run(ctx, cypher, params)
	span.SetAttributes(attribute.Float64("tatis.graph.duration_ms", float64(time.Since(start).Microseconds())/1000))

	if err != nil {
		recordError(span, err)
		return result, err
	}

	span.SetAttributes(attribute.Int("tatis.graph.rows", len(result.Records)))
	span.SetStatus(codes.Ok, "")
	return result, nil
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// statementOperation returns the first clause keyword of a statement
// (MATCH, MERGE, CREATE, ...). Parameter values never reach span attributes.
func statementOperation(cypher string) string {
	fields := strings.Fields(cypher)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToUpper(fields[0])
}
