package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTestTracer(t *testing.T) (*tracetest.SpanRecorder, *sdktrace.TracerProvider) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return recorder, provider
}

func attrValue(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestTracedClient_QueryRecordsSpan(t *testing.T) {
	ctx := context.Background()
	recorder, provider := newTestTracer(t)

	mock := NewMockGraphClient()
	require.NoError(t, mock.Connect(ctx))
	mock.AddRecords(map[string]any{"a": 1}, map[string]any{"a": 2})

	traced := NewTracedClient(mock, provider.Tracer("test"), "neo4j")
	result, err := traced.Query(ctx, "  match (t:Taxpayer {TIN: $tin}) RETURN t", map[string]any{"tin": "1000000001"})
	require.NoError(t, err)
	assert.Len(t, result.Records, 2)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, SpanGraphQuery, spans[0].Name())
	assert.Equal(t, codes.Ok, spans[0].Status().Code)

	op, ok := attrValue(spans[0].Attributes(), "db.operation")
	require.True(t, ok)
	assert.Equal(t, "MATCH", op.AsString())

	rows, ok := attrValue(spans[0].Attributes(), "tatis.graph.rows")
	require.True(t, ok)
	assert.Equal(t, int64(2), rows.AsInt64())

	_, leaked := attrValue(spans[0].Attributes(), "tin")
	assert.False(t, leaked)
}

func TestTracedClient_ExecuteError(t *testing.T) {
	ctx := context.Background()
	recorder, provider := newTestTracer(t)

	mock := NewMockGraphClient()
	require.NoError(t, mock.Connect(ctx))
	mock.SetExecuteError(errors.New("constraint violated"))

	traced := NewTracedClient(mock, provider.Tracer("test"), "")
	_, err := traced.Execute(ctx, "CREATE (n)", nil)
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, SpanGraphExecute, spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}

func TestStatementOperation(t *testing.T) {
	assert.Equal(t, "MERGE", statementOperation("\n\t\tmerge (x)"))
	assert.Equal(t, "", statementOperation("   "))
}
