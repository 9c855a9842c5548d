//go:build integration
// +build integration

package graph

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupNeo4jContainer starts a throwaway Neo4j and returns a connected client.
func setupNeo4jContainer(t *testing.T, ctx context.Context) GraphClient {
	t.Helper()

	provider, err := testcontainers.ProviderDocker.GetProvider()
	if err != nil {
		t.Skip("Docker not available, skipping integration test")
	}
	if err := provider.Health(ctx); err != nil {
		t.Skip("Docker not running, skipping integration test")
	}

	req := testcontainers.ContainerRequest{
		Image:        "neo4j:5",
		ExposedPorts: []string{"7687/tcp"},
		Env: map[string]string{
			"NEO4J_AUTH": "none",
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("7687/tcp"),
			wait.ForLog("Started."),
		).WithDeadline(120 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "failed to start Neo4j container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "7687")
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.URI = fmt.Sprintf("bolt://%s:%s", host, port.Port())
	cfg.Password = "ignored"

	client, err := NewNeo4jClient(cfg)
	require.NoError(t, err)
	require.NoError(t, client.Connect(ctx))
	t.Cleanup(func() { _ = client.Close(context.Background()) })

	require.True(t, client.Health(ctx).IsHealthy())
	return client
}

func TestNeo4jClient_Integration_ReadWrite(t *testing.T) {
	ctx := context.Background()
	client := setupNeo4jContainer(t, ctx)

	written, err := client.Execute(ctx,
		`MERGE (t:Taxpayer {TIN: $tin}) SET t.TaxpayerName = $name RETURN t.TIN AS tin`,
		map[string]any{"tin": "1000000001", "name": "Acme Ltd"})
	require.NoError(t, err)
	require.Len(t, written.Records, 1)
	assert.Equal(t, 1, written.Summary.NodesCreated)

	read, err := client.Query(ctx,
		`MATCH (t:Taxpayer {TIN: $tin}) RETURN t.TaxpayerName AS name`,
		map[string]any{"tin": "1000000001"})
	require.NoError(t, err)
	require.Len(t, read.Records, 1)
	assert.Equal(t, "Acme Ltd", read.Records[0]["name"])
	assert.Equal(t, []string{"name"}, read.Columns)
}

func TestNeo4jClient_Integration_InjectionIsInert(t *testing.T) {
	ctx := context.Background()
	client := setupNeo4jContainer(t, ctx)

	hostile := "x'}) DETACH DELETE t //"
	result, err := client.Query(ctx,
		`MATCH (t:Taxpayer) WHERE t.TIN = $tin RETURN t`,
		map[string]any{"tin": hostile})
	require.NoError(t, err)
	assert.True(t, result.Empty())
}
