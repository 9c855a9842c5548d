// Package graph provides the data-access boundary to the taxpayer/risk/audit
// property graph.
//
// GraphClient exposes exactly two statement operations, Query (read) and
// Execute (write), each taking a Cypher template and a named-parameter map.
// Nothing in the repository builds statement text from user input; every
// value travels as a bound parameter.
//
// # Implementations
//
//   - Neo4jClient: production client on github.com/neo4j/neo4j-go-driver/v5
//   - TracedClient: OpenTelemetry decorator around any GraphClient
//   - MockGraphClient: FIFO-queued results for unit tests
//
// # Lifecycle
//
// A client is constructed once per process, connected, passed to every
// consumer, and closed on shutdown:
//
//	client, err := graph.NewNeo4jClient(cfg)
//	if err != nil {
//	    return err
//	}
//	if err := client.Connect(ctx); err != nil {
//	    return err
//	}
//	defer client.Close(ctx)
//
// Statements are not retried. The startup Connect loop backs off between
// attempts; after that, a failed statement is returned once to the caller.
package graph
