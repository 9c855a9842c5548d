package graph

import (
	"context"
	"time"

	"github.com/amasuba/uraics-revenue-assurance/internal/types"
)

// GraphClient is the data-access boundary for the taxpayer/risk/audit graph.
// Every statement is a parameterized Cypher template; callers never splice
// values into statement text. Implementations must be safe for concurrent use.
type GraphClient interface {
	// Connect establishes the connection. It is called once per process.
	Connect(ctx context.Context) error

	// Close releases the driver and all pooled connections.
	Close(ctx context.Context) error

	// Health checks the connection.
	Health(ctx context.Context) types.HealthStatus

	// Query runs a read-only statement.
	Query(ctx context.Context, cypher string, params map[string]any) (QueryResult, error)

	// Execute runs a statement in a write transaction.
	Execute(ctx context.Context, cypher string, params map[string]any) (QueryResult, error)
}

// QueryResult represents the result of a Cypher statement.
type QueryResult struct {
	// Records contains the result rows as maps of column name to value.
	Records []map[string]any

	// Columns contains the names of the columns in the result set.
	Columns []string

	// Summary contains metadata about the execution.
	Summary QuerySummary
}

// Empty reports whether the statement returned no rows.
func (r QueryResult) Empty() bool {
	return len(r.Records) == 0
}

// QuerySummary provides metadata about statement execution.
type QuerySummary struct {
	ExecutionTime        time.Duration
	NodesCreated         int
	NodesDeleted         int
	RelationshipsCreated int
	RelationshipsDeleted int
	PropertiesSet        int
}

// GraphClientConfig contains configuration options for graph database clients.
type GraphClientConfig struct {
	// URI is the connection URI, e.g. "bolt://host:7687" or "neo4j+s://host".
	URI string

	// Username for authentication.
	Username string

	// Password for authentication.
	Password string

	// Database name to connect to. Empty uses the server default.
	Database string

	// MaxConnectionPoolSize limits the number of pooled connections.
	// Zero or negative values use the driver default.
	MaxConnectionPoolSize int

	// ConnectionTimeout is the maximum time to wait for a connection.
	ConnectionTimeout time.Duration
}

// DefaultConfig returns a GraphClientConfig pointing at a local Neo4j.
func DefaultConfig() GraphClientConfig {
	return GraphClientConfig{
		URI:                   "bolt://localhost:7687",
		Username:              "neo4j",
		Password:              "password",
		MaxConnectionPoolSize: 50,
		ConnectionTimeout:     30 * time.Second,
	}
}

// Validate checks if the configuration is valid.
func (c GraphClientConfig) Validate() error {
	if c.URI == "" {
		return types.NewError(ErrCodeGraphInvalidConfig, "URI cannot be empty")
	}
	if c.Username == "" {
		return types.NewError(ErrCodeGraphInvalidConfig, "Username cannot be empty")
	}
	if c.Password == "" {
		return types.NewError(ErrCodeGraphInvalidConfig, "Password cannot be empty")
	}
	if c.ConnectionTimeout <= 0 {
		return types.NewError(ErrCodeGraphInvalidConfig, "ConnectionTimeout must be positive")
	}
	return nil
}
