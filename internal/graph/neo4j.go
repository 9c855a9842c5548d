package graph

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/amasuba/uraics-revenue-assurance/internal/types"
	"github.com/amasuba/uraics-revenue-assurance/pkg/version"
)

// connectAttempts bounds the startup connection loop. Statements themselves
// are never retried: a failed query is reported once, marked retryable when
// the driver classifies the failure as transient.
const connectAttempts = 5

// slowHealthCheck is the connectivity round trip above which a reachable
// store is reported degraded.
const slowHealthCheck = time.Second

// Neo4jClient implements GraphClient on the official Neo4j Go driver.
// One client is constructed per process and passed to every consumer.
type Neo4jClient struct {
	config GraphClientConfig

	mu     sync.RWMutex
	driver neo4j.DriverWithContext
}

// NewNeo4jClient creates a new Neo4j client with the given configuration.
// The client must be connected via Connect() before use.
func NewNeo4jClient(config GraphClientConfig) (*Neo4jClient, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Neo4jClient{
		config: config,
	}, nil
}

// Connect establishes a connection to the Neo4j database, backing off
// exponentially between attempts.
func (c *Neo4jClient) Connect(ctx context.Context) error {
	auth := neo4j.BasicAuth(c.config.Username, c.config.Password, "")

	driverConfig := func(config *neo4j.Config) {
		if c.config.MaxConnectionPoolSize > 0 {
			config.MaxConnectionPoolSize = c.config.MaxConnectionPoolSize
		}
		config.ConnectionAcquisitionTimeout = c.config.ConnectionTimeout
		config.UserAgent = version.UserAgent()
	}

	var lastErr error
	baseDelay := 100 * time.Millisecond

	for attempt := 0; attempt < connectAttempts; attempt++ {
		driver, err := neo4j.NewDriverWithContext(c.config.URI, auth, driverConfig)
		if err == nil {
			err = driver.VerifyConnectivity(ctx)
			if err == nil {
				c.mu.Lock()
				c.driver = driver
				c.mu.Unlock()
				return nil
			}
			_ = driver.Close(ctx)
		}

		lastErr = err

		if ctx.Err() != nil {
			return types.WrapError(ErrCodeGraphConnectionFailed,
				"connection attempt cancelled", ctx.Err())
		}

		delay := baseDelay * time.Duration(math.Pow(2, float64(attempt)))
		if delay > c.config.ConnectionTimeout {
			delay = c.config.ConnectionTimeout
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return types.WrapError(ErrCodeGraphConnectionFailed,
				"connection attempt cancelled", ctx.Err())
		}
	}

	return types.WrapRetryableError(ErrCodeGraphConnectionFailed,
		fmt.Sprintf("failed to connect to %s after %d attempts", c.config.URI, connectAttempts), lastErr)
}

// Close releases all resources and closes the database connection.
func (c *Neo4jClient) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.driver == nil {
		return nil
	}

	if err := c.driver.Close(ctx); err != nil {
		return types.WrapError(ErrCodeGraphConnectionClosed,
			"failed to close driver", err)
	}

	c.driver = nil
	return nil
}

// Health returns the current health status of the Neo4j connection.
func (c *Neo4jClient) Health(ctx context.Context) types.HealthStatus {
	driver := c.currentDriver()
	if driver == nil {
		return types.Unhealthy("driver not initialized")
	}

	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	start := time.Now()
	if err := driver.VerifyConnectivity(healthCtx); err != nil {
		return types.Unhealthy(fmt.Sprintf("connectivity check failed: %v", err)).WithLatency(time.Since(start))
	}

	return healthForLatency(time.Since(start))
}

func healthForLatency(d time.Duration) types.HealthStatus {
	if d > slowHealthCheck {
		return types.Degraded(fmt.Sprintf("connected to Neo4j, connectivity check took %s", d.Round(time.Millisecond))).WithLatency(d)
	}
	return types.Healthy("connected to Neo4j").WithLatency(d)
}

// wrapDriverError marks failures the driver deems transient (deadlocks,
// leader switches, dropped connections) as retryable.
func wrapDriverError(code types.ErrorCode, message string, err error) *types.Error {
	if neo4j.IsRetryable(err) {
		return types.WrapRetryableError(code, message, err)
	}
	return types.WrapError(code, message, err)
}

// Query runs a read statement as an auto-commit transaction.
func (c *Neo4jClient) Query(ctx context.Context, cypher string, params map[string]any) (QueryResult, error) {
	result, err := c.run(ctx, neo4j.AccessModeRead, cypher, params)
	if err != nil {
		return QueryResult{}, wrapDriverError(ErrCodeGraphQueryFailed,
			"query execution failed", err)
	}
	return result, nil
}

// Execute runs a write statement as an auto-commit transaction.
func (c *Neo4jClient) Execute(ctx context.Context, cypher string, params map[string]any) (QueryResult, error) {
	result, err := c.run(ctx, neo4j.AccessModeWrite, cypher, params)
	if err != nil {
		return QueryResult{}, wrapDriverError(ErrCodeGraphWriteFailed,
			"write execution failed", err)
	}
	return result, nil
}

// run uses session.Run rather than ExecuteRead/ExecuteWrite because the
// managed variants retry transient failures internally.
func (c *Neo4jClient) run(ctx context.Context, mode neo4j.AccessMode, cypher string, params map[string]any) (QueryResult, error) {
	driver := c.currentDriver()
	if driver == nil {
		return QueryResult{}, types.NewError(ErrCodeGraphConnectionClosed, "driver not connected")
	}

	startTime := time.Now()

	session := driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: c.config.Database,
		AccessMode:   mode,
	})
	defer session.Close(ctx)

	neoResult, err := session.Run(ctx, cypher, params)
	if err != nil {
		return QueryResult{}, err
	}

	records, err := neoResult.Collect(ctx)
	if err != nil {
		return QueryResult{}, err
	}

	summary, err := neoResult.Consume(ctx)
	if err != nil {
		return QueryResult{}, err
	}

	result := convertNeo4jResult(records, summary)
	result.Summary.ExecutionTime = time.Since(startTime)
	return result, nil
}

func (c *Neo4jClient) currentDriver() neo4j.DriverWithContext {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.driver
}

// convertNeo4jResult converts Neo4j records and summary to a QueryResult.
func convertNeo4jResult(records []*neo4j.Record, summary neo4j.ResultSummary) QueryResult {
	result := QueryResult{
		Records: make([]map[string]any, 0, len(records)),
		Columns: []string{},
	}

	if len(records) > 0 {
		result.Columns = records[0].Keys
	}

	for _, record := range records {
		row := make(map[string]any, len(record.Keys))
		for i, key := range record.Keys {
			row[key] = record.Values[i]
		}
		result.Records = append(result.Records, row)
	}

	if summary != nil && summary.Counters() != nil {
		counters := summary.Counters()
		result.Summary = QuerySummary{
			NodesCreated:         counters.NodesCreated(),
			NodesDeleted:         counters.NodesDeleted(),
			RelationshipsCreated: counters.RelationshipsCreated(),
			RelationshipsDeleted: counters.RelationshipsDeleted(),
			PropertiesSet:        counters.PropertiesSet(),
		}
	}

	return result
}
