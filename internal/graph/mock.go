package graph

import (
	"context"
	"sync"
	"time"

	"github.com/amasuba/uraics-revenue-assurance/internal/types"
)

// MockCall represents a recorded method call on the mock graph client.
type MockCall struct {
	Method    string
	Cypher    string
	Params    map[string]any
	Timestamp time.Time
}

// MockGraphClient is an in-memory GraphClient for tests. Query and Execute
// share one FIFO queue of results; every call is recorded.
type MockGraphClient struct {
	mu sync.RWMutex

	connected    bool
	healthStatus types.HealthStatus
	calls        []MockCall

	results      []QueryResult
	queryError   error
	executeError error
	connectError error
}

// NewMockGraphClient creates a new mock graph client for testing.
func NewMockGraphClient() *MockGraphClient {
	return &MockGraphClient{
		healthStatus: types.Healthy("mock graph client"),
		calls:        make([]MockCall, 0),
		results:      make([]QueryResult, 0),
	}
}

// Connect records the call and simulates connection.
func (m *MockGraphClient) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.record("Connect", "", nil)
	if m.connectError != nil {
		return m.connectError
	}
	m.connected = true
	return nil
}

// Close records the call and simulates disconnection.
func (m *MockGraphClient) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.record("Close", "", nil)
	m.connected = false
	return nil
}

// Health returns the configured status, or unhealthy when not connected.
func (m *MockGraphClient) Health(ctx context.Context) types.HealthStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.record("Health", "", nil)
	if !m.connected {
		return types.Unhealthy("not connected")
	}
	return m.healthStatus
}

// Query records the call and pops the next queued result.
func (m *MockGraphClient) Query(ctx context.Context, cypher string, params map[string]any) (QueryResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.record("Query", cypher, params)
	if !m.connected {
		return QueryResult{}, types.NewError(ErrCodeGraphConnectionClosed, "not connected")
	}
	if m.queryError != nil {
		return QueryResult{}, m.queryError
	}
	return m.next(), nil
}

// Execute records the call and pops the next queued result.
func (m *MockGraphClient) Execute(ctx context.Context, cypher string, params map[string]any) (QueryResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.record("Execute", cypher, params)
	if !m.connected {
		return QueryResult{}, types.NewError(ErrCodeGraphConnectionClosed, "not connected")
	}
	if m.executeError != nil {
		return QueryResult{}, m.executeError
	}
	return m.next(), nil
}

func (m *MockGraphClient) record(method, cypher string, params map[string]any) {
	m.calls = append(m.calls, MockCall{
		Method:    method,
		Cypher:    cypher,
		Params:    params,
		Timestamp: time.Now(),
	})
}

func (m *MockGraphClient) next() QueryResult {
	if len(m.results) == 0 {
		return QueryResult{Records: []map[string]any{}, Columns: []string{}}
	}
	result := m.results[0]
	m.results = m.results[1:]
	return result
}

// AddQueryResult queues a result for the next Query or Execute call.
func (m *MockGraphClient) AddQueryResult(result QueryResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, result)
}

// AddRecords is shorthand for queuing a result made of the given rows.
func (m *MockGraphClient) AddRecords(records ...map[string]any) {
	if records == nil {
		records = []map[string]any{}
	}
	m.AddQueryResult(QueryResult{Records: records})
}

// SetQueryError configures Query() to return an error.
func (m *MockGraphClient) SetQueryError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queryError = err
}

// SetExecuteError configures Execute() to return an error.
func (m *MockGraphClient) SetExecuteError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.executeError = err
}

// SetConnectError configures Connect() to return an error.
func (m *MockGraphClient) SetConnectError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectError = err
}

// SetHealthStatus configures what Health() returns while connected.
func (m *MockGraphClient) SetHealthStatus(status types.HealthStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.healthStatus = status
}

// GetCalls returns a copy of all recorded calls.
func (m *MockGraphClient) GetCalls() []MockCall {
	m.mu.RLock()
	defer m.mu.RUnlock()

	calls := make([]MockCall, len(m.calls))
	copy(calls, m.calls)
	return calls
}

// GetCallsByMethod returns all calls to a specific method.
func (m *MockGraphClient) GetCallsByMethod(method string) []MockCall {
	m.mu.RLock()
	defer m.mu.RUnlock()

	calls := make([]MockCall, 0)
	for _, call := range m.calls {
		if call.Method == method {
			calls = append(calls, call)
		}
	}
	return calls
}

// StoreCalls counts Query and Execute calls.
func (m *MockGraphClient) StoreCalls() int {
	return len(m.GetCallsByMethod("Query")) + len(m.GetCallsByMethod("Execute"))
}

// IsConnected returns whether the mock is in connected state.
func (m *MockGraphClient) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}
