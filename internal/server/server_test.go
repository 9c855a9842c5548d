package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amasuba/uraics-revenue-assurance/internal/config"
	"github.com/amasuba/uraics-revenue-assurance/internal/graph"
	"github.com/amasuba/uraics-revenue-assurance/internal/queries"
	"github.com/amasuba/uraics-revenue-assurance/internal/router"
	"github.com/amasuba/uraics-revenue-assurance/internal/types"
)

func setupServer(t *testing.T) (*httptest.Server, *graph.MockGraphClient) {
	t.Helper()
	client := graph.NewMockGraphClient()
	require.NoError(t, client.Connect(context.Background()))

	store := queries.NewTaxpayerQueries(client, queries.Limits{})
	r := router.New(router.NewDispatcher(store, router.Options{}, nil), router.NewFormatter("UGX"))
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("tatis_router_requests_total 1\n"))
	})

	srv := New(config.DefaultConfig().Server, r, client, metrics, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, client
}

func createSession(t *testing.T, ts *httptest.Server) string {
	t.Helper()
	resp, err := http.Post(ts.URL+"/api/v1/sessions", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body SessionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body.ID)
	return body.ID
}

type replyBody struct {
	Intent  string `json:"intent"`
	Kind    string `json:"kind"`
	Text    string `json:"text"`
	Payload struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	} `json:"payload"`
}

func send(t *testing.T, ts *httptest.Server, id, text string) (*http.Response, replyBody) {
	t.Helper()
	payload, err := json.Marshal(MessageRequest{Text: text})
	require.NoError(t, err)

	resp, err := http.Post(ts.URL+"/api/v1/sessions/"+id+"/messages", "application/json", strings.NewReader(string(payload)))
	require.NoError(t, err)
	defer resp.Body.Close()

	var body replyBody
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	}
	return resp, body
}

func TestServer_ChatFlow(t *testing.T) {
	ts, client := setupServer(t)
	client.AddRecords(map[string]any{
		"tin":    "1000123456",
		"name":   "Kampala Traders Ltd",
		"region": "Central",
		"sector": "Retail",
		"status": "Non-Compliant",
		"risks": []any{
			map[string]any{"risk_id": "R001", "risk_name": "Income under-declaration", "severity": "High", "exposure": 1.5e9},
			map[string]any{"risk_id": "R004", "risk_name": "VAT mismatch", "severity": "Critical", "exposure": 8e8},
		},
		"it_returns":    []any{},
		"efris_returns": []any{},
	})

	id := createSession(t, ts)

	resp, reply := send(t, ts, id, "Search 1000123456")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "search-by-identifier", reply.Intent)
	assert.Equal(t, "result", reply.Kind)
	assert.Equal(t, "taxpayer", reply.Payload.Type)
	assert.Contains(t, reply.Text, "UGX 2.3B")
	assert.Contains(t, string(reply.Payload.Data), `"recommendation":"MEDIUM - Review Risk Profile"`)

	_, reply = send(t, ts, id, "hello")
	assert.Equal(t, "help", reply.Intent)
	assert.Equal(t, "none", reply.Payload.Type)

	tr, err := http.Get(ts.URL + "/api/v1/sessions/" + id + "/transcript")
	require.NoError(t, err)
	defer tr.Body.Close()
	require.Equal(t, http.StatusOK, tr.StatusCode)

	var transcript TranscriptResponse
	require.NoError(t, json.NewDecoder(tr.Body).Decode(&transcript))
	require.Len(t, transcript.Turns, 4)
	assert.Equal(t, router.RoleUser, transcript.Turns[0].Role)
	assert.Equal(t, "Search 1000123456", transcript.Turns[0].Content)
	assert.Equal(t, router.HelpText, transcript.Turns[3].Content)
}

func TestServer_UnknownSession(t *testing.T) {
	ts, _ := setupServer(t)

	resp, _ := send(t, ts, "missing", "help")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	tr, err := http.Get(ts.URL + "/api/v1/sessions/missing/transcript")
	require.NoError(t, err)
	tr.Body.Close()
	assert.Equal(t, http.StatusNotFound, tr.StatusCode)
}

func TestServer_BadBody(t *testing.T) {
	ts, _ := setupServer(t)
	id := createSession(t, ts)

	resp, err := http.Post(ts.URL+"/api/v1/sessions/"+id+"/messages", "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_MethodNotAllowed(t *testing.T) {
	ts, _ := setupServer(t)

	resp, err := http.Get(ts.URL + "/api/v1/sessions")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestServer_Health(t *testing.T) {
	ts, client := setupServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	var status types.HealthStatus
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, types.HealthStateHealthy, status.State)

	client.SetHealthStatus(types.Degraded("connectivity check took 1.8s"))
	resp, err = http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode, "a degraded store still serves")
	assert.Equal(t, types.HealthStateDegraded, status.State)

	client.SetHealthStatus(types.Unhealthy("bolt handshake failed"))
	resp, err = http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestServer_Metrics(t *testing.T) {
	ts, _ := setupServer(t)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_ConcurrentSessions(t *testing.T) {
	ts, _ := setupServer(t)
	ids := []string{createSession(t, ts), createSession(t, ts), createSession(t, ts)}

	var wg sync.WaitGroup
	for _, id := range ids {
		for i := 0; i < 5; i++ {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				payload := `{"text":"help"}`
				resp, err := http.Post(ts.URL+"/api/v1/sessions/"+id+"/messages", "application/json", strings.NewReader(payload))
				if err == nil {
					resp.Body.Close()
				}
			}(id)
		}
	}
	wg.Wait()

	for _, id := range ids {
		resp, err := http.Get(ts.URL + "/api/v1/sessions/" + id + "/transcript")
		require.NoError(t, err)
		var transcript TranscriptResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&transcript))
		resp.Body.Close()
		assert.Len(t, transcript.Turns, 10)
	}
}
