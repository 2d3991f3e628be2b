// Integration tests for the timejump HTTP server
package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nainya/timejump/internal/metrics"
	"github.com/nainya/timejump/pkg/daterange"
	"github.com/nainya/timejump/pkg/daterange/grammar"
	"github.com/nainya/timejump/pkg/journal"
	"github.com/nainya/timejump/pkg/jump"
	"github.com/nainya/timejump/pkg/timeline"
)

const timelineJSON = `{"nodes":[
  {"description":"Dentist appointment","tags":["health"],"from":"2024-03-05T09:00:00Z","to":"2024-03-05T10:00:00Z"},
  {"title":"Paris trip","tags":["travel"],"children":[
    {"description":"Flight to Paris","from":"2024-03-10"}
  ]}
]}`

func setupTestServer(t *testing.T) (*httptest.Server, *timeline.Store) {
	t.Helper()

	nodes, err := timeline.Decode(strings.NewReader(timelineJSON), time.UTC)
	require.NoError(t, err)
	store := timeline.NewStore(nodes...)

	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)
	dates := daterange.NewResolver(grammar.New(grammar.WithLocation(time.UTC)), nil, daterange.WithLocation(time.UTC))
	resolver := jump.New(store, dates, jump.WithObserver(m))

	srv := New(Options{
		Store:    store,
		Resolver: resolver,
		Metrics:  m,
		Gatherer: reg,
		Location: time.UTC,
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, store
}

func do(t *testing.T, method, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	if resp.StatusCode != http.StatusNoContent && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

func TestSearch_Match(t *testing.T) {
	ts, _ := setupTestServer(t)

	resp, body := do(t, http.MethodGet, ts.URL+"/search?q=dentist", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "dentist", body["query"])

	results := body["results"].([]any)
	require.Len(t, results, 1)
	hit := results[0].(map[string]any)
	assert.Equal(t, "match", hit["type"])
	assert.Equal(t, "0", hit["path"])
	assert.Equal(t, "Dentist appointment", hit["description"])
	assert.Equal(t, "Tuesday, March 5, 2024, 9:00 AM UTC", hit["dateTime"])
	assert.Greater(t, hit["score"].(float64), 0.0)
}

func TestSearch_DateRangeFirst(t *testing.T) {
	ts, _ := setupTestServer(t)

	resp, body := do(t, http.MethodGet, ts.URL+"/search?q=2024-03&scale=day", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	results := body["results"].([]any)
	require.NotEmpty(t, results)
	first := results[0].(map[string]any)
	assert.Equal(t, "dateRange", first["type"])
	assert.Equal(t, "2024-03-01T00:00:00Z", first["from"])
	assert.Equal(t, "2024-04-01T00:00:00Z", first["to"])
	assert.Equal(t, "day", first["scale"])
}

func TestSearch_EmptyQueryIsNoContent(t *testing.T) {
	ts, _ := setupTestServer(t)

	resp, _ := do(t, http.MethodGet, ts.URL+"/search", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestSearch_NoMatchIsEmptyList(t *testing.T) {
	ts, _ := setupTestServer(t)

	resp, body := do(t, http.MethodGet, ts.URL+"/search?q=xylophone", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, body["results"])
	assert.NotNil(t, body["results"])
}

func TestSearch_BadParams(t *testing.T) {
	ts, _ := setupTestServer(t)

	resp, body := do(t, http.MethodGet, ts.URL+"/search?q=paris&scale=fortnight", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "unknown scale")

	resp, _ = do(t, http.MethodGet, ts.URL+"/search?q=paris&limit=-1", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSearch_Limit(t *testing.T) {
	ts, _ := setupTestServer(t)

	resp, body := do(t, http.MethodGet, ts.URL+"/search?q=travel&limit=1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["results"], 1)
}

func TestTimeline_AppendEventIsSearchable(t *testing.T) {
	ts, store := setupTestServer(t)

	resp, body := do(t, http.MethodPost, ts.URL+"/timeline/events",
		`{"description":"Plumber visit","tags":["home"],"from":"2024-04-09"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, float64(2), body["revision"])
	assert.Equal(t, uint64(2), store.Revision())

	_, body = do(t, http.MethodGet, ts.URL+"/search?q=plumber", "")
	results := body["results"].([]any)
	require.Len(t, results, 1)
	assert.Equal(t, "2", results[0].(map[string]any)["path"])
}

func TestTimeline_AppendToGroup(t *testing.T) {
	ts, _ := setupTestServer(t)

	resp, _ := do(t, http.MethodPost, ts.URL+"/timeline/events?group=1",
		`{"description":"Louvre visit","from":"2024-03-11"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	_, body := do(t, http.MethodGet, ts.URL+"/search?q=louvre", "")
	results := body["results"].([]any)
	require.Len(t, results, 1)
	assert.Equal(t, "1.1", results[0].(map[string]any)["path"])

	resp, _ = do(t, http.MethodPost, ts.URL+"/timeline/events?group=0",
		`{"description":"x","from":"2024-03-11"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, http.MethodPost, ts.URL+"/timeline/events?group=7",
		`{"description":"x","from":"2024-03-11"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTimeline_AppendRejectsBadBody(t *testing.T) {
	ts, store := setupTestServer(t)

	resp, _ := do(t, http.MethodPost, ts.URL+"/timeline/events", `{"description":`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, http.MethodPost, ts.URL+"/timeline/events", `{"title":"group","children":[]}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	assert.Equal(t, uint64(1), store.Revision())
}

func TestTimeline_ReplaceAndGet(t *testing.T) {
	ts, _ := setupTestServer(t)

	resp, body := do(t, http.MethodPut, ts.URL+"/timeline",
		`{"nodes":[{"description":"Quarterly review","from":"2024-04-02"}]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), body["revision"])

	resp, body = do(t, http.MethodGet, ts.URL+"/timeline", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "2", resp.Header.Get("X-Timeline-Revision"))
	nodes := body["nodes"].([]any)
	require.Len(t, nodes, 1)
	assert.Equal(t, "Quarterly review", nodes[0].(map[string]any)["description"])

	_, body = do(t, http.MethodGet, ts.URL+"/search?q=dentist", "")
	assert.Empty(t, body["results"])
}

func TestTimeline_RemoveNode(t *testing.T) {
	ts, store := setupTestServer(t)

	resp, _ := do(t, http.MethodDelete, ts.URL+"/timeline/nodes/0", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, store.Nodes(), 1)

	resp, _ = do(t, http.MethodDelete, ts.URL+"/timeline/nodes/9", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = do(t, http.MethodDelete, ts.URL+"/timeline/nodes/x.y", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestObservabilityEndpoints(t *testing.T) {
	ts, _ := setupTestServer(t)

	resp, body := do(t, http.MethodGet, ts.URL+"/health", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])

	resp, body = do(t, http.MethodGet, ts.URL+"/ready", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ready", body["status"])
	assert.Equal(t, float64(3), body["documents"])

	do(t, http.MethodGet, ts.URL+"/search?q=dentist", "")

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	text := string(raw)
	assert.Contains(t, text, `timejump_queries_total{outcome="text"} 1`)
	assert.Contains(t, text, `timejump_http_requests_total{path="/search",status="200"} 1`)
	assert.Contains(t, text, "timejump_index_builds_total 1")
	assert.Contains(t, text, "timejump_indexed_documents 3")
}

func TestTimeline_EditsAreJournaled(t *testing.T) {
	nodes, err := timeline.Decode(strings.NewReader(timelineJSON), time.UTC)
	require.NoError(t, err)
	store := timeline.NewStore(nodes...)

	path := filepath.Join(t.TempDir(), "timeline.journal")
	j, err := journal.Open(path, journal.WithSync(false))
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)
	dates := daterange.NewResolver(grammar.New(grammar.WithLocation(time.UTC)), nil, daterange.WithLocation(time.UTC))
	srv := New(Options{
		Recorder: journal.NewRecorder(store, j, journal.WithObserver(m)),
		Resolver: jump.New(store, dates),
		Metrics:  m,
		Gatherer: reg,
		Location: time.UTC,
	})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, _ := do(t, http.MethodPost, ts.URL+"/timeline/events", `{"description":"Plumber visit","from":"2024-04-09"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, _ = do(t, http.MethodDelete, ts.URL+"/timeline/nodes/0", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = do(t, http.MethodDelete, ts.URL+"/timeline/nodes/9", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.NoError(t, j.Close())

	reopened, err := journal.Open(path)
	require.NoError(t, err)
	defer reopened.Close()
	require.Len(t, reopened.Recovered(), 2)

	base, err := timeline.Decode(strings.NewReader(timelineJSON), time.UTC)
	require.NoError(t, err)
	fresh := timeline.NewStore(base...)
	stats := journal.NewRecorder(fresh, nil).Replay(reopened.Recovered(), time.UTC)
	assert.Equal(t, 2, stats.Applied)
	require.Len(t, fresh.Nodes(), 2)
	assert.Equal(t, "Plumber visit", fresh.Nodes()[1].(*timeline.Event).Description)
}
