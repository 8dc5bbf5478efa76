// internal/server/server_test.go
package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nlq-resolver/internal/catalog"
	"nlq-resolver/internal/clarify"
	"nlq-resolver/internal/common/logger"
	"nlq-resolver/internal/extract"
	"nlq-resolver/internal/models"
	"nlq-resolver/internal/resolve"
	"nlq-resolver/internal/resolver"
	"nlq-resolver/internal/sqlgen"
)

func testServer(t *testing.T) *httptest.Server {
	t.Helper()

	doc := catalog.Document{
		Metrics: []models.Metric{
			{Name: "Revenue", BackingField: "total_revenue", Synonyms: []string{"earnings"}, DataType: models.MetricTypeCurrency},
		},
		Dimensions: []models.Dimension{
			{Name: "Game", BackingField: "game_name", Synonyms: []string{"games"}, DataType: models.DimensionTypeString},
		},
	}
	cat := catalog.New(catalog.Params{Threshold: 0.75}, logger.NewNoOpLogger())
	require.NoError(t, cat.Load(doc))

	now := func() time.Time { return time.Date(2026, time.August, 28, 12, 0, 0, 0, time.UTC) }
	e := extract.New(cat, logger.NewNoOpLogger(), extract.WithNow(now))
	r := resolve.New(cat, resolve.Params{AmbiguityMargin: 0.05, DefaultRangeDays: 30}, logger.NewNoOpLogger(), resolve.WithNow(now))

	store := clarify.NewMemoryStore(logger.NewTestLogger(t))
	t.Cleanup(func() { store.Close() })
	manager := clarify.NewManager(store, cat, e, r, 10*time.Minute, logger.NewTestLogger(t))
	svc := resolver.New(e, r, manager, nil, logger.NewTestLogger(t))

	srv := New(":0", svc, sqlgen.New("daily_actions", "action_date"), logger.NewTestLogger(t))
	ts := httptest.NewServer(srv.http.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func postQuery(t *testing.T, ts *httptest.Server, body QueryRequest) (*http.Response, QueryResponse) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(ts.URL+"/v1/query", "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var out QueryResponse
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

func TestQueryEndpointResolves(t *testing.T) {
	ts := testServer(t)

	resp, out := postQuery(t, ts, QueryRequest{Text: "revenue by game last month"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, resolver.StatusResolved, out.Status)
	require.NotNil(t, out.Query)
	assert.Equal(t, "Revenue", out.Query.Metrics[0].Metric.Name)
	assert.Contains(t, out.SQL, `SUM("total_revenue")`)
	assert.Len(t, out.Args, 2)
}

func TestQueryEndpointClarificationFlow(t *testing.T) {
	ts := testServer(t)

	resp, out := postQuery(t, ts, QueryRequest{Text: "games last week"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, resolver.StatusClarification, out.Status)
	require.NotEmpty(t, out.Token)
	assert.NotEmpty(t, out.Prompt)

	resp, final := postQuery(t, ts, QueryRequest{Token: out.Token, Answer: "revenue"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, resolver.StatusResolved, final.Status)
	assert.NotEmpty(t, final.SQL)
}

func TestQueryEndpointUnknownToken(t *testing.T) {
	ts := testServer(t)

	resp, _ := postQuery(t, ts, QueryRequest{Token: "bogus", Answer: "revenue"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestQueryEndpointBadRequest(t *testing.T) {
	ts := testServer(t)

	resp, _ := postQuery(t, ts, QueryRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	raw := bytes.NewReader([]byte("{not json"))
	r2, err := http.Post(ts.URL+"/v1/query", "application/json", raw)
	require.NoError(t, err)
	defer r2.Body.Close()
	assert.Equal(t, http.StatusBadRequest, r2.StatusCode)
}

func TestHealthEndpoint(t *testing.T) {
	ts := testServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
