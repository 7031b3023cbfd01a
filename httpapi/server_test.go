package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/minutia"
	"github.com/poiesic/minutia/ai/local"
	"github.com/poiesic/minutia/core"
	"github.com/poiesic/minutia/metrics"
	"github.com/poiesic/minutia/pipeline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unavailableModel() (local.Model, error) {
	return nil, errors.New("onnxruntime missing")
}

func newTestServer(t *testing.T) (*Server, *minutia.Engine) {
	t.Helper()
	reg := prometheus.NewRegistry()
	engine, err := minutia.NewEngine(context.Background(),
		minutia.WithMetrics(metrics.New(reg)),
		minutia.WithLocalLoader(unavailableModel),
		minutia.WithStoreConfig(minutia.StoreConfig{Kind: minutia.StoreChromem, Dim: 64}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })

	server, err := NewServer(Deps{
		Analyzer:  engine.Pipeline(),
		Indexer:   engine.Indexer(),
		Retriever: engine.Retriever(),
		Gatherer:  reg,
	})
	require.NoError(t, err)
	return server, engine
}

func do(t *testing.T, server *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	server.echo.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	server, _ := newTestServer(t)

	rec := do(t, server, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestAnalyze(t *testing.T) {
	server, engine := newTestServer(t)

	rec := do(t, server, http.MethodPost, "/api/analyze",
		`{"transcript":"Project Apollo sync. Alice will send the budget forecast by Friday."}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result pipeline.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "Apollo", result.Metadata.ProjectName)
	assert.Equal(t, "Finance", result.Metadata.Department)
	assert.NotEmpty(t, result.Insights.Overview)

	count, err := engine.Store().Count(context.Background(), "Apollo")
	require.NoError(t, err)
	assert.Equal(t, result.IndexedChunks+result.InsightRecords, count)
}

func TestAnalyze_RejectsEmptyTranscript(t *testing.T) {
	server, _ := newTestServer(t)

	for _, body := range []string{`{}`, `{"transcript":"   "}`} {
		rec := do(t, server, http.MethodPost, "/api/analyze", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestEmbedUpsert(t *testing.T) {
	server, engine := newTestServer(t)

	rec := do(t, server, http.MethodPost, "/api/embed-upsert",
		`{"documents":["launch moved to May","budget approved"],"projectName":"Apollo","department":"Marketing","dateISO":"2024-03-01T10:00:00.000Z"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp EmbedUpsertResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	assert.Equal(t, 2, resp.Count)

	count, err := engine.Store().Count(context.Background(), "Apollo")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestEmbedUpsert_Defaults(t *testing.T) {
	server, engine := newTestServer(t)
	server.now = func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) }

	rec := do(t, server, http.MethodPost, "/api/embed-upsert", `{"documents":["hello"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	count, err := engine.Store().Count(context.Background(), core.DefaultProjectName)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestEmbedUpsert_BadRequests(t *testing.T) {
	server, _ := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{name: "missing documents", body: `{"projectName":"Apollo"}`},
		{name: "documents not an array", body: `{"documents":"hello"}`},
		{name: "documents not strings", body: `{"documents":[1,2]}`},
		{name: "null documents", body: `{"documents":null}`},
		{name: "blank document", body: `{"documents":["ok",""],"projectName":"P"}`},
		{name: "whitespace document", body: `{"documents":["   "]}`},
		{name: "bad date", body: `{"documents":["x"],"dateISO":"yesterday"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, server, http.MethodPost, "/api/embed-upsert", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestRetrieve(t *testing.T) {
	server, _ := newTestServer(t)

	rec := do(t, server, http.MethodPost, "/api/embed-upsert",
		`{"documents":["the launch budget was approved"],"projectName":"Apollo","department":"Finance"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, server, http.MethodPost, "/api/retrieve",
		`{"projectName":"Apollo","department":"Finance","searchQuery":"launch budget","k":3}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp RetrieveResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Context #1: the launch budget was approved", resp.Context)
}

func TestRetrieve_EmptyIndex(t *testing.T) {
	server, _ := newTestServer(t)

	rec := do(t, server, http.MethodPost, "/api/retrieve",
		`{"projectName":"Apollo","department":"Finance","searchQuery":"anything"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp RetrieveResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Context)
}

func TestRetrieve_MissingFields(t *testing.T) {
	server, _ := newTestServer(t)

	for _, body := range []string{
		`{"department":"Finance","searchQuery":"x"}`,
		`{"projectName":"Apollo","searchQuery":"x"}`,
		`{"projectName":"Apollo","department":"Finance"}`,
	} {
		rec := do(t, server, http.MethodPost, "/api/retrieve", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestMetrics(t *testing.T) {
	server, _ := newTestServer(t)

	rec := do(t, server, http.MethodPost, "/api/embed-upsert", `{"documents":["one"],"projectName":"Apollo"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, server, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "indexed_records_total 1")
}

func TestNewServer_RequiresDeps(t *testing.T) {
	_, err := NewServer(Deps{})
	assert.Error(t, err)
}
