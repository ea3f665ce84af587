package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/storefront/internal/config"
	"github.com/JonMunkholm/storefront/internal/metrics"
	"github.com/JonMunkholm/storefront/internal/pipeline"
)

func newTestServer(t *testing.T) (*Server, *pipeline.Board, *metrics.Metrics) {
	t.Helper()
	board := pipeline.NewBoard()
	m := metrics.New()
	cfg := config.ServerConfig{Addr: ":0", ReadTimeout: time.Second, ShutdownTimeout: time.Second}
	return NewServer(cfg, board, m.Registry), board, m
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	s, _, _ := newTestServer(t)
	rec := get(t, s, "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestStatus(t *testing.T) {
	s, board, _ := newTestServer(t)

	rec := get(t, s, "/status")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"stages":[]}`, rec.Body.String())

	board.Record(pipeline.Outcome{Command: "acquire", Stage: "decode", OK: true, Summary: "17 regions, 100 rows"})
	board.Record(pipeline.Outcome{Command: "acquire", Stage: "publish", Code: "PUB001", Summary: "The shared store rejected the publish"})

	rec = get(t, s, "/status")
	var body struct {
		Stages []pipeline.Outcome `json:"stages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Stages, 2)
	assert.Equal(t, "decode", body.Stages[0].Stage)
	assert.False(t, body.Stages[1].OK)
	assert.Equal(t, "PUB001", body.Stages[1].Code)
}

func TestMetrics(t *testing.T) {
	s, _, m := newTestServer(t)
	m.AddPartitions("succeeded", 17)

	rec := get(t, s, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `storefront_partitions_total{result="succeeded"} 17`)
}

func TestUnknownRoute(t *testing.T) {
	s, _, _ := newTestServer(t)
	rec := get(t, s, "/upload")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not found", body.Error)
	assert.NotEmpty(t, body.RequestID)

	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/status", strings.NewReader("{}")))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestShutdownBeforeStart(t *testing.T) {
	s, _, _ := newTestServer(t)
	assert.NoError(t, s.Shutdown(t.Context()))
}
