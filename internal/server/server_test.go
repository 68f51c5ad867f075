package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/stratum/pkg/cache"
	"github.com/matzehuels/stratum/pkg/errors"
	"github.com/matzehuels/stratum/pkg/graph"
	"github.com/matzehuels/stratum/pkg/layout"
	"github.com/matzehuels/stratum/pkg/observability"
	"github.com/matzehuels/stratum/pkg/pipeline"
	"github.com/matzehuels/stratum/pkg/position"
)

const diamondJSON = `{
	"nodes": [{"id": "a"}, {"id": "b"}, {"id": "c"}, {"id": "d"}],
	"edges": [
		{"from": "a", "to": "b"}, {"from": "a", "to": "c"},
		{"from": "b", "to": "d"}, {"from": "c", "to": "d"}
	]
}`

func newTestServer(t *testing.T, opts ...Option) *Server {
	t.Helper()
	fc, err := cache.NewFileCache(t.TempDir())
	require.NoError(t, err)
	return New(pipeline.NewRunner(fc, nil, nil), opts...)
}

func do(s *Server, method, target, contentType, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestLayoutJSON(t *testing.T) {
	s := newTestServer(t)

	rec := do(s, http.MethodPost, "/layout", "application/json", diamondJSON, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "miss", rec.Header().Get(headerCache))
	assert.NotEmpty(t, rec.Header().Get(headerRunID))
	assert.NotEmpty(t, rec.Header().Get(headerGraphHash))

	l, err := graph.UnmarshalLayout(rec.Body.Bytes())
	require.NoError(t, err)
	require.Len(t, l.Nodes, 4)
	d, ok := l.Node("d")
	require.True(t, ok)
	assert.Equal(t, 2, d.Rank)

	rec = do(s, http.MethodPost, "/layout", "application/json", diamondJSON, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hit", rec.Header().Get(headerCache))
}

func TestLayoutDOTToSVG(t *testing.T) {
	s := newTestServer(t)

	rec := do(s, http.MethodPost, "/layout?output=svg", "text/vnd.graphviz", "digraph { a -> b }", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "<svg")
}

func TestLayoutQueryOptions(t *testing.T) {
	s := newTestServer(t)

	rec := do(s, http.MethodPost, "/layout?rankdir=LR&ranksep=100&format=json", "", diamondJSON, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	l, err := graph.UnmarshalLayout(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "LR", l.RankDir)
	a, _ := l.Node("a")
	d, _ := l.Node("d")
	assert.Greater(t, d.X-a.X, 200.0, "two ranks of 100 plus node widths")
}

func TestLayoutDefaults(t *testing.T) {
	s := newTestServer(t, WithLayoutDefaults(layout.Options{RankDir: position.RankDirBT}))

	rec := do(s, http.MethodPost, "/layout", "", diamondJSON, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	l, err := graph.UnmarshalLayout(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "BT", l.RankDir)

	// A request parameter overrides the server default.
	rec = do(s, http.MethodPost, "/layout?rankdir=TB", "", diamondJSON, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	l, err = graph.UnmarshalLayout(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "TB", l.RankDir)
}

func TestLayoutErrors(t *testing.T) {
	tests := []struct {
		name   string
		target string
		body   string
		status int
		code   errors.Code
	}{
		{"malformed json", "/layout", `{"nodes": [`, http.StatusBadRequest, errors.ErrCodeInvalidFormat},
		{"unknown node", "/layout", `{"nodes": [{"id": "a"}], "edges": [{"from": "a", "to": "zz"}]}`, http.StatusUnprocessableEntity, errors.ErrCodeNotFound},
		{"bad output", "/layout?output=png", diamondJSON, http.StatusBadRequest, errors.ErrCodeInvalidFormat},
		{"bad rankdir", "/layout?rankdir=XY", diamondJSON, http.StatusBadRequest, errors.ErrCodeInvalidConfig},
		{"bad ranksep", "/layout?ranksep=wide", diamondJSON, http.StatusBadRequest, errors.ErrCodeInvalidConfig},
		{"bad no_cache", "/layout?no_cache=maybe", diamondJSON, http.StatusBadRequest, errors.ErrCodeInvalidConfig},
		{"unsupported engine", "/layout?engine=neato", diamondJSON, http.StatusNotImplemented, errors.ErrCodeUnsupported},
		{"unknown engine", "/layout?engine=magic", diamondJSON, http.StatusBadRequest, errors.ErrCodeInvalidConfig},
	}

	s := newTestServer(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(s, http.MethodPost, tt.target, "", tt.body, nil)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())

			var resp errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.code, resp.Code)
			assert.NotEmpty(t, resp.Message)
		})
	}
}

func TestLayoutBodyLimit(t *testing.T) {
	s := newTestServer(t, WithMaxBodyBytes(16))

	rec := do(s, http.MethodPost, "/layout", "", diamondJSON, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "exceeds 16 bytes")
}

func TestLayoutScope(t *testing.T) {
	s := newTestServer(t)

	rec := do(s, http.MethodPost, "/layout", "", diamondJSON, map[string]string{headerScope: "team-a"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "miss", rec.Header().Get(headerCache))

	rec = do(s, http.MethodPost, "/layout", "", diamondJSON, map[string]string{headerScope: "team-b"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "miss", rec.Header().Get(headerCache), "scopes must not share entries")

	rec = do(s, http.MethodPost, "/layout", "", diamondJSON, map[string]string{headerScope: "team-a"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hit", rec.Header().Get(headerCache))

	rec = do(s, http.MethodPost, "/layout", "", diamondJSON, map[string]string{headerScope: "bad scope"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestEnginesAndVersion(t *testing.T) {
	s := newTestServer(t)

	rec := do(s, http.MethodGet, "/engines", "", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var engines struct {
		Default string   `json:"default"`
		Engines []string `json:"engines"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &engines))
	assert.Equal(t, layout.EngineDot, engines.Default)
	assert.Contains(t, engines.Engines, layout.EngineDot)

	rec = do(s, http.MethodGet, "/version", "", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"version"`)

	rec = do(s, http.MethodGet, "/healthz", "", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok\n", rec.Body.String())

	rec = do(s, http.MethodGet, "/layout", "", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

type recordingServerHooks struct {
	observability.NoopServerHooks
	mu       sync.Mutex
	statuses []int
}

func (h *recordingServerHooks) OnResponse(_ context.Context, _, _ string, status int, _ time.Duration) {
	h.mu.Lock()
	h.statuses = append(h.statuses, status)
	h.mu.Unlock()
}

func TestServerHooks(t *testing.T) {
	hooks := &recordingServerHooks{}
	observability.SetServerHooks(hooks)
	defer observability.Reset()

	s := newTestServer(t)
	do(s, http.MethodGet, "/healthz", "", "", nil)
	do(s, http.MethodPost, "/layout", "", `{`, nil)

	assert.Equal(t, []int{http.StatusOK, http.StatusBadRequest}, hooks.statuses)
}

func newBufferLogger(buf *bytes.Buffer) *log.Logger {
	return log.NewWithOptions(buf, log.Options{Level: log.DebugLevel})
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	s := newTestServer(t, WithLogger(newBufferLogger(&buf)))
	do(s, http.MethodGet, "/healthz", "", "", nil)

	out := buf.String()
	assert.Contains(t, out, "path=/healthz")
	assert.Contains(t, out, "status=200")
}

func TestListenAndServeShutdown(t *testing.T) {
	s := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0") }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("ListenAndServe did not return after cancel")
	}
}
