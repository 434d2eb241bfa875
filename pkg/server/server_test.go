package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storyweave/continuity"
	"github.com/storyweave/continuity/pkg/config"
	"github.com/storyweave/continuity/pkg/logger"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{}
	cfg.Server.Mode = gin.TestMode
	cfg.Store.Driver = "memory"
	cfg.Scheduler.Interval = 300
	cfg.Scheduler.CheckpointDir = t.TempDir()

	client, err := continuity.NewClient(cfg, logger.NewDefaultLogger())
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() }) //nolint:errcheck

	srv := New(cfg, client)
	srv.Setup()
	return srv
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	out := map[string]any{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/health", "/live", "/ready", "/health/detailed"} {
		w := doJSON(t, srv, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestAddNodeEndpoint(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/v1/graph/nodes", map[string]any{
		"story_id": "story-1",
		"user_id":  "user-1",
		"node":     map[string]any{"kind": "Character", "name": "Alice"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])

	// story_id is mandatory
	w = doJSON(t, srv, http.MethodPost, "/api/v1/graph/nodes", map[string]any{
		"node": map[string]any{"kind": "Character", "name": "Bob"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAddEdgeEndpoint(t *testing.T) {
	srv := newTestServer(t)

	valid := map[string]any{
		"story_id":  "story-1",
		"edge_type": "KNOWS",
		"from": map[string]any{
			"id": "alice", "kind": "Character",
			"created_at": "2024-03-01T00:00:00Z",
		},
		"to": map[string]any{
			"id": "k1", "kind": "Knowledge",
			"valid_from": "2024-03-01T01:00:00Z",
		},
	}
	w := doJSON(t, srv, http.MethodPost, "/api/v1/graph/edges", valid)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// a self-loop is rejected with the verdict, not stored
	w = doJSON(t, srv, http.MethodPost, "/api/v1/graph/edges", map[string]any{
		"story_id":  "story-1",
		"edge_type": "RELATIONSHIP",
		"from":      map[string]any{"id": "alice", "kind": "Character"},
		"to":        map[string]any{"id": "alice", "kind": "Character"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, false, body["success"])
	assert.NotEmpty(t, body["error"])

	// an unknown edge type never reaches the gate
	w = doJSON(t, srv, http.MethodPost, "/api/v1/graph/edges", map[string]any{
		"story_id":  "story-1",
		"edge_type": "BEFRIENDS",
		"from":      map[string]any{"id": "a", "kind": "Character"},
		"to":        map[string]any{"id": "b", "kind": "Character"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestValidateEdgeEndpoint(t *testing.T) {
	srv := newTestServer(t)

	// validation is read-only, so no story scope is required
	w := doJSON(t, srv, http.MethodPost, "/api/v1/graph/edges/validate", map[string]any{
		"edge_type": "INTERACTS_WITH",
		"from":      map[string]any{"id": "a", "kind": "Character"},
		"to":        map[string]any{"id": "b", "kind": "Character"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
}

func TestConsistencyEndpoints(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/v1/consistency/scan", map[string]any{
		"story_id": "story-1",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, srv, http.MethodGet, "/api/v1/consistency/report?story_id=story-1", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, srv, http.MethodGet, "/api/v1/consistency/status", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestQueryEndpoints(t *testing.T) {
	srv := newTestServer(t)

	// the memory store has no raw-query support, so a valid query still
	// comes back as a structured failure
	w := doJSON(t, srv, http.MethodPost, "/api/v1/query", map[string]any{
		"query": "MATCH (n) WHERE n.story_id = 'story-1' RETURN n",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = doJSON(t, srv, http.MethodPost, "/api/v1/query/validate", map[string]any{
		"query": "MATCH (n) WHERE n.story_id = 'story-1' RETURN n",
	})
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["valid"])
	assert.Equal(t, "Query validation passed", body["message"])

	w = doJSON(t, srv, http.MethodPost, "/api/v1/query/validate", map[string]any{
		"query": "MATCH (n) DELETE n RETURN n",
	})
	require.Equal(t, http.StatusOK, w.Code)
	body = decodeBody(t, w)
	assert.Equal(t, false, body["valid"])
}

func TestSearchAndRecentEndpoints(t *testing.T) {
	srv := newTestServer(t)

	// unknown stories return an empty result set, not an error
	w := doJSON(t, srv, http.MethodPost, "/api/v1/search", map[string]any{
		"story_id": "never-seen", "query": "alice",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	for i := 0; i < 3; i++ {
		w = doJSON(t, srv, http.MethodPost, "/api/v1/graph/nodes", map[string]any{
			"story_id": "story-1",
			"node":     map[string]any{"kind": "Character", "name": fmt.Sprintf("char-%d", i)},
		})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w = doJSON(t, srv, http.MethodPost, "/api/v1/search", map[string]any{
		"story_id": "story-1", "query": "char-1",
	})
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	data, ok := body["data"].([]any)
	require.True(t, ok, w.Body.String())
	assert.Len(t, data, 1)

	w = doJSON(t, srv, http.MethodPost, "/api/v1/recent", map[string]any{
		"story_id": "story-1", "limit": 2,
	})
	require.Equal(t, http.StatusOK, w.Code)
	body = decodeBody(t, w)
	data, ok = body["data"].([]any)
	require.True(t, ok, w.Body.String())
	assert.Len(t, data, 2)
}
