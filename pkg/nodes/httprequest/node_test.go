package httprequest

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/dukex/graphflow/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPRequestNode_Execute_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"message": "success", "status": "ok"}`))
	}))
	defer server.Close()

	node, err := NewHTTPRequestNode("test-node", map[string]any{"url": server.URL, "method": "GET"})
	require.NoError(t, err)

	output, err := node.Execute(context.Background(), protocol.NodeInput{ExecutionID: "exec-1"})
	require.NoError(t, err)

	assert.Equal(t, 200, output["status_code"])

	jsonBody, ok := output["json"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "success", jsonBody["message"])
	assert.Equal(t, "application/json", output["headers"].(map[string]any)["Content-Type"])
}

func TestHTTPRequestNode_Execute_TemplatedRequest(t *testing.T) {
	var gotPath, gotBody, gotHeader string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotHeader = r.Header.Get("X-Execution")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)

		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	node, err := NewHTTPRequestNode("post", map[string]any{
		"url":     server.URL + "/users/{{.input.user_id}}",
		"method":  "post",
		"headers": map[string]any{"X-Execution": "{{.execution.id}}"},
		"body":    `{"name": "{{.input.name}}"}`,
	})
	require.NoError(t, err)

	output, err := node.Execute(context.Background(), protocol.NodeInput{
		ExecutionID: "exec-9",
		Inputs:      map[string]any{"user_id": "u1", "name": "Ada"},
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, output["status_code"])
	assert.Equal(t, "/users/u1", gotPath)
	assert.Equal(t, "exec-9", gotHeader)
	assert.JSONEq(t, `{"name": "Ada"}`, gotBody)
}

func TestHTTPRequestNode_Execute_ClientErrorIsNonRetryable(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	node, err := NewHTTPRequestNode("n", map[string]any{
		"url":     server.URL,
		"retries": map[string]any{"attempts": float64(3)},
	})
	require.NoError(t, err)

	_, err = node.Execute(context.Background(), protocol.NodeInput{})
	require.Error(t, err)
	require.ErrorIs(t, err, protocol.ErrNonRetryable)
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPRequestNode_Execute_ServerErrorRetries(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)

			return
		}

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	node, err := NewHTTPRequestNode("n", map[string]any{
		"url":     server.URL,
		"retries": map[string]any{"attempts": 3, "delay": 0},
	})
	require.NoError(t, err)

	output, err := node.Execute(context.Background(), protocol.NodeInput{})
	require.NoError(t, err)
	assert.Equal(t, 200, output["status_code"])
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPRequestNode_Execute_ServerErrorExhausted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	node, err := NewHTTPRequestNode("n", map[string]any{"url": server.URL})
	require.NoError(t, err)

	_, err = node.Execute(context.Background(), protocol.NodeInput{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, protocol.ErrNonRetryable)
}

func TestNewHTTPRequestNode_InvalidConfig(t *testing.T) {
	_, err := NewHTTPRequestNode("n", map[string]any{})
	require.Error(t, err)

	_, err = NewHTTPRequestNode("n", map[string]any{"url": "http://x", "method": "FETCH"})
	require.Error(t, err)
}
