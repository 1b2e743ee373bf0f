package web_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/graphflow/pkg/channels/gochannel"
	"github.com/dukex/graphflow/pkg/compiler"
	"github.com/dukex/graphflow/pkg/mocks"
	"github.com/dukex/graphflow/pkg/models"
	"github.com/dukex/graphflow/pkg/persistence/file"
	"github.com/dukex/graphflow/pkg/pipeline"
	"github.com/dukex/graphflow/pkg/queue"
	"github.com/dukex/graphflow/pkg/registry"
	"github.com/dukex/graphflow/pkg/web"
	"github.com/dukex/graphflow/pkg/workflow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupTestApp(t *testing.T) *fiber.App {
	t.Helper()

	logger := slog.Default()
	store := file.NewPersistence(t.TempDir())

	reg := registry.NewRegistry(logger)
	reg.RegisterDefaultNodes()

	comp := compiler.NewCompiler(reg, logger)

	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	workQueue := queue.NewWatermillQueue(pub, sub, logger)
	t.Cleanup(func() { _ = workQueue.Close() })

	orchestrator := pipeline.NewOrchestrator(store, workQueue, comp, nil, logger, pipeline.Config{})
	t.Cleanup(orchestrator.Close)

	executor := workflow.NewExecutor(reg, comp, nil, logger)

	handlers := web.NewAPIHandlers(orchestrator, executor, store, validator.New(validator.WithRequiredStructEnabled()))

	app := fiber.New()
	app.Get("/health", handlers.HealthCheck)
	app.Post("/runs", handlers.RunGraph)

	p := app.Group("/pipelines")
	p.Post("/", handlers.CreatePipeline)
	p.Get("/:id", handlers.GetPipeline)
	p.Post("/:id/pause", handlers.PausePipeline)
	p.Post("/:id/resume", handlers.ResumePipeline)
	p.Post("/:id/cancel", handlers.CancelPipeline)

	return app
}

func do(t *testing.T, app *fiber.App, method, path string, body any) (int, []byte) {
	t.Helper()

	var reader io.Reader

	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)

		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, respBody
}

func twoStepGraph() *models.Graph {
	return &models.Graph{
		ID: "two-step",
		Nodes: []*models.Node{
			{ID: "start", TypeID: models.NodeTypeTriggerManual},
			{ID: "say", TypeID: "log", Config: map[string]any{"message": "hello {{.input.name}}"}},
		},
		Edges: []*models.Edge{{ID: "e1", Source: "start", Target: "say", IsTrigger: true}},
	}
}

func TestAPIHandlers_CreatePipeline(t *testing.T) {
	t.Parallel()

	cyclic := twoStepGraph()
	cyclic.Edges = append(cyclic.Edges, &models.Edge{ID: "e2", Source: "say", Target: "start"})

	tests := []struct {
		name           string
		requestBody    any
		expectedStatus int
		expectedType   string
	}{
		{
			name:           "accepted",
			requestBody:    web.OrchestrateRequest{Graph: twoStepGraph(), InputData: map[string]any{"name": "ada"}},
			expectedStatus: http.StatusAccepted,
		},
		{
			name:           "missing graph",
			requestBody:    web.OrchestrateRequest{Name: "nothing"},
			expectedStatus: http.StatusBadRequest,
			expectedType:   "validation_error",
		},
		{
			name:           "unknown retry strategy",
			requestBody:    web.OrchestrateRequest{Graph: twoStepGraph(), RetryStrategy: "sometimes"},
			expectedStatus: http.StatusBadRequest,
			expectedType:   "validation_error",
		},
		{
			name:           "cyclic graph",
			requestBody:    web.OrchestrateRequest{Graph: cyclic},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedType:   "compile_error",
		},
		{
			name: "duplicate node ids",
			requestBody: web.OrchestrateRequest{Graph: &models.Graph{
				ID: "dup",
				Nodes: []*models.Node{
					{ID: "a", TypeID: "log", Config: map[string]any{"message": "x"}},
					{ID: "a", TypeID: "log", Config: map[string]any{"message": "y"}},
				},
			}},
			expectedStatus: http.StatusBadRequest,
			expectedType:   "validation_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			app := setupTestApp(t)

			status, body := do(t, app, http.MethodPost, "/pipelines", tt.requestBody)
			assert.Equal(t, tt.expectedStatus, status, string(body))

			var decoded map[string]any
			require.NoError(t, json.Unmarshal(body, &decoded))

			if tt.expectedType != "" {
				assert.Equal(t, tt.expectedType, decoded["type"])

				return
			}

			assert.Equal(t, "running", decoded["status"])
			assert.NotEmpty(t, decoded["pipeline_id"])
			assert.NotEmpty(t, decoded["execution_id"])
		})
	}
}

func TestAPIHandlers_PipelineLifecycle(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t)

	status, body := do(t, app, http.MethodPost, "/pipelines", web.OrchestrateRequest{Graph: twoStepGraph()})
	require.Equal(t, http.StatusAccepted, status, string(body))

	var result pipeline.Result
	require.NoError(t, json.Unmarshal(body, &result))

	status, body = do(t, app, http.MethodGet, "/pipelines/"+result.PipelineID, nil)
	require.Equal(t, http.StatusOK, status)

	var view web.PipelineResponse
	require.NoError(t, json.Unmarshal(body, &view))
	assert.Equal(t, models.PipelineStatusRunning, view.Status)
	assert.Len(t, view.Jobs, 2)
	assert.Equal(t, 1, view.JobCounts["running"])
	assert.Equal(t, 1, view.JobCounts["pending"])

	steps := []struct {
		action string
		status models.PipelineStatus
	}{
		{action: "pause", status: models.PipelineStatusPaused},
		{action: "resume", status: models.PipelineStatusRunning},
		{action: "cancel", status: models.PipelineStatusCancelled},
	}

	for _, step := range steps {
		status, body = do(t, app, http.MethodPost, "/pipelines/"+result.PipelineID+"/"+step.action, nil)
		require.Equal(t, http.StatusOK, status, string(body))
		require.NoError(t, json.Unmarshal(body, &view))
		assert.Equal(t, step.status, view.Status, step.action)
	}

	status, body = do(t, app, http.MethodPost, "/pipelines/"+result.PipelineID+"/cancel", nil)
	assert.Equal(t, http.StatusConflict, status, string(body))
}

func TestAPIHandlers_GetPipeline_NotFound(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t)

	status, body := do(t, app, http.MethodGet, "/pipelines/does-not-exist", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, string(body), "pipeline_not_found")
}

func TestAPIHandlers_GetPipeline_InvalidID(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t)

	status, body := do(t, app, http.MethodGet, "/pipelines/a..b", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, string(body), "invalid identifier")

	status, _ = do(t, app, http.MethodPost, "/pipelines/a..b/cancel", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAPIHandlers_RunGraph(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t)

	status, body := do(t, app, http.MethodPost, "/runs", web.RunRequest{
		Graph:     twoStepGraph(),
		InputData: map[string]any{"name": "ada"},
	})
	require.Equal(t, http.StatusOK, status, string(body))

	var result workflow.RunResult
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Equal(t, []string{"start", "say"}, result.ExecutedNodeIDs)
	assert.Equal(t, "hello ada", result.Results["say"]["message"])
}

func TestAPIHandlers_RunGraph_NodeFailureKeepsPartialResult(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t)

	g := twoStepGraph()
	g.Nodes[1].Config["input_schema"] = []any{
		map[string]any{"name": "email", "type": "string", "required": true},
	}

	status, body := do(t, app, http.MethodPost, "/runs", web.RunRequest{Graph: g})
	require.Equal(t, http.StatusUnprocessableEntity, status, string(body))

	var decoded struct {
		NodeID string             `json:"node_id"`
		Result workflow.RunResult `json:"result"`
	}
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, "say", decoded.NodeID)
	assert.Equal(t, []string{"start"}, decoded.Result.ExecutedNodeIDs)
}

func TestAPIHandlers_HealthCheck(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t)

	status, body := do(t, app, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "healthy")
}

func TestAPIHandlers_HealthCheck_StoreDown(t *testing.T) {
	t.Parallel()

	store := mocks.NewMockPersistence()
	store.On("HealthCheck", mock.Anything).Return(errors.New("connection refused"))

	handlers := web.NewAPIHandlers(nil, nil, store, validator.New(validator.WithRequiredStructEnabled()))

	app := fiber.New()
	app.Get("/health", handlers.HealthCheck)

	status, body := do(t, app, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Contains(t, string(body), "connection refused")
	store.AssertExpectations(t)
}
