package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/graphflow/pkg/channels/gochannel"
	"github.com/dukex/graphflow/pkg/compiler"
	"github.com/dukex/graphflow/pkg/dataflow"
	"github.com/dukex/graphflow/pkg/eventbus"
	"github.com/dukex/graphflow/pkg/models"
	"github.com/dukex/graphflow/pkg/persistence"
	"github.com/dukex/graphflow/pkg/persistence/file"
	"github.com/dukex/graphflow/pkg/pipeline"
	"github.com/dukex/graphflow/pkg/queue"
	"github.com/dukex/graphflow/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type executorFunc func(ctx context.Context, req models.ExecuteRequest) (*models.ExecuteResult, error)

func (f executorFunc) Execute(ctx context.Context, req models.ExecuteRequest) (*models.ExecuteResult, error) {
	return f(ctx, req)
}

type report struct {
	jobID  string
	output map[string]any
	err    error
}

type recordingReporter struct {
	mu      sync.Mutex
	reports []report
}

func (r *recordingReporter) JobCompleted(_ context.Context, _, jobID string, output map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.reports = append(r.reports, report{jobID: jobID, output: output})

	return nil
}

func (r *recordingReporter) JobFailed(_ context.Context, _, jobID string, cause error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.reports = append(r.reports, report{jobID: jobID, err: cause})

	return nil
}

// seed stores a pipeline whose upstream job already completed and whose
// downstream job is running.
func seed(t *testing.T, store persistence.Persistence, downstreamConfig map[string]any) queue.WorkItem {
	t.Helper()

	ctx := context.Background()
	now := time.Now()

	p := &models.Pipeline{
		ID:          "p1",
		ExecutionID: "exec-1",
		Status:      models.PipelineStatusRunning,
		InputData:   map[string]any{"tenant": "acme"},
		CreatedAt:   now,
	}
	require.NoError(t, store.PipelineRepository().Save(ctx, p))

	upstream := &models.Job{
		ID: "j1", PipelineID: "p1", NodeID: "fetch", ExecutorID: "fetch",
		Status: models.JobStatusCompleted, OutputData: map[string]any{"name": "ada", "age": 36},
		Sequence: 0, CreatedAt: now,
	}
	downstream := &models.Job{
		ID: "j2", PipelineID: "p1", NodeID: "greet", ExecutorID: "greet",
		Status: models.JobStatusRunning, Config: downstreamConfig, Sequence: 1,
		Dependencies:  []string{"j1"},
		InputMappings: models.InputMapping{}.Add("fetch", models.PortMapping{EdgeID: "e1", SourcePort: "name", TargetPort: "who"}),
		CreatedAt:     now,
	}

	require.NoError(t, store.JobRepository().Save(ctx, upstream))
	require.NoError(t, store.JobRepository().Save(ctx, downstream))

	return queue.WorkItem{PipelineID: "p1", JobID: "j2", ExecutionID: "exec-1", NodeID: "greet", Attempt: 2}
}

func TestRunJob_ResolvesInputsFromCompletedSiblings(t *testing.T) {
	store := file.NewPersistence(t.TempDir())
	item := seed(t, store, map[string]any{"greeting": "hi"})

	var got models.ExecuteRequest

	nodes := executorFunc(func(_ context.Context, req models.ExecuteRequest) (*models.ExecuteResult, error) {
		got = req

		return &models.ExecuteResult{Output: map[string]any{"message": "hi " + req.Inputs["who"].(string)}}, nil
	})

	w := NewWorker(store, nil, nodes, &recordingReporter{}, slog.Default(), Config{})

	output, err := w.RunJob(context.Background(), item)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"message": "hi ada"}, output)
	assert.Equal(t, map[string]any{"who": "ada"}, got.Inputs)
	assert.Equal(t, "exec-1", got.ExecutionID)
	assert.Equal(t, "greet", got.ExecutorID)
	assert.Equal(t, 2, got.Attempt)
	assert.Equal(t, "acme", got.InitialData["tenant"])
}

func TestProcess_ReportsOutcome(t *testing.T) {
	tests := []struct {
		name     string
		config   map[string]any
		execErr  error
		wantErr  error
		executed bool
	}{
		{name: "success", executed: true},
		{name: "node error", execErr: errors.New("remote said no"), executed: true},
		{
			name: "schema violation never reaches the node",
			config: map[string]any{dataflow.ConfigInputSchema: []any{
				map[string]any{"name": "email", "type": "string", "required": true},
			}},
			wantErr: dataflow.ErrSchemaViolation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := file.NewPersistence(t.TempDir())
			item := seed(t, store, tt.config)
			reporter := &recordingReporter{}
			executed := false

			nodes := executorFunc(func(context.Context, models.ExecuteRequest) (*models.ExecuteResult, error) {
				executed = true

				return nil, tt.execErr
			})

			NewWorker(store, nil, nodes, reporter, slog.Default(), Config{}).Process(context.Background(), item)

			assert.Equal(t, tt.executed, executed)
			require.Len(t, reporter.reports, 1)
			assert.Equal(t, "j2", reporter.reports[0].jobID)

			switch {
			case tt.execErr != nil:
				assert.ErrorIs(t, reporter.reports[0].err, tt.execErr)
			case tt.wantErr != nil:
				assert.ErrorIs(t, reporter.reports[0].err, tt.wantErr)
				assert.True(t, dataflow.IsDataFlowError(reporter.reports[0].err))
			default:
				require.NoError(t, reporter.reports[0].err)
				assert.Equal(t, map[string]any{}, reporter.reports[0].output)
			}
		})
	}
}

func TestProcess_SkipsJobsThatAreNotRunning(t *testing.T) {
	store := file.NewPersistence(t.TempDir())
	item := seed(t, store, nil)

	ok, err := store.JobRepository().UpdateStatus(context.Background(), "j2", models.JobStatusRunning, models.JobStatusCancelled)
	require.NoError(t, err)
	require.True(t, ok)

	reporter := &recordingReporter{}
	nodes := executorFunc(func(context.Context, models.ExecuteRequest) (*models.ExecuteResult, error) {
		t.Fatal("cancelled job must not execute")

		return nil, nil
	})

	NewWorker(store, nil, nodes, reporter, slog.Default(), Config{}).Process(context.Background(), item)

	assert.Empty(t, reporter.reports)
}

func TestWorker_RunsPipelineThroughQueue(t *testing.T) {
	logger := slog.Default()
	store := file.NewPersistence(t.TempDir())

	reg := registry.NewRegistry(logger)
	reg.RegisterDefaultNodes()

	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	workQueue := queue.NewWatermillQueue(pub, sub, logger)
	t.Cleanup(func() { _ = workQueue.Close() })

	orchestrator := pipeline.NewOrchestrator(store, workQueue, compiler.NewCompiler(reg, logger),
		eventbus.NewNotifier(nil, logger), logger, pipeline.Config{})
	t.Cleanup(orchestrator.Close)

	w := NewWorker(store, workQueue, reg, orchestrator, logger, Config{Concurrency: 2})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- w.Start(ctx) }()

	graph := &models.Graph{
		ID: "greeting",
		Nodes: []*models.Node{
			{ID: "shape", TypeID: "transform", Config: map[string]any{"expression": `{"text": "hello {{.input.name}}"}`}},
			{ID: "say", TypeID: "log", Config: map[string]any{"message": "{{.input.text}}"}},
		},
		Edges: []*models.Edge{{ID: "e1", Source: "shape", Target: "say"}},
	}

	result, err := orchestrator.Orchestrate(ctx, pipeline.Request{Graph: graph, InputData: map[string]any{"name": "ada"}})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		p, err := orchestrator.Status(context.Background(), result.PipelineID)

		return err == nil && p.Status == models.PipelineStatusCompleted
	}, 5*time.Second, 20*time.Millisecond)

	p, err := orchestrator.Status(context.Background(), result.PipelineID)
	require.NoError(t, err)
	assert.Equal(t, 2, p.CountByStatus(models.JobStatusCompleted))

	cancel()
	require.NoError(t, <-done)
}
