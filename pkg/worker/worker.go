// Package worker executes jobs dispatched by the orchestrator and reports their
// outcome back to it.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/graphflow/pkg/dataflow"
	"github.com/dukex/graphflow/pkg/log"
	"github.com/dukex/graphflow/pkg/models"
	"github.com/dukex/graphflow/pkg/otelhelper"
	"github.com/dukex/graphflow/pkg/persistence"
	"github.com/dukex/graphflow/pkg/protocol"
	"github.com/dukex/graphflow/pkg/queue"
	"github.com/dukex/graphflow/pkg/workflow"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const DefaultConcurrency = 4

var (
	// ErrNonRetryable marks a node failure the orchestrator must not retry.
	ErrNonRetryable = protocol.ErrNonRetryable
	// ErrJobNotRunning is returned for work items whose job was cancelled or
	// already handled by another delivery.
	ErrJobNotRunning = errors.New("job is not running")
)

// Reporter receives the outcome of every job a worker runs.
type Reporter interface {
	JobCompleted(ctx context.Context, pipelineID, jobID string, output map[string]any) error
	JobFailed(ctx context.Context, pipelineID, jobID string, cause error) error
}

type Config struct {
	Concurrency int
}

// Worker pulls work items from the queue, executes the node behind each job
// and reports the result. Node executors run at most Concurrency at a time.
type Worker struct {
	queue     queue.WorkQueue
	pipelines persistence.PipelineRepository
	jobs      persistence.JobRepository
	nodes     workflow.NodeExecutor
	resolver  *dataflow.Resolver
	reporter  Reporter
	config    Config
	logger    *slog.Logger
	tracer    trace.Tracer
}

func NewWorker(
	store persistence.Persistence,
	workQueue queue.WorkQueue,
	nodes workflow.NodeExecutor,
	reporter Reporter,
	logger *slog.Logger,
	config Config,
) *Worker {
	if config.Concurrency <= 0 {
		config.Concurrency = DefaultConcurrency
	}

	return &Worker{
		queue:     workQueue,
		pipelines: store.PipelineRepository(),
		jobs:      store.JobRepository(),
		nodes:     nodes,
		resolver:  dataflow.NewResolver(logger),
		reporter:  reporter,
		config:    config,
		logger:    logger.With("module", "worker"),
		tracer:    otelhelper.Tracer("graphflow/worker"),
	}
}

// Start consumes the work queue until ctx is cancelled, then waits for the
// jobs already handed to the pool.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Starting worker", "concurrency", w.config.Concurrency)

	var pool errgroup.Group
	pool.SetLimit(w.config.Concurrency)

	err := w.queue.Consume(ctx, func(_ context.Context, item queue.WorkItem) error {
		// Blocks while the pool is full, which holds back further deliveries.
		pool.Go(func() error {
			w.Process(ctx, item)

			return nil
		})

		return nil
	})

	_ = pool.Wait()

	w.logger.InfoContext(ctx, "Worker stopped")

	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("worker stopped consuming: %w", err)
	}

	return nil
}

// Process runs one work item and reports its outcome.
func (w *Worker) Process(ctx context.Context, item queue.WorkItem) {
	logger := w.logger.With(
		"pipeline_id", item.PipelineID,
		"job_id", item.JobID,
		"node_id", item.NodeID,
		"attempt", item.Attempt)

	ctx = log.ContextWithLogger(ctx, logger)

	output, err := w.RunJob(ctx, item)

	// A cancelled worker context must not prevent the report.
	reportCtx := context.WithoutCancel(ctx)

	switch {
	case errors.Is(err, ErrJobNotRunning):
		logger.DebugContext(ctx, "Skipping stale work item")

		return
	case err != nil:
		logger.WarnContext(ctx, "Job failed", "error", err)
		err = w.reporter.JobFailed(reportCtx, item.PipelineID, item.JobID, err)
	default:
		logger.DebugContext(ctx, "Job completed")
		err = w.reporter.JobCompleted(reportCtx, item.PipelineID, item.JobID, output)
	}

	if err != nil {
		logger.ErrorContext(ctx, "Failed to report job outcome", "error", err)
	}
}

// RunJob resolves the inputs of the job behind item from the outputs of its
// completed siblings and executes its node.
func (w *Worker) RunJob(ctx context.Context, item queue.WorkItem) (map[string]any, error) {
	ctx, span := otelhelper.StartSpan(ctx, w.tracer, "worker.run_job",
		attribute.String(otelhelper.PipelineIDKey, item.PipelineID),
		attribute.String(otelhelper.JobIDKey, item.JobID),
		attribute.String(otelhelper.NodeIDKey, item.NodeID),
		attribute.Int(otelhelper.AttemptKey, item.Attempt))
	defer span.End()

	job, err := w.jobs.GetByID(ctx, item.JobID)
	if err != nil {
		return nil, fmt.Errorf("failed to load job %s: %w", item.JobID, err)
	}

	if job.Status != models.JobStatusRunning {
		return nil, ErrJobNotRunning
	}

	pipeline, err := w.pipelines.GetByID(ctx, item.PipelineID)
	if err != nil {
		return nil, fmt.Errorf("failed to load pipeline %s: %w", item.PipelineID, err)
	}

	siblings, err := w.jobs.ListByPipeline(ctx, item.PipelineID)
	if err != nil {
		return nil, fmt.Errorf("failed to load jobs of pipeline %s: %w", item.PipelineID, err)
	}

	execCtx := models.NewExecutionContext(pipeline.ExecutionID, pipeline.InputData)

	for _, sibling := range siblings {
		if sibling.Status != models.JobStatusCompleted {
			continue
		}

		err := execCtx.StoreOutput(sibling.NodeID, sibling.OutputData)
		if err != nil {
			return nil, err
		}
	}

	inputs, err := w.resolver.Prepare(job.NodeID, execCtx, job.InputMappings, job.Config)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	res, err := w.nodes.Execute(ctx, models.ExecuteRequest{
		ExecutionID: pipeline.ExecutionID,
		NodeID:      job.NodeID,
		ExecutorID:  job.ExecutorID,
		Inputs:      inputs,
		Config:      job.Config,
		InitialData: pipeline.InputData,
		Attempt:     item.Attempt,
	})
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	if res == nil || res.Output == nil {
		return map[string]any{}, nil
	}

	return res.Output, nil
}
