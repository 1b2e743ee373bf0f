package pipeline

import (
	"context"
	"time"

	"github.com/dukex/graphflow/pkg/models"
	"github.com/dukex/graphflow/pkg/queue"
)

// Runner executes one dispatched job inline and returns its output.
type Runner interface {
	RunJob(ctx context.Context, item queue.WorkItem) (map[string]any, error)
}

// Drain runs a pipeline to quiescence in the calling goroutine, executing every
// ready job through runner instead of the work queue. Each dispatch round counts
// against the pipeline's iteration cap; exhausting it pauses the pipeline and
// returns an error wrapping ErrIterationCap.
func (o *Orchestrator) Drain(ctx context.Context, pipelineID string, runner Runner) (*models.Pipeline, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, &OrchestrationError{Op: "drain", PipelineID: pipelineID, Err: err}
		}

		pipeline, items, wait, err := o.drainStep(ctx, pipelineID)
		if err != nil {
			return pipeline, err
		}

		if pipeline.Status != models.PipelineStatusRunning {
			return pipeline, nil
		}

		if len(items) == 0 {
			if wait <= 0 {
				// Remaining running jobs belong to queue workers.
				return pipeline, nil
			}

			timer := time.NewTimer(wait)

			select {
			case <-ctx.Done():
				timer.Stop()

				return pipeline, &OrchestrationError{Op: "drain", PipelineID: pipelineID, ExecutionID: pipeline.ExecutionID, Err: ctx.Err()}
			case <-timer.C:
			}

			continue
		}

		for _, item := range items {
			output, runErr := runner.RunJob(ctx, item)

			err := o.drainReport(ctx, item, output, runErr)
			if err != nil {
				return nil, err
			}
		}
	}
}

func (o *Orchestrator) drainStep(ctx context.Context, pipelineID string) (*models.Pipeline, []queue.WorkItem, time.Duration, error) {
	unlock, err := o.lock(ctx, pipelineID)
	if err != nil {
		return nil, nil, 0, &OrchestrationError{Op: "drain", PipelineID: pipelineID, Err: err}
	}
	defer unlock()

	pipeline, err := o.load(ctx, pipelineID)
	if err != nil {
		return nil, nil, 0, &OrchestrationError{Op: "drain", PipelineID: pipelineID, Err: err}
	}

	if pipeline.Status.IsTerminal() || pipeline.Status == models.PipelineStatusPaused {
		return pipeline, nil, 0, nil
	}

	var items []queue.WorkItem

	collect := func(_ context.Context, item queue.WorkItem) error {
		items = append(items, item)

		return nil
	}

	_, err = o.evaluate(ctx, pipeline, collect)
	if err != nil {
		o.failBestEffort(ctx, pipeline, err)

		return pipeline, nil, 0, &OrchestrationError{Op: "drain", PipelineID: pipelineID, ExecutionID: pipeline.ExecutionID, Err: err}
	}

	if pipeline.Status == models.PipelineStatusPaused {
		return pipeline, nil, 0, &OrchestrationError{Op: "drain", PipelineID: pipelineID, ExecutionID: pipeline.ExecutionID, Err: ErrIterationCap}
	}

	var wait time.Duration

	if len(items) == 0 && pipeline.Status == models.PipelineStatusRunning {
		now := o.now()
		if earliest, ok := newView(pipeline.Jobs).awaitingRetry(now); ok {
			wait = earliest.Sub(now)
		}
	}

	return pipeline, items, wait, nil
}

func (o *Orchestrator) drainReport(ctx context.Context, item queue.WorkItem, output map[string]any, runErr error) error {
	unlock, err := o.lock(ctx, item.PipelineID)
	if err != nil {
		return &OrchestrationError{Op: "drain", PipelineID: item.PipelineID, JobID: item.JobID, Err: err}
	}
	defer unlock()

	pipeline, err := o.load(ctx, item.PipelineID)
	if err != nil {
		return &OrchestrationError{Op: "drain", PipelineID: item.PipelineID, JobID: item.JobID, Err: err}
	}

	job, ok := findJob(pipeline, item.JobID)
	if !ok || pipeline.Status.IsTerminal() || job.Status != models.JobStatusRunning {
		return nil
	}

	if runErr != nil {
		_, err = o.fail(ctx, pipeline, job, runErr)
	} else {
		err = o.complete(ctx, pipeline, job, output)
	}

	if err != nil {
		o.failBestEffort(ctx, pipeline, err)

		return &OrchestrationError{Op: "drain", PipelineID: item.PipelineID, JobID: item.JobID, ExecutionID: pipeline.ExecutionID, Err: err}
	}

	return nil
}
