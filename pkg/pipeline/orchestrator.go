package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dukex/graphflow/pkg/branch"
	"github.com/dukex/graphflow/pkg/compiler"
	"github.com/dukex/graphflow/pkg/dataflow"
	"github.com/dukex/graphflow/pkg/eventbus"
	"github.com/dukex/graphflow/pkg/events"
	"github.com/dukex/graphflow/pkg/models"
	"github.com/dukex/graphflow/pkg/otelhelper"
	"github.com/dukex/graphflow/pkg/persistence"
	"github.com/dukex/graphflow/pkg/protocol"
	"github.com/dukex/graphflow/pkg/queue"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultMaxConcurrentJobs = 5
	DefaultMaxRetries        = 3
	DefaultMaxIterations     = 10000
)

// Config holds the defaults applied to requests that leave a limit unset.
type Config struct {
	MaxConcurrentJobs int
	MaxRetries        int
	MaxIterations     int
	RetryStrategy     models.RetryStrategy
	PriorityStrategy  models.PriorityStrategy
	// RetryBackOff builds the delay policy for one job's retries. Nil retries immediately.
	RetryBackOff func() backoff.BackOff
}

func (c Config) withDefaults() Config {
	if c.MaxConcurrentJobs <= 0 {
		c.MaxConcurrentJobs = DefaultMaxConcurrentJobs
	}

	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}

	if c.MaxIterations <= 0 {
		c.MaxIterations = DefaultMaxIterations
	}

	if c.RetryStrategy == "" {
		c.RetryStrategy = models.RetryStrategyIndividual
	}

	if c.PriorityStrategy == "" {
		c.PriorityStrategy = models.PriorityStrategyDependencyOrder
	}

	if c.RetryBackOff == nil {
		c.RetryBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	}

	return c
}

// Result is returned by Orchestrate once the pipeline has been bootstrapped.
type Result struct {
	ExecutionID string                `json:"execution_id"`
	PipelineID  string                `json:"pipeline_id"`
	Status      models.PipelineStatus `json:"status"`
	Metadata    map[string]any        `json:"metadata"`
}

// Orchestrator decides which jobs of a pipeline run and when the pipeline is
// done. It never executes node logic; workers do, and report back through
// JobCompleted and JobFailed. All decisions for one pipeline are serialized.
type Orchestrator struct {
	pipelines persistence.PipelineRepository
	jobs      persistence.JobRepository
	queue     queue.WorkQueue
	compiler  *compiler.Compiler
	notifier  *eventbus.Notifier
	config    Config
	logger    *slog.Logger
	tracer    trace.Tracer
	locker    persistence.PipelineLocker
	now       func() time.Time

	timersMu sync.Mutex
	timers   map[string]*time.Timer
}

func NewOrchestrator(
	store persistence.Persistence,
	workQueue queue.WorkQueue,
	comp *compiler.Compiler,
	notifier *eventbus.Notifier,
	logger *slog.Logger,
	config Config,
) *Orchestrator {
	return &Orchestrator{
		pipelines: store.PipelineRepository(),
		jobs:      store.JobRepository(),
		queue:     workQueue,
		compiler:  comp,
		notifier:  notifier,
		config:    config.withDefaults(),
		logger:    logger.With("module", "orchestrator"),
		tracer:    otelhelper.Tracer("graphflow/pipeline"),
		locker:    store,
		now:       func() time.Time { return time.Now().UTC() },
		timers:    make(map[string]*time.Timer),
	}
}

// Orchestrate creates a pipeline for the request, starts it and dispatches the
// first ready jobs to the work queue. Once the pipeline record exists every
// failure leaves it failed.
func (o *Orchestrator) Orchestrate(ctx context.Context, req Request) (*Result, error) {
	ctx, span := otelhelper.StartSpan(ctx, o.tracer, "pipeline.orchestrate")
	defer span.End()

	pipeline, err := o.Start(ctx, req)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	span.SetAttributes(
		attribute.String(otelhelper.PipelineIDKey, pipeline.ID),
		attribute.String(otelhelper.ExecutionIDKey, pipeline.ExecutionID),
		attribute.String(otelhelper.GraphIDKey, pipeline.GraphID))

	unlock, err := o.lock(ctx, pipeline.ID)
	if err != nil {
		return nil, &OrchestrationError{Op: "evaluate", PipelineID: pipeline.ID, ExecutionID: pipeline.ExecutionID, Err: err}
	}
	defer unlock()

	pipelineID := pipeline.ID

	pipeline, err = o.load(ctx, pipelineID)
	if err != nil {
		return nil, &OrchestrationError{Op: "evaluate", PipelineID: pipelineID, Err: err}
	}

	dispatched, err := o.evaluate(ctx, pipeline, o.enqueue)
	if err != nil {
		otelhelper.SetError(span, err)
		o.failBestEffort(ctx, pipeline, err)

		return nil, &OrchestrationError{Op: "evaluate", PipelineID: pipeline.ID, ExecutionID: pipeline.ExecutionID, Err: err}
	}

	return &Result{
		ExecutionID: pipeline.ExecutionID,
		PipelineID:  pipeline.ID,
		Status:      pipeline.Status,
		Metadata: map[string]any{
			"graph_id":   pipeline.GraphID,
			"jobs":       len(pipeline.Jobs),
			"dispatched": dispatched,
		},
	}, nil
}

// Start compiles the request if needed, persists the pipeline and its jobs and
// moves the pipeline to running without dispatching anything.
func (o *Orchestrator) Start(ctx context.Context, req Request) (*models.Pipeline, error) {
	plan, err := o.plan(ctx, req)
	if err != nil {
		return nil, &OrchestrationError{Op: "compile", Err: err}
	}

	pipeline := Build(plan, o.applyDefaults(req), o.now())

	unlock, err := o.lock(ctx, pipeline.ID)
	if err != nil {
		return nil, &OrchestrationError{Op: "create", PipelineID: pipeline.ID, ExecutionID: pipeline.ExecutionID, Err: err}
	}
	defer unlock()

	fail := func(op string, err error) (*models.Pipeline, error) {
		o.failBestEffort(ctx, pipeline, err)

		return nil, &OrchestrationError{Op: op, PipelineID: pipeline.ID, ExecutionID: pipeline.ExecutionID, Err: err}
	}

	err = o.pipelines.Save(ctx, pipeline)
	if err != nil {
		return nil, &OrchestrationError{Op: "create", PipelineID: pipeline.ID, ExecutionID: pipeline.ExecutionID, Err: err}
	}

	for _, job := range pipeline.Jobs {
		err := o.jobs.Save(ctx, job)
		if err != nil {
			return fail("create", err)
		}
	}

	o.publishPipeline(ctx, events.PipelineCreatedEvent, pipeline)

	for _, job := range pipeline.Jobs {
		o.publishJob(ctx, events.JobCreatedEvent, pipeline, job, "")
	}

	err = pipeline.Transition(models.PipelineStatusRunning, o.now())
	if err != nil {
		return fail("start", err)
	}

	err = o.pipelines.Save(ctx, pipeline)
	if err != nil {
		return fail("start", err)
	}

	o.publishPipeline(ctx, events.PipelineStartedEvent, pipeline)

	o.logger.InfoContext(ctx, "Pipeline started",
		"pipeline_id", pipeline.ID,
		"execution_id", pipeline.ExecutionID,
		"graph_id", pipeline.GraphID,
		"jobs", len(pipeline.Jobs))

	return pipeline, nil
}

func (o *Orchestrator) plan(ctx context.Context, req Request) (*models.CompiledPlan, error) {
	if req.Plan != nil {
		return req.Plan, nil
	}

	if req.Graph == nil {
		return nil, ErrNoPlan
	}

	return o.compiler.Compile(ctx, req.Graph)
}

func (o *Orchestrator) applyDefaults(req Request) Request {
	if req.MaxConcurrentJobs <= 0 {
		req.MaxConcurrentJobs = o.config.MaxConcurrentJobs
	}

	switch {
	case req.MaxRetries == 0:
		req.MaxRetries = o.config.MaxRetries
	case req.MaxRetries < 0:
		req.MaxRetries = 0
	}

	if req.MaxIterations <= 0 {
		req.MaxIterations = o.config.MaxIterations
	}

	if req.RetryStrategy == "" {
		req.RetryStrategy = o.config.RetryStrategy
	}

	if req.PriorityStrategy == "" {
		req.PriorityStrategy = o.config.PriorityStrategy
	}

	return req
}

// Status loads a pipeline together with its jobs.
func (o *Orchestrator) Status(ctx context.Context, pipelineID string) (*models.Pipeline, error) {
	return o.load(ctx, pipelineID)
}

// Evaluate re-runs the dispatch decision for a running pipeline.
func (o *Orchestrator) Evaluate(ctx context.Context, pipelineID string) error {
	ctx, span := otelhelper.StartSpan(ctx, o.tracer, "pipeline.evaluate",
		attribute.String(otelhelper.PipelineIDKey, pipelineID))
	defer span.End()

	unlock, err := o.lock(ctx, pipelineID)
	if err != nil {
		return &OrchestrationError{Op: "evaluate", PipelineID: pipelineID, Err: err}
	}
	defer unlock()

	pipeline, err := o.load(ctx, pipelineID)
	if err != nil {
		return &OrchestrationError{Op: "evaluate", PipelineID: pipelineID, Err: err}
	}

	if pipeline.Status.IsTerminal() {
		return &OrchestrationError{Op: "evaluate", PipelineID: pipelineID, ExecutionID: pipeline.ExecutionID, Err: ErrPipelineTerminal}
	}

	_, err = o.evaluate(ctx, pipeline, o.enqueue)
	if err != nil {
		otelhelper.SetError(span, err)
		o.failBestEffort(ctx, pipeline, err)

		return &OrchestrationError{Op: "evaluate", PipelineID: pipelineID, ExecutionID: pipeline.ExecutionID, Err: err}
	}

	return nil
}

type dispatchFunc func(ctx context.Context, item queue.WorkItem) error

func (o *Orchestrator) enqueue(ctx context.Context, item queue.WorkItem) error {
	return o.queue.Enqueue(ctx, item)
}

// evaluate dispatches ready jobs up to the concurrency limit and settles the
// pipeline once no further progress is possible. The caller holds the lock.
func (o *Orchestrator) evaluate(ctx context.Context, pipeline *models.Pipeline, dispatch dispatchFunc) (int, error) {
	if pipeline.Status != models.PipelineStatusRunning {
		return 0, nil
	}

	now := o.now()
	v := newView(pipeline.Jobs)
	ready := v.ready(now)
	running := v.count(models.JobStatusRunning)

	if len(ready) > 0 && running < pipeline.MaxConcurrentJobs {
		if pipeline.MaxIterations > 0 && pipeline.Iterations >= pipeline.MaxIterations {
			return 0, o.pauseForIterationCap(ctx, pipeline)
		}

		pipeline.Iterations++

		err := o.pipelines.Save(ctx, pipeline)
		if err != nil {
			return 0, err
		}
	}

	dispatched := 0

	for _, job := range Prioritize(pipeline.JobPriorityStrategy, ready, pipeline.Jobs) {
		if running+dispatched >= pipeline.MaxConcurrentJobs {
			break
		}

		claimed, err := o.jobs.UpdateStatus(ctx, job.ID, models.JobStatusPending, models.JobStatusRunning)
		if err != nil {
			return dispatched, err
		}

		if !claimed {
			o.logger.DebugContext(ctx, "Job already claimed", "pipeline_id", pipeline.ID, "job_id", job.ID)

			continue
		}

		err = job.Transition(models.JobStatusRunning, now)
		if err != nil {
			return dispatched, err
		}

		job.AvailableAt = nil

		err = o.jobs.Save(ctx, job)
		if err != nil {
			return dispatched, err
		}

		err = dispatch(ctx, queue.WorkItem{
			PipelineID:  pipeline.ID,
			JobID:       job.ID,
			ExecutionID: pipeline.ExecutionID,
			NodeID:      job.NodeID,
			Attempt:     job.RetryCount + 1,
			EnqueuedAt:  now,
		})
		if err != nil {
			return dispatched, fmt.Errorf("failed to dispatch job %s: %w", job.ID, err)
		}

		dispatched++

		o.publishJob(ctx, events.JobStartedEvent, pipeline, job, "")
	}

	if dispatched > 0 || running > 0 {
		return dispatched, nil
	}

	if _, waiting := v.awaitingRetry(now); waiting {
		return 0, nil
	}

	return 0, o.settle(ctx, pipeline, v)
}

// settle finishes a pipeline that can make no further progress.
func (o *Orchestrator) settle(ctx context.Context, pipeline *models.Pipeline, v *view) error {
	var (
		failedJob *models.Job
		blocked   bool
	)

	for _, job := range pipeline.Jobs {
		switch job.Status {
		case models.JobStatusFailed:
			if failedJob == nil {
				failedJob = job
			}
		case models.JobStatusPending:
			if v.blockedByFailure(job) {
				blocked = true
			}
		}
	}

	now := o.now()

	if failedJob != nil && blocked {
		pipeline.ErrorMessage = fmt.Sprintf("job %s (%s) failed: %s", failedJob.ID, failedJob.NodeID, failedJob.ErrorMessage)

		return o.finish(ctx, pipeline, models.PipelineStatusFailed, now)
	}

	pipeline.OutputData = v.sinkOutputs()

	return o.finish(ctx, pipeline, models.PipelineStatusCompleted, now)
}

// finish moves the pipeline to a terminal status, closing every pending and
// running job. Jobs still pending in a completed pipeline sat on branches that
// were never activated and are reported as skipped.
func (o *Orchestrator) finish(ctx context.Context, pipeline *models.Pipeline, status models.PipelineStatus, now time.Time) error {
	eventType, reason := events.JobCancelledEvent, "pipeline_"+string(status)
	if status == models.PipelineStatusCompleted {
		eventType, reason = events.JobSkippedEvent, branch.ReasonBranchNotActive
	}

	err := o.closeOpenJobs(ctx, pipeline, now, eventType, reason)
	if err != nil {
		return err
	}

	err = pipeline.Transition(status, now)
	if err != nil {
		return err
	}

	err = o.pipelines.Save(ctx, pipeline)
	if err != nil {
		return err
	}

	o.logger.InfoContext(ctx, "Pipeline finished",
		"pipeline_id", pipeline.ID,
		"execution_id", pipeline.ExecutionID,
		"status", status,
		"error", pipeline.ErrorMessage)

	switch status {
	case models.PipelineStatusCompleted:
		o.publishPipeline(ctx, events.PipelineCompletedEvent, pipeline)
	case models.PipelineStatusFailed:
		o.publishPipeline(ctx, events.PipelineFailedEvent, pipeline)
	case models.PipelineStatusCancelled:
		o.publishPipeline(ctx, events.PipelineCancelledEvent, pipeline)
	}

	return nil
}

func (o *Orchestrator) closeOpenJobs(
	ctx context.Context,
	pipeline *models.Pipeline,
	now time.Time,
	eventType events.EventType,
	reason string,
) error {
	for _, job := range pipeline.Jobs {
		if job.Status != models.JobStatusPending && job.Status != models.JobStatusRunning {
			continue
		}

		o.stopTimer(job.ID)

		err := job.Transition(models.JobStatusCancelled, now)
		if err != nil {
			return err
		}

		job.AvailableAt = nil

		err = o.jobs.Save(ctx, job)
		if err != nil {
			return err
		}

		o.publishJob(ctx, eventType, pipeline, job, reason)
	}

	return nil
}

func (o *Orchestrator) pauseForIterationCap(ctx context.Context, pipeline *models.Pipeline) error {
	pipeline.ErrorMessage = fmt.Sprintf("%s after %d iterations: graph may contain a cycle or branches that never converge",
		ErrIterationCap, pipeline.Iterations)

	err := pipeline.Transition(models.PipelineStatusPaused, o.now())
	if err != nil {
		return err
	}

	err = o.pipelines.Save(ctx, pipeline)
	if err != nil {
		return err
	}

	o.logger.WarnContext(ctx, "Pipeline paused by iteration cap",
		"pipeline_id", pipeline.ID, "iterations", pipeline.Iterations)
	o.publishPipeline(ctx, events.PipelinePausedEvent, pipeline)

	return nil
}

// failBestEffort records a pipeline failure without surfacing secondary errors.
func (o *Orchestrator) failBestEffort(ctx context.Context, pipeline *models.Pipeline, cause error) {
	if pipeline.Status.IsTerminal() {
		return
	}

	pipeline.ErrorMessage = cause.Error()

	err := o.finish(ctx, pipeline, models.PipelineStatusFailed, o.now())
	if err != nil {
		o.logger.ErrorContext(ctx, "Failed to record pipeline failure",
			"pipeline_id", pipeline.ID, "cause", cause, "error", err)
	}
}

// JobCompleted records a worker's successful result and re-evaluates the pipeline.
func (o *Orchestrator) JobCompleted(ctx context.Context, pipelineID, jobID string, output map[string]any) error {
	return o.report(ctx, "job_completed", pipelineID, jobID, func(pipeline *models.Pipeline, job *models.Job) error {
		return o.complete(ctx, pipeline, job, output)
	})
}

// JobFailed records a worker's failure, applying the retry policy, and
// re-evaluates the pipeline.
func (o *Orchestrator) JobFailed(ctx context.Context, pipelineID, jobID string, cause error) error {
	return o.report(ctx, "job_failed", pipelineID, jobID, func(pipeline *models.Pipeline, job *models.Job) error {
		delay, err := o.fail(ctx, pipeline, job, cause)
		if err == nil && delay > 0 {
			o.scheduleRetry(pipelineID, jobID, delay)
		}

		return err
	})
}

func (o *Orchestrator) report(
	ctx context.Context,
	op, pipelineID, jobID string,
	apply func(*models.Pipeline, *models.Job) error,
) error {
	ctx, span := otelhelper.StartSpan(ctx, o.tracer, "pipeline."+op,
		attribute.String(otelhelper.PipelineIDKey, pipelineID),
		attribute.String(otelhelper.JobIDKey, jobID))
	defer span.End()

	unlock, err := o.lock(ctx, pipelineID)
	if err != nil {
		return &OrchestrationError{Op: op, PipelineID: pipelineID, JobID: jobID, Err: err}
	}
	defer unlock()

	pipeline, err := o.load(ctx, pipelineID)
	if err != nil {
		return &OrchestrationError{Op: op, PipelineID: pipelineID, JobID: jobID, Err: err}
	}

	job, ok := findJob(pipeline, jobID)
	if !ok {
		return &OrchestrationError{Op: op, PipelineID: pipelineID, JobID: jobID, ExecutionID: pipeline.ExecutionID, Err: persistence.ErrJobNotFound}
	}

	// Results of cancelled pipelines, and duplicate deliveries, are discarded.
	if pipeline.Status.IsTerminal() || job.Status != models.JobStatusRunning {
		o.logger.DebugContext(ctx, "Discarding job report",
			"pipeline_id", pipelineID, "job_id", jobID, "pipeline_status", pipeline.Status, "job_status", job.Status)

		return nil
	}

	err = apply(pipeline, job)
	if err == nil {
		_, err = o.evaluate(ctx, pipeline, o.enqueue)
	}

	if err != nil {
		otelhelper.SetError(span, err)
		o.failBestEffort(ctx, pipeline, err)

		return &OrchestrationError{Op: op, PipelineID: pipelineID, JobID: jobID, ExecutionID: pipeline.ExecutionID, Err: err}
	}

	return nil
}

func (o *Orchestrator) complete(ctx context.Context, pipeline *models.Pipeline, job *models.Job, output map[string]any) error {
	if output == nil {
		output = make(map[string]any)
	}

	job.OutputData = output
	job.ErrorMessage = ""

	err := job.Transition(models.JobStatusCompleted, o.now())
	if err != nil {
		return err
	}

	err = o.jobs.Save(ctx, job)
	if err != nil {
		return err
	}

	o.publishJob(ctx, events.JobCompletedEvent, pipeline, job, "")

	return nil
}

// fail applies the retry policy to a failed attempt. It returns the delay
// before the retry becomes available, zero when retried immediately or not at all.
func (o *Orchestrator) fail(ctx context.Context, pipeline *models.Pipeline, job *models.Job, cause error) (time.Duration, error) {
	now := o.now()

	job.ErrorMessage = cause.Error()

	err := job.Transition(models.JobStatusFailed, now)
	if err != nil {
		return 0, err
	}

	if retryable(cause) && job.HasRetryBudget() {
		delay, ok := o.retryDelay(job.RetryCount + 1)
		if ok {
			job.RetryCount++

			err = job.Transition(models.JobStatusPending, now)
			if err != nil {
				return 0, err
			}

			if delay > 0 {
				available := now.Add(delay)
				job.AvailableAt = &available
			}

			err = o.jobs.Save(ctx, job)
			if err != nil {
				return 0, err
			}

			o.logger.InfoContext(ctx, "Retrying job",
				"pipeline_id", pipeline.ID, "job_id", job.ID, "node_id", job.NodeID,
				"retry", job.RetryCount, "max_retries", job.MaxRetries, "delay", delay, "error", cause)
			o.publishJob(ctx, events.JobRetryingEvent, pipeline, job, "")

			return delay, nil
		}
	}

	err = o.jobs.Save(ctx, job)
	if err != nil {
		return 0, err
	}

	o.logger.WarnContext(ctx, "Job failed",
		"pipeline_id", pipeline.ID, "job_id", job.ID, "node_id", job.NodeID,
		"retries", job.RetryCount, "error", cause)
	o.publishJob(ctx, events.JobFailedEvent, pipeline, job, "")

	if pipeline.RetryStrategy == models.RetryStrategyStopOnFailure {
		pipeline.ErrorMessage = fmt.Sprintf("job %s (%s) failed: %s", job.ID, job.NodeID, job.ErrorMessage)

		return 0, o.finish(ctx, pipeline, models.PipelineStatusFailed, now)
	}

	return 0, nil
}

// retryable reports whether a failure may succeed on another attempt. Data
// flow errors and invalid configuration fail identically every time.
func retryable(err error) bool {
	return !errors.Is(err, protocol.ErrNonRetryable) && !dataflow.IsDataFlowError(err)
}

func (o *Orchestrator) retryDelay(attempt int) (time.Duration, bool) {
	policy := o.config.RetryBackOff()
	policy.Reset()

	var delay time.Duration

	for range attempt {
		delay = policy.NextBackOff()
		if delay == backoff.Stop {
			return 0, false
		}
	}

	return delay, true
}

func (o *Orchestrator) scheduleRetry(pipelineID, jobID string, delay time.Duration) {
	o.timersMu.Lock()
	defer o.timersMu.Unlock()

	if timer, ok := o.timers[jobID]; ok {
		timer.Stop()
	}

	o.timers[jobID] = time.AfterFunc(delay, func() {
		o.timersMu.Lock()
		delete(o.timers, jobID)
		o.timersMu.Unlock()

		err := o.Evaluate(context.Background(), pipelineID)
		if err != nil && !errors.Is(err, ErrPipelineTerminal) {
			o.logger.Error("Delayed retry evaluation failed", "pipeline_id", pipelineID, "job_id", jobID, "error", err)
		}
	})
}

func (o *Orchestrator) stopTimer(jobID string) {
	o.timersMu.Lock()
	defer o.timersMu.Unlock()

	if timer, ok := o.timers[jobID]; ok {
		timer.Stop()
		delete(o.timers, jobID)
	}
}

// Pause stops dispatching new jobs; running jobs finish normally.
func (o *Orchestrator) Pause(ctx context.Context, pipelineID string) (*models.Pipeline, error) {
	return o.control(ctx, "pause", pipelineID, func(pipeline *models.Pipeline) error {
		if pipeline.Status == models.PipelineStatusPaused {
			return nil
		}

		err := pipeline.Transition(models.PipelineStatusPaused, o.now())
		if err != nil {
			return err
		}

		err = o.pipelines.Save(ctx, pipeline)
		if err != nil {
			return err
		}

		o.publishPipeline(ctx, events.PipelinePausedEvent, pipeline)

		return nil
	})
}

// Resume restarts dispatch of a paused pipeline with a fresh iteration budget.
func (o *Orchestrator) Resume(ctx context.Context, pipelineID string) (*models.Pipeline, error) {
	return o.control(ctx, "resume", pipelineID, func(pipeline *models.Pipeline) error {
		if pipeline.Status != models.PipelineStatusPaused {
			return nil
		}

		err := pipeline.Transition(models.PipelineStatusRunning, o.now())
		if err != nil {
			return err
		}

		pipeline.Iterations = 0
		pipeline.ErrorMessage = ""

		err = o.pipelines.Save(ctx, pipeline)
		if err != nil {
			return err
		}

		o.publishPipeline(ctx, events.PipelineResumedEvent, pipeline)

		_, err = o.evaluate(ctx, pipeline, o.enqueue)

		return err
	})
}

// Cancel terminates the pipeline. Results of jobs still running are discarded.
func (o *Orchestrator) Cancel(ctx context.Context, pipelineID string) (*models.Pipeline, error) {
	return o.control(ctx, "cancel", pipelineID, func(pipeline *models.Pipeline) error {
		return o.finish(ctx, pipeline, models.PipelineStatusCancelled, o.now())
	})
}

func (o *Orchestrator) control(
	ctx context.Context,
	op, pipelineID string,
	apply func(*models.Pipeline) error,
) (*models.Pipeline, error) {
	unlock, err := o.lock(ctx, pipelineID)
	if err != nil {
		return nil, &OrchestrationError{Op: op, PipelineID: pipelineID, Err: err}
	}
	defer unlock()

	pipeline, err := o.load(ctx, pipelineID)
	if err != nil {
		return nil, &OrchestrationError{Op: op, PipelineID: pipelineID, Err: err}
	}

	if pipeline.Status.IsTerminal() {
		return pipeline, &OrchestrationError{Op: op, PipelineID: pipelineID, ExecutionID: pipeline.ExecutionID, Err: ErrPipelineTerminal}
	}

	err = apply(pipeline)
	if err != nil {
		return pipeline, &OrchestrationError{Op: op, PipelineID: pipelineID, ExecutionID: pipeline.ExecutionID, Err: err}
	}

	o.logger.InfoContext(ctx, "Pipeline control applied", "op", op, "pipeline_id", pipelineID, "status", pipeline.Status)

	return pipeline, nil
}

// Close stops pending retry timers.
func (o *Orchestrator) Close() {
	o.timersMu.Lock()
	defer o.timersMu.Unlock()

	for id, timer := range o.timers {
		timer.Stop()
		delete(o.timers, id)
	}
}

// lock takes the store-wide pipeline lock, so orchestrators in other
// processes sharing the store never decide for the same pipeline at once.
func (o *Orchestrator) lock(ctx context.Context, pipelineID string) (func(), error) {
	unlock, err := o.locker.LockPipeline(ctx, pipelineID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock pipeline: %w", err)
	}

	return unlock, nil
}

func (o *Orchestrator) load(ctx context.Context, pipelineID string) (*models.Pipeline, error) {
	pipeline, err := o.pipelines.GetByID(ctx, pipelineID)
	if err != nil {
		return nil, err
	}

	jobs, err := o.jobs.ListByPipeline(ctx, pipelineID)
	if err != nil {
		return nil, err
	}

	pipeline.Jobs = jobs

	return pipeline, nil
}

func findJob(pipeline *models.Pipeline, jobID string) (*models.Job, bool) {
	return pipeline.JobByID(jobID)
}

func (o *Orchestrator) publishPipeline(ctx context.Context, eventType events.EventType, pipeline *models.Pipeline) {
	o.notifier.Notify(ctx, pipeline.ID, events.PipelineEvent{
		BaseEvent:  events.NewBaseEvent(eventType, pipeline.ExecutionID),
		PipelineID: pipeline.ID,
		GraphID:    pipeline.GraphID,
		Status:     string(pipeline.Status),
		Error:      pipeline.ErrorMessage,
		Output:     pipeline.OutputData,
	})
}

func (o *Orchestrator) publishJob(ctx context.Context, eventType events.EventType, pipeline *models.Pipeline, job *models.Job, reason string) {
	event := events.JobEvent{
		BaseEvent:  events.NewBaseEvent(eventType, pipeline.ExecutionID),
		PipelineID: pipeline.ID,
		JobID:      job.ID,
		NodeID:     job.NodeID,
		Attempt:    job.RetryCount + 1,
		Error:      job.ErrorMessage,
		Reason:     reason,
	}

	if eventType == events.JobCompletedEvent {
		event.Output = job.OutputData
	}

	o.notifier.Notify(ctx, pipeline.ID, event)
}
