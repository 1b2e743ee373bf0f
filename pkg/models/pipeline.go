package models

import (
	"fmt"
	"time"
)

// PipelineStatus represents the lifecycle state of a pipeline.
type PipelineStatus string

const (
	PipelineStatusPending   PipelineStatus = "pending"
	PipelineStatusRunning   PipelineStatus = "running"
	PipelineStatusPaused    PipelineStatus = "paused"
	PipelineStatusCompleted PipelineStatus = "completed"
	PipelineStatusFailed    PipelineStatus = "failed"
	PipelineStatusCancelled PipelineStatus = "cancelled"
)

var pipelineTransitions = map[PipelineStatus][]PipelineStatus{
	PipelineStatusPending: {PipelineStatusRunning, PipelineStatusFailed, PipelineStatusCancelled},
	PipelineStatusRunning: {PipelineStatusCompleted, PipelineStatusFailed, PipelineStatusPaused, PipelineStatusCancelled},
	PipelineStatusPaused:  {PipelineStatusRunning, PipelineStatusFailed, PipelineStatusCancelled},
}

// CanTransition reports whether a pipeline may move from one status to another.
func (s PipelineStatus) CanTransition(to PipelineStatus) bool {
	for _, allowed := range pipelineTransitions[s] {
		if allowed == to {
			return true
		}
	}

	return false
}

// IsTerminal reports whether the status is final.
func (s PipelineStatus) IsTerminal() bool {
	return s == PipelineStatusCompleted || s == PipelineStatusFailed || s == PipelineStatusCancelled
}

// RetryStrategy decides how an exhausted job failure affects its pipeline.
type RetryStrategy string

const (
	// RetryStrategyIndividual isolates the failure to its branch.
	RetryStrategyIndividual RetryStrategy = "individual"
	// RetryStrategyStopOnFailure fails the whole pipeline immediately.
	RetryStrategyStopOnFailure RetryStrategy = "stop_on_failure"
)

// PriorityStrategy selects which ready jobs are dispatched first.
type PriorityStrategy string

const (
	PriorityStrategyDependencyOrder PriorityStrategy = "dependency_order"
	PriorityStrategyFIFO            PriorityStrategy = "fifo"
	PriorityStrategyPriority        PriorityStrategy = "priority"
)

// Pipeline is the durable representation of one asynchronous graph execution.
type Pipeline struct {
	ID                  string           `json:"id"`
	ExecutionID         string           `json:"execution_id"`
	GraphID             string           `json:"graph_id"`
	Name                string           `json:"name,omitempty"`
	Status              PipelineStatus   `json:"status"`
	Jobs                []*Job           `json:"jobs,omitempty"`
	MaxConcurrentJobs   int              `json:"max_concurrent_jobs"`
	JobPriorityStrategy PriorityStrategy `json:"job_priority_strategy"`
	RetryStrategy       RetryStrategy    `json:"retry_strategy"`
	MaxIterations       int              `json:"max_iterations"`
	Iterations          int              `json:"iterations"`
	InputData           map[string]any   `json:"input_data,omitempty"`
	OutputData          map[string]any   `json:"output_data,omitempty"`
	ErrorMessage        string           `json:"error_message,omitempty"`
	Metadata            map[string]any   `json:"metadata,omitempty"`
	CreatedAt           time.Time        `json:"created_at"`
	StartedAt           *time.Time       `json:"started_at,omitempty"`
	CompletedAt         *time.Time       `json:"completed_at,omitempty"`
}

// Transition moves the pipeline to a new status, enforcing the state machine.
func (p *Pipeline) Transition(to PipelineStatus, at time.Time) error {
	if !p.Status.CanTransition(to) {
		return fmt.Errorf("%w: pipeline %s from %s to %s", ErrInvalidTransition, p.ID, p.Status, to)
	}

	if to == PipelineStatusRunning && p.StartedAt == nil {
		p.StartedAt = &at
	}

	if to.IsTerminal() {
		p.CompletedAt = &at
	}

	p.Status = to

	return nil
}

// JobByID returns the job with the given id.
func (p *Pipeline) JobByID(id string) (*Job, bool) {
	for _, job := range p.Jobs {
		if job.ID == id {
			return job, true
		}
	}

	return nil, false
}

// CountByStatus counts jobs in the given status.
func (p *Pipeline) CountByStatus(status JobStatus) int {
	count := 0

	for _, job := range p.Jobs {
		if job.Status == status {
			count++
		}
	}

	return count
}
