package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidTransition indicates a status change not allowed by the state machine.
var ErrInvalidTransition = errors.New("invalid status transition")

// JobStatus represents the lifecycle state of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

var jobTransitions = map[JobStatus][]JobStatus{
	JobStatusPending: {JobStatusRunning, JobStatusCancelled},
	JobStatusRunning: {JobStatusCompleted, JobStatusFailed, JobStatusCancelled},
	JobStatusFailed:  {JobStatusPending},
}

// CanTransition reports whether a job may move from one status to another.
func (s JobStatus) CanTransition(to JobStatus) bool {
	for _, allowed := range jobTransitions[s] {
		if allowed == to {
			return true
		}
	}

	return false
}

// IsTerminal reports whether no further transitions are expected. A failed job
// is terminal once its retry budget is spent, which the orchestrator decides.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusCancelled || s == JobStatusFailed
}

// Job is the durable unit of asynchronous execution for one graph node.
type Job struct {
	ID                  string         `json:"id"`
	PipelineID          string         `json:"pipeline_id"`
	NodeID              string         `json:"node_id"`
	ExecutorID          string         `json:"executor_id"`
	TypeID              string         `json:"type_id"`
	Label               string         `json:"label,omitempty"`
	Config              map[string]any `json:"config,omitempty"`
	Status              JobStatus      `json:"status"`
	InputData           map[string]any `json:"input_data,omitempty"`
	OutputData          map[string]any `json:"output_data,omitempty"`
	RetryCount          int            `json:"retry_count"`
	MaxRetries          int            `json:"max_retries"`
	Priority            int            `json:"priority"`
	Sequence            int            `json:"sequence"`
	Dependencies        []string       `json:"dependencies"`
	TriggerDependencies []string       `json:"trigger_dependencies,omitempty"`
	IncomingEdges       []EdgeMeta     `json:"incoming_edges,omitempty"`
	InputMappings       InputMapping   `json:"input_mappings,omitempty"`
	ErrorMessage        string         `json:"error_message,omitempty"`
	AvailableAt         *time.Time     `json:"available_at,omitempty"`
	CreatedAt           time.Time      `json:"created_at"`
	StartedAt           *time.Time     `json:"started_at,omitempty"`
	CompletedAt         *time.Time     `json:"completed_at,omitempty"`
}

// Transition moves the job to a new status, enforcing the state machine.
func (j *Job) Transition(to JobStatus, at time.Time) error {
	if !j.Status.CanTransition(to) {
		return fmt.Errorf("%w: job %s from %s to %s", ErrInvalidTransition, j.ID, j.Status, to)
	}

	switch to {
	case JobStatusRunning:
		j.StartedAt = &at
		j.CompletedAt = nil
		j.ErrorMessage = ""
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		j.CompletedAt = &at
	case JobStatusPending:
		j.StartedAt = nil
		j.CompletedAt = nil
	}

	j.Status = to

	return nil
}

// HasRetryBudget reports whether a failed job may be retried.
func (j *Job) HasRetryBudget() bool {
	return j.RetryCount < j.MaxRetries
}

// AwaitingRetry reports whether the job is pending but held back by a retry delay.
func (j *Job) AwaitingRetry(now time.Time) bool {
	return j.Status == JobStatusPending && j.AvailableAt != nil && j.AvailableAt.After(now)
}

// DependsOn reports whether the job lists the given job id as a dependency of either kind.
func (j *Job) DependsOn(jobID string) bool {
	for _, dep := range j.Dependencies {
		if dep == jobID {
			return true
		}
	}

	for _, dep := range j.TriggerDependencies {
		if dep == jobID {
			return true
		}
	}

	return false
}
