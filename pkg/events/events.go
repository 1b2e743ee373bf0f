// Package events defines event types and structures for execution lifecycle notifications.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Topic carries every lifecycle event.
const Topic = "graphflow.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Synchronous run node events.
	NodeStartedEvent   EventType = "node.started"
	NodeCompletedEvent EventType = "node.completed"
	NodeFailedEvent    EventType = "node.failed"
	NodeSkippedEvent   EventType = "node.skipped"

	// Pipeline lifecycle events.
	PipelineCreatedEvent   EventType = "pipeline.created"
	PipelineStartedEvent   EventType = "pipeline.started"
	PipelineCompletedEvent EventType = "pipeline.completed"
	PipelineFailedEvent    EventType = "pipeline.failed"
	PipelinePausedEvent    EventType = "pipeline.paused"
	PipelineResumedEvent   EventType = "pipeline.resumed"
	PipelineCancelledEvent EventType = "pipeline.cancelled"

	// Job lifecycle events.
	JobCreatedEvent   EventType = "job.created"
	JobStartedEvent   EventType = "job.started"
	JobCompletedEvent EventType = "job.completed"
	JobFailedEvent    EventType = "job.failed"
	JobRetryingEvent  EventType = "job.retrying"
	JobSkippedEvent   EventType = "job.skipped"
	JobCancelledEvent EventType = "job.cancelled"
)

type BaseEvent struct {
	ID          string         `json:"id"`
	Type        EventType      `json:"type"`
	Timestamp   time.Time      `json:"timestamp"`
	ExecutionID string         `json:"execution_id"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(eventType EventType, executionID string) BaseEvent {
	return BaseEvent{
		ID:          uuid.New().String(),
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		ExecutionID: executionID,
		Metadata:    make(map[string]any),
	}
}

type NodeStarted struct {
	BaseEvent

	NodeID string         `json:"node_id"`
	TypeID string         `json:"type_id"`
	Inputs map[string]any `json:"inputs,omitempty"`
}

func (n NodeStarted) GetType() EventType {
	return NodeStartedEvent
}

type NodeCompleted struct {
	BaseEvent

	NodeID     string         `json:"node_id"`
	TypeID     string         `json:"type_id"`
	Output     map[string]any `json:"output,omitempty"`
	DurationMs int64          `json:"duration_ms"`
}

func (n NodeCompleted) GetType() EventType {
	return NodeCompletedEvent
}

type NodeFailed struct {
	BaseEvent

	NodeID string `json:"node_id"`
	TypeID string `json:"type_id"`
	Error  string `json:"error"`
}

func (n NodeFailed) GetType() EventType {
	return NodeFailedEvent
}

// NodeSkipped is published when a node's trigger edges are not satisfied.
type NodeSkipped struct {
	BaseEvent

	NodeID string `json:"node_id"`
	Reason string `json:"reason"`
}

func (n NodeSkipped) GetType() EventType {
	return NodeSkippedEvent
}

// PipelineEvent covers every pipeline status change; Type says which one.
type PipelineEvent struct {
	BaseEvent

	PipelineID string         `json:"pipeline_id"`
	GraphID    string         `json:"graph_id"`
	Status     string         `json:"status"`
	Error      string         `json:"error,omitempty"`
	Output     map[string]any `json:"output,omitempty"`
}

func (p PipelineEvent) GetType() EventType {
	return p.Type
}

// JobEvent covers every job status change; Type says which one.
type JobEvent struct {
	BaseEvent

	PipelineID string         `json:"pipeline_id"`
	JobID      string         `json:"job_id"`
	NodeID     string         `json:"node_id"`
	Attempt    int            `json:"attempt"`
	Output     map[string]any `json:"output,omitempty"`
	Error      string         `json:"error,omitempty"`
	Reason     string         `json:"reason,omitempty"`
}

func (j JobEvent) GetType() EventType {
	return j.Type
}

// NewForType returns an empty event value to decode a payload of the given type into.
func NewForType(eventType EventType) (any, bool) {
	switch eventType {
	case NodeStartedEvent:
		return &NodeStarted{}, true
	case NodeCompletedEvent:
		return &NodeCompleted{}, true
	case NodeFailedEvent:
		return &NodeFailed{}, true
	case NodeSkippedEvent:
		return &NodeSkipped{}, true
	case PipelineCreatedEvent, PipelineStartedEvent, PipelineCompletedEvent, PipelineFailedEvent,
		PipelinePausedEvent, PipelineResumedEvent, PipelineCancelledEvent:
		return &PipelineEvent{}, true
	case JobCreatedEvent, JobStartedEvent, JobCompletedEvent, JobFailedEvent,
		JobRetryingEvent, JobSkippedEvent, JobCancelledEvent:
		return &JobEvent{}, true
	default:
		return nil, false
	}
}
