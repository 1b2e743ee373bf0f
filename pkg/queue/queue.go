// Package queue carries dispatched jobs from the orchestrator to workers.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Topic is the work queue topic or list name.
const Topic = "graphflow.jobs"

var ErrQueueClosed = errors.New("work queue closed")

// WorkItem identifies one dispatched job attempt. Workers load the job itself
// from persistence.
type WorkItem struct {
	PipelineID  string    `json:"pipeline_id"`
	JobID       string    `json:"job_id"`
	ExecutionID string    `json:"execution_id"`
	NodeID      string    `json:"node_id"`
	Attempt     int       `json:"attempt"`
	EnqueuedAt  time.Time `json:"enqueued_at"`
}

// Handler processes one work item. A returned error asks the queue to
// deliver the item again.
type Handler func(ctx context.Context, item WorkItem) error

type WorkQueue interface {
	Enqueue(ctx context.Context, item WorkItem) error
	// Consume delivers items to handler one at a time until ctx is done.
	Consume(ctx context.Context, handler Handler) error
	Close() error
}

func encode(item WorkItem) ([]byte, error) {
	payload, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal work item %s: %w", item.JobID, err)
	}

	return payload, nil
}

func decode(payload []byte) (WorkItem, error) {
	var item WorkItem

	err := json.Unmarshal(payload, &item)
	if err != nil {
		return item, fmt.Errorf("failed to unmarshal work item: %w", err)
	}

	return item, nil
}
