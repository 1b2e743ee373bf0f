package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrPipelineTerminal is returned by operations on a completed, failed or cancelled pipeline.
	ErrPipelineTerminal = errors.New("pipeline is in a terminal state")

	// ErrIterationCap is recorded when a pipeline exceeds its dispatch iteration budget.
	ErrIterationCap = errors.New("iteration cap reached")

	ErrNoPlan = errors.New("request has neither a graph nor a compiled plan")
)

// OrchestrationError wraps a failure surfaced at the pipeline boundary with
// the identifiers needed to correlate it.
type OrchestrationError struct {
	Op          string
	PipelineID  string
	JobID       string
	ExecutionID string
	Err         error
}

func (e *OrchestrationError) Error() string {
	var b strings.Builder

	fmt.Fprintf(&b, "orchestration %s failed", e.Op)

	if e.PipelineID != "" {
		fmt.Fprintf(&b, " for pipeline %s", e.PipelineID)
	}

	if e.JobID != "" {
		fmt.Fprintf(&b, " job %s", e.JobID)
	}

	if e.ExecutionID != "" {
		fmt.Fprintf(&b, " (execution %s)", e.ExecutionID)
	}

	fmt.Fprintf(&b, ": %v", e.Err)

	return b.String()
}

func (e *OrchestrationError) Unwrap() error {
	return e.Err
}
