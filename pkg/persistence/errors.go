package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrPipelineNotFound indicates a pipeline was not found by the given identifier.
	ErrPipelineNotFound = errors.New("pipeline not found")

	// ErrJobNotFound indicates a job was not found by the given identifier.
	ErrJobNotFound = errors.New("job not found")

	// ErrInvalidID indicates an identifier the store cannot safely address.
	ErrInvalidID = errors.New("invalid identifier")
)

// RecordError wraps a repository failure with the operation and record it concerns.
type RecordError struct {
	Op     string // Operation being performed (e.g., "GetByID", "Save")
	Record string // "pipeline" or "job"
	ID     string
	Err    error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("%s operation failed for %s %s: %v", e.Op, e.Record, e.ID, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// NewPipelineError creates a new pipeline error with context.
func NewPipelineError(op, pipelineID string, err error) *RecordError {
	return &RecordError{Op: op, Record: "pipeline", ID: pipelineID, Err: err}
}

// NewJobError creates a new job error with context.
func NewJobError(op, jobID string, err error) *RecordError {
	return &RecordError{Op: op, Record: "job", ID: jobID, Err: err}
}

// IsPipelineNotFound checks if an error indicates a pipeline was not found.
func IsPipelineNotFound(err error) bool {
	return errors.Is(err, ErrPipelineNotFound)
}

// IsJobNotFound checks if an error indicates a job was not found.
func IsJobNotFound(err error) bool {
	return errors.Is(err, ErrJobNotFound)
}
