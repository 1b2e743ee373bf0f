// Package persistence provides the storage abstraction for pipelines and jobs.
package persistence

import (
	"context"

	"github.com/dukex/graphflow/pkg/models"
)

type Persistence interface {
	PipelineRepository() PipelineRepository
	JobRepository() JobRepository
	PipelineLocker
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}

// PipelineLocker serializes decisions about one pipeline among every
// orchestrator that shares the store, in this process or another.
type PipelineLocker interface {
	// LockPipeline blocks until the caller holds the pipeline lock or ctx ends.
	LockPipeline(ctx context.Context, pipelineID string) (unlock func(), err error)
}

// PipelineRepository stores pipelines without their jobs; jobs live in the
// JobRepository keyed by pipeline id.
type PipelineRepository interface {
	Save(ctx context.Context, pipeline *models.Pipeline) error
	GetByID(ctx context.Context, id string) (*models.Pipeline, error)
	ListByStatus(ctx context.Context, statuses ...models.PipelineStatus) ([]*models.Pipeline, error)
	// UpdateStatus moves the pipeline from one status to another only if its
	// stored status still equals from. It reports whether the swap happened.
	UpdateStatus(ctx context.Context, id string, from, to models.PipelineStatus) (bool, error)
}

type JobRepository interface {
	Save(ctx context.Context, job *models.Job) error
	GetByID(ctx context.Context, id string) (*models.Job, error)
	// ListByPipeline returns the jobs of a pipeline ordered by sequence.
	ListByPipeline(ctx context.Context, pipelineID string) ([]*models.Job, error)
	// UpdateStatus is the compare-and-swap used to claim a job for dispatch.
	UpdateStatus(ctx context.Context, id string, from, to models.JobStatus) (bool, error)
}
