package file

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"sort"
	"strings"

	"github.com/dukex/graphflow/pkg/models"
	"github.com/dukex/graphflow/pkg/persistence"
)

// PipelineRepository handles pipeline-related file operations.
type PipelineRepository struct {
	store *Persistence
}

func (r *PipelineRepository) file(id string) string {
	return r.store.path("pipelines", id+".json")
}

// Save writes the pipeline record. Jobs are not part of the record.
func (r *PipelineRepository) Save(_ context.Context, pipeline *models.Pipeline) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	return r.save(pipeline)
}

func (r *PipelineRepository) save(pipeline *models.Pipeline) error {
	if err := validateID(pipeline.ID); err != nil {
		return persistence.NewPipelineError("Save", pipeline.ID, err)
	}

	record := *pipeline
	record.Jobs = nil

	err := writeJSON(r.file(pipeline.ID), &record)
	if err != nil {
		return persistence.NewPipelineError("Save", pipeline.ID, err)
	}

	return nil
}

// GetByID retrieves a pipeline by its ID from the file system.
func (r *PipelineRepository) GetByID(_ context.Context, id string) (*models.Pipeline, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	return r.get(id)
}

func (r *PipelineRepository) get(id string) (*models.Pipeline, error) {
	if err := validateID(id); err != nil {
		return nil, persistence.NewPipelineError("GetByID", id, err)
	}

	var pipeline models.Pipeline

	found, err := readJSON(r.file(id), &pipeline)
	if err != nil {
		return nil, persistence.NewPipelineError("GetByID", id, err)
	}

	if !found {
		return nil, persistence.NewPipelineError("GetByID", id, persistence.ErrPipelineNotFound)
	}

	return &pipeline, nil
}

// ListByStatus returns pipelines in any of the given statuses, oldest first.
// With no statuses it returns every pipeline.
func (r *PipelineRepository) ListByStatus(_ context.Context, statuses ...models.PipelineStatus) ([]*models.Pipeline, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	root := os.DirFS(r.store.path("pipelines"))

	files, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list pipeline files: %w", err)
	}

	pipelines := make([]*models.Pipeline, 0, len(files))

	for _, name := range files {
		pipeline, err := r.get(strings.TrimSuffix(name, ".json"))
		if err != nil {
			if persistence.IsPipelineNotFound(err) {
				continue
			}

			return nil, err
		}

		if len(statuses) == 0 || slices.Contains(statuses, pipeline.Status) {
			pipelines = append(pipelines, pipeline)
		}
	}

	sort.Slice(pipelines, func(i, j int) bool {
		return pipelines[i].CreatedAt.Before(pipelines[j].CreatedAt)
	})

	return pipelines, nil
}

func (r *PipelineRepository) UpdateStatus(_ context.Context, id string, from, to models.PipelineStatus) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	pipeline, err := r.get(id)
	if err != nil {
		return false, err
	}

	if pipeline.Status != from {
		return false, nil
	}

	pipeline.Status = to

	err = r.save(pipeline)
	if err != nil {
		return false, err
	}

	return true, nil
}
