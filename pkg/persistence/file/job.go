package file

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/dukex/graphflow/pkg/models"
	"github.com/dukex/graphflow/pkg/persistence"
)

// JobRepository handles job-related file operations.
type JobRepository struct {
	store *Persistence
}

func (r *JobRepository) Save(_ context.Context, job *models.Job) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	return r.save(job)
}

func (r *JobRepository) save(job *models.Job) error {
	for _, id := range []string{job.PipelineID, job.ID} {
		if err := validateID(id); err != nil {
			return persistence.NewJobError("Save", job.ID, err)
		}
	}

	err := writeJSON(r.store.path("jobs", job.PipelineID, job.ID+".json"), job)
	if err != nil {
		return persistence.NewJobError("Save", job.ID, err)
	}

	return nil
}

func (r *JobRepository) GetByID(_ context.Context, id string) (*models.Job, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	return r.get(id)
}

func (r *JobRepository) get(id string) (*models.Job, error) {
	if err := validateID(id); err != nil {
		return nil, persistence.NewJobError("GetByID", id, err)
	}

	matches, err := filepath.Glob(r.store.path("jobs", "*", id+".json"))
	if err != nil {
		return nil, persistence.NewJobError("GetByID", id, err)
	}

	if len(matches) == 0 {
		return nil, persistence.NewJobError("GetByID", id, persistence.ErrJobNotFound)
	}

	var job models.Job

	found, err := readJSON(matches[0], &job)
	if err != nil {
		return nil, persistence.NewJobError("GetByID", id, err)
	}

	if !found {
		return nil, persistence.NewJobError("GetByID", id, persistence.ErrJobNotFound)
	}

	return &job, nil
}

func (r *JobRepository) ListByPipeline(_ context.Context, pipelineID string) ([]*models.Job, error) {
	if err := validateID(pipelineID); err != nil {
		return nil, persistence.NewPipelineError("ListByPipeline", pipelineID, err)
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	dir := r.store.path("jobs", pipelineID)

	files, err := fs.Glob(os.DirFS(dir), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs of pipeline %s: %w", pipelineID, err)
	}

	jobs := make([]*models.Job, 0, len(files))

	for _, name := range files {
		var job models.Job

		found, err := readJSON(filepath.Join(dir, name), &job)
		if err != nil {
			return nil, persistence.NewPipelineError("ListByPipeline", pipelineID, err)
		}

		if found {
			jobs = append(jobs, &job)
		}
	}

	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].Sequence < jobs[j].Sequence
	})

	return jobs, nil
}

func (r *JobRepository) UpdateStatus(_ context.Context, id string, from, to models.JobStatus) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	job, err := r.get(id)
	if err != nil {
		return false, err
	}

	if job.Status != from {
		return false, nil
	}

	job.Status = to

	err = r.save(job)
	if err != nil {
		return false, err
	}

	return true, nil
}
