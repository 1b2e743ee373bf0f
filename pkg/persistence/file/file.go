// Package file provides file-based persistence for pipelines and jobs.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dukex/graphflow/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface using the file system.
// Records are stored as one JSON document each:
//
//	<root>/pipelines/<pipeline-id>.json
//	<root>/jobs/<pipeline-id>/<job-id>.json
type Persistence struct {
	root         string
	mu           sync.Mutex
	locks        *keyedMutex
	pipelineRepo *PipelineRepository
	jobRepo      *JobRepository
}

// NewPersistence creates a new instance of Persistence with the specified root directory.
func NewPersistence(root string) persistence.Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	fp := &Persistence{root: cleanRoot, locks: newKeyedMutex()}
	fp.pipelineRepo = &PipelineRepository{store: fp}
	fp.jobRepo = &JobRepository{store: fp}

	return fp
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks if the file persistence layer is healthy by verifying the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// LockPipeline serializes callers sharing this store. The file store is a
// single-process store, so an in-memory lock is enough.
func (fp *Persistence) LockPipeline(ctx context.Context, pipelineID string) (func(), error) {
	err := ctx.Err()
	if err != nil {
		return nil, err
	}

	return fp.locks.Lock(pipelineID), nil
}

func (fp *Persistence) PipelineRepository() persistence.PipelineRepository {
	return fp.pipelineRepo
}

func (fp *Persistence) JobRepository() persistence.JobRepository {
	return fp.jobRepo
}

// validateID rejects ids that would escape the store root or act as glob
// patterns when joined into a path.
func validateID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty", persistence.ErrInvalidID)
	}

	if strings.Contains(id, "..") || strings.ContainsAny(id, `/\*?[`) {
		return fmt.Errorf("%w: %q", persistence.ErrInvalidID, id)
	}

	return nil
}

func (fp *Persistence) path(elem ...string) string {
	return filepath.Clean(filepath.Join(append([]string{fp.root}, elem...)...))
}

// readJSON decodes the document at path into v. It reports false when the
// document does not exist.
func readJSON(path string, v any) (bool, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}

		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}

	err = json.Unmarshal(body, v)
	if err != nil {
		return false, fmt.Errorf("failed to unmarshal %s: %w", path, err)
	}

	return true, nil
}

// writeJSON replaces the document at path through a temporary file so readers
// never observe a partial write.
func writeJSON(path string, v any) error {
	err := os.MkdirAll(filepath.Dir(path), 0750)
	if err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", path, err)
	}

	tmp := path + ".tmp"

	err = os.WriteFile(tmp, data, 0600)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return os.Rename(tmp, path)
}
