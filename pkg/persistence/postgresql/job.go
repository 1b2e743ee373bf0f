package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/graphflow/pkg/models"
	"github.com/dukex/graphflow/pkg/persistence"
)

// JobRepository handles job-related database operations. The full job is kept
// in a JSONB document; status and scheduling fields are mirrored into columns
// so they can be queried and swapped atomically.
type JobRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewJobRepository creates a new job repository.
func NewJobRepository(db *sql.DB, logger *slog.Logger) *JobRepository {
	return &JobRepository{db: db, logger: logger}
}

func (r *JobRepository) Save(ctx context.Context, job *models.Job) error {
	document, err := json.Marshal(job)
	if err != nil {
		return persistence.NewJobError("Save", job.ID, fmt.Errorf("failed to marshal job: %w", err))
	}

	query := `
		INSERT INTO jobs (
			id
		  , pipeline_id
		  , node_id
		  , status
		  , sequence
		  , priority
		  , retry_count
		  , max_retries
		  , available_at
		  , document
		  , created_at
		  , updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status
		  , priority = EXCLUDED.priority
		  , retry_count = EXCLUDED.retry_count
		  , max_retries = EXCLUDED.max_retries
		  , available_at = EXCLUDED.available_at
		  , document = EXCLUDED.document
		  , updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		job.ID,
		job.PipelineID,
		job.NodeID,
		string(job.Status),
		job.Sequence,
		job.Priority,
		job.RetryCount,
		job.MaxRetries,
		job.AvailableAt,
		document,
		job.CreatedAt,
		time.Now().UTC(),
	)
	if err != nil {
		return persistence.NewJobError("Save", job.ID, err)
	}

	return nil
}

func (r *JobRepository) GetByID(ctx context.Context, id string) (*models.Job, error) {
	row := r.db.QueryRowContext(ctx, `SELECT status, document FROM jobs WHERE id = $1`, id)

	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewJobError("GetByID", id, persistence.ErrJobNotFound)
		}

		return nil, persistence.NewJobError("GetByID", id, err)
	}

	return job, nil
}

func (r *JobRepository) ListByPipeline(ctx context.Context, pipelineID string) ([]*models.Job, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT status, document FROM jobs WHERE pipeline_id = $1 ORDER BY sequence ASC`, pipelineID)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	jobs := make([]*models.Job, 0)

	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}

		jobs = append(jobs, job)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating jobs: %w", err)
	}

	return jobs, nil
}

func (r *JobRepository) UpdateStatus(ctx context.Context, id string, from, to models.JobStatus) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE jobs
		SET status = $1
		  , document = jsonb_set(document, '{status}', to_jsonb($4::text))
		  , updated_at = NOW()
		WHERE id = $2 AND status = $3
	`, string(to), id, string(from), string(to))
	if err != nil {
		return false, persistence.NewJobError("UpdateStatus", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, persistence.NewJobError("UpdateStatus", id, err)
	}

	if affected == 0 {
		_, err := r.GetByID(ctx, id)
		if err != nil {
			return false, err
		}

		return false, nil
	}

	return true, nil
}

func scanJob(row scanner) (*models.Job, error) {
	var (
		status   string
		document []byte
	)

	err := row.Scan(&status, &document)
	if err != nil {
		return nil, err
	}

	var job models.Job

	err = json.Unmarshal(document, &job)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal job document: %w", err)
	}

	// The column is authoritative.
	job.Status = models.JobStatus(status)

	return &job, nil
}
