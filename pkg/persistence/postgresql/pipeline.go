package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/graphflow/pkg/models"
	"github.com/dukex/graphflow/pkg/persistence"
	"github.com/lib/pq"
)

// PipelineRepository handles pipeline-related database operations.
type PipelineRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPipelineRepository creates a new pipeline repository.
func NewPipelineRepository(db *sql.DB, logger *slog.Logger) *PipelineRepository {
	return &PipelineRepository{db: db, logger: logger}
}

const pipelineColumns = `
	id
  , execution_id
  , graph_id
  , name
  , status
  , max_concurrent_jobs
  , job_priority_strategy
  , retry_strategy
  , max_iterations
  , iterations
  , input_data
  , output_data
  , error_message
  , metadata
  , created_at
  , started_at
  , completed_at
`

// Save upserts the pipeline record. Jobs are stored by the JobRepository.
func (r *PipelineRepository) Save(ctx context.Context, pipeline *models.Pipeline) error {
	inputData, err := json.Marshal(pipeline.InputData)
	if err != nil {
		return persistence.NewPipelineError("Save", pipeline.ID, fmt.Errorf("failed to marshal input data: %w", err))
	}

	outputData, err := json.Marshal(pipeline.OutputData)
	if err != nil {
		return persistence.NewPipelineError("Save", pipeline.ID, fmt.Errorf("failed to marshal output data: %w", err))
	}

	metadata, err := json.Marshal(pipeline.Metadata)
	if err != nil {
		return persistence.NewPipelineError("Save", pipeline.ID, fmt.Errorf("failed to marshal metadata: %w", err))
	}

	query := `
		INSERT INTO pipelines (` + pipelineColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name
		  , status = EXCLUDED.status
		  , max_concurrent_jobs = EXCLUDED.max_concurrent_jobs
		  , job_priority_strategy = EXCLUDED.job_priority_strategy
		  , retry_strategy = EXCLUDED.retry_strategy
		  , max_iterations = EXCLUDED.max_iterations
		  , iterations = EXCLUDED.iterations
		  , input_data = EXCLUDED.input_data
		  , output_data = EXCLUDED.output_data
		  , error_message = EXCLUDED.error_message
		  , metadata = EXCLUDED.metadata
		  , started_at = EXCLUDED.started_at
		  , completed_at = EXCLUDED.completed_at
	`

	_, err = r.db.ExecContext(ctx, query,
		pipeline.ID,
		pipeline.ExecutionID,
		pipeline.GraphID,
		pipeline.Name,
		string(pipeline.Status),
		pipeline.MaxConcurrentJobs,
		string(pipeline.JobPriorityStrategy),
		string(pipeline.RetryStrategy),
		pipeline.MaxIterations,
		pipeline.Iterations,
		inputData,
		outputData,
		pipeline.ErrorMessage,
		metadata,
		pipeline.CreatedAt,
		pipeline.StartedAt,
		pipeline.CompletedAt,
	)
	if err != nil {
		return persistence.NewPipelineError("Save", pipeline.ID, err)
	}

	return nil
}

func (r *PipelineRepository) GetByID(ctx context.Context, id string) (*models.Pipeline, error) {
	query := `SELECT ` + pipelineColumns + ` FROM pipelines WHERE id = $1`

	pipeline, err := r.scanPipeline(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewPipelineError("GetByID", id, persistence.ErrPipelineNotFound)
		}

		return nil, persistence.NewPipelineError("GetByID", id, err)
	}

	return pipeline, nil
}

func (r *PipelineRepository) ListByStatus(ctx context.Context, statuses ...models.PipelineStatus) ([]*models.Pipeline, error) {
	query := `SELECT ` + pipelineColumns + ` FROM pipelines`
	args := []any{}

	if len(statuses) > 0 {
		names := make([]string, 0, len(statuses))
		for _, status := range statuses {
			names = append(names, string(status))
		}

		query += ` WHERE status = ANY($1)`

		args = append(args, pq.Array(names))
	}

	query += ` ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query pipelines: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	pipelines := make([]*models.Pipeline, 0)

	for rows.Next() {
		pipeline, err := r.scanPipeline(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pipeline: %w", err)
		}

		pipelines = append(pipelines, pipeline)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating pipelines: %w", err)
	}

	return pipelines, nil
}

func (r *PipelineRepository) UpdateStatus(ctx context.Context, id string, from, to models.PipelineStatus) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE pipelines SET status = $1 WHERE id = $2 AND status = $3`,
		string(to), id, string(from))
	if err != nil {
		return false, persistence.NewPipelineError("UpdateStatus", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, persistence.NewPipelineError("UpdateStatus", id, err)
	}

	if affected == 0 {
		// Distinguish a lost race from a missing pipeline.
		_, err := r.GetByID(ctx, id)
		if err != nil {
			return false, err
		}

		return false, nil
	}

	return true, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *PipelineRepository) scanPipeline(row scanner) (*models.Pipeline, error) {
	var (
		pipeline                           models.Pipeline
		name, errorMessage                 sql.NullString
		status, priorityStrategy, strategy string
		inputData, outputData, metadata    []byte
		startedAt, completedAt             sql.NullTime
	)

	err := row.Scan(
		&pipeline.ID,
		&pipeline.ExecutionID,
		&pipeline.GraphID,
		&name,
		&status,
		&pipeline.MaxConcurrentJobs,
		&priorityStrategy,
		&strategy,
		&pipeline.MaxIterations,
		&pipeline.Iterations,
		&inputData,
		&outputData,
		&errorMessage,
		&metadata,
		&pipeline.CreatedAt,
		&startedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	pipeline.Name = name.String
	pipeline.ErrorMessage = errorMessage.String
	pipeline.Status = models.PipelineStatus(status)
	pipeline.JobPriorityStrategy = models.PriorityStrategy(priorityStrategy)
	pipeline.RetryStrategy = models.RetryStrategy(strategy)

	if startedAt.Valid {
		pipeline.StartedAt = &startedAt.Time
	}

	if completedAt.Valid {
		pipeline.CompletedAt = &completedAt.Time
	}

	for _, field := range []struct {
		raw    []byte
		target *map[string]any
	}{
		{inputData, &pipeline.InputData},
		{outputData, &pipeline.OutputData},
		{metadata, &pipeline.Metadata},
	} {
		if len(field.raw) == 0 {
			continue
		}

		err := json.Unmarshal(field.raw, field.target)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal pipeline %s data: %w", pipeline.ID, err)
		}
	}

	return &pipeline, nil
}
