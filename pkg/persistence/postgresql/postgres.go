// Package postgresql provides PostgreSQL persistence for pipelines and jobs.
package postgresql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"log/slog"

	"github.com/dukex/graphflow/pkg/persistence"
	"github.com/dukex/graphflow/pkg/persistence/sqlbase"
	_ "github.com/lib/pq"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db           *sql.DB
	logger       *slog.Logger
	pipelineRepo *PipelineRepository
	jobRepo      *JobRepository
}

// NewPersistence connects to databaseURL and brings the schema up to date.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:           database,
		logger:       logger,
		pipelineRepo: NewPipelineRepository(database, logger),
		jobRepo:      NewJobRepository(database, logger),
	}, nil
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// LockPipeline takes a session advisory lock keyed by the pipeline id, so
// orchestrators in separate processes sharing the database serialize their
// decisions. The lock lives on a dedicated connection until unlock is called.
func (p *Persistence) LockPipeline(ctx context.Context, pipelineID string) (func(), error) {
	conn, err := p.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock connection: %w", err)
	}

	_, err = conn.ExecContext(ctx, "SELECT pg_advisory_lock(hashtext($1))", pipelineID)
	if err != nil {
		_ = conn.Close()

		return nil, fmt.Errorf("failed to lock pipeline %s: %w", pipelineID, err)
	}

	return func() {
		_, err := conn.ExecContext(context.Background(), "SELECT pg_advisory_unlock(hashtext($1))", pipelineID)
		if err != nil {
			p.logger.Warn("Failed to release pipeline lock, discarding connection", "pipeline_id", pipelineID, "error", err)

			// A discarded connection ends the session and with it the lock.
			_ = conn.Raw(func(any) error { return driver.ErrBadConn })
		}

		_ = conn.Close()
	}, nil
}

func (p *Persistence) PipelineRepository() persistence.PipelineRepository {
	return p.pipelineRepo
}

func (p *Persistence) JobRepository() persistence.JobRepository {
	return p.jobRepo
}
