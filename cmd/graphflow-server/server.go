package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dukex/graphflow/pkg/cmd"
	"github.com/dukex/graphflow/pkg/compiler"
	"github.com/dukex/graphflow/pkg/eventbus"
	"github.com/dukex/graphflow/pkg/persistence"
	"github.com/dukex/graphflow/pkg/pipeline"
	"github.com/dukex/graphflow/pkg/queue"
	"github.com/dukex/graphflow/pkg/worker"
	"github.com/dukex/graphflow/pkg/workflow"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

type ServerConfig struct {
	DatabaseURL       string
	Queue             string
	RedisURL          string
	EventBus          string
	PluginsPath       string
	Workers           int
	JobTimeout        time.Duration
	ReconcileSchedule string
	Pipeline          pipeline.Config
}

// Server owns every long running component of one graphflow process.
type Server struct {
	logger       *slog.Logger
	config       ServerConfig
	persistence  persistence.Persistence
	queue        queue.WorkQueue
	eventBus     eventbus.EventBus
	orchestrator *pipeline.Orchestrator
	worker       *worker.Worker
	reconciler   *pipeline.Reconciler
	api          *API
}

// ErrSharedQueueNeedsSharedStore is returned when a queue other processes
// consume is combined with the single-process file store.
var ErrSharedQueueNeedsSharedStore = errors.New("kafka and redis queues require PostgreSQL persistence")

func NewServer(ctx context.Context, logger *slog.Logger, config ServerConfig) (*Server, error) {
	// Every process consuming a shared queue runs an orchestrator for the
	// reports of its workers; they must lock pipelines in a common store.
	if (config.Queue == "kafka" || config.Queue == "redis") && cmd.IsFilePersistence(config.DatabaseURL) {
		return nil, fmt.Errorf("%w: got %q", ErrSharedQueueNeedsSharedStore, config.DatabaseURL)
	}

	store, err := cmd.NewPersistence(ctx, logger, config.DatabaseURL)
	if err != nil {
		return nil, err
	}

	workQueue, err := cmd.NewQueue(ctx, config.Queue, config.RedisURL, logger)
	if err != nil {
		return nil, errors.Join(err, store.Close(ctx))
	}

	eventBus, err := cmd.NewEventBus(config.EventBus, logger)
	if err != nil {
		return nil, errors.Join(err, workQueue.Close(), store.Close(ctx))
	}

	reg, err := cmd.NewRegistry(logger, config.PluginsPath, config.JobTimeout)
	if err != nil {
		return nil, errors.Join(err, eventBus.Close(), workQueue.Close(), store.Close(ctx))
	}

	comp := compiler.NewCompiler(reg, logger)
	notifier := eventbus.NewNotifier(eventBus, logger)
	orchestrator := pipeline.NewOrchestrator(store, workQueue, comp, notifier, logger, config.Pipeline)

	return &Server{
		logger:       logger,
		config:       config,
		persistence:  store,
		queue:        workQueue,
		eventBus:     eventBus,
		orchestrator: orchestrator,
		worker: worker.NewWorker(store, workQueue, reg, orchestrator, logger, worker.Config{
			Concurrency: config.Workers,
		}),
		reconciler: pipeline.NewReconciler(orchestrator, store.PipelineRepository(), config.ReconcileSchedule, logger),
		api: NewAPI(
			logger,
			store,
			orchestrator,
			workflow.NewExecutor(reg, comp, notifier, logger),
		),
	}, nil
}

// Run serves the API on port and processes jobs until ctx is done.
func (s *Server) Run(ctx context.Context, port int) error {
	err := s.reconciler.Start(ctx)
	if err != nil {
		return err
	}

	defer s.reconciler.Stop(context.WithoutCancel(ctx))

	err = subscribeAudit(ctx, s.eventBus, s.logger)
	if err != nil {
		return err
	}

	group, ctx := errgroup.WithContext(ctx)

	if s.config.Workers > 0 {
		group.Go(func() error {
			return s.worker.Start(ctx)
		})
	} else {
		s.logger.InfoContext(ctx, "Worker disabled, jobs are left to other processes")
	}

	app := s.api.App()

	group.Go(func() error {
		s.logger.InfoContext(ctx, "Starting API server", "port", port)

		return app.Listen(":" + strconv.Itoa(port))
	})

	group.Go(func() error {
		<-ctx.Done()

		s.logger.InfoContext(ctx, "Shutting down API server")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		return app.ShutdownWithContext(shutdownCtx)
	})

	err = group.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("server stopped: %w", err)
	}

	return nil
}

// Close releases every component; it is safe to call after Run returns.
func (s *Server) Close(ctx context.Context) {
	s.orchestrator.Close()

	err := s.queue.Close()
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to close work queue", "error", err)
	}

	err = s.eventBus.Close()
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
	}

	err = s.persistence.Close(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
	}
}

// retryBackOff returns an exponential retry policy starting at initial, or nil
// for immediate retries.
func retryBackOff(initial time.Duration) func() backoff.BackOff {
	if initial <= 0 {
		return nil
	}

	return func() backoff.BackOff {
		policy := backoff.NewExponentialBackOff()
		policy.InitialInterval = initial
		policy.MaxElapsedTime = 0

		return policy
	}
}
