package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dukex/graphflow/pkg/models"
	"github.com/dukex/graphflow/pkg/persistence"
	"github.com/robfig/cron/v3"
)

// DefaultReconcileSchedule re-evaluates running pipelines every minute.
const DefaultReconcileSchedule = "@every 1m"

// Reconciler periodically re-evaluates running pipelines so that work lost to
// a restart (retry timers, dropped queue deliveries) is picked up again.
type Reconciler struct {
	orchestrator *Orchestrator
	pipelines    persistence.PipelineRepository
	schedule     string
	logger       *slog.Logger

	mu     sync.Mutex
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
}

func NewReconciler(orchestrator *Orchestrator, pipelines persistence.PipelineRepository, schedule string, logger *slog.Logger) *Reconciler {
	if schedule == "" {
		schedule = DefaultReconcileSchedule
	}

	return &Reconciler{
		orchestrator: orchestrator,
		pipelines:    pipelines,
		schedule:     schedule,
		logger:       logger.With("module", "reconciler"),
	}
}

func (r *Reconciler) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ctx, r.cancel = context.WithCancel(ctx)

	r.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	_, err := r.cron.AddFunc(r.schedule, func() {
		_, err := r.Reconcile(r.ctx)
		if err != nil {
			r.logger.ErrorContext(r.ctx, "Reconcile run failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid reconcile schedule %q: %w", r.schedule, err)
	}

	r.cron.Start()
	r.logger.InfoContext(ctx, "Reconciler started", "schedule", r.schedule)

	return nil
}

// Reconcile evaluates every running pipeline once and returns how many were visited.
func (r *Reconciler) Reconcile(ctx context.Context) (int, error) {
	running, err := r.pipelines.ListByStatus(ctx, models.PipelineStatusRunning)
	if err != nil {
		return 0, fmt.Errorf("failed to list running pipelines: %w", err)
	}

	for _, pipeline := range running {
		err := r.orchestrator.Evaluate(ctx, pipeline.ID)
		if err != nil && !errors.Is(err, ErrPipelineTerminal) {
			r.logger.WarnContext(ctx, "Failed to reconcile pipeline", "pipeline_id", pipeline.ID, "error", err)
		}
	}

	if len(running) > 0 {
		r.logger.DebugContext(ctx, "Reconciled running pipelines", "count", len(running))
	}

	return len(running), nil
}

func (r *Reconciler) Stop(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		r.cancel()
	}

	if r.cron != nil {
		<-r.cron.Stop().Done()
		r.logger.InfoContext(ctx, "Stopped reconciler")
	}
}
