package main

import (
	"context"
	"fmt"

	"github.com/dukex/graphflow/pkg/cmd"
	"github.com/dukex/graphflow/pkg/eventbus"
	"github.com/dukex/graphflow/pkg/models"
	"github.com/dukex/graphflow/pkg/pipeline"
	"github.com/dukex/graphflow/pkg/web"
	"github.com/dukex/graphflow/pkg/worker"
	cli "github.com/urfave/cli/v3"
)

func OrchestrateCommand() *cli.Command {
	return &cli.Command{
		Name:    "orchestrate",
		Aliases: []string{"o"},
		Usage:   "Create a pipeline for a graph and drive it to completion in-process",
		Flags: []cli.Flag{
			graphFlag,
			inputFlag,
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Persistence URL (file path, file:// or postgres://)",
				Value:   "file://./data",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.IntFlag{
				Name:    "max-concurrent-jobs",
				Usage:   "Jobs dispatched per round",
				Value:   pipeline.DefaultMaxConcurrentJobs,
				Sources: cli.EnvVars("MAX_CONCURRENT_JOBS"),
			},
			&cli.IntFlag{
				Name:    "max-retries",
				Usage:   "Retries per job; negative disables retries",
				Value:   pipeline.DefaultMaxRetries,
				Sources: cli.EnvVars("MAX_RETRIES"),
			},
			&cli.IntFlag{
				Name:    "max-iterations",
				Usage:   "Dispatch rounds before the pipeline is paused",
				Value:   pipeline.DefaultMaxIterations,
				Sources: cli.EnvVars("MAX_ITERATIONS"),
			},
			&cli.StringFlag{
				Name:    "retry-strategy",
				Usage:   "How exhausted failures affect the pipeline (individual, stop_on_failure)",
				Value:   string(models.RetryStrategyIndividual),
				Sources: cli.EnvVars("RETRY_STRATEGY"),
			},
			&cli.StringFlag{
				Name:    "priority-strategy",
				Usage:   "Dispatch order of ready jobs (dependency_order, fifo, priority)",
				Value:   string(models.PriorityStrategyDependencyOrder),
				Sources: cli.EnvVars("PRIORITY_STRATEGY"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			e, err := newEngine(command, "graphflow-orchestrate")
			if err != nil {
				return err
			}

			g, err := loadGraph(command)
			if err != nil {
				return err
			}

			input, err := parseInput(command.String("input"))
			if err != nil {
				return err
			}

			store, err := cmd.NewPersistence(ctx, e.logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				err := store.Close(ctx)
				if err != nil {
					e.logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), e.logger)
			if err != nil {
				return err
			}

			defer func() {
				err := eventBus.Close()
				if err != nil {
					e.logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			// Drain runs every job inline, so no work queue is involved.
			orchestrator := pipeline.NewOrchestrator(store, nil, e.compiler,
				eventbus.NewNotifier(eventBus, e.logger), e.logger, pipeline.Config{})
			defer orchestrator.Close()

			runner := worker.NewWorker(store, nil, e.registry, orchestrator, e.logger, worker.Config{})

			p, err := orchestrator.Start(ctx, pipeline.Request{
				Name:              g.Name,
				Graph:             g,
				InputData:         input,
				MaxConcurrentJobs: command.Int("max-concurrent-jobs"),
				MaxRetries:        command.Int("max-retries"),
				MaxIterations:     command.Int("max-iterations"),
				RetryStrategy:     models.RetryStrategy(command.String("retry-strategy")),
				PriorityStrategy:  models.PriorityStrategy(command.String("priority-strategy")),
			})
			if err != nil {
				return err
			}

			final, drainErr := orchestrator.Drain(ctx, p.ID, runner)
			if final != nil {
				final, err = orchestrator.Status(ctx, final.ID)
				if err != nil {
					return err
				}

				err = printJSON(command.Root().Writer, web.TransformPipelineResponse(final))
				if err != nil {
					return err
				}
			}

			if drainErr != nil {
				return drainErr
			}

			if final != nil && final.Status != models.PipelineStatusCompleted {
				return fmt.Errorf("pipeline %s finished %s", final.ID, final.Status)
			}

			return nil
		},
	}
}
