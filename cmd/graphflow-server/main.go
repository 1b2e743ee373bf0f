// Package main provides the graphflow server: the pipeline API, the
// orchestrator, a worker pool and the reconciler in one process.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukex/graphflow/pkg/log"
	"github.com/dukex/graphflow/pkg/models"
	"github.com/dukex/graphflow/pkg/otelhelper"
	"github.com/dukex/graphflow/pkg/pipeline"
	"github.com/dukex/graphflow/pkg/worker"
	cli "github.com/urfave/cli/v3"
)

const defaultPort = 9091

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newApp().Run(ctx, os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:                  "graphflow-server",
		Usage:                 "Serve the pipeline API and execute pipelines",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Persistence URL (file path, file:// or postgres://)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "queue",
				Usage:   "Work queue type (gochannel, kafka, redis)",
				Value:   "gochannel",
				Sources: cli.EnvVars("QUEUE_TYPE"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for the redis work queue",
				Value:   "redis://localhost:6379/0",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.IntFlag{
				Name:    "workers",
				Usage:   "Jobs executed concurrently by this process; 0 disables the worker (other processes need a kafka or redis queue and PostgreSQL)",
				Value:   worker.DefaultConcurrency,
				Sources: cli.EnvVars("WORKERS"),
			},
			&cli.IntFlag{
				Name:    "max-concurrent-jobs",
				Usage:   "Default jobs dispatched per pipeline round",
				Value:   pipeline.DefaultMaxConcurrentJobs,
				Sources: cli.EnvVars("MAX_CONCURRENT_JOBS"),
			},
			&cli.IntFlag{
				Name:    "max-retries",
				Usage:   "Default retries per job",
				Value:   pipeline.DefaultMaxRetries,
				Sources: cli.EnvVars("MAX_RETRIES"),
			},
			&cli.IntFlag{
				Name:    "max-iterations",
				Usage:   "Default dispatch rounds before a pipeline is paused",
				Value:   pipeline.DefaultMaxIterations,
				Sources: cli.EnvVars("MAX_ITERATIONS"),
			},
			&cli.StringFlag{
				Name:    "retry-strategy",
				Usage:   "Default retry strategy (individual, stop_on_failure)",
				Value:   string(models.RetryStrategyIndividual),
				Sources: cli.EnvVars("RETRY_STRATEGY"),
			},
			&cli.DurationFlag{
				Name:    "retry-delay",
				Usage:   "Initial delay of the exponential retry backoff; 0 retries immediately",
				Value:   0,
				Sources: cli.EnvVars("RETRY_DELAY"),
			},
			&cli.DurationFlag{
				Name:    "job-timeout",
				Usage:   "Maximum duration of a single node invocation",
				Value:   5 * time.Minute,
				Sources: cli.EnvVars("JOB_TIMEOUT"),
			},
			&cli.StringFlag{
				Name:    "reconcile-schedule",
				Usage:   "Cron schedule for re-evaluating running pipelines",
				Value:   pipeline.DefaultReconcileSchedule,
				Sources: cli.EnvVars("RECONCILE_SCHEDULE"),
			},
			&cli.StringFlag{
				Name:    "plugins-path",
				Usage:   "Path to the directory containing node plugins",
				Value:   "./plugins",
				Sources: cli.EnvVars("PLUGINS_PATH"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.BoolFlag{
				Name:    "otel",
				Usage:   "Export traces over OTLP/HTTP",
				Sources: cli.EnvVars("OTEL_ENABLED"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("graphflow-server")

			if command.Bool("otel") {
				shutdown, err := otelhelper.Setup(ctx, "graphflow-server")
				if err != nil {
					return fmt.Errorf("failed to initialize tracing: %w", err)
				}

				defer func() {
					err := shutdown(context.WithoutCancel(ctx))
					if err != nil {
						logger.ErrorContext(ctx, "Failed to shutdown tracer provider", "error", err)
					}
				}()
			}

			server, err := NewServer(ctx, logger, ServerConfig{
				DatabaseURL:       command.String("database-url"),
				Queue:             command.String("queue"),
				RedisURL:          command.String("redis-url"),
				EventBus:          command.String("event-bus"),
				PluginsPath:       command.String("plugins-path"),
				Workers:           command.Int("workers"),
				JobTimeout:        command.Duration("job-timeout"),
				ReconcileSchedule: command.String("reconcile-schedule"),
				Pipeline: pipeline.Config{
					MaxConcurrentJobs: command.Int("max-concurrent-jobs"),
					MaxRetries:        command.Int("max-retries"),
					MaxIterations:     command.Int("max-iterations"),
					RetryStrategy:     models.RetryStrategy(command.String("retry-strategy")),
					RetryBackOff:      retryBackOff(command.Duration("retry-delay")),
				},
			})
			if err != nil {
				return err
			}

			defer server.Close(context.WithoutCancel(ctx))

			return server.Run(ctx, command.Int("port"))
		},
	}
}
