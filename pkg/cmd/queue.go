package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/graphflow/pkg/channels/gochannel"
	"github.com/dukex/graphflow/pkg/channels/kafka"
	"github.com/dukex/graphflow/pkg/queue"
)

// NewQueue creates the work queue the orchestrator dispatches jobs on.
// The in-memory queue only reaches workers of the same process.
func NewQueue(ctx context.Context, provider, redisURL string, logger *slog.Logger) (queue.WorkQueue, error) {
	switch provider {
	case "", "gochannel":
		pub, sub, err := gochannel.CreateChannel(watermill.NewSlogLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory queue: %w", err)
		}

		return queue.NewWatermillQueue(pub, sub, logger), nil
	case "kafka":
		pub, sub, err := kafka.CreateChannel(watermill.NewSlogLogger(logger), kafka.BrokersFromEnv(), "graphflow-workers")
		if err != nil {
			return nil, fmt.Errorf("failed to create Kafka queue: %w", err)
		}

		return queue.NewWatermillQueue(pub, sub, logger), nil
	case "redis":
		return queue.NewRedisQueue(ctx, redisURL, logger)
	default:
		return nil, fmt.Errorf("unsupported queue provider: %s", provider)
	}
}
