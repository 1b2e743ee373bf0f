package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/graphflow/pkg/eventbus"
	"github.com/dukex/graphflow/pkg/events"
)

var auditedEvents = []events.EventType{
	events.PipelineCompletedEvent,
	events.PipelineFailedEvent,
	events.PipelineCancelledEvent,
	events.PipelinePausedEvent,
}

// subscribeAudit logs pipeline outcomes published on the event bus.
func subscribeAudit(ctx context.Context, subscriber eventbus.EventSubscriber, logger *slog.Logger) error {
	logger = logger.With("module", "audit")

	handler := func(ctx context.Context, event any) error {
		pipelineEvent, ok := event.(*events.PipelineEvent)
		if !ok {
			return nil
		}

		attrs := []any{
			"event", pipelineEvent.Type,
			"pipeline_id", pipelineEvent.PipelineID,
			"graph_id", pipelineEvent.GraphID,
			"status", pipelineEvent.Status,
		}

		if pipelineEvent.Error != "" {
			logger.WarnContext(ctx, "Pipeline finished with error", append(attrs, "error", pipelineEvent.Error)...)

			return nil
		}

		logger.InfoContext(ctx, "Pipeline status changed", attrs...)

		return nil
	}

	for _, eventType := range auditedEvents {
		err := subscriber.Handle(eventType, handler)
		if err != nil {
			return fmt.Errorf("failed to register audit handler for %s: %w", eventType, err)
		}
	}

	return subscriber.Subscribe(ctx)
}
