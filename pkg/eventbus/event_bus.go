// Package eventbus publishes pipeline, job and node lifecycle events.
package eventbus

import (
	"context"

	"github.com/dukex/graphflow/pkg/events"
)

type Event interface {
	GetType() events.EventType
}

// EventPublisher delivers one event. The key groups events of the same
// pipeline or run so ordered transports keep them in order.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

// EventSubscriber dispatches decoded events to the handler registered for
// their type. Registering a type twice replaces the earlier handler.
type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
}

type EventHandler func(ctx context.Context, event any) error

type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
}
