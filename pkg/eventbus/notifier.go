package eventbus

import (
	"context"
	"log/slog"
)

// Notifier publishes lifecycle events on a best-effort basis. Delivery
// failures are logged and never returned to the caller.
type Notifier struct {
	publisher EventPublisher
	logger    *slog.Logger
}

// NewNotifier wraps publisher. A nil publisher yields a notifier that drops
// every event.
func NewNotifier(publisher EventPublisher, logger *slog.Logger) *Notifier {
	return &Notifier{
		publisher: publisher,
		logger:    logger.With("module", "notifier"),
	}
}

// Notify publishes event under key.
func (n *Notifier) Notify(ctx context.Context, key string, event Event) {
	if n == nil || n.publisher == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			n.logger.ErrorContext(ctx, "event publisher panicked", "event_type", event.GetType(), "panic", r)
		}
	}()

	if err := n.publisher.Publish(ctx, key, event); err != nil {
		n.logger.WarnContext(ctx, "failed to publish event",
			"event_type", event.GetType(),
			"key", key,
			"error", err)
	}
}
