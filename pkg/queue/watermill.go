package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// WatermillQueue runs the work queue over a watermill publisher/subscriber
// pair (gochannel in-process, Kafka across processes).
type WatermillQueue struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	logger     *slog.Logger
}

func NewWatermillQueue(publisher message.Publisher, subscriber message.Subscriber, logger *slog.Logger) *WatermillQueue {
	return &WatermillQueue{
		publisher:  publisher,
		subscriber: subscriber,
		logger:     logger.With("module", "watermill_queue"),
	}
}

func (q *WatermillQueue) Enqueue(ctx context.Context, item WorkItem) error {
	payload, err := encode(item)
	if err != nil {
		return err
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("key", item.PipelineID)
	msg.SetContext(ctx)

	err = q.publisher.Publish(Topic, msg)
	if err != nil {
		return fmt.Errorf("failed to enqueue job %s: %w", item.JobID, err)
	}

	return nil
}

func (q *WatermillQueue) Consume(ctx context.Context, handler Handler) error {
	messages, err := q.subscriber.Subscribe(ctx, Topic)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", Topic, err)
	}

	q.logger.InfoContext(ctx, "Consuming work queue", "topic", Topic)

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}

			item, err := decode(msg.Payload)
			if err != nil {
				q.logger.ErrorContext(ctx, "Dropping malformed work item", "message_id", msg.UUID, "error", err)
				msg.Ack()

				continue
			}

			err = handler(ctx, item)
			if err != nil {
				q.logger.WarnContext(ctx, "Work item handler failed, redelivering",
					"job_id", item.JobID, "error", err)
				msg.Nack()

				continue
			}

			msg.Ack()
		}
	}
}

func (q *WatermillQueue) Close() error {
	err := q.publisher.Close()
	if err != nil {
		return fmt.Errorf("failed to close queue publisher: %w", err)
	}

	err = q.subscriber.Close()
	if err != nil {
		return fmt.Errorf("failed to close queue subscriber: %w", err)
	}

	return nil
}
