package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const popTimeout = time.Second

// RedisQueue is a list-backed work queue: LPUSH to enqueue, BRPOP to consume.
// Several consumers on the same list compete for items.
type RedisQueue struct {
	client redis.UniversalClient
	key    string
	logger *slog.Logger
}

// NewRedisQueue connects to the Redis server at url (redis://host:port/db).
func NewRedisQueue(ctx context.Context, url string, logger *slog.Logger) (*RedisQueue, error) {
	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(options)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = client.Ping(pingCtx).Err()
	if err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.InfoContext(ctx, "Connected to Redis", "addr", options.Addr, "db", options.DB)

	return NewRedisQueueWithClient(client, Topic, logger), nil
}

func NewRedisQueueWithClient(client redis.UniversalClient, key string, logger *slog.Logger) *RedisQueue {
	return &RedisQueue{
		client: client,
		key:    key,
		logger: logger.With("module", "redis_queue", "queue", key),
	}
}

func (q *RedisQueue) Enqueue(ctx context.Context, item WorkItem) error {
	payload, err := encode(item)
	if err != nil {
		return err
	}

	err = q.client.LPush(ctx, q.key, payload).Err()
	if err != nil {
		return fmt.Errorf("failed to enqueue job %s: %w", item.JobID, err)
	}

	return nil
}

func (q *RedisQueue) Consume(ctx context.Context, handler Handler) error {
	q.logger.InfoContext(ctx, "Starting queue consumer")

	for {
		select {
		case <-ctx.Done():
			q.logger.InfoContext(ctx, "Context cancelled, stopping queue consumer")

			return nil
		default:
			err := q.processMessage(ctx, handler)
			if err != nil {
				if errors.Is(err, redis.ErrClosed) {
					return ErrQueueClosed
				}

				if ctx.Err() != nil {
					return nil
				}

				q.logger.ErrorContext(ctx, "Error processing message", "error", err)
				time.Sleep(popTimeout)
			}
		}
	}
}

func (q *RedisQueue) processMessage(ctx context.Context, handler Handler) error {
	result, err := q.client.BRPop(ctx, popTimeout, q.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}

		return fmt.Errorf("failed to pop message from queue: %w", err)
	}

	if len(result) < 2 {
		return nil
	}

	item, err := decode([]byte(result[1]))
	if err != nil {
		q.logger.ErrorContext(ctx, "Dropping malformed work item", "error", err)

		return nil
	}

	err = handler(ctx, item)
	if err != nil {
		// Back on the consuming end so it is the next item popped.
		pushErr := q.client.RPush(ctx, q.key, result[1]).Err()
		if pushErr != nil {
			return fmt.Errorf("failed to requeue job %s: %w", item.JobID, pushErr)
		}

		return fmt.Errorf("handler failed for job %s: %w", item.JobID, err)
	}

	return nil
}

func (q *RedisQueue) Close() error {
	err := q.client.Close()
	if err != nil {
		return fmt.Errorf("failed to close Redis client: %w", err)
	}

	return nil
}
