package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisQueue implements Queue on a Redis list of JSON documents.
// The client is borrowed; Close does not close it.
type RedisQueue[T any] struct {
	client *redis.Client
	key    string
	closed atomic.Bool
}

// NewRedisQueue creates a queue stored under "queue:<name>"
func NewRedisQueue[T any](client *redis.Client, name string) *RedisQueue[T] {
	return &RedisQueue[T]{
		client: client,
		key:    fmt.Sprintf("queue:%s", name),
	}
}

// Enqueue appends an item to the list
func (q *RedisQueue[T]) Enqueue(ctx context.Context, item T) error {
	if q.closed.Load() {
		return ErrQueueClosed
	}

	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}
	if err := q.client.RPush(ctx, q.key, data).Err(); err != nil {
		return fmt.Errorf("failed to push to Redis: %w", err)
	}
	return nil
}

// DequeueWithTimeout blocks on BLPOP for the first item, then LPOPs the rest.
// Timeouts below one second are rounded up by Redis.
func (q *RedisQueue[T]) DequeueWithTimeout(ctx context.Context, maxItems int, timeout time.Duration) ([]T, error) {
	if maxItems <= 0 {
		maxItems = 1
	}

	if q.closed.Load() {
		// Drain without blocking.
		vals, err := q.client.LPopCount(ctx, q.key, maxItems).Result()
		if errors.Is(err, redis.Nil) || (err == nil && len(vals) == 0) {
			return nil, ErrQueueClosed
		}
		if err != nil {
			return nil, fmt.Errorf("failed to pop from Redis: %w", err)
		}
		return q.decode(vals)
	}

	result, err := q.client.BLPop(ctx, timeout, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to pop from Redis: %w", err)
	}

	// result[0] is the key, result[1] is the value
	vals := []string{result[1]}
	if maxItems > 1 {
		more, err := q.client.LPopCount(ctx, q.key, maxItems-1).Result()
		if err == nil {
			vals = append(vals, more...)
		}
	}
	return q.decode(vals)
}

func (q *RedisQueue[T]) decode(vals []string) ([]T, error) {
	items := make([]T, 0, len(vals))
	for _, v := range vals {
		var item T
		if err := json.Unmarshal([]byte(v), &item); err != nil {
			return items, fmt.Errorf("failed to unmarshal item: %w", err)
		}
		items = append(items, item)
	}
	return items, nil
}

// Length returns the current list length
func (q *RedisQueue[T]) Length(ctx context.Context) (int, error) {
	n, err := q.client.LLen(ctx, q.key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get queue length: %w", err)
	}
	return int(n), nil
}

// Close stops accepting items
func (q *RedisQueue[T]) Close() error {
	q.closed.Store(true)
	return nil
}

// RedisDeadLetterQueue stores dead letters as JSON in a Redis list
type RedisDeadLetterQueue[T any] struct {
	client *redis.Client
	key    string
}

// NewRedisDeadLetterQueue creates a dead letter queue under "dlq:<name>"
func NewRedisDeadLetterQueue[T any](client *redis.Client, name string) *RedisDeadLetterQueue[T] {
	return &RedisDeadLetterQueue[T]{
		client: client,
		key:    fmt.Sprintf("dlq:%s", name),
	}
}

// Add records a failed item
func (q *RedisDeadLetterQueue[T]) Add(ctx context.Context, item T, cause error) error {
	data, err := json.Marshal(DeadLetter[T]{
		ID:     uuid.NewString(),
		Item:   item,
		Error:  cause.Error(),
		Failed: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal dead letter: %w", err)
	}
	if err := q.client.RPush(ctx, q.key, data).Err(); err != nil {
		return fmt.Errorf("failed to add to dead letter queue: %w", err)
	}
	return nil
}

// List returns up to maxItems dead letters, oldest first; maxItems <= 0 means all
func (q *RedisDeadLetterQueue[T]) List(ctx context.Context, maxItems int) ([]DeadLetter[T], error) {
	stop := int64(-1)
	if maxItems > 0 {
		stop = int64(maxItems - 1)
	}
	vals, err := q.client.LRange(ctx, q.key, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list dead letters: %w", err)
	}

	out := make([]DeadLetter[T], 0, len(vals))
	for _, v := range vals {
		var dl DeadLetter[T]
		if err := json.Unmarshal([]byte(v), &dl); err != nil {
			continue // Skip malformed entries
		}
		out = append(out, dl)
	}
	return out, nil
}
