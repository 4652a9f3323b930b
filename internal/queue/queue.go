// Package queue buffers work items between the request path and background
// workers. Two backends share one interface:
//
//   - MemoryQueue: a bounded channel, lost on restart.
//   - RedisQueue: a Redis list of JSON documents, shared by every replica.
//
// Neither backend blocks a producer: a full memory queue rejects the item
// with ErrQueueFull and the caller decides whether to drop it.
package queue

import (
	"context"
	"time"
)

// Queue is a FIFO of T.
type Queue[T any] interface {
	// Enqueue adds an item without waiting for room.
	Enqueue(ctx context.Context, item T) error

	// DequeueWithTimeout waits up to timeout for a first item, then takes
	// whatever else is ready, up to maxItems. An empty batch means the
	// timeout elapsed.
	DequeueWithTimeout(ctx context.Context, maxItems int, timeout time.Duration) ([]T, error)

	// Length returns the number of queued items.
	Length(ctx context.Context) (int, error)

	// Close stops accepting items. Items already queued can still be dequeued.
	Close() error
}

// DeadLetterQueue keeps items a worker gave up on.
type DeadLetterQueue[T any] interface {
	Add(ctx context.Context, item T, cause error) error
	List(ctx context.Context, maxItems int) ([]DeadLetter[T], error)
}

// DeadLetter is an item with the error that exhausted its retries.
type DeadLetter[T any] struct {
	ID     string    `json:"id"`
	Item   T         `json:"item"`
	Error  string    `json:"error"`
	Failed time.Time `json:"failed"`
}

// Config holds queue and worker settings
type Config struct {
	// Name keys the Redis list ("queue:<name>") and dead letters ("dlq:<name>")
	Name string

	// Capacity bounds the in-memory buffer
	Capacity int

	// BatchSize is the maximum number of items a worker takes at once
	BatchSize int

	// BatchTimeout is how long a worker waits for the first item of a batch
	BatchTimeout time.Duration

	// MaxRetries is the number of extra attempts per item
	MaxRetries int

	// RetryBackoff is the first retry delay; it doubles per attempt
	RetryBackoff time.Duration
}

// DefaultConfig returns default queue configuration
func DefaultConfig(name string) Config {
	return Config{
		Name:         name,
		Capacity:     1000,
		BatchSize:    100,
		BatchTimeout: 5 * time.Second,
		MaxRetries:   3,
		RetryBackoff: time.Second,
	}
}
