package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryQueue implements Queue with a buffered channel
type MemoryQueue[T any] struct {
	items     chan T
	done      chan struct{}
	closeOnce sync.Once
}

// NewMemoryQueue creates an in-memory queue holding up to capacity items
func NewMemoryQueue[T any](capacity int) *MemoryQueue[T] {
	if capacity <= 0 {
		capacity = DefaultConfig("").Capacity
	}
	return &MemoryQueue[T]{
		items: make(chan T, capacity),
		done:  make(chan struct{}),
	}
}

// Enqueue adds an item to the queue
func (q *MemoryQueue[T]) Enqueue(ctx context.Context, item T) error {
	select {
	case <-q.done:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	select {
	case q.items <- item:
		return nil
	default:
		return ErrQueueFull
	}
}

// DequeueWithTimeout retrieves up to maxItems items
func (q *MemoryQueue[T]) DequeueWithTimeout(ctx context.Context, maxItems int, timeout time.Duration) ([]T, error) {
	if maxItems <= 0 {
		maxItems = 1
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var items []T
	select {
	case item := <-q.items:
		items = append(items, item)
	case <-q.done:
		// Drain what is left before reporting closed.
		items = q.take(nil, maxItems)
		if len(items) == 0 {
			return nil, ErrQueueClosed
		}
		return items, nil
	case <-timer.C:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	return q.take(items, maxItems), nil
}

// take appends ready items without blocking
func (q *MemoryQueue[T]) take(items []T, maxItems int) []T {
	for len(items) < maxItems {
		select {
		case item := <-q.items:
			items = append(items, item)
		default:
			return items
		}
	}
	return items
}

// Length returns the current queue length
func (q *MemoryQueue[T]) Length(ctx context.Context) (int, error) {
	return len(q.items), nil
}

// Close stops accepting items
func (q *MemoryQueue[T]) Close() error {
	q.closeOnce.Do(func() { close(q.done) })
	return nil
}

// MemoryDeadLetterQueue keeps dead letters in a slice
type MemoryDeadLetterQueue[T any] struct {
	mu    sync.RWMutex
	items []DeadLetter[T]
}

// NewMemoryDeadLetterQueue creates an empty in-memory dead letter queue
func NewMemoryDeadLetterQueue[T any]() *MemoryDeadLetterQueue[T] {
	return &MemoryDeadLetterQueue[T]{}
}

// Add records a failed item
func (q *MemoryDeadLetterQueue[T]) Add(ctx context.Context, item T, cause error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = append(q.items, DeadLetter[T]{
		ID:     uuid.NewString(),
		Item:   item,
		Error:  cause.Error(),
		Failed: time.Now(),
	})
	return nil
}

// List returns up to maxItems dead letters, oldest first; maxItems <= 0 means all
func (q *MemoryDeadLetterQueue[T]) List(ctx context.Context, maxItems int) ([]DeadLetter[T], error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if maxItems <= 0 || maxItems > len(q.items) {
		maxItems = len(q.items)
	}
	out := make([]DeadLetter[T], maxItems)
	copy(out, q.items[:maxItems])
	return out, nil
}
