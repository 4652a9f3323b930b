package queue

import "errors"

var (
	// ErrQueueClosed is returned when enqueueing on a closed queue, or
	// dequeueing from a closed and drained one
	ErrQueueClosed = errors.New("queue is closed")

	// ErrQueueFull is returned when a memory queue has no room left
	ErrQueueFull = errors.New("queue is full")
)
