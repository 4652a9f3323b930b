package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"content_gateway/internal/logging"
	"content_gateway/internal/queue"
)

// QueueWorker moves usage entries off the request path: Record only enqueues,
// and a background loop drains batches into the backing ledger.
// QueueWorker itself satisfies Ledger.
type QueueWorker struct {
	queue   queue.Queue[UsageEntry]
	dlq     queue.DeadLetterQueue[UsageEntry]
	ledger  Ledger
	config  queue.Config
	logger  *logging.Logger
	sleep   func(time.Duration)
	stopped chan struct{}
}

// NewQueueWorker creates a worker that writes to ledger. dlq may be nil, in
// which case entries that exhaust their retries are dropped after logging.
func NewQueueWorker(q queue.Queue[UsageEntry], dlq queue.DeadLetterQueue[UsageEntry], ledger Ledger, config queue.Config) *QueueWorker {
	if config.BatchSize <= 0 {
		config.BatchSize = 1
	}
	if config.BatchTimeout <= 0 {
		config.BatchTimeout = time.Second
	}

	return &QueueWorker{
		queue:   q,
		dlq:     dlq,
		ledger:  ledger,
		config:  config,
		logger:  logging.NewLogger("usage-worker"),
		sleep:   time.Sleep,
		stopped: make(chan struct{}),
	}
}

// Start starts the worker goroutine
func (w *QueueWorker) Start(ctx context.Context) {
	go w.run(ctx)
}

// Stop closes the queue, waits for queued entries to be drained and returns.
func (w *QueueWorker) Stop() error {
	if err := w.queue.Close(); err != nil {
		return err
	}
	<-w.stopped
	return nil
}

// Record enqueues entry; it never waits for the backing ledger.
func (w *QueueWorker) Record(ctx context.Context, entry UsageEntry) error {
	if err := w.queue.Enqueue(ctx, entry); err != nil {
		return fmt.Errorf("failed to enqueue usage for %s: %w", entry.Model, err)
	}
	return nil
}

// QueueLength returns the number of entries waiting to be written
func (w *QueueWorker) QueueLength(ctx context.Context) (int, error) {
	return w.queue.Length(ctx)
}

// DeadLetters returns up to maxItems entries the worker gave up on
func (w *QueueWorker) DeadLetters(ctx context.Context, maxItems int) ([]queue.DeadLetter[UsageEntry], error) {
	if w.dlq == nil {
		return nil, fmt.Errorf("dead letter queue not configured")
	}
	return w.dlq.List(ctx, maxItems)
}

func (w *QueueWorker) run(ctx context.Context) {
	defer close(w.stopped)

	for {
		items, err := w.queue.DequeueWithTimeout(ctx, w.config.BatchSize, w.config.BatchTimeout)
		switch {
		case errors.Is(err, queue.ErrQueueClosed):
			w.logger.Info("usage worker stopping")
			return
		case ctx.Err() != nil:
			w.logger.Info("usage worker context cancelled")
			return
		case err != nil:
			w.logger.Error("failed to dequeue usage", "error", err)
			w.sleep(time.Second)
			continue
		}

		if len(items) == 0 {
			continue
		}
		w.logger.Debug("processing usage batch", "count", len(items))
		for _, entry := range items {
			if err := w.process(ctx, entry); err != nil {
				w.logger.Error("failed to record usage", "model", entry.Model, "error", err)
			}
		}
	}
}

// process writes one entry, retrying with exponential backoff
func (w *QueueWorker) process(ctx context.Context, entry UsageEntry) error {
	var lastErr error
	for attempt := 0; attempt <= w.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := w.config.RetryBackoff * time.Duration(1<<uint(attempt-1))
			w.logger.Debug("retrying usage record", "attempt", attempt, "backoff", backoff)
			w.sleep(backoff)
		}

		if lastErr = w.ledger.Record(ctx, entry); lastErr == nil {
			return nil
		}
	}

	if w.dlq != nil {
		if err := w.dlq.Add(ctx, entry, lastErr); err != nil {
			w.logger.Error("failed to add to dead letter queue", "error", err)
		} else {
			w.logger.Warn("usage entry moved to DLQ", "model", entry.Model, "error", lastErr)
		}
	}
	return fmt.Errorf("max retries exceeded: %w", lastErr)
}
