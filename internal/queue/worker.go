package queue

import (
	"context"
	"log"
	"time"
)

// Handler processes one claimed task. A returned error releases the task for
// retry; nil completes it.
type Handler func(ctx context.Context, t Task) error

// Worker polls the queue and dispatches claimed tasks to the handler, one at
// a time. Run several workers for parallel scans.
type Worker struct {
	queue    Queue
	handler  Handler
	interval time.Duration
}

// NewWorker builds a worker polling at the given interval.
func NewWorker(q Queue, interval time.Duration, handler Handler) *Worker {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Worker{queue: q, handler: handler, interval: interval}
}

// Run polls until the context is cancelled. After processing a task it
// immediately checks for the next one; the poll interval only applies to an
// empty queue.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		processed, err := w.poll(ctx)
		if err != nil {
			log.Printf("[WORKER] poll failed: %v", err)
		}
		if processed {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// poll claims and processes at most one task.
func (w *Worker) poll(ctx context.Context) (bool, error) {
	task, err := w.queue.Dequeue(ctx)
	if err != nil || task == nil {
		return false, err
	}

	log.Printf("[WORKER] processing task %s (report %s, attempt %d)", task.ID, task.ReportID, task.Attempts)
	if err := w.handler(ctx, *task); err != nil {
		log.Printf("[WORKER] task %s failed: %v", task.ID, err)
		if failErr := w.queue.Fail(ctx, *task, err.Error()); failErr != nil {
			log.Printf("[WORKER] failed to release task %s: %v", task.ID, failErr)
		}
		return true, nil
	}
	if err := w.queue.Complete(ctx, task.ID); err != nil {
		log.Printf("[WORKER] failed to complete task %s: %v", task.ID, err)
	}
	return true, nil
}
