// Package queue provides the durable scan task queue feeding the workers.
// Delivery is at-least-once: the pipeline tolerates re-delivery, so the queue
// never needs exactly-once bookkeeping.
package queue

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Task is one durable scan job.
type Task struct {
	ID       uuid.UUID `json:"id"`
	ReportID uuid.UUID `json:"report_id"`
	URL      string    `json:"url"`
	Provider string    `json:"provider,omitempty"`
	Model    string    `json:"model,omitempty"`
	Attempts int       `json:"attempts"`
}

// Queue is the durable task store. Dequeue returns (nil, nil) when no task
// is ready; callers poll.
type Queue interface {
	// Enqueue adds a task, ready to run immediately.
	Enqueue(ctx context.Context, t Task) error
	// Dequeue claims the next ready task and marks it running, bumping its
	// attempt count. Claims are exclusive until Complete or Fail.
	Dequeue(ctx context.Context) (*Task, error)
	// Complete marks a claimed task done.
	Complete(ctx context.Context, id uuid.UUID) error
	// Fail releases a claimed task for retry with backoff, or marks it dead
	// once the attempt limit is reached.
	Fail(ctx context.Context, t Task, reason string) error
}

// retryDelay is the backoff before a failed task becomes ready again,
// doubling per attempt: 30s, 1m, 2m, ...
func retryDelay(attempts int) time.Duration {
	d := 30 * time.Second
	for i := 1; i < attempts; i++ {
		d *= 2
	}
	return d
}
