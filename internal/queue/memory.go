package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryTask struct {
	task     Task
	status   string // queued, running, done, dead
	runAfter time.Time
	lastErr  string
}

// MemoryQueue is an in-process Queue with the same claim/retry semantics as
// the Postgres one. Used by tests and the one-shot CLI scan.
type MemoryQueue struct {
	mu          sync.Mutex
	tasks       map[uuid.UUID]*memoryTask
	order       []uuid.UUID
	maxAttempts int
	now         func() time.Time
}

// NewMemoryQueue creates an empty queue.
func NewMemoryQueue(maxAttempts int) *MemoryQueue {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &MemoryQueue{
		tasks:       make(map[uuid.UUID]*memoryTask),
		maxAttempts: maxAttempts,
		now:         time.Now,
	}
}

// Enqueue adds a task, ready immediately.
func (q *MemoryQueue) Enqueue(_ context.Context, t Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	q.tasks[t.ID] = &memoryTask{task: t, status: "queued", runAfter: q.now()}
	q.order = append(q.order, t.ID)
	return nil
}

// Dequeue claims the oldest ready task, or returns (nil, nil).
func (q *MemoryQueue) Dequeue(context.Context) (*Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	for _, id := range q.order {
		mt := q.tasks[id]
		if mt.status != "queued" || mt.runAfter.After(now) {
			continue
		}
		mt.status = "running"
		mt.task.Attempts++
		claimed := mt.task
		return &claimed, nil
	}
	return nil, nil
}

// Complete marks a claimed task done.
func (q *MemoryQueue) Complete(_ context.Context, id uuid.UUID) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if mt, ok := q.tasks[id]; ok {
		mt.status = "done"
	}
	return nil
}

// Fail re-queues with backoff or marks the task dead at the attempt limit.
func (q *MemoryQueue) Fail(_ context.Context, t Task, reason string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	mt, ok := q.tasks[t.ID]
	if !ok {
		return nil
	}
	mt.lastErr = reason
	if t.Attempts >= q.maxAttempts {
		mt.status = "dead"
		return nil
	}
	mt.status = "queued"
	mt.runAfter = q.now().Add(retryDelay(t.Attempts))
	return nil
}

// status returns the internal state of a task, for tests.
func (q *MemoryQueue) taskStatus(id uuid.UUID) (string, string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	mt, ok := q.tasks[id]
	if !ok {
		return "", ""
	}
	return mt.status, mt.lastErr
}
