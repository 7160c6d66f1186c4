package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// taskPayload is the jsonb body of a scan_tasks row. The report id and
// attempt bookkeeping live in their own columns.
type taskPayload struct {
	URL      string `json:"url"`
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
}

// PostgresQueue stores tasks in the scan_tasks table. Workers claim with
// FOR UPDATE SKIP LOCKED so multiple workers never double-claim a ready task.
type PostgresQueue struct {
	pool        *pgxpool.Pool
	maxAttempts int
}

// NewPostgresQueue wraps an existing pool. maxAttempts bounds retries before
// a task is marked dead.
func NewPostgresQueue(pool *pgxpool.Pool, maxAttempts int) *PostgresQueue {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &PostgresQueue{pool: pool, maxAttempts: maxAttempts}
}

// Enqueue inserts a queued task ready to run immediately.
func (q *PostgresQueue) Enqueue(ctx context.Context, t Task) error {
	payload, err := json.Marshal(taskPayload{URL: t.URL, Provider: t.Provider, Model: t.Model})
	if err != nil {
		return fmt.Errorf("failed to marshal task payload: %w", err)
	}
	_, err = q.pool.Exec(ctx,
		`INSERT INTO scan_tasks (report_id, payload, status, run_after)
		 VALUES ($1, $2, 'queued', NOW())`,
		t.ReportID, payload,
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	return nil
}

// Dequeue claims the oldest ready task. Returns (nil, nil) when none is due.
func (q *PostgresQueue) Dequeue(ctx context.Context) (*Task, error) {
	var (
		t   Task
		raw []byte
	)
	err := q.pool.QueryRow(ctx,
		`WITH next AS (
		     SELECT id FROM scan_tasks
		     WHERE status = 'queued' AND run_after <= NOW()
		     ORDER BY run_after
		     FOR UPDATE SKIP LOCKED
		     LIMIT 1
		 )
		 UPDATE scan_tasks t
		 SET status = 'running', attempts = attempts + 1, updated_at = NOW()
		 FROM next
		 WHERE t.id = next.id
		 RETURNING t.id, t.report_id, t.payload, t.attempts`,
	).Scan(&t.ID, &t.ReportID, &raw, &t.Attempts)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to claim task: %w", err)
	}

	var payload taskPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode task payload: %w", err)
	}
	t.URL = payload.URL
	t.Provider = payload.Provider
	t.Model = payload.Model
	return &t, nil
}

// Complete marks a claimed task done.
func (q *PostgresQueue) Complete(ctx context.Context, id uuid.UUID) error {
	_, err := q.pool.Exec(ctx,
		`UPDATE scan_tasks SET status = 'done', updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to complete task: %w", err)
	}
	return nil
}

// Fail re-queues a claimed task with backoff, or marks it dead after the
// attempt limit.
func (q *PostgresQueue) Fail(ctx context.Context, t Task, reason string) error {
	if t.Attempts >= q.maxAttempts {
		_, err := q.pool.Exec(ctx,
			`UPDATE scan_tasks SET status = 'dead', last_error = $2, updated_at = NOW()
			 WHERE id = $1`,
			t.ID, reason,
		)
		if err != nil {
			return fmt.Errorf("failed to mark task dead: %w", err)
		}
		return nil
	}
	_, err := q.pool.Exec(ctx,
		`UPDATE scan_tasks
		 SET status = 'queued', last_error = $2, run_after = NOW() + make_interval(secs => $3), updated_at = NOW()
		 WHERE id = $1`,
		t.ID, reason, retryDelay(t.Attempts).Seconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to requeue task: %w", err)
	}
	return nil
}
