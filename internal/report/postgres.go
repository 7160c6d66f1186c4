package report

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists report records in a single table with one jsonb
// column holding the sections object. Section writes use jsonb_set so each
// sub-scan updates only its own key; the status transition guard lives in
// the UPDATE predicate so concurrent writers cannot regress the status.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an existing connection pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Connect establishes a pool and verifies the connection.
func Connect(ctx context.Context, databaseURL string) (*PostgresStore, *pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &PostgresStore{pool: pool}, pool, nil
}

// Create inserts a new pending record.
func (s *PostgresStore) Create(ctx context.Context, url string) (*Record, error) {
	rec := &Record{URL: url, Status: StatusPending}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO reports (url, status, sections)
		 VALUES ($1, 'pending', '{}'::jsonb)
		 RETURNING id, created_at, updated_at`,
		url,
	).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create report: %w", err)
	}
	return rec, nil
}

// Get loads the record including all persisted sections.
func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	var rec Record
	var errorMessage *string
	var sections map[string]json.RawMessage
	err := s.pool.QueryRow(ctx,
		`SELECT id, url, status, error_message, created_at, updated_at, sections
		 FROM reports WHERE id = $1`,
		id,
	).Scan(&rec.ID, &rec.URL, &rec.Status, &errorMessage, &rec.CreatedAt, &rec.UpdatedAt, &sections)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	if errorMessage != nil {
		rec.ErrorMessage = *errorMessage
	}
	for key, raw := range sections {
		if err := applySection(&rec, Section(key), raw); err != nil {
			return nil, err
		}
	}
	return &rec, nil
}

// SetStatus applies a guarded forward-only transition.
func (s *PostgresStore) SetStatus(ctx context.Context, id uuid.UUID, status Status) error {
	from, ok := legalFrom[status]
	if !ok {
		return fmt.Errorf("cannot transition to status %q", status)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE reports SET status = $2, updated_at = NOW()
		 WHERE id = $1 AND status = ANY($3)`,
		id, status, statusStrings(from),
	)
	if err != nil {
		return fmt.Errorf("failed to set status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.transitionFailure(ctx, id)
	}
	return nil
}

// Fail transitions the record to failed and records the terminal error.
func (s *PostgresStore) Fail(ctx context.Context, id uuid.UUID, message string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE reports SET status = 'failed', error_message = $2, updated_at = NOW()
		 WHERE id = $1 AND status = ANY($3)`,
		id, message, statusStrings(legalFrom[StatusFailed]),
	)
	if err != nil {
		return fmt.Errorf("failed to mark report failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.transitionFailure(ctx, id)
	}
	return nil
}

// SaveSection overwrites one key of the sections object. Accepted regardless
// of record status: late writes landing after a terminal status only enrich
// non-status fields.
func (s *PostgresStore) SaveSection(ctx context.Context, id uuid.UUID, section Section, content any) error {
	raw, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("failed to marshal section %s: %w", section, err)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE reports
		 SET sections = jsonb_set(sections, ARRAY[$2::text], $3::jsonb, true),
		     updated_at = NOW()
		 WHERE id = $1`,
		id, string(section), raw,
	)
	if err != nil {
		return fmt.Errorf("failed to save section %s: %w", section, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// transitionFailure distinguishes a missing record from an illegal transition
// after a guarded UPDATE matched no rows.
func (s *PostgresStore) transitionFailure(ctx context.Context, id uuid.UUID) error {
	var current Status
	err := s.pool.QueryRow(ctx, `SELECT status FROM reports WHERE id = $1`, id).Scan(&current)
	if err != nil {
		if err == pgx.ErrNoRows {
			return ErrNotFound
		}
		return fmt.Errorf("failed to inspect report status: %w", err)
	}
	return fmt.Errorf("%w: record is %s", ErrInvalidTransition, current)
}

func statusStrings(statuses []Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
