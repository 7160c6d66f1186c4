package report

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store used by tests and the one-shot CLI scan.
// It enforces the same transition guard and partial-write semantics as the
// Postgres store.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[uuid.UUID]*Record)}
}

// Create inserts a new pending record.
func (m *MemoryStore) Create(_ context.Context, url string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	rec := &Record{
		ID:        uuid.New(),
		URL:       url,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.records[rec.ID] = rec
	return copyRecord(rec), nil
}

// Get returns a deep copy of the record, or ErrNotFound.
func (m *MemoryStore) Get(_ context.Context, id uuid.UUID) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyRecord(rec), nil
}

// SetStatus applies a guarded forward-only transition.
func (m *MemoryStore) SetStatus(_ context.Context, id uuid.UUID, status Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return ErrNotFound
	}
	if !transitionAllowed(rec.Status, status) {
		return fmt.Errorf("%w: record is %s", ErrInvalidTransition, rec.Status)
	}
	rec.Status = status
	m.touch(rec)
	return nil
}

// Fail transitions the record to failed with a terminal error message.
func (m *MemoryStore) Fail(_ context.Context, id uuid.UUID, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return ErrNotFound
	}
	if !transitionAllowed(rec.Status, StatusFailed) {
		return fmt.Errorf("%w: record is %s", ErrInvalidTransition, rec.Status)
	}
	rec.Status = StatusFailed
	rec.ErrorMessage = message
	m.touch(rec)
	return nil
}

// SaveSection overwrites one section. Like the Postgres store, late writes
// after a terminal status are accepted.
func (m *MemoryStore) SaveSection(_ context.Context, id uuid.UUID, section Section, content any) error {
	raw, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("failed to marshal section %s: %w", section, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return ErrNotFound
	}
	if err := applySection(rec, section, raw); err != nil {
		return err
	}
	m.touch(rec)
	return nil
}

// touch bumps UpdatedAt, keeping it monotonically non-decreasing even when
// the clock resolution makes consecutive writes share a timestamp.
func (m *MemoryStore) touch(rec *Record) {
	now := time.Now()
	if now.After(rec.UpdatedAt) {
		rec.UpdatedAt = now
	}
}

// copyRecord returns a deep copy so callers cannot mutate stored state.
// JSON round-trip keeps the copy logic in lockstep with the section types.
func copyRecord(rec *Record) *Record {
	raw, err := json.Marshal(rec)
	if err != nil {
		// Record types are plain data; marshal cannot fail in practice.
		panic(fmt.Sprintf("report: failed to copy record: %v", err))
	}
	var out Record
	if err := json.Unmarshal(raw, &out); err != nil {
		panic(fmt.Sprintf("report: failed to copy record: %v", err))
	}
	return &out
}
