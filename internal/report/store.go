package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrNotFound indicates no record exists for the given id.
var ErrNotFound = errors.New("report not found")

// ErrInvalidTransition indicates a status write that would move the record
// backward (e.g. completed -> processing). Callers that re-run a pipeline
// against an already-terminal record treat this as a benign signal, not a
// failure: section writes are still accepted after a terminal status.
var ErrInvalidTransition = errors.New("invalid status transition")

// Store persists report records. Section writes are partial updates: each
// write touches only its own section key, so concurrent sub-scans never
// clobber one another. Every write bumps the record's UpdatedAt.
type Store interface {
	// Create inserts a new pending record for the given URL.
	Create(ctx context.Context, url string) (*Record, error)
	// Get returns the record, or ErrNotFound.
	Get(ctx context.Context, id uuid.UUID) (*Record, error)
	// SetStatus applies a forward-only status transition, or returns
	// ErrInvalidTransition when the current status is not a legal predecessor.
	SetStatus(ctx context.Context, id uuid.UUID, status Status) error
	// Fail transitions the record to failed and sets the terminal error
	// message. Subject to the same transition guard as SetStatus.
	Fail(ctx context.Context, id uuid.UUID, message string) error
	// SaveSection writes one section of the record, overwriting any previous
	// value for that section only.
	SaveSection(ctx context.Context, id uuid.UUID, section Section, content any) error
}

// legalFrom lists the statuses a record may hold immediately before moving
// to the keyed status. Pending may fail directly (intake-time configuration
// errors never reach processing).
var legalFrom = map[Status][]Status{
	StatusProcessing: {StatusPending},
	StatusCompleted:  {StatusProcessing},
	StatusFailed:     {StatusPending, StatusProcessing},
}

func transitionAllowed(from, to Status) bool {
	for _, s := range legalFrom[to] {
		if s == from {
			return true
		}
	}
	return false
}

// applySection unmarshals raw section JSON into the matching typed field of
// the record. Shared by the Postgres and memory stores so both read paths
// produce identical records.
func applySection(rec *Record, section Section, raw []byte) error {
	var err error
	switch section {
	case SectionCapture:
		var v CaptureResult
		if err = json.Unmarshal(raw, &v); err == nil {
			rec.Capture = &v
		}
	case SectionAudit:
		var v AuditResult
		if err = json.Unmarshal(raw, &v); err == nil {
			rec.Audit = &v
		}
	case SectionTech:
		var v TechResult
		if err = json.Unmarshal(raw, &v); err == nil {
			rec.Tech = &v
		}
	case SectionVision:
		var v VisionResult
		if err = json.Unmarshal(raw, &v); err == nil {
			rec.Vision = &v
		}
	case SectionExplanations:
		var v Explanations
		if err = json.Unmarshal(raw, &v); err == nil {
			rec.Explanations = &v
		}
	case SectionSummary:
		var v Summary
		if err = json.Unmarshal(raw, &v); err == nil {
			rec.Summary = &v
		}
	default:
		return fmt.Errorf("unknown section %q", section)
	}
	if err != nil {
		return fmt.Errorf("failed to decode section %s: %w", section, err)
	}
	return nil
}
