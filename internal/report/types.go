// Package report defines the per-scan report record, its status state machine,
// and the stores that persist it.
package report

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a report record.
type Status string

// Report lifecycle states. Transitions only move forward:
// pending -> processing -> {completed | failed}.
const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether s is a terminal status.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// SectionStatus is the outcome of one sub-scan section. Absence of a section
// means "not yet run"; a present section with SectionError means "ran and
// failed" — the two are never conflated.
type SectionStatus string

// Section outcomes.
const (
	SectionCompleted SectionStatus = "completed"
	SectionError     SectionStatus = "error"
	SectionSkipped   SectionStatus = "skipped"
)

// Section names a report sub-result. The orchestrator persists each section
// independently so concurrent sub-scans never clobber each other.
type Section string

// Report sections.
const (
	SectionCapture      Section = "capture"
	SectionAudit        Section = "audit"
	SectionTech         Section = "tech"
	SectionVision       Section = "vision"
	SectionExplanations Section = "explanations"
	SectionSummary      Section = "summary"
)

// CaptureResult holds the outcome of the screenshot capture sub-scan.
// Success is true iff at least one viewport landed. Failed viewports keep
// their error message in Errors but are absent from Screenshots.
type CaptureResult struct {
	Success     bool              `json:"success"`
	Screenshots map[string]string `json:"screenshots,omitempty"` // viewport -> blob reference
	Errors      map[string]string `json:"errors,omitempty"`      // viewport -> failure reason
	Error       string            `json:"error,omitempty"`
}

// CategoryScores holds rounded 0-100 Lighthouse category scores. A nil score
// means the engine did not report that category.
type CategoryScores struct {
	Performance   *int `json:"performance,omitempty"`
	Accessibility *int `json:"accessibility,omitempty"`
	SEO           *int `json:"seo,omitempty"`
	BestPractices *int `json:"best_practices,omitempty"`
}

// AuditIssue is one actionable finding from the audit engine.
type AuditIssue struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description,omitempty"`
	Score        *float64 `json:"score,omitempty"` // engine-native 0-1 scale
	DisplayValue string   `json:"display_value,omitempty"`
	SavingsMs    float64  `json:"savings_ms,omitempty"`
	SavingsBytes float64  `json:"savings_bytes,omitempty"`
}

// AuditResult holds the outcome of the performance/accessibility audit.
type AuditResult struct {
	Success       bool           `json:"success"`
	Error         string         `json:"error,omitempty"`
	Scores        CategoryScores `json:"scores"`
	Opportunities []AuditIssue   `json:"opportunities,omitempty"`  // top savings, impact descending
	Diagnostics   []AuditIssue   `json:"diagnostics,omitempty"`    // non-perfect performance audits
	Accessibility []AuditIssue   `json:"accessibility,omitempty"`  // worst first
	SEO           []AuditIssue   `json:"seo,omitempty"`            // worst first
	BestPractices []AuditIssue   `json:"best_practices,omitempty"` // worst first
}

// Technology is one detected technology on the target site.
type Technology struct {
	Name       string `json:"name"`
	Version    string `json:"version,omitempty"`
	Category   string `json:"category,omitempty"`
	Confidence int    `json:"confidence,omitempty"`
	DetectedBy string `json:"detected_by,omitempty"` // headers, html, cookies, lookup
}

// TechResult holds the outcome of technology fingerprinting. An empty
// Technologies list with SectionCompleted means nothing was detected.
type TechResult struct {
	Status       SectionStatus `json:"status"`
	Error        string        `json:"error,omitempty"`
	Technologies []Technology  `json:"technologies,omitempty"`
}

// VisionSuggestion is one UX improvement proposed by the vision model.
type VisionSuggestion struct {
	Suggestion string `json:"suggestion"`
	Reasoning  string `json:"reasoning,omitempty"`
	Context    string `json:"context,omitempty"`
}

// VisionResult holds the outcome of the vision-based UX critique.
type VisionResult struct {
	Status       SectionStatus      `json:"status"`
	Error        string             `json:"error,omitempty"`
	Reason       string             `json:"reason,omitempty"`   // set when skipped
	Viewport     string             `json:"viewport,omitempty"` // which screenshot was analyzed
	Introduction string             `json:"introduction,omitempty"`
	Suggestions  []VisionSuggestion `json:"suggestions,omitempty"`
}

// ExplainedIssue pairs one audit issue with its generated explanation.
// A failed LLM call keeps its slot with SectionError so the per-category
// list always matches the audit issue list in length.
type ExplainedIssue struct {
	IssueID     string        `json:"issue_id"`
	Title       string        `json:"title"`
	Explanation string        `json:"explanation,omitempty"`
	Status      SectionStatus `json:"status"`
	Error       string        `json:"error,omitempty"`
}

// Explanations holds per-category explained issue lists, parallel to the
// audit result's issue lists.
type Explanations struct {
	Status     SectionStatus               `json:"status"`
	Categories map[string][]ExplainedIssue `json:"categories,omitempty"`
}

// Summary is the final free-text synthesis of the whole report.
type Summary struct {
	Status SectionStatus `json:"status"`
	Error  string        `json:"error,omitempty"`
	Reason string        `json:"reason,omitempty"` // set when skipped
	Text   string        `json:"text,omitempty"`
}

// Record is the single persisted document tracking one scan. Sections are
// written once each by the pipeline (overwritten on re-runs, never appended).
type Record struct {
	ID           uuid.UUID `json:"id"`
	URL          string    `json:"url"`
	Status       Status    `json:"status"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	Capture      *CaptureResult `json:"capture,omitempty"`
	Audit        *AuditResult   `json:"audit,omitempty"`
	Tech         *TechResult    `json:"tech,omitempty"`
	Vision       *VisionResult  `json:"vision,omitempty"`
	Explanations *Explanations  `json:"explanations,omitempty"`
	Summary      *Summary       `json:"summary,omitempty"`
}
