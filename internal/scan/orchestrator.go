// Package scan provides the high-level orchestration for one website scan:
// capture, audit, tech detection, and the LLM analyses, merged into a single
// progressively-populated report record.
package scan

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/site-auditor/internal/audit"
	"github.com/jonathan/site-auditor/internal/capture"
	"github.com/jonathan/site-auditor/internal/explain"
	"github.com/jonathan/site-auditor/internal/llm"
	"github.com/jonathan/site-auditor/internal/report"
	"github.com/jonathan/site-auditor/internal/techdetect"
)

// criticalFailureMessage is the only error text a panicking pipeline exposes
// on the record. Internals stay in the server log.
const criticalFailureMessage = "scan aborted by an internal error"

// Task identifies one scan to run against an existing pending record.
type Task struct {
	ReportID uuid.UUID
	URL      string
	Provider string // optional AI provider override
	Model    string // optional AI model override
}

// VisionAnalyzer generates the screenshot UX critique section.
type VisionAnalyzer interface {
	Analyze(ctx context.Context, client llm.Client, captureResult report.CaptureResult, targetURL string) report.VisionResult
}

// ClientFactory builds an LLM client from a resolution. Injectable so tests
// run without provider SDKs.
type ClientFactory func(ctx context.Context, res llm.Resolution) (llm.Client, error)

// Deps wires the orchestrator's collaborators.
type Deps struct {
	Store     report.Store
	Capturer  capture.Capturer
	Auditor   audit.Auditor
	Detector  techdetect.Detector
	Vision    VisionAnalyzer
	Resolver  *llm.Resolver
	NewClient ClientFactory // defaults to llm.NewClient
	Policy    Policy        // zero value means DefaultPolicy
}

// Orchestrator runs scans. It is safe for concurrent use.
type Orchestrator struct {
	store     report.Store
	capturer  capture.Capturer
	auditor   audit.Auditor
	detector  techdetect.Detector
	vision    VisionAnalyzer
	resolver  *llm.Resolver
	newClient ClientFactory
	policy    Policy
}

// New builds an orchestrator from its dependencies.
func New(deps Deps) *Orchestrator {
	if deps.NewClient == nil {
		deps.NewClient = llm.NewClient
	}
	if len(deps.Policy.Required) == 0 {
		deps.Policy = DefaultPolicy()
	}
	return &Orchestrator{
		store:     deps.Store,
		capturer:  deps.Capturer,
		auditor:   deps.Auditor,
		detector:  deps.Detector,
		vision:    deps.Vision,
		resolver:  deps.Resolver,
		newClient: deps.NewClient,
		policy:    deps.Policy,
	}
}

// Run executes the full pipeline for one task. Sub-scan failures are data:
// they are folded into the record and never returned. The returned error is
// reserved for infrastructure problems (missing record, store outages) that
// make retrying the task worthwhile.
func (o *Orchestrator) Run(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[SCAN %s] panic: %v", task.ReportID, r)
			if failErr := o.store.Fail(ctx, task.ReportID, criticalFailureMessage); failErr != nil && !errors.Is(failErr, report.ErrInvalidTransition) {
				log.Printf("[SCAN %s] failed to record critical failure: %v", task.ReportID, failErr)
			}
			err = fmt.Errorf("scan panicked: %v", r)
		}
	}()

	if err := o.store.SetStatus(ctx, task.ReportID, report.StatusProcessing); err != nil {
		if errors.Is(err, report.ErrInvalidTransition) {
			// Re-delivery of an already-run task. Sections are overwritten
			// below; the terminal status stays put.
			log.Printf("[SCAN %s] re-running scan for non-pending record", task.ReportID)
		} else {
			return fmt.Errorf("failed to mark report processing: %w", err)
		}
	}

	client, aiReason := o.resolveClient(ctx, task)
	if client != nil {
		defer client.Close()
	} else {
		log.Printf("[SCAN %s] %s", task.ReportID, aiReason)
	}

	var out Outcome

	log.Printf("[SCAN %s] capturing screenshots for %s", task.ReportID, task.URL)
	out.Capture = o.capturer.Capture(ctx, task.URL)
	o.saveSection(ctx, task.ReportID, report.SectionCapture, out.Capture)

	// Audit, tech detection, and vision are independent. All three settle
	// regardless of each other's outcome, each persisting as it lands.
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		out.Audit = o.auditor.Audit(ctx, task.URL)
		o.saveSection(ctx, task.ReportID, report.SectionAudit, out.Audit)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		out.Tech = o.detector.Detect(ctx, task.URL)
		o.saveSection(ctx, task.ReportID, report.SectionTech, out.Tech)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if client == nil {
			out.Vision = report.VisionResult{Status: report.SectionSkipped, Reason: aiReason}
		} else {
			out.Vision = o.vision.Analyze(ctx, client, out.Capture, task.URL)
		}
		o.saveSection(ctx, task.ReportID, report.SectionVision, out.Vision)
	}()

	wg.Wait()

	if explanations, ok := o.explainIssues(ctx, client, out.Audit, aiReason); ok {
		o.saveSection(ctx, task.ReportID, report.SectionExplanations, explanations)
	}

	var summary report.Summary
	if client == nil {
		summary = skippedSummary(aiReason)
	} else {
		summary = summarize(ctx, client, task.URL, out)
	}
	o.saveSection(ctx, task.ReportID, report.SectionSummary, summary)

	o.finalize(ctx, task.ReportID, out)
	return nil
}

// resolveClient resolves and constructs the LLM client for this task. A nil
// client with a reason string switches the pipeline into AI-disabled mode:
// vision, explanations, and summary are skipped, never failed.
func (o *Orchestrator) resolveClient(ctx context.Context, task Task) (llm.Client, string) {
	res, err := o.resolver.Resolve(task.Provider, task.Model)
	if err != nil {
		var uncfg *llm.UnconfiguredError
		if errors.As(err, &uncfg) {
			return nil, fmt.Sprintf("AI analysis disabled: %s", uncfg.Reason)
		}
		return nil, fmt.Sprintf("AI analysis disabled: %v", err)
	}
	client, err := o.newClient(ctx, res)
	if err != nil {
		return nil, fmt.Sprintf("AI analysis disabled: client setup failed: %v", err)
	}
	return client, ""
}

// explainIssues fans explanation generation out across the audit's issue
// categories. Categories run concurrently; within each, the fan-out settles
// every issue. Returns false when the audit produced nothing to explain.
func (o *Orchestrator) explainIssues(ctx context.Context, client llm.Client, auditResult report.AuditResult, aiReason string) (report.Explanations, bool) {
	if !auditResult.Success {
		return report.Explanations{}, false
	}

	batches := map[explain.Category][]report.AuditIssue{
		explain.CategoryOpportunities: auditResult.Opportunities,
		explain.CategoryDiagnostics:   auditResult.Diagnostics,
		explain.CategoryAccessibility: auditResult.Accessibility,
		explain.CategorySEO:           auditResult.SEO,
		explain.CategoryBestPractices: auditResult.BestPractices,
	}
	total := 0
	for _, issues := range batches {
		total += len(issues)
	}
	if total == 0 {
		return report.Explanations{}, false
	}

	categories := make(map[string][]report.ExplainedIssue, len(batches))

	if client == nil {
		for category, issues := range batches {
			if len(issues) == 0 {
				continue
			}
			categories[string(category)] = explain.SkippedAll(issues, aiReason)
		}
		return report.Explanations{Status: report.SectionSkipped, Categories: categories}, true
	}

	var mu sync.Mutex
	g, gCtx := errgroup.WithContext(ctx)
	for category, issues := range batches {
		if len(issues) == 0 {
			continue
		}
		g.Go(func() error {
			explained := explain.ExplainAll(gCtx, client, issues, category)
			mu.Lock()
			categories[string(category)] = explained
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // explanation failures are entries, never group errors

	return report.Explanations{Status: report.SectionCompleted, Categories: categories}, true
}

// finalize applies the completion policy and writes the terminal status.
func (o *Orchestrator) finalize(ctx context.Context, id uuid.UUID, out Outcome) {
	completed, failureMsg := o.policy.Evaluate(out)

	var err error
	if completed {
		err = o.store.SetStatus(ctx, id, report.StatusCompleted)
	} else {
		err = o.store.Fail(ctx, id, failureMsg)
	}
	switch {
	case err == nil:
		if completed {
			log.Printf("[SCAN %s] completed", id)
		} else {
			log.Printf("[SCAN %s] failed: %s", id, failureMsg)
		}
	case errors.Is(err, report.ErrInvalidTransition):
		// Re-run against a terminal record: sections were refreshed, status
		// stays where it was.
		log.Printf("[SCAN %s] terminal status unchanged on re-run", id)
	default:
		log.Printf("[SCAN %s] failed to write terminal status: %v", id, err)
	}
}

// saveSection persists one section, logging rather than propagating store
// errors so one flaky write never sinks the other sections.
func (o *Orchestrator) saveSection(ctx context.Context, id uuid.UUID, section report.Section, content any) {
	if err := o.store.SaveSection(ctx, id, section, content); err != nil {
		log.Printf("[SCAN %s] failed to save %s section: %v", id, section, err)
	}
}
