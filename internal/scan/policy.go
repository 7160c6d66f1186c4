package scan

import (
	"fmt"
	"strings"

	"github.com/jonathan/site-auditor/internal/report"
)

// Outcome collects the in-memory sub-scan results the policy judges. Only
// sections the pipeline actually ran are meaningful; the zero value of an
// unexecuted section counts as failed.
type Outcome struct {
	Capture report.CaptureResult
	Audit   report.AuditResult
	Tech    report.TechResult
	Vision  report.VisionResult
}

// Policy decides whether a scan with partial failures still counts as
// completed. A scan completes when every required section succeeded;
// non-required section failures are recorded in the report but never fail
// the scan.
type Policy struct {
	Required []report.Section
}

// DefaultPolicy requires the capture and audit sections, matching the
// default REQUIRED_SECTIONS configuration.
func DefaultPolicy() Policy {
	return Policy{Required: []report.Section{report.SectionCapture, report.SectionAudit}}
}

// PolicyFromSections builds a policy from configured section names, silently
// ignoring names that are not policy-relevant sections.
func PolicyFromSections(names []string) Policy {
	var required []report.Section
	for _, name := range names {
		switch s := report.Section(strings.TrimSpace(name)); s {
		case report.SectionCapture, report.SectionAudit, report.SectionTech, report.SectionVision:
			required = append(required, s)
		}
	}
	if len(required) == 0 {
		return DefaultPolicy()
	}
	return Policy{Required: required}
}

// Evaluate returns true when every required section succeeded. On failure it
// also returns a terminal error message naming the sections that sank the
// scan.
func (p Policy) Evaluate(out Outcome) (bool, string) {
	var failed []string
	for _, section := range p.Required {
		if !out.succeeded(section) {
			failed = append(failed, string(section))
		}
	}
	if len(failed) == 0 {
		return true, ""
	}
	return false, fmt.Sprintf("required sections failed: %s", strings.Join(failed, ", "))
}

// succeeded reports whether one section's result counts as a success. A
// skipped section is not a success: requiring a section that AI-disabled
// mode skips fails the scan, which is the configured intent.
func (out Outcome) succeeded(section report.Section) bool {
	switch section {
	case report.SectionCapture:
		return out.Capture.Success
	case report.SectionAudit:
		return out.Audit.Success
	case report.SectionTech:
		return out.Tech.Status == report.SectionCompleted
	case report.SectionVision:
		return out.Vision.Status == report.SectionCompleted
	}
	return false
}
