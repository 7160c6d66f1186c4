// Package observability provides formatted output utilities for the CLI
// scan mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/site-auditor/internal/report"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted console output for scan reports.
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintReport renders the full record, one box per populated section.
func (p *Printer) PrintReport(rec *report.Record) {
	if rec == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("URL:    %s\n", rec.URL))
	sb.WriteString(fmt.Sprintf("Status: %s", rec.Status))
	if rec.ErrorMessage != "" {
		sb.WriteString(fmt.Sprintf("\nError:  %s", rec.ErrorMessage))
	}
	p.printBox("SCAN REPORT", sb.String())

	p.PrintCapture(rec.Capture)
	p.PrintAudit(rec.Audit)
	p.PrintTech(rec.Tech)
	p.PrintVision(rec.Vision)
	p.PrintSummary(rec.Summary)
}

// PrintCapture outputs the per-viewport capture outcome.
func (p *Printer) PrintCapture(capture *report.CaptureResult) {
	if capture == nil {
		return
	}

	var sb strings.Builder
	for viewport, ref := range capture.Screenshots {
		sb.WriteString(fmt.Sprintf("%-8s %s\n", viewport, ref[:min(len(ref), 16)]+"..."))
	}
	for viewport, msg := range capture.Errors {
		sb.WriteString(fmt.Sprintf("%-8s FAILED: %s\n", viewport, msg))
	}
	if capture.Error != "" {
		sb.WriteString(capture.Error + "\n")
	}

	p.printBox("SCREENSHOTS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintAudit outputs category scores and the top findings.
func (p *Printer) PrintAudit(audit *report.AuditResult) {
	if audit == nil {
		return
	}

	var sb strings.Builder
	if !audit.Success {
		sb.WriteString(fmt.Sprintf("Audit failed: %s", audit.Error))
		p.printBox("AUDIT", sb.String())
		return
	}

	writeScoreLine(&sb, "Performance", audit.Scores.Performance)
	writeScoreLine(&sb, "Accessibility", audit.Scores.Accessibility)
	writeScoreLine(&sb, "SEO", audit.Scores.SEO)
	writeScoreLine(&sb, "Best Practices", audit.Scores.BestPractices)

	if len(audit.Opportunities) > 0 {
		sb.WriteString("\nTop opportunities:\n")
		count := min(len(audit.Opportunities), maxItemsToShow)
		for i := 0; i < count; i++ {
			opp := audit.Opportunities[i]
			sb.WriteString(fmt.Sprintf("  • %s", opp.Title))
			if opp.SavingsMs > 0 {
				sb.WriteString(fmt.Sprintf(" (~%.0fms)", opp.SavingsMs))
			}
			sb.WriteString("\n")
		}
	}

	if len(audit.Accessibility) > 0 {
		sb.WriteString("\nAccessibility issues:\n")
		count := min(len(audit.Accessibility), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  • %s\n", audit.Accessibility[i].Title))
		}
		if len(audit.Accessibility) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(audit.Accessibility)-maxItemsToShow))
		}
	}

	p.printBox("AUDIT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintTech outputs the detected technologies.
func (p *Printer) PrintTech(tech *report.TechResult) {
	if tech == nil {
		return
	}

	var sb strings.Builder
	switch {
	case tech.Status == report.SectionError:
		sb.WriteString(fmt.Sprintf("Detection failed: %s", tech.Error))
	case len(tech.Technologies) == 0:
		sb.WriteString("Nothing detected")
	default:
		for _, t := range tech.Technologies {
			sb.WriteString(fmt.Sprintf("  • %s", t.Name))
			if t.Version != "" {
				sb.WriteString(fmt.Sprintf(" %s", t.Version))
			}
			if t.Category != "" {
				sb.WriteString(fmt.Sprintf(" (%s)", t.Category))
			}
			sb.WriteString("\n")
		}
	}

	p.printBox("TECHNOLOGIES", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintVision outputs the UX critique.
func (p *Printer) PrintVision(vision *report.VisionResult) {
	if vision == nil {
		return
	}

	var sb strings.Builder
	switch vision.Status {
	case report.SectionSkipped:
		sb.WriteString("Skipped: " + vision.Reason)
	case report.SectionError:
		sb.WriteString("Failed: " + vision.Error)
	default:
		if vision.Introduction != "" {
			sb.WriteString(vision.Introduction + "\n\n")
		}
		count := min(len(vision.Suggestions), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  • %s\n", vision.Suggestions[i].Suggestion))
		}
		if len(vision.Suggestions) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(vision.Suggestions)-maxItemsToShow))
		}
	}

	p.printBox("UX REVIEW", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintSummary outputs the final synthesis.
func (p *Printer) PrintSummary(summary *report.Summary) {
	if summary == nil {
		return
	}

	var sb strings.Builder
	switch summary.Status {
	case report.SectionSkipped:
		sb.WriteString("Skipped: " + summary.Reason)
	case report.SectionError:
		sb.WriteString("Failed: " + summary.Error)
	default:
		sb.WriteString(summary.Text)
	}

	p.printBox("SUMMARY", sb.String())
}

func writeScoreLine(sb *strings.Builder, label string, score *int) {
	if score == nil {
		return
	}
	sb.WriteString(fmt.Sprintf("%-15s %3d\n", label+":", *score))
}
