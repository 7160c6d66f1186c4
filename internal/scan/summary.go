package scan

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonathan/site-auditor/internal/llm"
	"github.com/jonathan/site-auditor/internal/report"
)

const summaryInstruction = `Write a short executive summary (3-5 sentences) of this website audit for a non-technical site owner. Lead with the overall impression, mention the most impactful problems, and end with the single highest-priority fix. Plain text only, no markdown, no bullet lists.`

// summarize synthesizes the final free-text summary from whatever sections
// survived. It never returns an error: a failed LLM call is folded into the
// Summary with SectionError.
func summarize(ctx context.Context, client llm.Client, targetURL string, out Outcome) report.Summary {
	text, err := client.GenerateText(ctx, buildSummaryPrompt(targetURL, out))
	if err != nil {
		return report.Summary{Status: report.SectionError, Error: fmt.Sprintf("summary generation failed: %v", err)}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return report.Summary{Status: report.SectionError, Error: "summary generation returned an empty reply"}
	}
	return report.Summary{Status: report.SectionCompleted, Text: text}
}

// skippedSummary is the AI-disabled placeholder.
func skippedSummary(reason string) report.Summary {
	return report.Summary{Status: report.SectionSkipped, Reason: reason}
}

// buildSummaryPrompt digests the surviving sections into a compact textual
// briefing for the model. Failed sections are named so the summary can
// acknowledge gaps instead of inventing results.
func buildSummaryPrompt(targetURL string, out Outcome) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Audit results for %s:\n\n", targetURL)

	if out.Audit.Success {
		b.WriteString("Scores (0-100):\n")
		writeScore(&b, "Performance", out.Audit.Scores.Performance)
		writeScore(&b, "Accessibility", out.Audit.Scores.Accessibility)
		writeScore(&b, "SEO", out.Audit.Scores.SEO)
		writeScore(&b, "Best practices", out.Audit.Scores.BestPractices)

		writeIssues(&b, "Top performance opportunities", out.Audit.Opportunities)
		writeIssues(&b, "Accessibility issues", out.Audit.Accessibility)
		writeIssues(&b, "SEO issues", out.Audit.SEO)
	} else {
		fmt.Fprintf(&b, "The performance/accessibility audit failed: %s\n", out.Audit.Error)
	}

	if out.Tech.Status == report.SectionCompleted && len(out.Tech.Technologies) > 0 {
		names := make([]string, 0, len(out.Tech.Technologies))
		for _, tech := range out.Tech.Technologies {
			names = append(names, tech.Name)
		}
		fmt.Fprintf(&b, "\nDetected technologies: %s\n", strings.Join(names, ", "))
	}

	if out.Vision.Status == report.SectionCompleted {
		if out.Vision.Introduction != "" {
			fmt.Fprintf(&b, "\nVisual review: %s\n", out.Vision.Introduction)
		}
		for i, s := range out.Vision.Suggestions {
			if i >= 3 {
				break
			}
			fmt.Fprintf(&b, "- %s\n", s.Suggestion)
		}
	}

	if !out.Capture.Success {
		b.WriteString("\nScreenshot capture failed, so no visual review was possible.\n")
	}

	b.WriteString("\n" + summaryInstruction)
	return b.String()
}

func writeScore(b *strings.Builder, label string, score *int) {
	if score == nil {
		return
	}
	fmt.Fprintf(b, "- %s: %d\n", label, *score)
}

func writeIssues(b *strings.Builder, label string, issues []report.AuditIssue) {
	if len(issues) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s:\n", label)
	for _, issue := range issues {
		fmt.Fprintf(b, "- %s\n", issue.Title)
	}
}
