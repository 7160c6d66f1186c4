// Package explain provides the LLM explanation fan-out: one plain-language
// explanation per audit issue, generated concurrently with a settle-all join.
package explain

import (
	"context"
	"strings"
	"sync"

	"github.com/jonathan/site-auditor/internal/llm"
	"github.com/jonathan/site-auditor/internal/report"
)

// maxConcurrent bounds simultaneous LLM calls within one category batch.
const maxConcurrent = 4

// FallbackExplanation substitutes for blank model replies. A blank reply is
// a soft success ("the model had nothing useful to say"), distinct from a
// failed call.
const FallbackExplanation = "No additional explanation is available for this finding; refer to the audit title and description."

// ExplainAll generates one explanation per issue. The output is always
// length-preserving: a failed LLM call yields an entry with SectionError and
// the underlying error message, never a dropped item. All calls in the batch
// run concurrently and the join waits for every one to settle.
func ExplainAll(ctx context.Context, client llm.Client, issues []report.AuditIssue, category Category) []report.ExplainedIssue {
	out := make([]report.ExplainedIssue, len(issues))
	if len(issues) == 0 {
		return out
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, maxConcurrent)

	for i, issue := range issues {
		wg.Add(1)
		go func(i int, issue report.AuditIssue) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			out[i] = explainOne(ctx, client, issue, category)
		}(i, issue)
	}
	wg.Wait()

	return out
}

// explainOne runs a single LLM call and folds its outcome into an
// ExplainedIssue.
func explainOne(ctx context.Context, client llm.Client, issue report.AuditIssue, category Category) report.ExplainedIssue {
	explained := report.ExplainedIssue{IssueID: issue.ID, Title: issue.Title}

	text, err := client.GenerateText(ctx, buildPrompt(category, issue))
	if err != nil {
		explained.Status = report.SectionError
		explained.Error = err.Error()
		return explained
	}

	text = strings.TrimSpace(text)
	if text == "" {
		text = FallbackExplanation
	}
	explained.Status = report.SectionCompleted
	explained.Explanation = text
	return explained
}

// SkippedAll returns a length-preserving batch of skipped entries, used when
// no LLM is configured and the pipeline runs in AI-disabled mode.
func SkippedAll(issues []report.AuditIssue, reason string) []report.ExplainedIssue {
	out := make([]report.ExplainedIssue, len(issues))
	for i, issue := range issues {
		out[i] = report.ExplainedIssue{
			IssueID:     issue.ID,
			Title:       issue.Title,
			Status:      report.SectionSkipped,
			Explanation: reason,
		}
	}
	return out
}
