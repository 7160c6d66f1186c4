package explain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/site-auditor/internal/report"
)

// scriptedClient implements llm.Client, answering by matching prompt
// substrings against scripted outcomes.
type scriptedClient struct {
	mu      sync.Mutex
	replies map[string]string // prompt substring -> reply
	errs    map[string]error  // prompt substring -> error
	calls   int
}

func (c *scriptedClient) GenerateText(_ context.Context, prompt string) (string, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()

	for substr, err := range c.errs {
		if strings.Contains(prompt, substr) {
			return "", err
		}
	}
	for substr, reply := range c.replies {
		if strings.Contains(prompt, substr) {
			return reply, nil
		}
	}
	return "Generic explanation.", nil
}

func (c *scriptedClient) GenerateJSON(context.Context, string) (string, error) {
	return "", errors.New("not implemented")
}

func (c *scriptedClient) GenerateVision(context.Context, string, []byte) (string, error) {
	return "", errors.New("not implemented")
}

func (c *scriptedClient) Close() error { return nil }

func issues(titles ...string) []report.AuditIssue {
	out := make([]report.AuditIssue, len(titles))
	for i, title := range titles {
		out[i] = report.AuditIssue{ID: fmt.Sprintf("issue-%d", i), Title: title}
	}
	return out
}

func TestExplainAllLengthPreserved(t *testing.T) {
	client := &scriptedClient{
		replies: map[string]string{"Image alt": "Add alt text to images."},
		errs:    map[string]error{"Color contrast": errors.New("rate limited")},
	}

	out := ExplainAll(context.Background(), client, issues("Image alt", "Color contrast"), CategoryAccessibility)

	// One entry per issue, failures included.
	require.Len(t, out, 2)
	assert.Equal(t, report.SectionCompleted, out[0].Status)
	assert.Equal(t, "Add alt text to images.", out[0].Explanation)
	assert.Equal(t, report.SectionError, out[1].Status)
	assert.Equal(t, "rate limited", out[1].Error)
	assert.Equal(t, "issue-1", out[1].IssueID)
}

func TestExplainAllAllFailuresStillLengthPreserving(t *testing.T) {
	client := &scriptedClient{errs: map[string]error{"": errors.New("provider down")}}

	batch := issues("a", "b", "c", "d", "e", "f", "g")
	out := ExplainAll(context.Background(), client, batch, CategorySEO)

	require.Len(t, out, len(batch))
	for _, entry := range out {
		assert.Equal(t, report.SectionError, entry.Status)
		assert.Equal(t, "provider down", entry.Error)
	}
}

func TestExplainAllBlankReplyGetsFallback(t *testing.T) {
	client := &scriptedClient{replies: map[string]string{"Silent": "   \n"}}

	out := ExplainAll(context.Background(), client, issues("Silent issue"), CategoryBestPractices)

	require.Len(t, out, 1)
	// Blank is soft success, not an error.
	assert.Equal(t, report.SectionCompleted, out[0].Status)
	assert.Equal(t, FallbackExplanation, out[0].Explanation)
	assert.Empty(t, out[0].Error)
}

func TestExplainAllEmptyBatch(t *testing.T) {
	client := &scriptedClient{}

	out := ExplainAll(context.Background(), client, nil, CategoryAccessibility)

	assert.Empty(t, out)
	assert.Equal(t, 0, client.calls)
}

func TestExplainAllCallsOncePerIssue(t *testing.T) {
	client := &scriptedClient{}

	batch := issues("a", "b", "c", "d", "e", "f", "g", "h", "i", "j")
	out := ExplainAll(context.Background(), client, batch, CategoryOpportunities)

	assert.Len(t, out, 10)
	assert.Equal(t, 10, client.calls)
}

func TestSkippedAll(t *testing.T) {
	out := SkippedAll(issues("a", "b"), "AI analysis disabled: missing_api_key")

	require.Len(t, out, 2)
	for _, entry := range out {
		assert.Equal(t, report.SectionSkipped, entry.Status)
		assert.Contains(t, entry.Explanation, "missing_api_key")
	}
}

func TestBuildPromptIncludesSavingsForPerformance(t *testing.T) {
	issue := report.AuditIssue{Title: "Reduce unused JavaScript", SavingsMs: 450}

	prompt := buildPrompt(CategoryOpportunities, issue)
	assert.Contains(t, prompt, "450ms")
	assert.Contains(t, prompt, "Reduce unused JavaScript")

	// Non-performance categories omit the savings line.
	prompt = buildPrompt(CategorySEO, issue)
	assert.NotContains(t, prompt, "450ms")
}

func TestFormatSavings(t *testing.T) {
	assert.Equal(t, "120ms", FormatSavings(120, 0))
	assert.Equal(t, "450ms", FormatSavings(450, 99999)) // ms takes precedence
	assert.Equal(t, "45.2KiB", FormatSavings(0, 46285))
	assert.Equal(t, "some resources", FormatSavings(0, 0))
}
