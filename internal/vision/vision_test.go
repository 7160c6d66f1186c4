package vision

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/site-auditor/internal/report"
)

type memBlobs struct {
	blobs map[string][]byte
}

func (m *memBlobs) Put(data []byte) (string, error) { return "", errors.New("not implemented") }

func (m *memBlobs) Get(ref string) ([]byte, error) {
	data, ok := m.blobs[ref]
	if !ok {
		return nil, errors.New("blob not found")
	}
	return data, nil
}

// fakeVisionClient implements llm.Client with a canned vision reply.
type fakeVisionClient struct {
	reply      string
	err        error
	lastPrompt string
}

func (f *fakeVisionClient) GenerateText(context.Context, string) (string, error) {
	return "", errors.New("not implemented")
}

func (f *fakeVisionClient) GenerateJSON(context.Context, string) (string, error) {
	return "", errors.New("not implemented")
}

func (f *fakeVisionClient) GenerateVision(_ context.Context, prompt string, _ []byte) (string, error) {
	f.lastPrompt = prompt
	return f.reply, f.err
}

func (f *fakeVisionClient) Close() error { return nil }

func newTestAnalyzer(t *testing.T) *Analyzer {
	t.Helper()
	a, err := NewAnalyzer(&memBlobs{blobs: map[string][]byte{"ref-desktop": []byte("png")}})
	require.NoError(t, err)
	return a
}

func captureWith(viewports ...string) report.CaptureResult {
	shots := map[string]string{}
	for _, vp := range viewports {
		shots[vp] = "ref-" + vp
	}
	return report.CaptureResult{Success: true, Screenshots: shots}
}

func TestAnalyzeSuccess(t *testing.T) {
	a := newTestAnalyzer(t)
	client := &fakeVisionClient{reply: `{
		"introduction": "Clean layout overall.",
		"suggestions": [
			{"suggestion": "Increase CTA contrast", "reasoning": "Primary button blends in", "context": "hero section"}
		]
	}`}

	result := a.Analyze(context.Background(), client, captureWith("desktop"), "https://example.com")

	assert.Equal(t, report.SectionCompleted, result.Status)
	assert.Equal(t, "desktop", result.Viewport)
	assert.Equal(t, "Clean layout overall.", result.Introduction)
	require.Len(t, result.Suggestions, 1)
	assert.Equal(t, "Increase CTA contrast", result.Suggestions[0].Suggestion)
	assert.Contains(t, client.lastPrompt, "https://example.com")
	assert.Contains(t, client.lastPrompt, "desktop")
}

func TestAnalyzePrefersDesktopViewport(t *testing.T) {
	blobs := &memBlobs{blobs: map[string][]byte{
		"ref-desktop": []byte("d"), "ref-tablet": []byte("t"), "ref-mobile": []byte("m"),
	}}
	a, err := NewAnalyzer(blobs)
	require.NoError(t, err)

	client := &fakeVisionClient{reply: `{"suggestions": []}`}
	result := a.Analyze(context.Background(), client, captureWith("mobile", "tablet", "desktop"), "https://example.com")

	assert.Equal(t, "desktop", result.Viewport)
}

func TestAnalyzeTruncatesSuggestions(t *testing.T) {
	a := newTestAnalyzer(t)

	suggestions := ""
	for i := 0; i < 15; i++ {
		if i > 0 {
			suggestions += ","
		}
		suggestions += fmt.Sprintf(`{"suggestion": "item %d"}`, i)
	}
	client := &fakeVisionClient{reply: `{"suggestions": [` + suggestions + `]}`}

	result := a.Analyze(context.Background(), client, captureWith("desktop"), "https://example.com")

	assert.Equal(t, report.SectionCompleted, result.Status)
	assert.Len(t, result.Suggestions, MaxSuggestions)
}

func TestAnalyzeStripsMarkdownFences(t *testing.T) {
	a := newTestAnalyzer(t)
	client := &fakeVisionClient{reply: "```json\n{\"suggestions\": [{\"suggestion\": \"x\"}]}\n```"}

	result := a.Analyze(context.Background(), client, captureWith("desktop"), "https://example.com")

	assert.Equal(t, report.SectionCompleted, result.Status)
	require.Len(t, result.Suggestions, 1)
}

func TestAnalyzeMissingSuggestionsIsHardError(t *testing.T) {
	a := newTestAnalyzer(t)
	client := &fakeVisionClient{reply: `{"introduction": "looks fine"}`}

	result := a.Analyze(context.Background(), client, captureWith("desktop"), "https://example.com")

	assert.Equal(t, report.SectionError, result.Status)
	assert.Contains(t, result.Error, "schema validation")
}

func TestAnalyzeUnparsableReplyIsHardError(t *testing.T) {
	a := newTestAnalyzer(t)
	client := &fakeVisionClient{reply: "I think the page looks great!"}

	result := a.Analyze(context.Background(), client, captureWith("desktop"), "https://example.com")

	assert.Equal(t, report.SectionError, result.Status)
}

func TestAnalyzeGenerationFailure(t *testing.T) {
	a := newTestAnalyzer(t)
	client := &fakeVisionClient{err: errors.New("model overloaded")}

	result := a.Analyze(context.Background(), client, captureWith("desktop"), "https://example.com")

	assert.Equal(t, report.SectionError, result.Status)
	assert.Contains(t, result.Error, "model overloaded")
}

func TestAnalyzeNoScreenshot(t *testing.T) {
	a := newTestAnalyzer(t)
	client := &fakeVisionClient{reply: `{"suggestions": []}`}

	result := a.Analyze(context.Background(), client, report.CaptureResult{}, "https://example.com")

	assert.Equal(t, report.SectionError, result.Status)
	assert.Contains(t, result.Error, "no screenshot")
}

func TestAnalyzeMissingBlob(t *testing.T) {
	a, err := NewAnalyzer(&memBlobs{blobs: map[string][]byte{}})
	require.NoError(t, err)
	client := &fakeVisionClient{reply: `{"suggestions": []}`}

	result := a.Analyze(context.Background(), client, captureWith("desktop"), "https://example.com")

	assert.Equal(t, report.SectionError, result.Status)
	assert.Contains(t, result.Error, "failed to load screenshot")
}
