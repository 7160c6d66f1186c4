// Package vision provides the LLM vision adapter: a UX critique generated
// from one captured screenshot.
package vision

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"github.com/jonathan/site-auditor/internal/blob"
	"github.com/jonathan/site-auditor/internal/capture"
	"github.com/jonathan/site-auditor/internal/llm"
	"github.com/jonathan/site-auditor/internal/report"
)

// MaxSuggestions caps the suggestion list persisted to the report.
const MaxSuggestions = 10

// responseSchema validates the model's reply before it is trusted. A reply
// that parses but misses the suggestions array is a hard section error, not
// a partial success.
const responseSchema = `{
	"type": "object",
	"required": ["suggestions"],
	"properties": {
		"introduction": {"type": "string"},
		"suggestions": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["suggestion"],
				"properties": {
					"suggestion": {"type": "string"},
					"reasoning": {"type": "string"},
					"context": {"type": "string"}
				}
			}
		}
	}
}`

const visionPrompt = `You are a senior UX reviewer. Analyze the attached website screenshot (%s viewport) of %s.

Identify concrete, actionable UX improvements: layout, visual hierarchy, readability, calls to action, trust signals, and mobile-friendliness where visible.

Respond with JSON only, in this shape:
{
  "introduction": "one-paragraph overall impression",
  "suggestions": [
    {"suggestion": "what to change", "reasoning": "why it matters", "context": "where on the page"}
  ]
}`

// visionResponse mirrors the expected model output.
type visionResponse struct {
	Introduction string                    `json:"introduction"`
	Suggestions  []report.VisionSuggestion `json:"suggestions"`
}

// Analyzer generates the vision critique section.
type Analyzer struct {
	blobs  blob.Store
	schema *gojsonschema.Schema
}

// NewAnalyzer creates an analyzer reading screenshots from the blob store.
func NewAnalyzer(blobs blob.Store) (*Analyzer, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(responseSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile vision schema: %w", err)
	}
	return &Analyzer{blobs: blobs, schema: schema}, nil
}

// Analyze critiques the preferred screenshot from a capture result. It never
// returns an error: every failure mode is folded into the VisionResult.
func (a *Analyzer) Analyze(ctx context.Context, client llm.Client, captureResult report.CaptureResult, targetURL string) report.VisionResult {
	viewport, ref, ok := capture.PreferredScreenshot(captureResult.Screenshots)
	if !ok {
		return report.VisionResult{Status: report.SectionError, Error: "no screenshot available for analysis"}
	}

	png, err := a.blobs.Get(ref)
	if err != nil {
		return report.VisionResult{Status: report.SectionError, Error: fmt.Sprintf("failed to load screenshot: %v", err)}
	}

	prompt := fmt.Sprintf(visionPrompt, viewport, targetURL)
	raw, err := client.GenerateVision(ctx, prompt, png)
	if err != nil {
		return report.VisionResult{Status: report.SectionError, Error: fmt.Sprintf("vision generation failed: %v", err)}
	}

	result, err := a.parseResponse(raw)
	if err != nil {
		return report.VisionResult{Status: report.SectionError, Error: err.Error()}
	}
	result.Viewport = viewport
	return result
}

// parseResponse validates and decodes the model output, truncating the
// suggestion list to MaxSuggestions.
func (a *Analyzer) parseResponse(raw string) (report.VisionResult, error) {
	cleaned := llm.CleanJSONBlock(raw)

	validation, err := a.schema.Validate(gojsonschema.NewStringLoader(cleaned))
	if err != nil {
		return report.VisionResult{}, fmt.Errorf("vision response is not valid JSON: %v", err)
	}
	if !validation.Valid() {
		return report.VisionResult{}, fmt.Errorf("vision response failed schema validation: %s", validation.Errors()[0])
	}

	var parsed visionResponse
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return report.VisionResult{}, fmt.Errorf("failed to decode vision response: %v", err)
	}

	if len(parsed.Suggestions) > MaxSuggestions {
		parsed.Suggestions = parsed.Suggestions[:MaxSuggestions]
	}

	return report.VisionResult{
		Status:       report.SectionCompleted,
		Introduction: parsed.Introduction,
		Suggestions:  parsed.Suggestions,
	}, nil
}
