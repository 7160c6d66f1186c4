package audit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleLighthouse = `{
  "lighthouseResult": {
    "categories": {
      "performance": {
        "score": 0.835,
        "auditRefs": [
          {"id": "render-blocking-resources"},
          {"id": "unused-javascript"},
          {"id": "uses-responsive-images"},
          {"id": "largest-contentful-paint"},
          {"id": "total-blocking-time"},
          {"id": "cumulative-layout-shift"},
          {"id": "server-response-time"}
        ]
      },
      "accessibility": {
        "score": 0.62,
        "auditRefs": [
          {"id": "image-alt"},
          {"id": "color-contrast"},
          {"id": "html-has-lang"},
          {"id": "aria-hidden-focus"}
        ]
      },
      "seo": {
        "score": 1.0,
        "auditRefs": [{"id": "meta-description"}, {"id": "document-title"}]
      },
      "best-practices": {
        "score": 0.96,
        "auditRefs": [{"id": "errors-in-console"}, {"id": "uses-https"}]
      }
    },
    "audits": {
      "render-blocking-resources": {
        "id": "render-blocking-resources",
        "title": "Eliminate render-blocking resources",
        "score": 0.4,
        "scoreDisplayMode": "numeric",
        "details": {"type": "opportunity", "overallSavingsMs": 450}
      },
      "unused-javascript": {
        "id": "unused-javascript",
        "title": "Reduce unused JavaScript",
        "score": 0.5,
        "scoreDisplayMode": "numeric",
        "details": {"type": "opportunity", "overallSavingsMs": 900, "overallSavingsBytes": 120000}
      },
      "uses-responsive-images": {
        "id": "uses-responsive-images",
        "title": "Properly size images",
        "score": 0.7,
        "scoreDisplayMode": "numeric",
        "details": {"type": "opportunity", "overallSavingsMs": 150, "overallSavingsBytes": 80000}
      },
      "largest-contentful-paint": {
        "id": "largest-contentful-paint",
        "title": "Largest Contentful Paint",
        "score": 0.55,
        "scoreDisplayMode": "numeric",
        "displayValue": "3.2 s"
      },
      "total-blocking-time": {
        "id": "total-blocking-time",
        "title": "Total Blocking Time",
        "score": 0.9,
        "scoreDisplayMode": "numeric",
        "displayValue": "150 ms"
      },
      "cumulative-layout-shift": {
        "id": "cumulative-layout-shift",
        "title": "Cumulative Layout Shift",
        "score": 1.0,
        "scoreDisplayMode": "numeric"
      },
      "server-response-time": {
        "id": "server-response-time",
        "title": "Initial server response time",
        "score": 0.2,
        "scoreDisplayMode": "informative",
        "displayValue": "1.9 s"
      },
      "image-alt": {
        "id": "image-alt",
        "title": "Image elements have alt attributes",
        "score": 0,
        "scoreDisplayMode": "binary"
      },
      "color-contrast": {
        "id": "color-contrast",
        "title": "Background and foreground colors have sufficient contrast",
        "score": 0.3,
        "scoreDisplayMode": "binary"
      },
      "html-has-lang": {
        "id": "html-has-lang",
        "title": "html element has a lang attribute",
        "score": 1,
        "scoreDisplayMode": "binary"
      },
      "aria-hidden-focus": {
        "id": "aria-hidden-focus",
        "title": "aria-hidden elements do not contain focusable descendants",
        "score": null,
        "scoreDisplayMode": "notApplicable"
      },
      "meta-description": {
        "id": "meta-description",
        "title": "Document has a meta description",
        "score": 1,
        "scoreDisplayMode": "binary"
      },
      "document-title": {
        "id": "document-title",
        "title": "Document has a title element",
        "score": 1,
        "scoreDisplayMode": "binary"
      },
      "errors-in-console": {
        "id": "errors-in-console",
        "title": "No browser errors logged to the console",
        "score": 0,
        "scoreDisplayMode": "binary"
      },
      "uses-https": {
        "id": "uses-https",
        "title": "Uses HTTPS",
        "score": 1,
        "scoreDisplayMode": "binary"
      }
    }
  }
}`

func parseSample(t *testing.T) *lighthouseResult {
	t.Helper()
	var parsed psiResponse
	require.NoError(t, json.Unmarshal([]byte(sampleLighthouse), &parsed))
	require.NotNil(t, parsed.LighthouseResult)
	return parsed.LighthouseResult
}

func TestDeriveScoresRounded(t *testing.T) {
	result := deriveResult(parseSample(t))

	require.True(t, result.Success)
	require.NotNil(t, result.Scores.Performance)
	assert.Equal(t, 84, *result.Scores.Performance) // 0.835 rounds up
	require.NotNil(t, result.Scores.Accessibility)
	assert.Equal(t, 62, *result.Scores.Accessibility)
	require.NotNil(t, result.Scores.SEO)
	assert.Equal(t, 100, *result.Scores.SEO)
	require.NotNil(t, result.Scores.BestPractices)
	assert.Equal(t, 96, *result.Scores.BestPractices)
}

func TestDeriveOpportunitiesSortedByImpact(t *testing.T) {
	result := deriveResult(parseSample(t))

	require.Len(t, result.Opportunities, 3)
	assert.Equal(t, "unused-javascript", result.Opportunities[0].ID)       // 900ms
	assert.Equal(t, "render-blocking-resources", result.Opportunities[1].ID) // 450ms
	assert.Equal(t, "uses-responsive-images", result.Opportunities[2].ID)  // 150ms
	assert.Equal(t, float64(900), result.Opportunities[0].SavingsMs)
	assert.Equal(t, float64(120000), result.Opportunities[0].SavingsBytes)
}

func TestDeriveDiagnosticsExcludeOpportunitiesAndInformative(t *testing.T) {
	result := deriveResult(parseSample(t))

	// Worst first; opportunities and informative audits excluded, perfect
	// scores excluded.
	require.Len(t, result.Diagnostics, 2)
	assert.Equal(t, "largest-contentful-paint", result.Diagnostics[0].ID) // 0.55
	assert.Equal(t, "total-blocking-time", result.Diagnostics[1].ID)      // 0.9
}

func TestDeriveAccessibilityWorstFirst(t *testing.T) {
	result := deriveResult(parseSample(t))

	// Perfect and not-applicable audits excluded.
	require.Len(t, result.Accessibility, 2)
	assert.Equal(t, "image-alt", result.Accessibility[0].ID)      // score 0
	assert.Equal(t, "color-contrast", result.Accessibility[1].ID) // score 0.3
}

func TestDeriveCleanCategoriesEmpty(t *testing.T) {
	result := deriveResult(parseSample(t))

	assert.Empty(t, result.SEO)
	require.Len(t, result.BestPractices, 1)
	assert.Equal(t, "errors-in-console", result.BestPractices[0].ID)
}

func newTestAuditor(srv *httptest.Server) *PageSpeedAuditor {
	a := NewPageSpeedAuditor(srv.URL, "")
	a.http = srv.Client()
	return a
}

func TestAuditSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "https://example.com", r.URL.Query().Get("url"))
		assert.ElementsMatch(t,
			[]string{"performance", "accessibility", "seo", "best-practices"},
			r.URL.Query()["category"])
		w.Write([]byte(sampleLighthouse))
	}))
	defer srv.Close()

	result := newTestAuditor(srv).Audit(context.Background(), "https://example.com")

	assert.True(t, result.Success)
	assert.Empty(t, result.Error)
	assert.NotEmpty(t, result.Opportunities)
}

func TestAuditNon200IsErrorResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": {"code": 500, "message": "Lighthouse returned error"}}`))
	}))
	defer srv.Close()

	result := newTestAuditor(srv).Audit(context.Background(), "https://example.com")

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "status 500")
	assert.Contains(t, result.Error, "Lighthouse returned error")
}

func TestAuditRuntimeErrorIsErrorResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"lighthouseResult": {"runtimeError": {"code": "FAILED_DOCUMENT_REQUEST", "message": "The page could not be loaded"}}}`))
	}))
	defer srv.Close()

	result := newTestAuditor(srv).Audit(context.Background(), "https://example.com")

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "FAILED_DOCUMENT_REQUEST")
}

func TestAuditMalformedResponseIsErrorResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	result := newTestAuditor(srv).Audit(context.Background(), "https://example.com")

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "malformed audit response")
}
