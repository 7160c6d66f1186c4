package techdetect

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/site-auditor/internal/report"
)

func newLookupDetector(srv *httptest.Server) *HTTPDetector {
	d := NewDetector(srv.URL)
	d.http = srv.Client()
	return d
}

func newLocalDetector(srv *httptest.Server) *HTTPDetector {
	d := NewDetector("")
	d.http = srv.Client()
	return d
}

func TestRemoteLookupSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "https://example.com", r.URL.Query().Get("url"))
		w.Write([]byte(`{"technologies": [
			{"name": "WordPress", "version": "6.4", "category": "CMS", "confidence": 100},
			{"name": "MySQL", "category": "Database", "confidence": 80}
		]}`))
	}))
	defer srv.Close()

	result := newLookupDetector(srv).Detect(context.Background(), "https://example.com")

	assert.Equal(t, report.SectionCompleted, result.Status)
	require.Len(t, result.Technologies, 2)
	assert.Equal(t, "WordPress", result.Technologies[0].Name)
	assert.Equal(t, "6.4", result.Technologies[0].Version)
	assert.Equal(t, "lookup", result.Technologies[0].DetectedBy)
}

func TestRemoteLookupNotDetectedIsCompletedEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	result := newLookupDetector(srv).Detect(context.Background(), "https://example.com")

	// "Not detected" is a successful empty result, not an error.
	assert.Equal(t, report.SectionCompleted, result.Status)
	assert.Empty(t, result.Technologies)
	assert.Empty(t, result.Error)
}

func TestRemoteLookupServerErrorIsErrorResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	result := newLookupDetector(srv).Detect(context.Background(), "https://example.com")

	assert.Equal(t, report.SectionError, result.Status)
	assert.Contains(t, result.Error, "status 502")
}

func TestRemoteLookupMalformedBodyIsErrorResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<html>definitely not json</html>`))
	}))
	defer srv.Close()

	result := newLookupDetector(srv).Detect(context.Background(), "https://example.com")

	assert.Equal(t, report.SectionError, result.Status)
	assert.Contains(t, result.Error, "malformed lookup response")
}

func TestLocalDetectHeadersMarkupAndCookies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Server", "nginx/1.25.3")
		w.Header().Set("X-Powered-By", "PHP/8.3")
		http.SetCookie(w, &http.Cookie{Name: "PHPSESSID", Value: "abc"})
		w.Write([]byte(`<html><head>
			<meta name="generator" content="WordPress 6.4.2">
			<script src="/wp-content/themes/x/app.js"></script>
			<script src="https://code.jquery.com/jquery-3.7.1.min.js"></script>
		</head><body></body></html>`))
	}))
	defer srv.Close()

	result := newLocalDetector(srv).Detect(context.Background(), srv.URL)

	require.Equal(t, report.SectionCompleted, result.Status)

	byName := map[string]report.Technology{}
	for _, tech := range result.Technologies {
		byName[tech.Name] = tech
	}

	assert.Contains(t, byName, "Nginx")
	assert.Equal(t, "headers", byName["Nginx"].DetectedBy)
	assert.Contains(t, byName, "PHP")
	assert.Contains(t, byName, "WordPress")
	assert.Equal(t, "6.4.2", byName["WordPress"].Version)
	assert.Contains(t, byName, "jQuery")
}

func TestLocalDetectNothingFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<html><body>plain page</body></html>`))
	}))
	defer srv.Close()

	result := newLocalDetector(srv).Detect(context.Background(), srv.URL)

	assert.Equal(t, report.SectionCompleted, result.Status)
	assert.Empty(t, result.Technologies)
}

func TestLocalDetectUnreachableIsErrorResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // connection refused from here on

	d := NewDetector("")
	result := d.Detect(context.Background(), srv.URL)

	assert.Equal(t, report.SectionError, result.Status)
	assert.Contains(t, result.Error, "failed to fetch page")
}

func TestVersionFromGenerator(t *testing.T) {
	assert.Equal(t, "6.4.2", versionFromGenerator("WordPress 6.4.2"))
	assert.Equal(t, "", versionFromGenerator("WordPress"))
	assert.Equal(t, "", versionFromGenerator("Site built by hand"))
}
