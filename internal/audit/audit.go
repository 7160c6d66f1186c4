// Package audit provides the performance/accessibility audit adapter backed
// by the PageSpeed Insights (Lighthouse) API.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/jonathan/site-auditor/internal/report"
)

// DefaultTimeout bounds one audit call. Lighthouse runs are slow; PSI
// regularly takes tens of seconds for heavy pages.
const DefaultTimeout = 60 * time.Second

// Auditor runs a performance/accessibility audit for a URL. Implementations
// never return an error: every failure mode is folded into the AuditResult.
type Auditor interface {
	Audit(ctx context.Context, target string) report.AuditResult
}

// PageSpeedAuditor calls the PageSpeed Insights v5 API.
type PageSpeedAuditor struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

// NewPageSpeedAuditor creates an auditor for the given endpoint. The API key
// is optional (keyless calls work at low volume).
func NewPageSpeedAuditor(endpoint, apiKey string) *PageSpeedAuditor {
	return &PageSpeedAuditor{
		endpoint: endpoint,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: DefaultTimeout},
	}
}

// Audit runs one audit call and derives the report section from the engine's
// response.
func (a *PageSpeedAuditor) Audit(ctx context.Context, target string) report.AuditResult {
	q := url.Values{}
	q.Set("url", target)
	q.Set("strategy", "desktop")
	for _, cat := range []string{categoryPerformance, categoryAccessibility, categorySEO, categoryBestPractices} {
		q.Add("category", cat)
	}
	if a.apiKey != "" {
		q.Set("key", a.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return failedAudit(fmt.Sprintf("failed to build audit request: %v", err))
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return failedAudit(fmt.Sprintf("audit request failed: %v", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return failedAudit(fmt.Sprintf("failed to read audit response: %v", err))
	}

	var parsed psiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return failedAudit(fmt.Sprintf("malformed audit response (status %d): %v", resp.StatusCode, err))
	}
	if resp.StatusCode != http.StatusOK {
		msg := fmt.Sprintf("audit engine returned status %d", resp.StatusCode)
		if parsed.Error != nil && parsed.Error.Message != "" {
			msg = fmt.Sprintf("%s: %s", msg, parsed.Error.Message)
		}
		return failedAudit(msg)
	}
	if parsed.LighthouseResult == nil {
		return failedAudit("audit response missing lighthouse result")
	}
	if re := parsed.LighthouseResult.RuntimeError; re != nil && re.Code != "" && re.Code != "NO_ERROR" {
		return failedAudit(fmt.Sprintf("audit engine error %s: %s", re.Code, re.Message))
	}

	return deriveResult(parsed.LighthouseResult)
}

func failedAudit(msg string) report.AuditResult {
	return report.AuditResult{Success: false, Error: msg}
}
