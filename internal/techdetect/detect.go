// Package techdetect provides the technology-fingerprinting adapter.
package techdetect

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/site-auditor/internal/report"
)

// DefaultTimeout bounds the whole detection call.
const DefaultTimeout = 20 * time.Second

// Detector identifies technologies in use on a target URL. Implementations
// never return an error: every failure mode is folded into the TechResult.
type Detector interface {
	Detect(ctx context.Context, target string) report.TechResult
}

// HTTPDetector detects technologies either via a remote lookup endpoint
// (when configured) or by fetching the page and matching a built-in
// fingerprint table against its headers, markup, and cookies.
type HTTPDetector struct {
	lookupURL string
	http      *http.Client
}

// NewDetector creates a detector. lookupURL may be empty, selecting local
// fingerprinting.
func NewDetector(lookupURL string) *HTTPDetector {
	return &HTTPDetector{
		lookupURL: lookupURL,
		http:      &http.Client{Timeout: DefaultTimeout},
	}
}

// Detect runs one detection pass for the target URL.
func (d *HTTPDetector) Detect(ctx context.Context, target string) report.TechResult {
	if d.lookupURL != "" {
		return d.remoteLookup(ctx, target)
	}
	return d.localDetect(ctx, target)
}

// lookupResponse is the remote endpoint's result shape.
type lookupResponse struct {
	Technologies []struct {
		Name       string `json:"name"`
		Version    string `json:"version"`
		Category   string `json:"category"`
		Confidence int    `json:"confidence"`
	} `json:"technologies"`
}

// remoteLookup queries the configured fingerprint service. A 404 means
// "no technologies detected" and is a successful empty result; any other
// non-2xx or malformed body is an error result.
func (d *HTTPDetector) remoteLookup(ctx context.Context, target string) report.TechResult {
	q := url.Values{}
	q.Set("url", target)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.lookupURL+"?"+q.Encode(), nil)
	if err != nil {
		return failedTech(fmt.Sprintf("failed to build lookup request: %v", err))
	}

	resp, err := d.http.Do(req)
	if err != nil {
		return failedTech(fmt.Sprintf("technology lookup failed: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return report.TechResult{Status: report.SectionCompleted}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return failedTech(fmt.Sprintf("technology lookup returned status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return failedTech(fmt.Sprintf("failed to read lookup response: %v", err))
	}

	var parsed lookupResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return failedTech(fmt.Sprintf("malformed lookup response: %v", err))
	}

	result := report.TechResult{Status: report.SectionCompleted}
	for _, tech := range parsed.Technologies {
		result.Technologies = append(result.Technologies, report.Technology{
			Name:       tech.Name,
			Version:    tech.Version,
			Category:   tech.Category,
			Confidence: tech.Confidence,
			DetectedBy: "lookup",
		})
	}
	return result
}

// localDetect fetches the page once and matches the fingerprint table.
func (d *HTTPDetector) localDetect(ctx context.Context, target string) report.TechResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return failedTech(fmt.Sprintf("failed to build fetch request: %v", err))
	}
	req.Header.Set("User-Agent", "site-auditor/1.0")

	resp, err := d.http.Do(req)
	if err != nil {
		return failedTech(fmt.Sprintf("failed to fetch page: %v", err))
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return failedTech(fmt.Sprintf("failed to parse page: %v", err))
	}

	found := map[string]report.Technology{}

	// Headers
	for _, fp := range fingerprints {
		if fp.headerKey == "" {
			continue
		}
		value := resp.Header.Get(fp.headerKey)
		if value == "" {
			continue
		}
		if fp.headerValue == "" || strings.Contains(strings.ToLower(value), fp.headerValue) {
			record(found, fp, "", "headers")
		}
	}

	// Cookies
	for _, fp := range fingerprints {
		if fp.cookieName == "" {
			continue
		}
		for _, cookie := range resp.Cookies() {
			if cookie.Name == fp.cookieName {
				record(found, fp, "", "cookies")
			}
		}
	}

	// Meta generator
	if generator, ok := doc.Find(`meta[name="generator"]`).Attr("content"); ok {
		lower := strings.ToLower(generator)
		for _, fp := range fingerprints {
			if fp.generator != "" && strings.Contains(lower, fp.generator) {
				record(found, fp, versionFromGenerator(generator), "html")
			}
		}
	}

	// Script sources
	doc.Find("script[src]").Each(func(_ int, sel *goquery.Selection) {
		src, _ := sel.Attr("src")
		lower := strings.ToLower(src)
		for _, fp := range fingerprints {
			if fp.scriptSubstr != "" && strings.Contains(lower, fp.scriptSubstr) {
				record(found, fp, "", "html")
			}
		}
	})

	result := report.TechResult{Status: report.SectionCompleted}
	for _, tech := range found {
		result.Technologies = append(result.Technologies, tech)
	}
	sort.Slice(result.Technologies, func(i, j int) bool {
		return result.Technologies[i].Name < result.Technologies[j].Name
	})
	return result
}

// record keeps the first sighting of a technology, upgrading it with a
// version when a later signal carries one.
func record(found map[string]report.Technology, fp fingerprint, version, channel string) {
	existing, ok := found[fp.name]
	if !ok {
		found[fp.name] = report.Technology{
			Name:       fp.name,
			Version:    version,
			Category:   fp.category,
			Confidence: 100,
			DetectedBy: channel,
		}
		return
	}
	if existing.Version == "" && version != "" {
		existing.Version = version
		found[fp.name] = existing
	}
}

func failedTech(msg string) report.TechResult {
	return report.TechResult{Status: report.SectionError, Error: msg}
}
