package audit

import (
	"math"
	"sort"

	"github.com/jonathan/site-auditor/internal/report"
)

// Issue-list caps. They bound the downstream LLM explanation fan-out: every
// listed issue costs one model call.
const (
	MaxOpportunities = 3  // top performance opportunities, impact descending
	MaxDiagnostics   = 3  // non-perfect performance audits, worst first
	MaxAccessibility = 10 // worst first
	MaxSEO           = 3  // worst first
	MaxBestPractices = 3  // worst first
)

// deriveResult turns the engine's raw result into the report section:
// rounded 0-100 category scores, the top opportunities by estimated savings,
// and capped worst-first issue lists per category.
func deriveResult(lhr *lighthouseResult) report.AuditResult {
	result := report.AuditResult{
		Success: true,
		Scores: report.CategoryScores{
			Performance:   roundScore(lhr.Categories[categoryPerformance].Score),
			Accessibility: roundScore(lhr.Categories[categoryAccessibility].Score),
			SEO:           roundScore(lhr.Categories[categorySEO].Score),
			BestPractices: roundScore(lhr.Categories[categoryBestPractices].Score),
		},
	}

	result.Opportunities = topOpportunities(lhr, MaxOpportunities)
	result.Diagnostics = worstAudits(lhr, categoryPerformance, MaxDiagnostics, true)
	result.Accessibility = worstAudits(lhr, categoryAccessibility, MaxAccessibility, false)
	result.SEO = worstAudits(lhr, categorySEO, MaxSEO, false)
	result.BestPractices = worstAudits(lhr, categoryBestPractices, MaxBestPractices, false)

	return result
}

// roundScore converts an engine-native 0-1 score to rounded 0-100.
func roundScore(score *float64) *int {
	if score == nil {
		return nil
	}
	v := int(math.Round(*score * 100))
	return &v
}

// topOpportunities returns the performance opportunities sorted by potential
// impact (estimated ms savings, then byte savings) descending, capped at k.
func topOpportunities(lhr *lighthouseResult, k int) []report.AuditIssue {
	var issues []report.AuditIssue
	for _, ref := range lhr.Categories[categoryPerformance].AuditRefs {
		a, ok := lhr.Audits[ref.ID]
		if !ok || a.Details == nil || a.Details.Type != "opportunity" {
			continue
		}
		if a.Details.OverallSavingsMs <= 0 && a.Details.OverallSavingsBytes <= 0 {
			continue
		}
		issues = append(issues, toIssue(a))
	}
	sort.SliceStable(issues, func(i, j int) bool {
		if issues[i].SavingsMs != issues[j].SavingsMs {
			return issues[i].SavingsMs > issues[j].SavingsMs
		}
		return issues[i].SavingsBytes > issues[j].SavingsBytes
	})
	return capIssues(issues, k)
}

// worstAudits returns a category's failing audits sorted worst first (score
// ascending), capped at k. Informative and not-applicable audits are skipped;
// with excludeOpportunities set, opportunity-type audits are skipped too so
// the performance diagnostics list does not duplicate the opportunities list.
func worstAudits(lhr *lighthouseResult, category string, k int, excludeOpportunities bool) []report.AuditIssue {
	var issues []report.AuditIssue
	for _, ref := range lhr.Categories[category].AuditRefs {
		a, ok := lhr.Audits[ref.ID]
		if !ok || a.Score == nil || *a.Score >= 1 {
			continue
		}
		if a.ScoreDisplayMode == "informative" || a.ScoreDisplayMode == "notApplicable" || a.ScoreDisplayMode == "manual" {
			continue
		}
		if excludeOpportunities && a.Details != nil && a.Details.Type == "opportunity" {
			continue
		}
		issues = append(issues, toIssue(a))
	}
	sort.SliceStable(issues, func(i, j int) bool {
		return deref(issues[i].Score) < deref(issues[j].Score)
	})
	return capIssues(issues, k)
}

func toIssue(a lhAudit) report.AuditIssue {
	issue := report.AuditIssue{
		ID:           a.ID,
		Title:        a.Title,
		Description:  a.Description,
		Score:        a.Score,
		DisplayValue: a.DisplayValue,
	}
	if a.Details != nil {
		issue.SavingsMs = a.Details.OverallSavingsMs
		issue.SavingsBytes = a.Details.OverallSavingsBytes
	}
	return issue
}

func capIssues(issues []report.AuditIssue, k int) []report.AuditIssue {
	if len(issues) > k {
		return issues[:k]
	}
	return issues
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
