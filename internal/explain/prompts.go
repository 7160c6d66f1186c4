package explain

import (
	"fmt"
	"strings"

	"github.com/jonathan/site-auditor/internal/report"
)

// Category identifies which audit issue list a batch of explanations covers.
type Category string

// Explanation categories. The keys double as the report's explanations map
// keys, parallel to the audit result's issue lists.
const (
	CategoryAccessibility Category = "accessibility"
	CategoryOpportunities Category = "performance_opportunities"
	CategoryDiagnostics   Category = "performance_diagnostics"
	CategorySEO           Category = "seo"
	CategoryBestPractices Category = "best_practices"
)

// perfCategory reports whether issues in this category carry savings
// estimates worth surfacing in the prompt.
func (c Category) perfCategory() bool {
	return c == CategoryOpportunities || c == CategoryDiagnostics
}

var categoryFraming = map[Category]string{
	CategoryAccessibility: "an accessibility issue that may prevent users with disabilities from using the site",
	CategoryOpportunities: "a performance opportunity that could speed up page load",
	CategoryDiagnostics:   "a performance diagnostic that indicates slow or wasteful page behavior",
	CategorySEO:           "a search engine optimization issue that may hurt the site's visibility",
	CategoryBestPractices: "a web best-practices issue that may affect security or reliability",
}

// buildPrompt interpolates one issue into the category's prompt template.
func buildPrompt(category Category, issue report.AuditIssue) string {
	var b strings.Builder
	fmt.Fprintf(&b, "A website audit flagged %s.\n\n", categoryFraming[category])
	fmt.Fprintf(&b, "Finding: %s\n", issue.Title)
	if issue.Description != "" {
		fmt.Fprintf(&b, "Details: %s\n", issue.Description)
	}
	if issue.DisplayValue != "" {
		fmt.Fprintf(&b, "Measured value: %s\n", issue.DisplayValue)
	}
	if category.perfCategory() {
		fmt.Fprintf(&b, "Estimated waste: %s\n", FormatSavings(issue.SavingsMs, issue.SavingsBytes))
	}
	b.WriteString("\nExplain in 2-3 plain sentences what this means for the site owner and what they should do about it. No jargon, no markdown.")
	return b.String()
}

// FormatSavings renders raw ms/byte savings as a human-readable string,
// e.g. "450ms" or "45.2KiB", defaulting to "some resources" when neither
// estimate is present.
func FormatSavings(savingsMs, savingsBytes float64) string {
	if savingsMs > 0 {
		return fmt.Sprintf("%.0fms", savingsMs)
	}
	if savingsBytes > 0 {
		return fmt.Sprintf("%.1fKiB", savingsBytes/1024)
	}
	return "some resources"
}
