package audit

// Typed intermediate representation of the PageSpeed Insights v5 response.
// Only the fields the pipeline consumes are modeled; anything outside this
// shape is ignored rather than propagated as ad hoc maps.

type psiResponse struct {
	LighthouseResult *lighthouseResult `json:"lighthouseResult"`
	Error            *psiError         `json:"error"`
}

type psiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type lighthouseResult struct {
	Categories   map[string]lhCategory `json:"categories"`
	Audits       map[string]lhAudit    `json:"audits"`
	RuntimeError *lhRuntimeError       `json:"runtimeError"`
}

type lhRuntimeError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type lhCategory struct {
	Score     *float64     `json:"score"`
	AuditRefs []lhAuditRef `json:"auditRefs"`
}

type lhAuditRef struct {
	ID string `json:"id"`
}

type lhAudit struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	Score            *float64   `json:"score"`
	ScoreDisplayMode string     `json:"scoreDisplayMode"`
	DisplayValue     string     `json:"displayValue"`
	Details          *lhDetails `json:"details"`
}

type lhDetails struct {
	Type                string  `json:"type"`
	OverallSavingsMs    float64 `json:"overallSavingsMs"`
	OverallSavingsBytes float64 `json:"overallSavingsBytes"`
}

// Lighthouse category keys as reported by the engine.
const (
	categoryPerformance   = "performance"
	categoryAccessibility = "accessibility"
	categorySEO           = "seo"
	categoryBestPractices = "best-practices"
)
