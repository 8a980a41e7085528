package audit

const (
	StatusOpen = "OPEN"

	CategoryUX            = "UX"
	CategoryTechnical     = "TECHNICAL"
	CategoryEconomic      = "ECONOMIC"
	CategoryInconsistency = "INCONSISTENCY"

	SeverityLow      = "LOW"
	SeverityMedium   = "MEDIUM"
	SeverityHigh     = "HIGH"
	SeverityCritical = "CRITICAL"
)

// Finding is one issue the auditor reported. ID, Status and Timestamp are
// assigned locally.
type Finding struct {
	ID           string `json:"id"`
	Category     string `json:"category"`
	Severity     string `json:"severity"`
	Description  string `json:"description"`
	Location     string `json:"location"`
	SuggestedFix string `json:"suggestedFix"`
	Status       string `json:"status"`
	Timestamp    string `json:"timestamp"`
}

// Report is a mystery-shop audit of an application snapshot.
type Report struct {
	OverallScore float64   `json:"overallScore"`
	Summary      string    `json:"summary"`
	Findings     []Finding `json:"findings"`
	LastAudit    string    `json:"lastAudit"`
}

func (r *Report) clone() *Report {
	out := *r
	out.Findings = append([]Finding(nil), r.Findings...)
	return &out
}

type enrichment struct {
	ID           string `json:"id"`
	SuggestedFix string `json:"suggestedFix"`
}

type enrichResponse struct {
	Enrichments []enrichment `json:"enrichments"`
}
