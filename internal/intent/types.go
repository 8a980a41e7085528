package intent

type Sector string

const (
	SectorAutomotive  Sector = "AUTOMOTIVE"
	SectorCommerce    Sector = "COMMERCE"
	SectorIndustrial  Sector = "INDUSTRIAL"
	SectorExploration Sector = "EXPLORATION"
)

// Vertical is the product surface a request should be routed to.
type Vertical string

const (
	VerticalAutoSocio Vertical = "autosocio"
	VerticalConnectX  Vertical = "connectx"
	VerticalEcosystem Vertical = "ecosystem"
)

// DefaultUserID is used when a request carries no user.
const DefaultUserID = "GUEST-USER"

// IntentObject is the interpretation of one piece of user text. A new one
// is produced for every input.
type IntentObject struct {
	IntentID            string         `json:"intent_id"`
	UserID              string         `json:"user_id"`
	Timestamp           string         `json:"timestamp"`
	RawInput            string         `json:"raw_input"`
	ProblemType         string         `json:"problem_type"`
	Sector              Sector         `json:"sector"`
	TechnicalNeed       string         `json:"technical_need"`
	UrgencyLevel        float64        `json:"urgency_level"`
	EconomicValue       float64        `json:"economic_value"`
	DecisionProbability float64        `json:"decision_probability"`
	ComplexityLevel     float64        `json:"complexity_level"`
	RecommendedVertical Vertical       `json:"recommended_vertical"`
	NicheID             string         `json:"niche_id"`
	ExtractedData       map[string]any `json:"extracted_data"`
	// MissingFields lists required niche fields the input did not provide.
	MissingFields   []string        `json:"missing_fields,omitempty"`
	Strategy        *Strategy       `json:"strategy,omitempty"`
	TechnicalAudit  *TechnicalAudit `json:"technical_audit,omitempty"`
	ConfidenceScore float64         `json:"confidence_score"`
}

type Strategy struct {
	Title     string   `json:"title"`
	Steps     []string `json:"steps"`
	ROIImpact string   `json:"roi_impact"`
}

type TechnicalAudit struct {
	IntegrityCheck   string  `json:"integrity_check"`
	DataDensity      float64 `json:"data_density"`
	ValidationStatus string  `json:"validation_status"`
}

// llmResponse is the part of IntentObject the model is asked to produce.
type llmResponse struct {
	ProblemType         string          `json:"problem_type"`
	Sector              Sector          `json:"sector"`
	TechnicalNeed       string          `json:"technical_need"`
	UrgencyLevel        float64         `json:"urgency_level"`
	EconomicValue       float64         `json:"economic_value"`
	DecisionProbability float64         `json:"decision_probability"`
	ComplexityLevel     float64         `json:"complexity_level"`
	RecommendedVertical Vertical        `json:"recommended_vertical"`
	NicheID             string          `json:"niche_id"`
	ExtractedData       map[string]any  `json:"extracted_data"`
	Strategy            *Strategy       `json:"strategy"`
	TechnicalAudit      *TechnicalAudit `json:"technical_audit"`
	ConfidenceScore     float64         `json:"confidence_score"`
}
