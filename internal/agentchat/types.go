package agentchat

// Phase is the funnel phase an agent believes the conversation is in.
type Phase string

const (
	PhaseAttraction Phase = "ATTRACTION"
	PhaseDiagnostic Phase = "DIAGNOSTIC"
	PhaseStrategy   Phase = "STRATEGY"
	PhaseClosing    Phase = "CLOSING"
)

const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// Metric scale bounds for confidence, pressure and dominance.
const (
	MetricMin = 1
	MetricMax = 5
)

// DefaultText replaces a blank answer.
const DefaultText = "Dictamen técnico sincronizado."

// Turn is one earlier message of the conversation.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Metrics is the agent's read of the conversation.
type Metrics struct {
	Confidence       float64  `json:"confidence"`
	Pressure         float64  `json:"pressure"`
	Dominance        float64  `json:"dominance"`
	ManipulationRisk string   `json:"manipulationRisk"`
	ActiveModules    []string `json:"activeModules"`
}

// Response is one agent answer.
type Response struct {
	AgentID      string  `json:"agent_id"`
	Text         string  `json:"text"`
	Phase        Phase   `json:"phase"`
	Metrics      Metrics `json:"metrics"`
	VisualPrompt string  `json:"visual_prompt,omitempty"`
}

type llmResponse struct {
	Text         string  `json:"text"`
	VisualPrompt string  `json:"visual_prompt"`
	Phase        Phase   `json:"phase"`
	Metrics      Metrics `json:"metrics"`
}
