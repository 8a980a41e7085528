package orchestrator

import (
	"github.com/MikeSquared-Agency/autosocio/internal/intent"
	"github.com/MikeSquared-Agency/autosocio/internal/pipeline"
)

// Activation states an agent can be reported in.
const (
	StatusPending   = "pendiente"
	StatusRunning   = "ejecutando"
	StatusCompleted = "completado"
)

var (
	complexityLevels = []string{"bajo", "medio", "alto", "crítico"}
	riskLevels       = []string{"bajo", "medio", "alto"}
	statuses         = []string{StatusPending, StatusRunning, StatusCompleted}
)

// Activation is one agent the classifier decided to activate.
type Activation struct {
	Agent  string `json:"agente"`
	Reason string `json:"motivo_activacion"`
	Status string `json:"estado"`
}

// RouteFailure describes a dispatched route that did not complete.
type RouteFailure struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// Result is the orchestrator's answer for one user input. PipelineData and
// IntentData are only set when their route was dispatched and succeeded.
type Result struct {
	SystemEvent       string       `json:"evento_sistema"`
	ComplexityLevel   string       `json:"nivel_complejidad"`
	ActivatedAgents   []Activation `json:"pipeline_activado"`
	GlobalCoherence   float64      `json:"coherencia_global"`
	OperationalRisk   string       `json:"riesgo_operativo"`
	NextAction        string       `json:"accion_siguiente"`
	RecordForLearning bool         `json:"registro_aprendizaje"`

	PipelineData  *pipeline.Result     `json:"pipeline_data,omitempty"`
	PipelineError *RouteFailure        `json:"pipeline_error,omitempty"`
	IntentData    *intent.IntentObject `json:"intent_data,omitempty"`
	IntentError   *RouteFailure        `json:"intent_error,omitempty"`
}
