package pipeline

import "fmt"

// State is the last phase a run completed.
type State string

const (
	StateNicheActivated    State = "NicheActivated"
	StateMatched           State = "Matched"
	StateDecisionOptimized State = "DecisionOptimized"
)

// RunError is a run that failed after at least one phase completed. Reached
// is the last state the run got to; no phase output is kept.
type RunError struct {
	Reached State
	Err     error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("pipeline stopped after %s: %v", e.Reached, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

// NoViableOption is the recommendation when no phase-2 candidate solves the need.
const NoViableOption = "NINGUNA_VIABLE"

// DataField describes one attribute of the niche's operating data model.
type DataField struct {
	Field       string `json:"campo"`
	Type        string `json:"tipo"`
	Description string `json:"descripcion"`
}

// Phase1Result is the activated niche: data model, compatibility rules and
// the scoring variables the model chose for this need.
type Phase1Result struct {
	ActiveNiche        string             `json:"nicho_activo"`
	DataModel          []DataField        `json:"modelo_datos_operativo"`
	CompatibilityRules []string           `json:"reglas_compatibilidad"`
	ScoringVariables   map[string]float64 `json:"variables_scoring"`
}

// Match is one ranked candidate.
type Match struct {
	ProviderID            string  `json:"proveedor_id"`
	Name                  string  `json:"nombre"`
	Score                 float64 `json:"score"`
	ResolutionProbability float64 `json:"probabilidad_resolucion"`
}

// Phase2Result holds candidates in the order the model ranked them.
type Phase2Result struct {
	Matches       []Match `json:"top_matches_priorizados"`
	Justification string  `json:"justificacion_algoritmica"`
}

// Names returns candidate names in rank order.
func (r *Phase2Result) Names() []string {
	names := make([]string, len(r.Matches))
	for i, m := range r.Matches {
		names[i] = m.Name
	}
	return names
}

// Phase3Result is the single recommendation the chain ends with.
type Phase3Result struct {
	RecommendedOption    string  `json:"opcion_recomendada"`
	FunctionalComparison string  `json:"comparacion_funcional"`
	DecisionClarity      float64 `json:"nivel_claridad_decision"`
	UserAction           string  `json:"accion_usuario"`
	NoViableOption       bool    `json:"sin_opcion_viable"`
}

// Result is a completed three-phase run.
type Result struct {
	Phase1 *Phase1Result `json:"phase1"`
	Phase2 *Phase2Result `json:"phase2"`
	Phase3 *Phase3Result `json:"phase3"`
	State  State         `json:"state"`
}

type scoringVariable struct {
	Variable string  `json:"variable"`
	Weight   float64 `json:"peso"`
}

type phase1Response struct {
	ActiveNiche        string            `json:"nicho_activo"`
	DataModel          []DataField       `json:"modelo_datos_operativo"`
	CompatibilityRules []string          `json:"reglas_compatibilidad"`
	ScoringVariables   []scoringVariable `json:"variables_scoring"`
}
