package agentchat

import "github.com/MikeSquared-Agency/autosocio/internal/completion"

const systemTemplate = `Eres %s de AutoSocio. Tu rol: %s.
ESTÁNDAR DE MANDO C1.

TAREA:
1. Identifica el módulo técnico involucrado.
2. Genera un dictamen preciso en text.
3. Describe en visual_prompt un diagrama técnico que ayude a localizar la pieza o entender la falla.
4. Indica la fase del embudo (ATTRACTION, DIAGNOSTIC, STRATEGY, CLOSING).
5. Evalúa confidence, pressure y dominance de 1 a 5, el riesgo de manipulación (low, medium, high) y los módulos activos.`

const historyHeader = "\n\nCONVERSACIÓN PREVIA:\n"

var responseSchema = completion.Object(map[string]*completion.Schema{
	"text":          completion.String(),
	"visual_prompt": completion.String(),
	"phase": completion.Enum(
		string(PhaseAttraction), string(PhaseDiagnostic), string(PhaseStrategy), string(PhaseClosing),
	),
	"metrics": completion.Object(map[string]*completion.Schema{
		"confidence":       completion.Number().Describe("1 a 5"),
		"pressure":         completion.Number().Describe("1 a 5"),
		"dominance":        completion.Number().Describe("1 a 5"),
		"manipulationRisk": completion.Enum(RiskLow, RiskMedium, RiskHigh),
		"activeModules":    completion.Array(completion.String()),
	}, "confidence", "pressure", "dominance", "manipulationRisk", "activeModules"),
}, "text", "phase", "metrics")
