package orchestrator

import (
	"fmt"
	"strings"

	"github.com/MikeSquared-Agency/autosocio/internal/catalog"
	"github.com/MikeSquared-Agency/autosocio/internal/completion"
)

const instructionHeader = `Eres el AGENTE MAESTRO GLOBAL, ORQUESTADOR SUPREMO MULTINICHO.
Tu función es coordinar, priorizar, activar, supervisar, validar y optimizar el comportamiento de los agentes especializados del sistema.

PIPELINE UNIFICADO:
Si el usuario solicita activar un nuevo nicho o resolver una necesidad en un nicho activo, activa el Activador de Nichos o el Motor de Matchmaking.
`

const userPromptTemplate = `Analiza la siguiente entrada del usuario y el estado del sistema para orquestar la respuesta óptima:

ENTRADA: "%s"
ESTADO: %s`

func buildInstruction(cat *catalog.Catalog) string {
	var b strings.Builder
	b.WriteString(instructionHeader)
	b.WriteString("\nAGENTES BAJO TU CONTROL:\n")
	for i, a := range cat.Agents() {
		fmt.Fprintf(&b, "%d. %s: %s\n", i+1, a.Name, a.Role)
	}
	b.WriteString("\nUsa exactamente estos nombres en pipeline_activado.agente.")
	return b.String()
}

func buildSchema(cat *catalog.Catalog) *completion.Schema {
	return completion.Object(map[string]*completion.Schema{
		"evento_sistema":    completion.String(),
		"nivel_complejidad": completion.Enum(complexityLevels...),
		"pipeline_activado": completion.Array(completion.Object(map[string]*completion.Schema{
			"agente":            completion.Enum(cat.AgentNames()...),
			"motivo_activacion": completion.String(),
			"estado":            completion.Enum(statuses...),
		}, "agente", "motivo_activacion", "estado")),
		"coherencia_global":    completion.Number(),
		"riesgo_operativo":     completion.Enum(riskLevels...),
		"accion_siguiente":     completion.String(),
		"registro_aprendizaje": completion.Boolean(),
	}, "evento_sistema", "nivel_complejidad", "pipeline_activado", "coherencia_global",
		"riesgo_operativo", "accion_siguiente", "registro_aprendizaje")
}
