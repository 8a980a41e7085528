package pipeline

import "github.com/MikeSquared-Agency/autosocio/internal/completion"

const phase1System = `Eres el MOTOR DE ACTIVACIÓN DE NICHO.
Tu objetivo es crear el entorno estructural para el matching.
Debes identificar variables críticas, construir un esquema de datos operativo y definir pesos de scoring.
Cada variable de scoring lleva un peso entre 0 y 1.`

const phase1User = `Activa el siguiente nicho creando su estructura de mercado: "%s"`

const phase2System = `Eres el MOTOR DE MATCHMAKING PROBABILÍSTICO.
Tu objetivo es encontrar probabilidades de solución real.
Aplica el score dinámico basado en especialización, reputación, logística y velocidad.
Ordena los candidatos del más al menos recomendable. probabilidad_resolucion va de 0 a 1.`

const phase2User = `Calcula las mejores coincidencias para la necesidad: "%s"
usando la estructura del nicho: %s`

const phase3System = `Eres el OPTIMIZADOR DE DECISIÓN DEL USUARIO.
Tu objetivo es reducir la sobrecarga cognitiva.
Traduce métricas técnicas en impacto práctico y destaca la opción dominante.
opcion_recomendada debe ser exactamente el nombre de uno de los candidatos recibidos,
o "` + NoViableOption + `" si ninguno resuelve la necesidad. nivel_claridad_decision va de 0 a 1.`

const phase3User = `Optimiza la decisión del usuario basándote en estos resultados: %s`

var phase1Schema = completion.Object(map[string]*completion.Schema{
	"nicho_activo": completion.String(),
	"modelo_datos_operativo": completion.Array(completion.Object(map[string]*completion.Schema{
		"campo":       completion.String(),
		"tipo":        completion.String(),
		"descripcion": completion.String(),
	}, "campo", "tipo")),
	"reglas_compatibilidad": completion.Array(completion.String()),
	"variables_scoring": completion.Array(completion.Object(map[string]*completion.Schema{
		"variable": completion.String(),
		"peso":     completion.Number(),
	}, "variable", "peso")),
}, "nicho_activo", "modelo_datos_operativo", "reglas_compatibilidad", "variables_scoring")

var phase2Schema = completion.Object(map[string]*completion.Schema{
	"top_matches_priorizados": completion.Array(completion.Object(map[string]*completion.Schema{
		"proveedor_id":            completion.String(),
		"nombre":                  completion.String(),
		"score":                   completion.Number(),
		"probabilidad_resolucion": completion.Number(),
	}, "nombre", "score", "probabilidad_resolucion")),
	"justificacion_algoritmica": completion.String(),
}, "top_matches_priorizados", "justificacion_algoritmica")

// phase3Schema restricts the recommendation to the candidates at hand.
// Enum values must be unique for the schema to compile.
func phase3Schema(names []string) *completion.Schema {
	options := make([]string, 0, len(names)+1)
	seen := make(map[string]bool, len(names)+1)
	for _, n := range append(append([]string(nil), names...), NoViableOption) {
		if !seen[n] {
			seen[n] = true
			options = append(options, n)
		}
	}
	return completion.Object(map[string]*completion.Schema{
		"opcion_recomendada":      completion.Enum(options...),
		"comparacion_funcional":   completion.String(),
		"nivel_claridad_decision": completion.Number(),
		"accion_usuario":          completion.String(),
	}, "opcion_recomendada", "comparacion_funcional", "nivel_claridad_decision", "accion_usuario")
}
