package marketplace

import "github.com/MikeSquared-Agency/autosocio/internal/completion"

const keywordsSystem = `Eres el estructurador de búsqueda de refacciones de AutoSocio.
Extrae los nombres de las piezas automotrices mencionadas en el texto del usuario.
Usa el nombre técnico de la pieza en español, sin marca ni modelo del vehículo.
Si no hay ninguna pieza identificable devuelve una lista vacía.`

const keywordsUser = `Extraer nombres de piezas: %s`

const rankingSystem = `Eres el auditor de compatibilidad de refacciones de AutoSocio.
Clasifica cada pieza candidata por su viabilidad para el vehículo indicado.

REGLAS:
- viabilityScore va de 0 a 10.
- recommendation es una sola oración técnica.
- Marca exactamente una pieza, la mejor coincidencia absoluta, con isMostRecommended.
- Usa únicamente los partId de la lista de candidatos.`

const rankingUser = `Auditar y clasificar estas piezas por compatibilidad con %s: %s`

var keywordsSchema = completion.Object(map[string]*completion.Schema{
	"keywords": completion.Array(completion.String()),
}, "keywords")

// rankingSchema restricts partId to the candidates sent.
func rankingSchema(ids []string) *completion.Schema {
	return completion.Object(map[string]*completion.Schema{
		"recommendations": completion.Array(completion.Object(map[string]*completion.Schema{
			"partId":            completion.Enum(ids...),
			"recommendation":    completion.String(),
			"viabilityScore":    completion.Number().Describe("0 a 10"),
			"isMostRecommended": completion.Boolean(),
		}, "partId", "recommendation", "viabilityScore", "isMostRecommended")),
	}, "recommendations")
}
