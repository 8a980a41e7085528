package intent

import (
	"fmt"
	"strings"

	"github.com/MikeSquared-Agency/autosocio/internal/catalog"
	"github.com/MikeSquared-Agency/autosocio/internal/completion"
)

const instructionHeader = `Eres el motor de orquestación (capa 2) del sistema operativo económico ConnectX.
Tu tarea es transformar lenguaje humano en una estructura de datos modular.

CAPAS DE PROCESAMIENTO:
1. Identificación de nicho: determina a qué mercado pertenece la solicitud.
2. Extracción de datos: extrae únicamente los campos del nicho identificado.
3. Evaluación económica: estima el valor de la transacción en USD y la probabilidad de cierre.
4. Enrutamiento: decide la vertical recomendada (autosocio, connectx, ecosystem).
5. Estrategia: propone un plan breve de pasos con su impacto en el ROI.
`

const instructionRules = `
REGLAS DE SALIDA:
- extracted_data solo puede contener los campos del nicho elegido en niche_id.
- Omite los campos que el usuario no mencionó; no inventes valores.
- urgency_level, decision_probability, complexity_level, confidence_score y technical_audit.data_density van de 0 a 1.
- economic_value es un monto estimado en USD, nunca negativo.
- Devuelve siempre un JSON válido.`

const userPromptTemplate = `Procesar el siguiente input del usuario bajo el Estándar de Mando C1 y la arquitectura de ConnectX: "%s"`

// buildInstruction renders the system instruction from the niche registry so
// adding a niche never requires editing prose.
func buildInstruction(cat *catalog.Catalog) string {
	var b strings.Builder
	b.WriteString(instructionHeader)
	b.WriteString("\nNICHOS DISPONIBLES:\n")
	for _, n := range cat.ActiveNiches() {
		fmt.Fprintf(&b, "- %s (%s): %s.\n  Campos: ", n.ID, n.Name, n.Description)
		for i, f := range n.Fields {
			if i > 0 {
				b.WriteString(", ")
			}
			req := "opcional"
			if f.Required {
				req = "obligatorio"
			}
			fmt.Fprintf(&b, "%s (%s, %s)", f.Name, f.Type, req)
		}
		b.WriteString("\n")
	}
	b.WriteString(instructionRules)
	return b.String()
}

func fieldSchema(f catalog.Field) *completion.Schema {
	var s *completion.Schema
	switch f.Type {
	case catalog.FieldNumber:
		s = completion.Number().OrString()
	case catalog.FieldBoolean:
		s = completion.Boolean().OrString()
	default:
		s = completion.String()
	}
	if f.Label != "" {
		s = s.Describe(f.Label)
	}
	return s
}

// buildSchema returns the response schema. extracted_data lists the union of
// every niche's fields; the interpreter filters and coerces by niche
// afterwards, so numeric and boolean fields also accept strings.
func buildSchema(cat *catalog.Catalog) *completion.Schema {
	data := make(map[string]*completion.Schema)
	for _, n := range cat.ActiveNiches() {
		for _, f := range n.Fields {
			if _, ok := data[f.Name]; !ok {
				data[f.Name] = fieldSchema(f)
			}
		}
	}

	return completion.Object(map[string]*completion.Schema{
		"problem_type":         completion.String(),
		"sector":               completion.Enum(string(SectorAutomotive), string(SectorCommerce), string(SectorIndustrial), string(SectorExploration)),
		"technical_need":       completion.String(),
		"urgency_level":        completion.Number().Describe("0 a 1"),
		"economic_value":       completion.Number().Describe("USD estimado"),
		"decision_probability": completion.Number().Describe("0 a 1"),
		"complexity_level":     completion.Number().Describe("0 a 1"),
		"recommended_vertical": completion.Enum(string(VerticalAutoSocio), string(VerticalConnectX), string(VerticalEcosystem)),
		"niche_id":             completion.Enum(cat.ActiveNicheIDs()...),
		"extracted_data":       completion.Object(data),
		"strategy": completion.Object(map[string]*completion.Schema{
			"title":      completion.String(),
			"steps":      completion.Array(completion.String()),
			"roi_impact": completion.String(),
		}, "title", "steps", "roi_impact"),
		"technical_audit": completion.Object(map[string]*completion.Schema{
			"integrity_check":   completion.String(),
			"data_density":      completion.Number().Describe("0 a 1"),
			"validation_status": completion.String(),
		}, "integrity_check", "data_density", "validation_status"),
		"confidence_score": completion.Number().Describe("0 a 1"),
	},
		"problem_type", "sector", "technical_need", "urgency_level", "economic_value",
		"decision_probability", "complexity_level", "recommended_vertical", "niche_id",
		"confidence_score", "technical_audit",
	)
}
