package audit

import "github.com/MikeSquared-Agency/autosocio/internal/completion"

const auditSystem = `ERES EL AUDITOR MYSTERY SHOP v1. Tu misión es encontrar incoherencias, errores de UX, fallas técnicas lógicas y oportunidades de mejora económica en la plataforma AutoSocio/ConnectX.

CRITERIOS DE AUDITORÍA:
1. Coherencia de Marca: ¿El lenguaje es autoritario y técnico (Estándar C1)?
2. Flujo Económico: ¿Hay fricción innecesaria para que el usuario tome una decisión?
3. Inconsistencias: ¿Hay datos que no cuadran entre módulos?
4. UX/UI: ¿Hay elementos que confunden o que podrían ser más impactantes?

SALIDA:
Un score general (0-100), un resumen ejecutivo y una lista de hallazgos.
Cada hallazgo lleva categoría, severidad, descripción, localización y solución sugerida.`

const auditUser = `Realizar Auditoría Mystery Shop v1 sobre el siguiente estado de la aplicación: %s`

const enrichSystem = `ERES EL CONSULTOR SENIOR DE ESTRATEGIA Y UX DE CONNECTX.
Tu objetivo es tomar hallazgos técnicos o de UX básicos y transformarlos en sugerencias de mejora de valor real.

PARA CADA HALLAZGO:
1. Analiza el impacto real en la conversión o en la autoridad de la marca.
2. Genera una suggestedFix mucho más detallada, técnica y contextualizada.
3. Si el hallazgo es UX, sugiere patrones de diseño específicos.
4. Si el hallazgo es Económico, sugiere modelos de monetización o arbitraje.

SALIDA:
enrichments: una lista con el id del hallazgo original y la nueva suggestedFix.`

const enrichUser = `Analizar y enriquecer los siguientes hallazgos de Mystery Shop: %s
Contexto de la App: %s`

var auditSchema = completion.Object(map[string]*completion.Schema{
	"overallScore": completion.Number(),
	"summary":      completion.String(),
	"findings": completion.Array(completion.Object(map[string]*completion.Schema{
		"category":     completion.Enum(CategoryUX, CategoryTechnical, CategoryEconomic, CategoryInconsistency),
		"severity":     completion.Enum(SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical),
		"description":  completion.String(),
		"location":     completion.String(),
		"suggestedFix": completion.String(),
	}, "category", "severity", "description", "location", "suggestedFix")),
}, "overallScore", "summary", "findings")

var enrichSchema = completion.Object(map[string]*completion.Schema{
	"enrichments": completion.Array(completion.Object(map[string]*completion.Schema{
		"id":           completion.String(),
		"suggestedFix": completion.String(),
	}, "id", "suggestedFix")),
}, "enrichments")
