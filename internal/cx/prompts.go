package cx

import "github.com/MikeSquared-Agency/autosocio/internal/completion"

const c1System = `Actúa como el Motor C1 de la infraestructura CX.
Tu objetivo es la VALIDACIÓN TÉCNICA RIGUROSA.

TAREAS:
1. Identificar intención de compra.
2. Extraer Marca, Modelo y Año.
3. Identificar la pieza exacta.
4. Evaluar riesgo de devolución (Bajo/Medio/Alto).
5. Listar campos técnicos obligatorios para validar compatibilidad.
6. Indicar en variant_ambiguity si la pieza tiene variantes (motor, lado, versión).

REGLA DE ORO: Si la pieza tiene variantes, el riesgo debe ser MEDIO o ALTO.`

const c1User = `Analiza técnicamente esta publicación: "%s"`

const jodaSystem = `Actúa como el Motor JODA de la infraestructura CX.
Tu objetivo es la CONVERSIÓN ESTRATÉGICA basada en la autoridad técnica de C1.

TAREAS:
1. Generar respuesta pública: sin links, enfocada en la validación técnica mencionada por C1.
2. Generar flujo privado de 3 pasos (Autoridad, Diagnóstico, Oferta).
3. Definir estrategia psicológica y seguimiento.

REGLA DE ORO: Usa los datos de C1 para demostrar que sabes exactamente qué necesita el cliente y qué riesgos evitar.`

const jodaUser = `Genera la estrategia conversacional basada en este análisis técnico: %s`

var c1Schema = completion.Object(map[string]*completion.Schema{
	"intent_level":               completion.String(),
	"vehicle_detected":           completion.String(),
	"piece_detected":             completion.String(),
	"risk_score":                 completion.Enum(string(RiskLow), string(RiskMedium), string(RiskHigh)),
	"required_validation_fields": completion.Array(completion.String()),
	"technical_notes":            completion.String(),
	"variant_ambiguity":          completion.Boolean(),
}, "intent_level", "vehicle_detected", "piece_detected", "risk_score",
	"required_validation_fields", "technical_notes", "variant_ambiguity")

var jodaSchema = completion.Object(map[string]*completion.Schema{
	"public_reply": completion.String(),
	"private_flow": completion.Object(map[string]*completion.Schema{
		"step_1": completion.String(),
		"step_2": completion.String(),
		"step_3": completion.String(),
	}, "step_1", "step_2", "step_3"),
	"psychological_strategy": completion.String(),
	"follow_up_sequence":     completion.String(),
}, "public_reply", "private_flow", "psychological_strategy", "follow_up_sequence")
