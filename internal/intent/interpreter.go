// Package intent maps free-form user text to a structured IntentObject:
// niche classification, niche-specific field extraction and economic scoring.
package intent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MikeSquared-Agency/autosocio/internal/catalog"
	"github.com/MikeSquared-Agency/autosocio/internal/completion"
	"github.com/MikeSquared-Agency/autosocio/internal/stage"
)

const callName = "intent.interpret"

type Interpreter struct {
	llm     completion.Completer
	catalog *catalog.Catalog
	logger  *zap.Logger
	system  string
	schema  *completion.Schema
	now     func() time.Time
}

type Option func(*Interpreter)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(i *Interpreter) { i.now = now }
}

func New(llm completion.Completer, cat *catalog.Catalog, logger *zap.Logger, opts ...Option) *Interpreter {
	i := &Interpreter{
		llm:     llm,
		catalog: cat,
		logger:  logger,
		system:  buildInstruction(cat),
		schema:  buildSchema(cat),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Instruction returns the system instruction generated from the catalog.
func (i *Interpreter) Instruction() string { return i.system }

// Interpret makes one completion call and returns a fresh IntentObject.
// Identical input may yield different objects; ids and timestamps are
// always minted locally.
func (i *Interpreter) Interpret(ctx context.Context, userID, rawInput string) (*IntentObject, error) {
	if strings.TrimSpace(rawInput) == "" {
		return nil, completion.ErrEmptyInput
	}
	if userID == "" {
		userID = DefaultUserID
	}

	i.logger.Info("interpreting intent",
		zap.String("user_id", userID),
		zap.Int("input_len", len(rawInput)),
	)

	resp, err := completion.Decode[llmResponse](ctx, i.llm, completion.Request{
		Name:   callName,
		System: i.system,
		User:   fmt.Sprintf(userPromptTemplate, rawInput),
		Schema: i.schema,
	})
	if err != nil {
		return nil, fmt.Errorf("interpret intent: %w", err)
	}

	obj, err := i.build(userID, rawInput, resp)
	if err != nil {
		return nil, err
	}

	i.logger.Info("intent interpreted",
		zap.String("intent_id", obj.IntentID),
		zap.String("niche_id", obj.NicheID),
		zap.Int("fields", len(obj.ExtractedData)),
		zap.Strings("missing_fields", obj.MissingFields),
	)
	return obj, nil
}

func (i *Interpreter) build(userID, rawInput string, resp llmResponse) (*IntentObject, error) {
	niche, ok := i.catalog.Niche(resp.NicheID)
	if !ok {
		return nil, &stage.ValidationError{Stage: callName, Field: "niche_id", Value: resp.NicheID, Reason: "not in niche registry"}
	}
	if !niche.Active {
		return nil, &stage.ValidationError{Stage: callName, Field: "niche_id", Value: resp.NicheID, Reason: "niche is not active"}
	}

	data, dropped := niche.FilterData(resp.ExtractedData)
	if len(dropped) > 0 {
		i.logger.Warn("dropped fields outside niche schema",
			zap.String("niche_id", niche.ID),
			zap.Strings("fields", dropped),
		)
	}

	obj := &IntentObject{
		IntentID:            uuid.NewString(),
		UserID:              userID,
		Timestamp:           i.now().UTC().Format(time.RFC3339),
		RawInput:            rawInput,
		ProblemType:         resp.ProblemType,
		Sector:              resp.Sector,
		TechnicalNeed:       resp.TechnicalNeed,
		UrgencyLevel:        resp.UrgencyLevel,
		EconomicValue:       resp.EconomicValue,
		DecisionProbability: resp.DecisionProbability,
		ComplexityLevel:     resp.ComplexityLevel,
		RecommendedVertical: resp.RecommendedVertical,
		NicheID:             niche.ID,
		ExtractedData:       data,
		MissingFields:       niche.MissingRequired(data),
		Strategy:            resp.Strategy,
		TechnicalAudit:      resp.TechnicalAudit,
		ConfidenceScore:     resp.ConfidenceScore,
	}

	c := stage.Clamper{Stage: callName}
	c.Unit("urgency_level", &obj.UrgencyLevel)
	c.Unit("decision_probability", &obj.DecisionProbability)
	c.Unit("complexity_level", &obj.ComplexityLevel)
	c.Unit("confidence_score", &obj.ConfidenceScore)
	c.Min("economic_value", &obj.EconomicValue, 0)
	if obj.TechnicalAudit != nil {
		c.Unit("technical_audit.data_density", &obj.TechnicalAudit.DataDensity)
	}
	for _, adj := range c.Adjusted {
		i.logger.Warn("clamped intent score", zap.Error(adj))
	}

	return obj, nil
}
