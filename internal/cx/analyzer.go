// Package cx implements the dual-engine post analysis: C1 validates the
// technical content of a post and JODA turns that validation into a
// conversation strategy.
package cx

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/MikeSquared-Agency/autosocio/internal/completion"
	"github.com/MikeSquared-Agency/autosocio/internal/stage"
)

const (
	callC1   = "cx.c1"
	callJoda = "cx.joda"

	DefaultRiskFieldThreshold = 3
)

type Analyzer struct {
	llm       completion.Completer
	logger    *zap.Logger
	threshold int
}

type Option func(*Analyzer)

// WithRiskFieldThreshold sets how many required validation fields a post
// may list before its risk is raised to at least Medio.
func WithRiskFieldThreshold(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.threshold = n
		}
	}
}

func New(llm completion.Completer, logger *zap.Logger, opts ...Option) *Analyzer {
	a := &Analyzer{llm: llm, logger: logger, threshold: DefaultRiskFieldThreshold}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// RunTechnicalValidation runs the C1 engine on a post.
func (a *Analyzer) RunTechnicalValidation(ctx context.Context, text string) (*C1Output, error) {
	if strings.TrimSpace(text) == "" {
		return nil, completion.ErrEmptyInput
	}

	out, err := completion.Decode[C1Output](ctx, a.llm, completion.Request{
		Name:   callC1,
		System: c1System,
		User:   fmt.Sprintf(c1User, text),
		Schema: c1Schema,
	})
	if err != nil {
		return nil, fmt.Errorf("c1: %w", err)
	}

	a.escalate(&out)

	a.logger.Info("c1 complete",
		zap.String("risk_score", string(out.RiskScore)),
		zap.Int("required_fields", len(out.RequiredValidationFields)),
		zap.Bool("risk_escalated", out.RiskEscalated),
	)
	return &out, nil
}

// escalate raises the risk of ambiguous or field-heavy posts to at least
// Medio regardless of what the model rated.
func (a *Analyzer) escalate(out *C1Output) {
	var reason string
	switch {
	case out.VariantAmbiguity:
		reason = "part has variants"
	case len(out.RequiredValidationFields) > a.threshold:
		reason = fmt.Sprintf("%d required validation fields exceed threshold %d", len(out.RequiredValidationFields), a.threshold)
	default:
		return
	}

	raised := out.RiskScore.AtLeast(RiskMedium)
	if raised == out.RiskScore {
		return
	}
	a.logger.Warn("escalating c1 risk",
		zap.String("from", string(out.RiskScore)),
		zap.String("to", string(raised)),
		zap.String("reason", reason),
	)
	out.RiskScore = raised
	out.RiskEscalated = true
	out.EscalationReason = reason
}

// RunConversationalActivation runs JODA on a C1 result. Only the serialized
// C1 output is sent; the original post is not.
func (a *Analyzer) RunConversationalActivation(ctx context.Context, c1 *C1Output) (*JodaOutput, error) {
	if c1 == nil {
		return nil, &stage.DependencyError{Stage: callJoda, Requires: "c1 output", Reason: "missing"}
	}
	if !c1.RiskScore.Valid() {
		return nil, &stage.DependencyError{Stage: callJoda, Requires: "c1 risk_score", Reason: fmt.Sprintf("got %q", c1.RiskScore)}
	}

	payload, err := json.Marshal(c1)
	if err != nil {
		return nil, fmt.Errorf("marshal c1: %w", err)
	}

	out, err := completion.Decode[JodaOutput](ctx, a.llm, completion.Request{
		Name:   callJoda,
		System: jodaSystem,
		User:   fmt.Sprintf(jodaUser, payload),
		Schema: jodaSchema,
	})
	if err != nil {
		return nil, fmt.Errorf("joda: %w", err)
	}

	for i, step := range out.PrivateFlow.Steps() {
		if strings.TrimSpace(step) == "" {
			return nil, &stage.ValidationError{
				Stage:  callJoda,
				Field:  fmt.Sprintf("private_flow.step_%d", i+1),
				Value:  step,
				Reason: "blank step",
			}
		}
	}

	a.logger.Info("joda complete", zap.Int("public_reply_len", len(out.PublicReply)))
	return &out, nil
}

// Analyze runs C1 and then JODA on its output.
func (a *Analyzer) Analyze(ctx context.Context, text string) (*Result, error) {
	c1, err := a.RunTechnicalValidation(ctx, text)
	if err != nil {
		return nil, err
	}
	joda, err := a.RunConversationalActivation(ctx, c1)
	if err != nil {
		return nil, err
	}
	return &Result{C1: c1, Joda: joda}, nil
}
