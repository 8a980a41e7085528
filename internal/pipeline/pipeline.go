// Package pipeline runs the unified three-phase chain: niche activation,
// probabilistic matchmaking and decision optimisation. Each phase consumes
// the previous phase's output; any failure aborts the run.
package pipeline

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
	callPhase1 = "pipeline.phase1"
	callPhase2 = "pipeline.phase2"
	callPhase3 = "pipeline.phase3"
)

type Pipeline struct {
	llm    completion.Completer
	logger *zap.Logger
}

func New(llm completion.Completer, logger *zap.Logger) *Pipeline {
	return &Pipeline{llm: llm, logger: logger}
}

// ActivateNiche builds the market structure for a described need. The model
// decides which scoring variables matter.
func (p *Pipeline) ActivateNiche(ctx context.Context, description string) (*Phase1Result, error) {
	resp, err := completion.Decode[phase1Response](ctx, p.llm, completion.Request{
		Name:   callPhase1,
		System: phase1System,
		User:   fmt.Sprintf(phase1User, description),
		Schema: phase1Schema,
	})
	if err != nil {
		return nil, fmt.Errorf("activate niche: %w", err)
	}

	out := &Phase1Result{
		ActiveNiche:        strings.TrimSpace(resp.ActiveNiche),
		DataModel:          resp.DataModel,
		CompatibilityRules: resp.CompatibilityRules,
		ScoringVariables:   make(map[string]float64, len(resp.ScoringVariables)),
	}
	for _, v := range resp.ScoringVariables {
		name := strings.TrimSpace(v.Variable)
		if name == "" || !stage.Finite(v.Weight) {
			continue
		}
		out.ScoringVariables[name] = v.Weight
	}

	p.logger.Info("niche activated",
		zap.String("nicho_activo", out.ActiveNiche),
		zap.Int("rules", len(out.CompatibilityRules)),
		zap.Int("scoring_variables", len(out.ScoringVariables)),
	)
	return out, nil
}

// RunMatchmaking ranks candidates for need within the activated niche.
// Ranking is the model's; candidates keep the order they were returned in.
func (p *Pipeline) RunMatchmaking(ctx context.Context, need string, phase1 *Phase1Result) (*Phase2Result, error) {
	if phase1 == nil || strings.TrimSpace(phase1.ActiveNiche) == "" {
		return nil, &stage.DependencyError{Stage: callPhase2, Requires: "phase 1 result", Reason: "nicho_activo is empty"}
	}

	nicheJSON, err := json.Marshal(phase1)
	if err != nil {
		return nil, fmt.Errorf("marshal phase 1: %w", err)
	}

	resp, err := completion.Decode[Phase2Result](ctx, p.llm, completion.Request{
		Name:   callPhase2,
		System: phase2System,
		User:   fmt.Sprintf(phase2User, need, nicheJSON),
		Schema: phase2Schema,
	})
	if err != nil {
		return nil, fmt.Errorf("run matchmaking: %w", err)
	}

	out := &Phase2Result{Justification: resp.Justification}
	c := stage.Clamper{Stage: callPhase2}
	taken := make(map[string]bool, len(resp.Matches))
	for _, m := range resp.Matches {
		taken[strings.TrimSpace(m.Name)] = true
	}
	used := make(map[string]bool, len(resp.Matches))
	for i, m := range resp.Matches {
		m.Name = strings.TrimSpace(m.Name)
		if m.Name == "" {
			p.logger.Warn("dropping candidate without name", zap.Int("rank", i+1))
			continue
		}
		if m.Name == NoViableOption {
			return nil, &stage.ValidationError{
				Stage:  callPhase2,
				Field:  fmt.Sprintf("top_matches_priorizados[%d].nombre", i),
				Value:  m.Name,
				Reason: "reserved for the no-viable-option outcome",
			}
		}
		// Phase 3 picks by name, so repeats (two branches of one provider)
		// get the first free ordinal suffix.
		if used[m.Name] {
			unique := m.Name
			for n := 2; used[unique] || taken[unique]; n++ {
				unique = fmt.Sprintf("%s (%d)", m.Name, n)
			}
			p.logger.Warn("renaming duplicate candidate", zap.String("nombre", m.Name), zap.String("as", unique))
			m.Name = unique
		}
		used[m.Name] = true
		if !stage.Finite(m.Score) {
			return nil, &stage.ValidationError{Stage: callPhase2, Field: "score", Value: m.Score, Reason: "not a finite number"}
		}
		if m.ProviderID == "" {
			m.ProviderID = fmt.Sprintf("prov-%d", i+1)
		}
		c.Unit(fmt.Sprintf("top_matches_priorizados[%d].probabilidad_resolucion", i), &m.ResolutionProbability)
		out.Matches = append(out.Matches, m)
	}
	for _, adj := range c.Adjusted {
		p.logger.Warn("clamped candidate probability", zap.Error(adj))
	}

	p.logger.Info("matchmaking complete", zap.Int("candidates", len(out.Matches)))
	return out, nil
}

// OptimizeDecision reduces the ranked candidates to one recommendation, or
// to NoViableOption.
func (p *Pipeline) OptimizeDecision(ctx context.Context, phase2 *Phase2Result) (*Phase3Result, error) {
	if phase2 == nil {
		return nil, &stage.DependencyError{Stage: callPhase3, Requires: "phase 2 result", Reason: "missing"}
	}

	matchesJSON, err := json.Marshal(phase2)
	if err != nil {
		return nil, fmt.Errorf("marshal phase 2: %w", err)
	}

	names := phase2.Names()
	out, err := completion.Decode[Phase3Result](ctx, p.llm, completion.Request{
		Name:   callPhase3,
		System: phase3System,
		User:   fmt.Sprintf(phase3User, matchesJSON),
		Schema: phase3Schema(names),
	})
	if err != nil {
		return nil, fmt.Errorf("optimize decision: %w", err)
	}

	out.RecommendedOption = strings.TrimSpace(out.RecommendedOption)
	switch {
	case out.RecommendedOption == NoViableOption:
		out.NoViableOption = true
	case contains(names, out.RecommendedOption):
		out.NoViableOption = false
	default:
		return nil, &stage.ValidationError{
			Stage:  callPhase3,
			Field:  "opcion_recomendada",
			Value:  out.RecommendedOption,
			Reason: "not one of the phase 2 candidates",
		}
	}

	c := stage.Clamper{Stage: callPhase3}
	c.Unit("nivel_claridad_decision", &out.DecisionClarity)
	for _, adj := range c.Adjusted {
		p.logger.Warn("clamped decision clarity", zap.Error(adj))
	}

	p.logger.Info("decision optimized",
		zap.String("opcion_recomendada", out.RecommendedOption),
		zap.Bool("sin_opcion_viable", out.NoViableOption),
	)
	return &out, nil
}

// Run executes the three phases in order. It returns either a complete
// result or an error, never a partial result.
func (p *Pipeline) Run(ctx context.Context, need string) (*Result, error) {
	phase1, err := p.ActivateNiche(ctx, need)
	if err != nil {
		return nil, err
	}
	state := StateNicheActivated
	p.logger.Debug("pipeline advanced", zap.String("state", string(state)))
	if err := ctx.Err(); err != nil {
		return nil, &RunError{Reached: state, Err: err}
	}

	phase2, err := p.RunMatchmaking(ctx, need, phase1)
	if err != nil {
		return nil, &RunError{Reached: state, Err: err}
	}
	state = StateMatched
	p.logger.Debug("pipeline advanced", zap.String("state", string(state)))
	if err := ctx.Err(); err != nil {
		return nil, &RunError{Reached: state, Err: err}
	}

	phase3, err := p.OptimizeDecision(ctx, phase2)
	if err != nil {
		return nil, &RunError{Reached: state, Err: err}
	}

	return &Result{Phase1: phase1, Phase2: phase2, Phase3: phase3, State: StateDecisionOptimized}, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
