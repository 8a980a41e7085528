// Package agentchat answers a user message in the voice of one catalog agent,
// with the agent's read of the funnel phase and conversation metrics.
package agentchat

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/MikeSquared-Agency/autosocio/internal/catalog"
	"github.com/MikeSquared-Agency/autosocio/internal/completion"
	"github.com/MikeSquared-Agency/autosocio/internal/stage"
)

const callName = "agent.respond"

// DefaultHistoryLimit caps how many earlier turns are sent to the model.
const DefaultHistoryLimit = 20

type Responder struct {
	llm          completion.Completer
	catalog      *catalog.Catalog
	logger       *zap.Logger
	historyLimit int
}

type Option func(*Responder)

// WithHistoryLimit overrides DefaultHistoryLimit. Zero sends no history.
func WithHistoryLimit(n int) Option {
	return func(r *Responder) { r.historyLimit = max(n, 0) }
}

func New(llm completion.Completer, cat *catalog.Catalog, logger *zap.Logger, opts ...Option) *Responder {
	r := &Responder{llm: llm, catalog: cat, logger: logger, historyLimit: DefaultHistoryLimit}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Respond makes one completion call as agentID and returns its answer.
func (r *Responder) Respond(ctx context.Context, agentID, message string, history []Turn) (*Response, error) {
	if strings.TrimSpace(message) == "" {
		return nil, completion.ErrEmptyInput
	}
	agent, ok := r.catalog.Agent(agentID)
	if !ok {
		return nil, &stage.ValidationError{Stage: callName, Field: "agent_id", Value: agentID, Reason: "not in agent catalog"}
	}

	resp, err := completion.Decode[llmResponse](ctx, r.llm, completion.Request{
		Name:   callName,
		System: fmt.Sprintf(systemTemplate, agent.Name, agent.Role),
		User:   r.userContent(message, history),
		Schema: responseSchema,
	})
	if err != nil {
		return nil, fmt.Errorf("agent %s: %w", agent.ID, err)
	}

	out := &Response{
		AgentID:      agent.ID,
		Text:         strings.TrimSpace(resp.Text),
		Phase:        resp.Phase,
		Metrics:      resp.Metrics,
		VisualPrompt: strings.TrimSpace(resp.VisualPrompt),
	}
	if out.Text == "" {
		out.Text = DefaultText
	}

	c := stage.Clamper{Stage: callName}
	c.Range("metrics.confidence", &out.Metrics.Confidence, MetricMin, MetricMax)
	c.Range("metrics.pressure", &out.Metrics.Pressure, MetricMin, MetricMax)
	c.Range("metrics.dominance", &out.Metrics.Dominance, MetricMin, MetricMax)
	for _, adj := range c.Adjusted {
		r.logger.Warn("clamped agent metric", zap.Error(adj))
	}

	r.logger.Info("agent responded",
		zap.String("agent_id", agent.ID),
		zap.String("phase", string(out.Phase)),
		zap.String("manipulation_risk", out.Metrics.ManipulationRisk),
	)
	return out, nil
}

func (r *Responder) userContent(message string, history []Turn) string {
	if len(history) > r.historyLimit {
		history = history[len(history)-r.historyLimit:]
	}
	if len(history) == 0 {
		return message
	}
	var b strings.Builder
	b.WriteString(message)
	b.WriteString(historyHeader)
	for _, t := range history {
		fmt.Fprintf(&b, "%s: %s\n", t.Role, t.Content)
	}
	return b.String()
}
