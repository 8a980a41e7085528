// Package orchestrator classifies a user input against the agent catalog
// and dispatches the routes the activated agents map to.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/MikeSquared-Agency/autosocio/internal/catalog"
	"github.com/MikeSquared-Agency/autosocio/internal/completion"
	"github.com/MikeSquared-Agency/autosocio/internal/intent"
	"github.com/MikeSquared-Agency/autosocio/internal/pipeline"
	"github.com/MikeSquared-Agency/autosocio/internal/stage"
)

const callClassify = "orchestrator.classify"

// routeOrder is the order dispatched routes run in.
var routeOrder = []catalog.Route{catalog.RouteIntent, catalog.RouteUnifiedPipeline}

// PipelineRunner runs the unified three-phase chain.
type PipelineRunner interface {
	Run(ctx context.Context, need string) (*pipeline.Result, error)
}

// IntentInterpreter turns raw input into an IntentObject.
type IntentInterpreter interface {
	Interpret(ctx context.Context, userID, rawInput string) (*intent.IntentObject, error)
}

type Orchestrator struct {
	llm         completion.Completer
	pipeline    PipelineRunner
	interpreter IntentInterpreter
	logger      *zap.Logger

	routes map[string]catalog.Route
	system string
	schema *completion.Schema
}

func New(llm completion.Completer, cat *catalog.Catalog, runner PipelineRunner, interp IntentInterpreter, logger *zap.Logger) *Orchestrator {
	routes := make(map[string]catalog.Route)
	for _, a := range cat.Agents() {
		if a.Route != catalog.RouteNone {
			routes[a.Name] = a.Route
		}
	}
	return &Orchestrator{
		llm:         llm,
		pipeline:    runner,
		interpreter: interp,
		logger:      logger,
		routes:      routes,
		system:      buildInstruction(cat),
		schema:      buildSchema(cat),
	}
}

// Route classifies userInput, then runs each route its activated agents
// map to. Route failures are recorded on the result; only a failed
// classification is returned as an error.
func (o *Orchestrator) Route(ctx context.Context, userID, userInput string, appState map[string]any) (*Result, error) {
	if strings.TrimSpace(userInput) == "" {
		return nil, completion.ErrEmptyInput
	}
	if appState == nil {
		appState = map[string]any{}
	}
	state, err := json.Marshal(appState)
	if err != nil {
		return nil, fmt.Errorf("marshal app state: %w", err)
	}

	res, err := completion.Decode[Result](ctx, o.llm, completion.Request{
		Name:   callClassify,
		System: o.system,
		User:   fmt.Sprintf(userPromptTemplate, userInput, state),
		Schema: o.schema,
	})
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}

	// Dispatch data is never taken from the model.
	res.PipelineData, res.PipelineError = nil, nil
	res.IntentData, res.IntentError = nil, nil

	c := stage.Clamper{Stage: callClassify}
	c.Unit("coherencia_global", &res.GlobalCoherence)
	for _, adj := range c.Adjusted {
		o.logger.Warn("clamped orchestration score", zap.Error(adj))
	}

	activated := o.activatedRoutes(res.ActivatedAgents)
	o.logger.Info("orchestration classified",
		zap.String("nivel_complejidad", res.ComplexityLevel),
		zap.Int("agents", len(res.ActivatedAgents)),
		zap.Int("routes", len(activated)),
	)

	for _, route := range routeOrder {
		if !activated[route] {
			continue
		}
		switch route {
		case catalog.RouteIntent:
			o.runIntent(ctx, userID, userInput, &res)
		case catalog.RouteUnifiedPipeline:
			o.runPipeline(ctx, userInput, &res)
		}
	}

	return &res, nil
}

func (o *Orchestrator) activatedRoutes(agents []Activation) map[catalog.Route]bool {
	out := make(map[catalog.Route]bool)
	for _, a := range agents {
		if route, ok := o.routes[a.Agent]; ok {
			out[route] = true
		}
	}
	return out
}

func (o *Orchestrator) runIntent(ctx context.Context, userID, userInput string, res *Result) {
	if o.interpreter == nil {
		return
	}
	obj, err := o.interpreter.Interpret(ctx, userID, userInput)
	if err != nil {
		o.logger.Error("intent route failed", zap.Error(err))
		res.IntentError = failure(err)
		return
	}
	res.IntentData = obj
	o.markCompleted(res, catalog.RouteIntent)
}

func (o *Orchestrator) runPipeline(ctx context.Context, userInput string, res *Result) {
	if o.pipeline == nil {
		return
	}
	out, err := o.pipeline.Run(ctx, userInput)
	if err != nil {
		o.logger.Error("unified pipeline failed", zap.Error(err))
		res.PipelineError = failure(err)
		return
	}
	res.PipelineData = out
	res.NextAction = fmt.Sprintf("Pipeline Unificado completado: %s. Acción sugerida: %s",
		out.Phase3.RecommendedOption, out.Phase3.UserAction)
	o.markCompleted(res, catalog.RouteUnifiedPipeline)
}

func (o *Orchestrator) markCompleted(res *Result, route catalog.Route) {
	for i := range res.ActivatedAgents {
		if o.routes[res.ActivatedAgents[i].Agent] == route {
			res.ActivatedAgents[i].Status = StatusCompleted
		}
	}
}

func failure(err error) *RouteFailure {
	return &RouteFailure{Code: stage.CodeOf(err), Message: err.Error()}
}
