package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/MikeSquared-Agency/autosocio/internal/catalog"
	"github.com/MikeSquared-Agency/autosocio/internal/completion"
	"github.com/MikeSquared-Agency/autosocio/internal/intent"
	"github.com/MikeSquared-Agency/autosocio/internal/pipeline"
	"github.com/MikeSquared-Agency/autosocio/internal/stage"
)

type stubPipeline struct {
	calls  int
	result *pipeline.Result
	err    error
}

func (s *stubPipeline) Run(_ context.Context, _ string) (*pipeline.Result, error) {
	s.calls++
	return s.result, s.err
}

type stubInterpreter struct {
	calls int
	obj   *intent.IntentObject
	err   error
}

func (s *stubInterpreter) Interpret(_ context.Context, _, _ string) (*intent.IntentObject, error) {
	s.calls++
	return s.obj, s.err
}

func classifyReply(complexity string, agents ...string) map[string]any {
	activated := make([]map[string]any, 0, len(agents))
	for _, a := range agents {
		activated = append(activated, map[string]any{
			"agente":            a,
			"motivo_activacion": "necesario",
			"estado":            StatusPending,
		})
	}
	return map[string]any{
		"evento_sistema":       "nueva_solicitud",
		"nivel_complejidad":    complexity,
		"pipeline_activado":    activated,
		"coherencia_global":    0.9,
		"riesgo_operativo":     "bajo",
		"accion_siguiente":     "responder al usuario",
		"registro_aprendizaje": true,
	}
}

func pipelineResult() *pipeline.Result {
	return &pipeline.Result{
		Phase1: &pipeline.Phase1Result{ActiveNiche: "refacciones"},
		Phase2: &pipeline.Phase2Result{Matches: []pipeline.Match{{Name: "Refaccionaria Norte"}}},
		Phase3: &pipeline.Phase3Result{RecommendedOption: "Refaccionaria Norte", UserAction: "cotizar"},
		State:  pipeline.StateDecisionOptimized,
	}
}

func newOrchestrator(t *testing.T, fake *completion.Fake, p PipelineRunner, i IntentInterpreter) *Orchestrator {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)
	return New(completion.New(fake, zap.NewNop()), cat, p, i, zap.NewNop())
}

func TestRoute_LowComplexityDoesNotRunPipeline(t *testing.T) {
	fake := completion.NewFake().Script(callClassify, completion.Reply(classifyReply("bajo", "Supervisor de Calidad")))
	p := &stubPipeline{result: pipelineResult()}

	res, err := newOrchestrator(t, fake, p, &stubInterpreter{}).Route(context.Background(), "u1", "hola", nil)
	require.NoError(t, err)

	assert.Equal(t, "bajo", res.ComplexityLevel)
	assert.Nil(t, res.PipelineData)
	assert.Nil(t, res.PipelineError)
	assert.Equal(t, 0, p.calls)
	assert.Equal(t, "responder al usuario", res.NextAction)
}

func TestRoute_NicheActivatorRunsPipelineOnce(t *testing.T) {
	fake := completion.NewFake().Script(callClassify, completion.Reply(
		classifyReply("alto", "Activador de Nichos", "Motor de Matchmaking", "Supervisor de Calidad")))
	p := &stubPipeline{result: pipelineResult()}

	res, err := newOrchestrator(t, fake, p, &stubInterpreter{}).Route(context.Background(), "u1", "necesito bomba", nil)
	require.NoError(t, err)

	assert.Equal(t, 1, p.calls)
	require.NotNil(t, res.PipelineData)
	assert.Equal(t, "Refaccionaria Norte", res.PipelineData.Phase3.RecommendedOption)
	assert.Contains(t, res.NextAction, "Refaccionaria Norte")
	assert.Contains(t, res.NextAction, "cotizar")

	status := map[string]string{}
	for _, a := range res.ActivatedAgents {
		status[a.Agent] = a.Status
	}
	assert.Equal(t, StatusCompleted, status["Activador de Nichos"])
	assert.Equal(t, StatusCompleted, status["Motor de Matchmaking"])
	assert.Equal(t, StatusPending, status["Supervisor de Calidad"])
}

func TestRoute_PipelineFailureDegradesGracefully(t *testing.T) {
	fake := completion.NewFake().Script(callClassify, completion.Reply(classifyReply("medio", "Activador de Nichos")))
	p := &stubPipeline{err: &completion.TransportError{Call: "pipeline.phase1", Temporary: true, Err: errors.New("timeout")}}

	res, err := newOrchestrator(t, fake, p, &stubInterpreter{}).Route(context.Background(), "u1", "necesito algo", nil)
	require.NoError(t, err)

	assert.Nil(t, res.PipelineData)
	require.NotNil(t, res.PipelineError)
	assert.Equal(t, completion.CodeTransport, res.PipelineError.Code)
	assert.Equal(t, "responder al usuario", res.NextAction)
	assert.Equal(t, StatusPending, res.ActivatedAgents[0].Status)
}

func TestRoute_IntentRouteRunsBeforePipeline(t *testing.T) {
	fake := completion.NewFake().Script(callClassify, completion.Reply(
		classifyReply("medio", "Motor de Matchmaking", "Orquestador de Intención")))

	var order []string
	p := &orderedPipeline{order: &order}
	i := &orderedInterpreter{order: &order}

	res, err := newOrchestrator(t, fake, p, i).Route(context.Background(), "u1", "faro Jetta", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"intent", "pipeline"}, order)
	require.NotNil(t, res.IntentData)
	assert.Equal(t, "autosocio", res.IntentData.NicheID)
}

func TestRoute_IntentFailureRecorded(t *testing.T) {
	fake := completion.NewFake().Script(callClassify, completion.Reply(classifyReply("bajo", "Orquestador de Intención")))
	i := &stubInterpreter{err: &stage.ValidationError{Stage: "intent.interpret", Field: "niche_id", Reason: "unknown"}}

	res, err := newOrchestrator(t, fake, &stubPipeline{}, i).Route(context.Background(), "u1", "algo", nil)
	require.NoError(t, err)

	assert.Nil(t, res.IntentData)
	require.NotNil(t, res.IntentError)
	assert.Equal(t, stage.CodeValidation, res.IntentError.Code)
}

func TestRoute_RepeatedAgentsDispatchOnce(t *testing.T) {
	fake := completion.NewFake().Script(callClassify, completion.Reply(
		classifyReply("alto", "Activador de Nichos", "Activador de Nichos", "Motor de Matchmaking")))
	p := &stubPipeline{result: pipelineResult()}

	_, err := newOrchestrator(t, fake, p, &stubInterpreter{}).Route(context.Background(), "u1", "algo", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, p.calls)
}

func TestRoute_UnknownAgentRejectedBySchema(t *testing.T) {
	fake := completion.NewFake().Script(callClassify, completion.Reply(classifyReply("bajo", "Agente Fantasma")))
	_, err := newOrchestrator(t, fake, &stubPipeline{}, &stubInterpreter{}).Route(context.Background(), "u1", "algo", nil)

	var pe *completion.ParseError
	assert.ErrorAs(t, err, &pe)
}

func TestRoute_ClassificationFailureIsReturned(t *testing.T) {
	fake := completion.NewFake().Script(callClassify, completion.Fail(errors.New("connection refused")))
	p := &stubPipeline{}

	res, err := newOrchestrator(t, fake, p, &stubInterpreter{}).Route(context.Background(), "u1", "algo", nil)
	assert.Nil(t, res)

	var te *completion.TransportError
	assert.ErrorAs(t, err, &te)
	assert.Equal(t, 0, p.calls)
}

func TestRoute_ClampsCoherenceAndIgnoresModelDispatchData(t *testing.T) {
	reply := classifyReply("bajo")
	reply["coherencia_global"] = 4.2
	reply["pipeline_data"] = map[string]any{"state": "DecisionOptimized"}
	fake := completion.NewFake().Script(callClassify, completion.Reply(reply))

	res, err := newOrchestrator(t, fake, &stubPipeline{}, &stubInterpreter{}).Route(context.Background(), "u1", "algo", nil)
	require.NoError(t, err)

	assert.Equal(t, 1.0, res.GlobalCoherence)
	assert.Nil(t, res.PipelineData)
}

func TestRoute_SendsAppState(t *testing.T) {
	fake := completion.NewFake().Script(callClassify, completion.Reply(classifyReply("bajo")))
	_, err := newOrchestrator(t, fake, &stubPipeline{}, &stubInterpreter{}).
		Route(context.Background(), "u1", "algo", map[string]any{"nicho_activo": "homesocio"})
	require.NoError(t, err)

	calls := fake.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].User, `"nicho_activo":"homesocio"`)
	assert.Contains(t, calls[0].System, "Activador de Nichos")
}

type orderedPipeline struct{ order *[]string }

func (p *orderedPipeline) Run(context.Context, string) (*pipeline.Result, error) {
	*p.order = append(*p.order, "pipeline")
	return pipelineResult(), nil
}

type orderedInterpreter struct{ order *[]string }

func (i *orderedInterpreter) Interpret(context.Context, string, string) (*intent.IntentObject, error) {
	*i.order = append(*i.order, "intent")
	return &intent.IntentObject{NicheID: "autosocio"}, nil
}
