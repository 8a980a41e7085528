package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/MikeSquared-Agency/autosocio/internal/agentchat"
	"github.com/MikeSquared-Agency/autosocio/internal/audit"
	"github.com/MikeSquared-Agency/autosocio/internal/catalog"
	"github.com/MikeSquared-Agency/autosocio/internal/completion"
	"github.com/MikeSquared-Agency/autosocio/internal/cx"
	"github.com/MikeSquared-Agency/autosocio/internal/intent"
	"github.com/MikeSquared-Agency/autosocio/internal/marketplace"
	"github.com/MikeSquared-Agency/autosocio/internal/orchestrator"
	"github.com/MikeSquared-Agency/autosocio/internal/pipeline"
	"github.com/MikeSquared-Agency/autosocio/internal/processor"
	"github.com/MikeSquared-Agency/autosocio/internal/stage"
	"github.com/MikeSquared-Agency/autosocio/internal/supersede"
)

// stubEngine answers every operation with err, or with a canned value.
type stubEngine struct {
	err  error
	last processor.Request
}

func (e *stubEngine) Interpret(_ context.Context, req processor.Request) (*intent.IntentObject, error) {
	e.last = req
	if e.err != nil {
		return nil, e.err
	}
	return &intent.IntentObject{IntentID: "i-1", NicheID: "autosocio", RawInput: req.Input}, nil
}

func (e *stubEngine) RunPipeline(_ context.Context, req processor.Request) (*pipeline.Result, error) {
	e.last = req
	return &pipeline.Result{State: pipeline.StateDecisionOptimized}, e.err
}

func (e *stubEngine) Analyze(_ context.Context, req processor.Request) (*cx.Result, error) {
	e.last = req
	return &cx.Result{}, e.err
}

func (e *stubEngine) Orchestrate(_ context.Context, req processor.Request) (*orchestrator.Result, error) {
	e.last = req
	return &orchestrator.Result{ComplexityLevel: "bajo"}, e.err
}

func (e *stubEngine) Audit(_ context.Context, req processor.Request) (*audit.Report, error) {
	e.last = req
	return &audit.Report{OverallScore: 80}, e.err
}

func (e *stubEngine) EnrichAudit(_ context.Context, req processor.Request) (*audit.Report, error) {
	e.last = req
	return &audit.Report{OverallScore: 80}, e.err
}

func (e *stubEngine) SourceParts(_ context.Context, req processor.Request) (*marketplace.Result, error) {
	e.last = req
	if e.err != nil {
		return nil, e.err
	}
	return &marketplace.Result{VehicleADN: req.Input, Recommendations: []marketplace.Recommendation{
		{PartID: "p1", ViabilityScore: 8, IsMostRecommended: true},
	}}, nil
}

func (e *stubEngine) Chat(_ context.Context, req processor.Request) (*agentchat.Response, error) {
	e.last = req
	if e.err != nil {
		return nil, e.err
	}
	return &agentchat.Response{AgentID: req.AgentID, Text: "ok", Phase: agentchat.PhaseDiagnostic}, nil
}

func newTestServer(t *testing.T, engine Engine, token string, opts ...Option) *Server {
	t.Helper()
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	return NewServer(8760, token, engine, cat, zap.NewNop(), opts...)
}

func do(srv *Server, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, &stubEngine{}, "")

	w := do(srv, "GET", "/health", "", "")
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %q", body["status"])
	}
}

func TestStatusEndpoint(t *testing.T) {
	srv := newTestServer(t, &stubEngine{}, "secret")

	w := do(srv, "GET", "/api/v1/autosocio/status", "", "")
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 without a token, got %d", w.Code)
	}

	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["service"] != "autosocio" {
		t.Errorf("expected service autosocio, got %v", body["service"])
	}
	if body["agents"] != float64(10) {
		t.Errorf("expected 10 agents, got %v", body["agents"])
	}
}

func TestBusStateReported(t *testing.T) {
	up := true
	srv := newTestServer(t, &stubEngine{}, "", WithBus(func() bool { return up }))

	var health map[string]string
	if err := json.NewDecoder(do(srv, "GET", "/health", "", "").Body).Decode(&health); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if health["nats"] != "connected" {
		t.Errorf("expected nats connected, got %q", health["nats"])
	}

	up = false
	var status map[string]any
	if err := json.NewDecoder(do(srv, "GET", "/api/v1/autosocio/status", "", "").Body).Decode(&status); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if status["nats"] != "disconnected" {
		t.Errorf("expected nats disconnected, got %v", status["nats"])
	}
}

func TestStatusEndpoint_ActiveNichesAndNoBus(t *testing.T) {
	srv := newTestServer(t, &stubEngine{}, "")

	var body struct {
		Nats         string   `json:"nats"`
		ActiveNiches []string `json:"active_niches"`
	}
	if err := json.NewDecoder(do(srv, "GET", "/api/v1/autosocio/status", "", "").Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Nats != "disabled" {
		t.Errorf("expected nats disabled, got %q", body.Nats)
	}
	if strings.Join(body.ActiveNiches, ",") != "autosocio,homesocio" {
		t.Errorf("unexpected active niches %v", body.ActiveNiches)
	}
}

func TestNotFoundEndpoint(t *testing.T) {
	srv := newTestServer(t, &stubEngine{}, "")

	w := do(srv, "GET", "/nonexistent", "", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestBearerAuth(t *testing.T) {
	srv := newTestServer(t, &stubEngine{}, "secret")

	tests := []struct {
		name  string
		token string
		want  int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong", "nope", http.StatusUnauthorized},
		{"valid", "secret", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(srv, "GET", "/api/v1/catalog/niches", "", tt.token)
			if w.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestIntentsEndpoint(t *testing.T) {
	engine := &stubEngine{}
	srv := newTestServer(t, engine, "")

	w := do(srv, "POST", "/api/v1/intents", `{"input":"faro Jetta","user_id":"u7","slot":"chat-1"}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var obj intent.IntentObject
	if err := json.NewDecoder(w.Body).Decode(&obj); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if obj.RawInput != "faro Jetta" {
		t.Errorf("expected raw input echoed, got %q", obj.RawInput)
	}
	if engine.last.UserID != "u7" || engine.last.Slot != "chat-1" {
		t.Errorf("request fields not forwarded: %+v", engine.last)
	}
	if engine.last.RequestID == "" {
		t.Error("expected a request id from the middleware")
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"transport", &completion.TransportError{Call: "c", Err: errors.New("x")}, http.StatusBadGateway, completion.CodeTransport},
		{"parse", fmt.Errorf("w: %w", &completion.ParseError{Call: "c"}), http.StatusBadGateway, completion.CodeParse},
		{"schema", fmt.Errorf("w: %w", &completion.SchemaError{Call: "c", Err: errors.New("x")}), http.StatusInternalServerError, completion.CodeSchema},
		{"dependency", &stage.DependencyError{Stage: "s", Requires: "r"}, http.StatusUnprocessableEntity, stage.CodeDependency},
		{"validation", &stage.ValidationError{Stage: "s", Field: "f"}, http.StatusUnprocessableEntity, stage.CodeValidation},
		{"superseded", supersede.ErrSuperseded, http.StatusConflict, supersede.CodeSuperseded},
		{"empty", completion.ErrEmptyInput, http.StatusBadRequest, processor.CodeEmptyInput},
		{"internal", errors.New("boom"), http.StatusInternalServerError, processor.CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, &stubEngine{err: tt.err}, "")

			w := do(srv, "POST", "/api/v1/pipeline", `{"input":"algo"}`, "")
			if w.Code != tt.status {
				t.Errorf("expected %d, got %d", tt.status, w.Code)
			}
			var body ErrorResponse
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode error: %v", err)
			}
			if body.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, body.Code)
			}
			if body.Error == "" {
				t.Error("expected an error message")
			}
		})
	}
}

func TestCompletionErrorsUseRetryMessage(t *testing.T) {
	srv := newTestServer(t, &stubEngine{err: &completion.TransportError{Call: "c", Err: errors.New("dial tcp 10.0.0.1")}}, "")

	w := do(srv, "POST", "/api/v1/cx/analyze", `{"input":"algo"}`, "")
	var body ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error: %v", err)
	}
	if body.Error != processor.RetryMessage {
		t.Errorf("expected retry message, got %q", body.Error)
	}
}

func TestPartsRecommendationsEndpoint(t *testing.T) {
	engine := &stubEngine{}
	srv := newTestServer(t, engine, "")

	w := do(srv, "POST", "/api/v1/parts/recommendations", `{"input":"faro Jetta 2018","parts":[{"id":"p1","name":"Faro LED"}]}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(engine.last.Parts) != 1 || engine.last.Parts[0].ID != "p1" {
		t.Errorf("expected the parts to reach the engine, got %+v", engine.last.Parts)
	}

	var body marketplace.Result
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(body.Recommendations) != 1 || !body.Recommendations[0].IsMostRecommended {
		t.Errorf("unexpected recommendations %+v", body.Recommendations)
	}
}

func TestAgentChatEndpoint_AgentFromPath(t *testing.T) {
	engine := &stubEngine{}
	srv := newTestServer(t, engine, "")

	w := do(srv, "POST", "/api/v1/agents/quality-supervisor/chat", `{"input":"hola","agent_id":"other","history":[{"role":"user","content":"antes"}]}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if engine.last.AgentID != "quality-supervisor" {
		t.Errorf("expected agent from path, got %q", engine.last.AgentID)
	}
	if len(engine.last.History) != 1 {
		t.Errorf("expected history to reach the engine, got %+v", engine.last.History)
	}
}

func TestInvalidJSONBody(t *testing.T) {
	srv := newTestServer(t, &stubEngine{}, "")

	w := do(srv, "POST", "/api/v1/orchestrate", `{not json`, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestCatalogEndpoints(t *testing.T) {
	srv := newTestServer(t, &stubEngine{}, "")

	w := do(srv, "GET", "/api/v1/catalog/agents", "", "")
	var agents []catalog.Agent
	if err := json.NewDecoder(w.Body).Decode(&agents); err != nil {
		t.Fatalf("failed to decode agents: %v", err)
	}
	if len(agents) != 10 {
		t.Errorf("expected 10 agents, got %d", len(agents))
	}

	w = do(srv, "GET", "/api/v1/catalog/niches", "", "")
	var niches []catalog.Niche
	if err := json.NewDecoder(w.Body).Decode(&niches); err != nil {
		t.Fatalf("failed to decode niches: %v", err)
	}
	if len(niches) == 0 {
		t.Error("expected niches")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "autosocio_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	srv := newTestServer(t, &stubEngine{}, "secret", WithMetrics(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	w := do(srv, "GET", "/metrics", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "autosocio_test_total 1") {
		t.Errorf("metric missing from output:\n%s", w.Body.String())
	}
}

func TestIntentsEndToEnd(t *testing.T) {
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	fake := completion.NewFake().Script("intent.interpret", completion.Reply(map[string]any{
		"problem_type":         "sourcing",
		"sector":               "AUTOMOTIVE",
		"technical_need":       "faro",
		"urgency_level":        0.5,
		"economic_value":       80,
		"decision_probability": 0.5,
		"complexity_level":     0.2,
		"recommended_vertical": "autosocio",
		"niche_id":             "autosocio",
		"extracted_data":       map[string]any{"marca": "VW", "modelo": "Jetta"},
		"technical_audit":      map[string]any{"integrity_check": "ok", "data_density": 0.5, "validation_status": "PARTIAL"},
		"confidence_score":     0.7,
	}))
	llm := completion.New(fake, zap.NewNop())
	proc := processor.New(processor.Components{Interpreter: intent.New(llm, cat, zap.NewNop())},
		supersede.NewTracker(supersede.NewMemoryCounter(), zap.NewNop()), nil, nil, zap.NewNop())
	defer proc.Close()

	srv := NewServer(8760, "", proc, cat, zap.NewNop())
	w := do(srv, "POST", "/api/v1/intents", `{"input":"faro para Jetta"}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var obj intent.IntentObject
	if err := json.NewDecoder(w.Body).Decode(&obj); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if obj.UserID != intent.DefaultUserID {
		t.Errorf("expected guest user, got %q", obj.UserID)
	}
	if len(obj.MissingFields) == 0 {
		t.Error("expected missing required fields for a partial extraction")
	}
}
