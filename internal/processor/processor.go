package processor

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MikeSquared-Agency/autosocio/internal/agentchat"
	"github.com/MikeSquared-Agency/autosocio/internal/audit"
	"github.com/MikeSquared-Agency/autosocio/internal/cx"
	"github.com/MikeSquared-Agency/autosocio/internal/hermes"
	"github.com/MikeSquared-Agency/autosocio/internal/intent"
	"github.com/MikeSquared-Agency/autosocio/internal/marketplace"
	"github.com/MikeSquared-Agency/autosocio/internal/orchestrator"
	"github.com/MikeSquared-Agency/autosocio/internal/pipeline"
	"github.com/MikeSquared-Agency/autosocio/internal/supersede"
)

// Request kinds. Each maps to one operation and to the NATS subjects
// autosocio.request.<kind>, autosocio.<kind>.completed and
// autosocio.<kind>.failed.
const (
	KindIntent      = "intent"
	KindPipeline    = "pipeline"
	KindAnalyze     = "cx"
	KindOrchestrate = "orchestrate"
	KindAudit       = "audit"
	KindAuditEnrich = "audit_enrich"
	KindParts       = "parts"
	KindAgentChat   = "agent_chat"
)

// Request is the input of every operation. Requests sharing a non-blank
// Slot are ordered: a newer one supersedes any older one still running.
type Request struct {
	RequestID string         `json:"request_id,omitempty"`
	Slot      string         `json:"slot,omitempty"`
	UserID    string         `json:"user_id,omitempty"`
	Input     string         `json:"input"`
	AppState  map[string]any `json:"app_state,omitempty"`
	Report    *audit.Report  `json:"report,omitempty"`

	// Parts are the sourcing candidates of a parts request.
	Parts []marketplace.Part `json:"parts,omitempty"`

	// AgentID and History address an agent chat request.
	AgentID string           `json:"agent_id,omitempty"`
	History []agentchat.Turn `json:"history,omitempty"`
}

// Publisher sends result events.
type Publisher interface {
	Publish(subject string, data any) error
}

// ChainRecorder tracks chain runs.
type ChainRecorder interface {
	StartChain(chain string) func(outcome string)
}

// Components are the engines the processor dispatches to.
type Components struct {
	Interpreter  *intent.Interpreter
	Pipeline     *pipeline.Pipeline
	Analyzer     *cx.Analyzer
	Orchestrator *orchestrator.Orchestrator
	Auditor      *audit.Auditor
	Sourcer      *marketplace.Sourcer
	Responder    *agentchat.Responder
}

// Processor runs requests from HTTP and NATS through the engines.
type Processor struct {
	c         Components
	tracker   *supersede.Tracker
	publisher Publisher
	recorder  ChainRecorder
	logger    *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	// mu orders wg.Add against Close.
	mu     sync.Mutex
	closed bool
}

// New builds a Processor. publisher and recorder may be nil.
func New(c Components, tracker *supersede.Tracker, publisher Publisher, recorder ChainRecorder, logger *zap.Logger) *Processor {
	ctx, cancel := context.WithCancel(context.Background())
	return &Processor{
		c:         c,
		tracker:   tracker,
		publisher: publisher,
		recorder:  recorder,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Close cancels requests started from NATS and waits for them to finish.
// Requests delivered after Close are dropped.
func (p *Processor) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.cancel()
	p.wg.Wait()
}

func (p *Processor) Interpret(ctx context.Context, req Request) (*intent.IntentObject, error) {
	return run(ctx, p, KindIntent, req, p.interpret)
}

func (p *Processor) RunPipeline(ctx context.Context, req Request) (*pipeline.Result, error) {
	return run(ctx, p, KindPipeline, req, p.runPipeline)
}

func (p *Processor) Analyze(ctx context.Context, req Request) (*cx.Result, error) {
	return run(ctx, p, KindAnalyze, req, p.analyze)
}

func (p *Processor) Orchestrate(ctx context.Context, req Request) (*orchestrator.Result, error) {
	return run(ctx, p, KindOrchestrate, req, p.orchestrate)
}

// Audit audits req.AppState as an application snapshot.
func (p *Processor) Audit(ctx context.Context, req Request) (*audit.Report, error) {
	return run(ctx, p, KindAudit, req, p.audit)
}

// EnrichAudit enriches req.Report using req.AppState as context.
func (p *Processor) EnrichAudit(ctx context.Context, req Request) (*audit.Report, error) {
	return run(ctx, p, KindAuditEnrich, req, p.enrichAudit)
}

// SourceParts ranks req.Parts for the vehicle and part described in
// req.Input.
func (p *Processor) SourceParts(ctx context.Context, req Request) (*marketplace.Result, error) {
	return run(ctx, p, KindParts, req, p.sourceParts)
}

// Chat answers req.Input as agent req.AgentID.
func (p *Processor) Chat(ctx context.Context, req Request) (*agentchat.Response, error) {
	return run(ctx, p, KindAgentChat, req, p.chat)
}

func (p *Processor) interpret(ctx context.Context, req Request) (*intent.IntentObject, error) {
	return p.c.Interpreter.Interpret(ctx, req.UserID, req.Input)
}

func (p *Processor) runPipeline(ctx context.Context, req Request) (*pipeline.Result, error) {
	return p.c.Pipeline.Run(ctx, req.Input)
}

func (p *Processor) analyze(ctx context.Context, req Request) (*cx.Result, error) {
	return p.c.Analyzer.Analyze(ctx, req.Input)
}

func (p *Processor) orchestrate(ctx context.Context, req Request) (*orchestrator.Result, error) {
	return p.c.Orchestrator.Route(ctx, req.UserID, req.Input, req.AppState)
}

func (p *Processor) audit(ctx context.Context, req Request) (*audit.Report, error) {
	return p.c.Auditor.Audit(ctx, req.AppState)
}

func (p *Processor) enrichAudit(ctx context.Context, req Request) (*audit.Report, error) {
	return p.c.Auditor.Enrich(ctx, req.Report, req.AppState)
}

func (p *Processor) sourceParts(ctx context.Context, req Request) (*marketplace.Result, error) {
	return p.c.Sourcer.Source(ctx, req.Input, req.Parts)
}

func (p *Processor) chat(ctx context.Context, req Request) (*agentchat.Response, error) {
	return p.c.Responder.Respond(ctx, req.AgentID, req.Input, req.History)
}

type operation func(context.Context, Request) (any, error)

func erase[T any](fn func(context.Context, Request) (T, error)) operation {
	return func(ctx context.Context, req Request) (any, error) { return fn(ctx, req) }
}

func (p *Processor) operation(kind string) (operation, bool) {
	switch kind {
	case KindIntent:
		return erase(p.interpret), true
	case KindPipeline:
		return erase(p.runPipeline), true
	case KindAnalyze:
		return erase(p.analyze), true
	case KindOrchestrate:
		return erase(p.orchestrate), true
	case KindAudit:
		return erase(p.audit), true
	case KindAuditEnrich:
		return erase(p.enrichAudit), true
	case KindParts:
		return erase(p.sourceParts), true
	case KindAgentChat:
		return erase(p.chat), true
	}
	return nil, false
}

// claim is a request that holds its slot's ticket.
type claim struct {
	kind   string
	req    Request
	slot   string
	ticket *supersede.Ticket
	ctx    context.Context
	done   func(outcome string)
}

func (p *Processor) begin(ctx context.Context, kind string, req Request) (*claim, error) {
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	c := &claim{kind: kind, req: req, slot: slotKey(kind, req.Slot), done: func(string) {}}
	if p.recorder != nil {
		c.done = p.recorder.StartChain(kind)
	}

	ticket, tctx, err := p.tracker.Begin(ctx, c.slot)
	if err != nil {
		c.done(outcome(err))
		p.publishFailure(kind, req, err)
		return nil, err
	}
	c.ticket, c.ctx = ticket, tctx
	return c, nil
}

func run[T any](ctx context.Context, p *Processor, kind string, req Request, fn func(context.Context, Request) (T, error)) (T, error) {
	c, err := p.begin(ctx, kind, req)
	if err != nil {
		var zero T
		return zero, err
	}
	return finish(ctx, p, c, fn)
}

// finish runs fn under c's ticket. A result that lost the race for its slot
// is discarded and not published.
func finish[T any](ctx context.Context, p *Processor, c *claim, fn func(context.Context, Request) (T, error)) (T, error) {
	var zero T
	defer c.ticket.Release()

	out, err := fn(c.ctx, c.req)
	if err != nil && errors.Is(context.Cause(c.ctx), supersede.ErrSuperseded) {
		err = supersede.ErrSuperseded
	}
	if err == nil {
		err = c.ticket.Commit(ctx)
	}
	c.done(outcome(err))

	if err != nil {
		if errors.Is(err, supersede.ErrSuperseded) {
			p.logger.Info("discarding superseded result",
				zap.String("kind", c.kind),
				zap.String("request_id", c.req.RequestID),
				zap.String("slot", c.slot),
			)
			return zero, err
		}
		p.logger.Error("request failed",
			zap.String("kind", c.kind),
			zap.String("request_id", c.req.RequestID),
			zap.Error(err),
		)
		p.publishFailure(c.kind, c.req, err)
		return zero, err
	}

	p.publishResult(c.kind, c.req, out)
	return out, nil
}

func slotKey(kind, slot string) string {
	if slot == "" {
		return ""
	}
	return kind + ":" + slot
}

func (p *Processor) publishResult(kind string, req Request, payload any) {
	if p.publisher == nil {
		return
	}
	ev, err := hermes.NewEvent(kind, req.RequestID, req.Slot, payload)
	if err != nil {
		p.logger.Error("failed to build result event", zap.String("kind", kind), zap.Error(err))
		return
	}
	if err := p.publisher.Publish(hermes.CompletedSubject(kind), ev); err != nil {
		p.logger.Error("failed to publish result", zap.String("kind", kind), zap.Error(err))
	}
}

func (p *Processor) publishFailure(kind string, req Request, err error) {
	if p.publisher == nil {
		return
	}
	code, msg := Classify(err)
	ev := hermes.NewFailure(kind, req.RequestID, req.Slot, msg, code)
	if perr := p.publisher.Publish(hermes.FailedSubject(kind), ev); perr != nil {
		p.logger.Error("failed to publish failure", zap.String("kind", kind), zap.Error(perr))
	}
}

// HandleRequest is the NATS handler for autosocio.request.<kind>. The slot
// is claimed in arrival order before the request runs on its own goroutine,
// so a newer request can supersede one still in flight.
func (p *Processor) HandleRequest(subject string, data []byte) {
	kind, ok := hermes.KindFromSubject(subject)
	if !ok {
		p.logger.Warn("ignoring message on unexpected subject", zap.String("subject", subject))
		return
	}

	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		p.logger.Error("failed to parse request", zap.String("subject", subject), zap.Error(err))
		p.publishRaw(kind, req, CodeBadRequest, "malformed request")
		return
	}

	op, ok := p.operation(kind)
	if !ok {
		p.logger.Warn("unknown request kind", zap.String("kind", kind))
		p.publishRaw(kind, req, CodeUnknownKind, "unknown request kind "+kind)
		return
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.logger.Warn("dropping request after close", zap.String("kind", kind), zap.String("request_id", req.RequestID))
		return
	}
	p.wg.Add(1)
	p.mu.Unlock()

	c, err := p.begin(p.ctx, kind, req)
	if err != nil {
		p.wg.Done()
		p.logger.Error("failed to claim slot", zap.String("kind", kind), zap.Error(err))
		return
	}

	go func() {
		defer p.wg.Done()
		_, _ = finish(p.ctx, p, c, op)
	}()
}

func (p *Processor) publishRaw(kind string, req Request, code, msg string) {
	if p.publisher == nil {
		return
	}
	ev := hermes.NewFailure(kind, req.RequestID, req.Slot, msg, code)
	if err := p.publisher.Publish(hermes.FailedSubject(kind), ev); err != nil {
		p.logger.Error("failed to publish failure", zap.String("kind", kind), zap.Error(err))
	}
}
