package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/MikeSquared-Agency/autosocio/internal/agentchat"
	"github.com/MikeSquared-Agency/autosocio/internal/audit"
	"github.com/MikeSquared-Agency/autosocio/internal/catalog"
	"github.com/MikeSquared-Agency/autosocio/internal/cx"
	"github.com/MikeSquared-Agency/autosocio/internal/intent"
	"github.com/MikeSquared-Agency/autosocio/internal/marketplace"
	"github.com/MikeSquared-Agency/autosocio/internal/orchestrator"
	"github.com/MikeSquared-Agency/autosocio/internal/pipeline"
	"github.com/MikeSquared-Agency/autosocio/internal/processor"
)

// Engine runs the service operations.
type Engine interface {
	Interpret(ctx context.Context, req processor.Request) (*intent.IntentObject, error)
	RunPipeline(ctx context.Context, req processor.Request) (*pipeline.Result, error)
	Analyze(ctx context.Context, req processor.Request) (*cx.Result, error)
	Orchestrate(ctx context.Context, req processor.Request) (*orchestrator.Result, error)
	Audit(ctx context.Context, req processor.Request) (*audit.Report, error)
	EnrichAudit(ctx context.Context, req processor.Request) (*audit.Report, error)
	SourceParts(ctx context.Context, req processor.Request) (*marketplace.Result, error)
	Chat(ctx context.Context, req processor.Request) (*agentchat.Response, error)
}

type Server struct {
	router  *chi.Mux
	port    int
	engine  Engine
	catalog *catalog.Catalog
	logger  *zap.Logger
	httpSrv *http.Server
	// busUp reports the NATS connection state; nil when NATS is off.
	busUp func() bool
}

type Option func(*Server)

// WithMetrics serves h on GET /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) { s.router.Method(http.MethodGet, "/metrics", h) }
}

// WithBus reports connected on /health and the status endpoint.
func WithBus(connected func() bool) Option {
	return func(s *Server) { s.busUp = connected }
}

func NewServer(port int, apiToken string, engine Engine, cat *catalog.Catalog, logger *zap.Logger, opts ...Option) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:  router,
		port:    port,
		engine:  engine,
		catalog: cat,
		logger:  logger,
	}
	s.httpSrv = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	router.Get("/health", s.health)
	for _, opt := range opts {
		opt(s)
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/autosocio/status", s.status)

		r.Group(func(r chi.Router) {
			r.Use(BearerAuthMiddleware(apiToken))
			r.Post("/intents", handle(s, engine.Interpret))
			r.Post("/pipeline", handle(s, engine.RunPipeline))
			r.Post("/cx/analyze", handle(s, engine.Analyze))
			r.Post("/orchestrate", handle(s, engine.Orchestrate))
			r.Post("/audits", handle(s, engine.Audit))
			r.Post("/audits/enrich", handle(s, engine.EnrichAudit))
			r.Post("/parts/recommendations", handle(s, engine.SourceParts))
			r.Post("/agents/{agentID}/chat", s.chat)
			r.Get("/catalog/niches", s.niches)
			r.Get("/catalog/agents", s.agents)
		})
	})

	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// Start serves until Shutdown is called. It returns nil after a clean
// shutdown.
func (s *Server) Start() error {
	s.logger.Info("API server starting", zap.String("addr", s.httpSrv.Addr))
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	body := map[string]string{"status": "ok"}
	if s.busUp != nil {
		body["nats"] = busState(s.busUp())
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"service":       "autosocio",
		"status":        "ok",
		"niches":        len(s.catalog.Niches()),
		"active_niches": s.catalog.ActiveNicheIDs(),
		"agents":        len(s.catalog.Agents()),
		"nats":          "disabled",
	}
	if s.busUp != nil {
		body["nats"] = busState(s.busUp())
	}
	writeJSON(w, http.StatusOK, body)
}

func busState(up bool) string {
	if up {
		return "connected"
	}
	return "disconnected"
}

func (s *Server) niches(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.Niches())
}

func (s *Server) agents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.Agents())
}

// handle decodes a processor.Request, runs op and writes its result or the
// error envelope.
func handle[T any](s *Server, op func(context.Context, processor.Request) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req processor.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, processor.CodeBadRequest, "invalid JSON body")
			return
		}
		if req.RequestID == "" {
			req.RequestID = middleware.GetReqID(r.Context())
		}

		out, err := op(r.Context(), req)
		if err != nil {
			code, msg := processor.Classify(err)
			writeError(w, statusFor(code), code, msg)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// chat takes the agent from the path; a body agent_id is ignored.
func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")
	handle(s, func(ctx context.Context, req processor.Request) (*agentchat.Response, error) {
		req.AgentID = agentID
		return s.engine.Chat(ctx, req)
	})(w, r)
}
