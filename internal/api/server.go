package api

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/andreibyf/aishacrm-engine/internal/engine"
	"github.com/andreibyf/aishacrm-engine/internal/store"
	"github.com/andreibyf/aishacrm-engine/internal/streaming"
	"github.com/andreibyf/aishacrm-engine/internal/validation"
)

// Deps holds the dependencies for the API server. Hub is optional; without
// one the event-stream endpoints report 503.
type Deps struct {
	Store     store.Store
	Runner    *engine.Runner
	Validator validation.Validator
	Hub       streaming.EventHub
	Logger    *slog.Logger
}

// Server exposes the workflow management and invocation API.
type Server struct {
	deps Deps
	http *http.Server
}

// NewServer creates a Server with the given dependencies.
func NewServer(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return &Server{deps: deps}
}

// Handler returns the HTTP handler for all API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)

	mux.HandleFunc("POST /api/workflows", s.handleCreateWorkflow)
	mux.HandleFunc("GET /api/workflows", s.handleListWorkflows)
	mux.HandleFunc("GET /api/workflows/{id}", s.handleGetWorkflow)
	mux.HandleFunc("DELETE /api/workflows/{id}", s.handleDeleteWorkflow)
	mux.HandleFunc("POST /api/workflows/{id}/activate", s.handleSetActive(true))
	mux.HandleFunc("POST /api/workflows/{id}/deactivate", s.handleSetActive(false))
	mux.HandleFunc("POST /api/workflows/validate", s.handleValidateWorkflow)

	mux.HandleFunc("POST /api/workflows/{id}/trigger", s.handleTriggerWorkflow)
	mux.HandleFunc("POST /api/workflows/{id}/test", s.handleTestWorkflow)

	mux.HandleFunc("GET /api/workflows/{id}/executions", s.handleListExecutions)
	mux.HandleFunc("GET /api/executions/{id}", s.handleGetExecution)

	mux.HandleFunc("GET /api/workflows/{id}/diagram", s.handleWorkflowDiagram)
	mux.HandleFunc("GET /api/events", s.handleSSEGlobal)
	mux.HandleFunc("GET /api/workflows/{id}/events", s.handleSSEWorkflow)

	return mux
}

// Start begins serving on the given address. Blocks until the listener fails
// or Shutdown is called.
func (s *Server) Start(addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.deps.Logger.Info("api server listening", "addr", addr)
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}
