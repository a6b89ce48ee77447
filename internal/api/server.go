// Package api serves the rewrite pipeline and document upload over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/valpere/simplylegal/internal/config"
	"github.com/valpere/simplylegal/internal/orchestrator"
)

// Pipeline runs one rewrite request.
type Pipeline interface {
	Run(ctx context.Context, req orchestrator.Request) (*orchestrator.Outcome, error)
}

// Server is the HTTP API server.
type Server struct {
	router   chi.Router
	pipeline Pipeline
	log      *slog.Logger
	cfg      config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(p Pipeline, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		pipeline: p,
		log:      log,
		cfg:      cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/", s.handleRoot)
		r.Post("/llm_output", s.handleLLMOutput)
		r.Post("/upload", s.handleUpload)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Hello World"})
}
