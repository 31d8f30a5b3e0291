package api

import (
	"log/slog"
	"net/http"

	"github.com/dgallion1/modsearch/internal/config"
	"github.com/dgallion1/modsearch/internal/pipeline"
	"github.com/dgallion1/modsearch/internal/platform"
	"github.com/dgallion1/modsearch/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP API server for modsearch.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	store        *store.Store
	platform     *platform.Client
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server. pc may be nil when
// the service only searches definitions already on disk.
func NewServer(orch *pipeline.Orchestrator, st *store.Store, pc *platform.Client, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		store:        st,
		platform:     pc,
		log:          log,
		cfg:          cfg,
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

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/search", s.handleSearch)
		r.Post("/api/search/batch", s.handleBatchSearch)
		r.Get("/api/search/{jobID}/status", s.handleSearchStatus)
		r.Get("/api/search/{jobID}/report", s.handleSearchReport)
		r.Get("/api/stats/fetch", s.handleFetchStats)

		r.Get("/api/modules", s.handleListModules)
		r.Get("/api/definitions", s.handleListDefinitions)
		r.Delete("/api/definitions/{name}", s.handleDeleteDefinition)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
