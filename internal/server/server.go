package server

import (
	"log/slog"
	"net/http"

	"github.com/claude/splitlog/internal/ingest"
	"github.com/claude/splitlog/internal/storage"
	"github.com/claude/splitlog/internal/workout"
	"github.com/go-chi/chi/v5"
)

// Server exposes the workout controller over HTTP.
type Server struct {
	store  storage.Store
	ctl    *workout.Controller
	alpha  ingest.Provider
	log    *slog.Logger
	apiKey string
	router chi.Router
}

// New creates a new Server with all routes configured.
func New(store storage.Store, ctl *workout.Controller, alphaProvider ingest.Provider, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		store:  store,
		ctl:    ctl,
		alpha:  alphaProvider,
		log:    log,
		apiKey: apiKey,
		router: chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(UserIdentity)

		r.Route("/sessions", func(r chi.Router) {
			r.Get("/active", s.handleActiveSession)
			r.Get("/summary", s.handleSessionSummary)
			r.Get("/", s.handleListSessions)
			r.Post("/", s.handleStartSession)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetSession)
				r.Delete("/", s.handleDiscardSession)
				r.Post("/finalize", s.handleFinalizeSession)

				r.Post("/exercises", s.handleAddExercise)
				r.Put("/exercises/order", s.handleReorderExercises)
				r.Delete("/exercises/{eid}", s.handleRemoveExercise)
				r.Post("/exercises/{eid}/sets", s.handleAddSet)

				r.Patch("/sets/{sid}", s.handleUpdateSet)
				r.Delete("/sets/{sid}", s.handleDeleteSet)
			})
		})

		r.Get("/splits", s.handleListSplits)
		r.Post("/splits", s.handleCreateSplit)

		// Imports write many sessions at once (API key required)
		r.Group(func(r chi.Router) {
			r.Use(APIKeyAuth(s.apiKey))
			r.Post("/import/alpha", s.handleAlphaImport)
		})
	})
}

// SetMCP mounts the MCP streamable HTTP endpoint at /mcp.
func (s *Server) SetMCP(h http.Handler) {
	s.router.Handle("/mcp", h)
}
