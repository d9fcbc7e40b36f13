package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/thinkwright/hl7v/internal/config"
	"github.com/thinkwright/hl7v/internal/reference"
	"github.com/thinkwright/hl7v/internal/store"
)

// History is the part of the history store the API uses.
type History interface {
	Save(raw, source string) (store.HistoryEntry, error)
	Search(query string, limit int) ([]store.HistoryEntry, error)
}

// Server is the HTTP API for splitting messages and browsing the catalog.
type Server struct {
	router  chi.Router
	catalog *reference.Catalog
	history History
	log     *slog.Logger
	cfg     config.Config
}

// NewServer creates and configures the HTTP server. history may be nil, in
// which case split requests are not recorded and /api/history is absent.
func NewServer(catalog *reference.Catalog, history History, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		catalog: catalog,
		history: history,
		log:     log,
		cfg:     cfg,
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
		r.Post("/split", s.handleSplit)
		r.Get("/segments", s.handleListSegments)
		r.Get("/segments/{code}", s.handleGetSegment)
		if s.history != nil {
			r.Get("/history", s.handleHistory)
		}
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
