package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/conneroisu/docsman/internal/errors"
	"github.com/conneroisu/docsman/internal/page"
	"github.com/conneroisu/docsman/internal/version"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Clients int    `json:"clients"`
	Version string `json:"version"`
}

func (s *Server) routes(ws http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		MaxAge:         300,
	}))

	r.Get("/", s.handleIndex)
	r.Get("/health", s.handleHealth)
	r.Handle("/ws", ws)
	r.Get("/*", s.handlePage)

	return r
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, page.IndexDocument)
}

// handlePage serves any path below the root. r.URL.Path is already
// percent-decoded.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, strings.TrimPrefix(r.URL.Path, "/"))
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, request string) {
	p, err := s.pipeline.Render(r.Context(), request)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	// Buffer so a template failure can still produce a clean error status.
	var buf bytes.Buffer
	if err := page.Layout(p).Render(r.Context(), &buf); err != nil {
		s.writeError(w, r, errors.NewRenderError("ERR_LAYOUT", "failed to render page layout", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := HealthResponse{
		Status:  "healthy",
		Clients: s.clients.Count(),
		Version: version.GetShortVersion(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(health); err != nil {
		s.logger.Warn(r.Context(), err, "Failed to encode health response")
	}
}

// writeError maps err onto a status and a generic body. Details only go to
// the log.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(r.Context(), err, "Request failed", "path", r.URL.Path, "status", status)
	} else {
		s.logger.Warn(r.Context(), err, "Request rejected", "path", r.URL.Path, "status", status)
	}

	http.Error(w, errors.PublicMessage(err), status)
}
