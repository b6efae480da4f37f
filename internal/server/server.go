// Package server exposes the latest extraction results over HTTP.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gnemet/SlideGraph/internal/hierarchy"
	"github.com/gnemet/SlideGraph/internal/report"
	"github.com/gnemet/SlideGraph/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Watcher is the part of the observer the API reports on and controls.
type Watcher interface {
	IsProcessing() bool
	Reprocess()
}

type Server struct {
	store    *store.Store
	registry *prometheus.Registry
	watcher  Watcher
	log      *zap.Logger
}

// New creates a server over st. registry and watcher may be nil.
func New(st *store.Store, registry *prometheus.Registry, watcher Watcher, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{store: st, registry: registry, watcher: watcher, log: log}
}

// Routes returns the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Route("/packages", func(r chi.Router) {
		r.Get("/", s.handleList)
		r.Get("/{name}", s.handlePackage)
		r.Get("/{name}/hierarchy", s.handleHierarchy)
		r.Get("/{name}/report", s.handleReport)
	})
	if s.watcher != nil {
		r.Post("/reprocess", s.handleReprocess)
	}
	if s.registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("failed to write response", zap.Error(err))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	processing := false
	if s.watcher != nil {
		processing = s.watcher.IsProcessing()
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"packages":   s.store.Len(),
		"processing": processing,
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.store.List())
}

func (s *Server) entry(w http.ResponseWriter, r *http.Request) (*store.Entry, bool) {
	name := chi.URLParam(r, "name")
	e, ok := s.store.Get(name)
	if !ok {
		http.Error(w, "package not found: "+name, http.StatusNotFound)
	}
	return e, ok
}

func (s *Server) handlePackage(w http.ResponseWriter, r *http.Request) {
	if e, ok := s.entry(w, r); ok {
		s.writeJSON(w, http.StatusOK, e.Result)
	}
}

// handleHierarchy serves the rebuilt document, as JSON unless ?format=yaml.
func (s *Server) handleHierarchy(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entry(w, r)
	if !ok {
		return
	}

	format := r.URL.Query().Get("format")
	switch format {
	case "", hierarchy.FormatJSON:
		format = hierarchy.FormatJSON
		w.Header().Set("Content-Type", "application/json")
	case hierarchy.FormatYAML:
		w.Header().Set("Content-Type", "application/yaml")
	default:
		http.Error(w, "unknown format: "+format, http.StatusBadRequest)
		return
	}
	if err := hierarchy.Encode(w, format, e.Hierarchy); err != nil {
		s.log.Warn("failed to encode hierarchy", zap.String("package", e.Result.Name), zap.Error(err))
	}
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entry(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(report.HTML(report.Markdown(e.Result, nil)))
}

func (s *Server) handleReprocess(w http.ResponseWriter, r *http.Request) {
	s.watcher.Reprocess()
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "reprocess queued"})
}
