// Package api exposes scoring, funnels, imports and classification over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/venture-galaxy/matchmaker/internal/artifact"
	"github.com/venture-galaxy/matchmaker/internal/config"
	"github.com/venture-galaxy/matchmaker/internal/fetcher"
	"github.com/venture-galaxy/matchmaker/internal/funnel"
	"github.com/venture-galaxy/matchmaker/internal/importer"
	"github.com/venture-galaxy/matchmaker/internal/metrics"
	"github.com/venture-galaxy/matchmaker/internal/scorer"
	"github.com/venture-galaxy/matchmaker/internal/store"
)

// Pinger reports backend health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators served by the API.
type Deps struct {
	Docs     store.DocumentStore
	Health   Pinger
	Scorer   *scorer.Scorer
	Funnel   *funnel.Service
	Importer *importer.Importer
	Uploader artifact.Uploader
	Fetcher  fetcher.Fetcher
	Metrics  *metrics.Recorder
}

// Server holds the HTTP handlers.
type Server struct {
	cfg  config.ServerConfig
	deps Deps
	now  func() time.Time
}

// New creates a Server.
func New(cfg config.ServerConfig, deps Deps) *Server {
	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = 20
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	return &Server{cfg: cfg, deps: deps, now: time.Now}
}

// Router returns the routed handler with middleware applied.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Authorization"},
		ExposedHeaders: importHeaders,
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.deps.Metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/score", s.handleScore)
		r.Post("/score/batch", s.handleScoreBatch)
		r.Get("/investors/{id}/funnel", s.handleInvestorFunnel)
		r.Get("/founders/{id}/funnel", s.handleFounderFunnel)
		r.Post("/investors/{id}/imports", s.handleImport)
		r.Post("/investors/{id}/classify", s.handleClassify)
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.Health != nil {
		if err := s.deps.Health.Ping(r.Context()); err != nil {
			zap.L().Warn("health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("write response", zap.Error(err))
	}
}

type errorBody struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string, details any) {
	writeJSON(w, status, errorBody{Error: msg, Details: details})
}
