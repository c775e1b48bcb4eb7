// Package api assembles the intake HTTP surface: deployment submission,
// status polling, catalog listing, and operational endpoints.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/edvin/shipstatic/internal/api/handler"
	mw "github.com/edvin/shipstatic/internal/api/middleware"
	"github.com/edvin/shipstatic/internal/config"
	"github.com/edvin/shipstatic/internal/queue"
)

type Server struct {
	router chi.Router
	logger zerolog.Logger
	queue  queue.Queue
	pool   *pgxpool.Pool
	cfg    *config.Config
}

func NewServer(logger zerolog.Logger, intakeSvc handler.Submitter, q queue.Queue, catalog handler.Catalog, pool *pgxpool.Pool, cfg *config.Config) *Server {
	s := &Server{
		router: chi.NewRouter(),
		logger: logger,
		queue:  q,
		pool:   pool,
		cfg:    cfg,
	}

	s.setupMiddleware()
	s.setupRoutes(intakeSvc, catalog)

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(mw.RequestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(mw.Metrics)
}

func (s *Server) setupRoutes(intakeSvc handler.Submitter, catalog handler.Catalog) {
	// Prometheus metrics endpoint
	s.router.Handle("/metrics", promhttp.Handler())

	// Health check endpoints
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Get("/readyz", s.handleReadyz)

	deployment := handler.NewDeployment(intakeSvc, s.queue, catalog, s.cfg.BaseDomain)
	s.router.Post("/deploy", deployment.Submit)
	s.router.Get("/deployment/{id}/status", deployment.Status)
	s.router.Get("/deployments", deployment.List)
	s.router.Get("/deployments/{id}", deployment.Get)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if err := s.queue.Ping(ctx); err != nil {
		checks["queue"] = err.Error()
		healthy = false
	} else {
		checks["queue"] = "ok"
	}

	if s.pool != nil {
		if err := s.pool.Ping(ctx); err != nil {
			checks["catalog_db"] = err.Error()
			healthy = false
		} else {
			checks["catalog_db"] = "ok"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if healthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(checks)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
