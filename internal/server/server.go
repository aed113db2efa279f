// Package server hosts the HTTP surface of the tvendor application: the
// request middleware that feeds observability, the Prometheus scrape
// endpoint and the health endpoint.
//
// DESIGN: The vendor-management route handlers mount onto the same mux via
// Handle(); this package stays ignorant of their semantics. Every handler
// runs inside the middleware chain (panic recovery -> instrumentation), so
// each completed request produces exactly one RecordRequest call.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/tvendorhq/tvendor/internal/audit"
	"github.com/tvendorhq/tvendor/internal/config"
	"github.com/tvendorhq/tvendor/internal/observability"
)

// Server wires the mux, middleware and the observability boundary.
type Server struct {
	cfg        *config.Config
	log        zerolog.Logger
	obs        *observability.Manager
	trail      *audit.Trail
	mux        *http.ServeMux
	httpServer *http.Server
}

// New builds a Server. The observability Manager and audit Trail are owned
// by the composition root and injected here; the server never constructs
// its own.
func New(cfg *config.Config, log zerolog.Logger, obs *observability.Manager, trail *audit.Trail) *Server {
	s := &Server{
		cfg:   cfg,
		log:   log,
		obs:   obs,
		trail: trail,
		mux:   http.NewServeMux(),
	}

	s.mux.HandleFunc("/api/health", s.handleHealth)
	// The scrape endpoint exists only when exposition is enabled; calling a
	// disabled Manager would yield an empty body anyway, but not
	// registering it keeps the surface honest.
	if obs.PrometheusEnabled() {
		s.mux.HandleFunc(obs.Config().PrometheusPath, s.handleMetrics)
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      s.panicRecovery(s.instrument(s.mux)),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return s
}

// Handle mounts an application handler on the shared mux, inside the
// middleware chain.
func (s *Server) Handle(pattern string, handler http.Handler) {
	s.mux.Handle(pattern, handler)
}

// Start runs the HTTP server until Shutdown or failure.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("server listening")
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// handleMetrics serves the Prometheus text exposition.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	_, _ = w.Write([]byte(s.obs.RenderPrometheus()))
}

// handleHealth serves the liveness/readiness snapshot as JSON.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.obs.HealthSnapshot()); err != nil {
		s.log.Error().Err(err).Msg("health snapshot encode failed")
	}
}
