// Package api serves operational state over HTTP: health, pipeline stats,
// and Prometheus metrics. The listener is optional and read-only.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Stats is the JSON document served at /stats.
type Stats struct {
	PipelineState string `json:"pipeline_state"`
	FramesSeen    uint64 `json:"frames_seen"`
	Interval      uint64 `json:"decimation_interval"`
}

// Server exposes stats and metrics on a dedicated listener.
type Server struct {
	srv *http.Server
}

// New builds the router. statsFn is polled on each /stats request.
func New(addr string, statsFn func() Stats, reg *prometheus.Registry) *Server {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/stats", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(statsFn()); err != nil {
			slog.Warn("api: failed to encode stats", "error", err)
		}
	})

	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start serves in a background goroutine.
func (s *Server) Start() {
	go func() {
		slog.Info("api: stats listener started", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("api: listener failed", "error", err)
		}
	}()
}

// Shutdown stops the listener gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
