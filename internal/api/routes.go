package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"vrptw/internal/metrics"
)

// Routes registers every endpoint. limiter guards POST /v1/solve and may be nil.
func (s *Server) Routes(limiter *rate.Limiter) *http.ServeMux {
	metrics.RegisterDefault()
	mux := http.NewServeMux()

	// Solving
	mux.HandleFunc("/v1/solve", RateLimit(limiter, s.SolveHandler))
	mux.HandleFunc("/v1/catalog", s.CatalogHandler)

	// Runs
	mux.HandleFunc("/v1/runs", s.RunsIndexHandler)
	mux.HandleFunc("/v1/runs/", s.RunByIDHandler) // includes /artifact, /events/stream, /ws

	// Admin
	mux.HandleFunc("/v1/admin/run-metrics", s.RunMetricsHandler)
	mux.HandleFunc("/v1/admin/debug", s.DebugJSON)

	// Docs
	mux.HandleFunc("/openapi.yaml", s.OpenAPIHandler)
	mux.HandleFunc("/openapi.json", s.OpenAPIJSONHandler)
	mux.HandleFunc("/docs", s.DocsHandler)

	// Health & ops
	mux.HandleFunc("/healthz", s.HealthHandler)
	mux.HandleFunc("/readyz", s.ReadyHandler)
	mux.HandleFunc("/version", s.VersionHandler)
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	return mux
}
