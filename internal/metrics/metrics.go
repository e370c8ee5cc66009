// Package metrics holds the Prometheus collectors shared by the CLI, the planner and the API.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry served on /metrics.
	Registry = prometheus.NewRegistry()

	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)
	RateLimited = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_rate_limited_total", Help: "Requests rejected by the rate limiter."},
		[]string{"path"},
	)

	// Runs counts planner runs by outcome (ok, partial, failed).
	Runs = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "vrptw_runs_total", Help: "Planner runs by outcome."},
		[]string{"outcome"},
	)
	// PhaseDuration records the wall time of construct and lns phases.
	PhaseDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "vrptw_phase_duration_seconds", Help: "Solver phase duration in seconds.", Buckets: []float64{.001, .01, .05, .1, .5, 1, 5, 15, 60, 300}},
		[]string{"phase"},
	)
	LNSIterations = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "vrptw_lns_iterations_total", Help: "Destroy/repair iterations executed."},
	)
	LNSImprovements = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "vrptw_lns_improvements_total", Help: "Destroy/repair iterations that improved the best solution."},
	)
	Unrouted = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "vrptw_unrouted_customers_total", Help: "Customers left out by construction."},
	)
	// BestDistance is the last total distance reached per instance.
	BestDistance = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "vrptw_best_distance", Help: "Total distance of the last run per instance."},
		[]string{"instance"},
	)

	WebhookDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "webhook_deliveries_total", Help: "Webhook deliveries by event type and status."},
		[]string{"event_type", "status"},
	)
	WebhookLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "webhook_delivery_latency_ms", Help: "Webhook delivery latency in ms.", Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000}},
		[]string{"event_type", "status"},
	)
)

var regOnce sync.Once

// RegisterDefault registers every collector, plus the Go and process collectors, on Registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests, HTTPDuration, RateLimited)
		Registry.MustRegister(Runs, PhaseDuration, LNSIterations, LNSImprovements, Unrouted, BestDistance)
		Registry.MustRegister(WebhookDeliveries, WebhookLatency)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}
