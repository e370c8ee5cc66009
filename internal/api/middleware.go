package api

import (
	"bufio"
	"errors"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"vrptw/internal/config"
	"vrptw/internal/metrics"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps SSE working through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack is needed by the websocket upgrader.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("hijacking not supported")
	}
	return h.Hijack()
}

// Unwrap lets http.ResponseController and the websocket upgrader reach the connection.
func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// LogMiddleware logs one line per request and records request metrics.
func LogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		dur := time.Since(start)
		path := metricPath(r.URL.Path)
		code := strconv.Itoa(rec.status)
		metrics.HTTPRequests.WithLabelValues(r.Method, path, code).Inc()
		metrics.HTTPDuration.WithLabelValues(r.Method, path, code).Observe(dur.Seconds())
		log.Printf("%s %s %s %d %v", r.RemoteAddr, r.Method, r.URL.Path, rec.status, dur)
	})
}

// metricPath collapses run IDs so label cardinality stays bounded.
func metricPath(p string) string {
	if !strings.HasPrefix(p, "/v1/runs/") {
		return p
	}
	parts := strings.Split(strings.Trim(p, "/"), "/")
	if len(parts) >= 3 {
		parts[2] = "{id}"
	}
	return "/" + strings.Join(parts, "/")
}

// NewLimiterFromEnv reads RATE_RPS (default 5) and RATE_BURST (default 10).
// A non-positive RATE_RPS disables limiting.
func NewLimiterFromEnv() *rate.Limiter {
	rps := config.EnvFloat("RATE_RPS", 5)
	if rps <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(rps), config.EnvInt("RATE_BURST", 10))
}

// RateLimit rejects requests with 429 once the limiter is exhausted. A nil limiter passes everything.
func RateLimit(l *rate.Limiter, next http.HandlerFunc) http.HandlerFunc {
	if l == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow() {
			metrics.RateLimited.WithLabelValues(r.URL.Path).Inc()
			w.Header().Set("Retry-After", "1")
			writeProblem(w, http.StatusTooManyRequests, "Too Many Requests", "solve rate limit exceeded", r.URL.Path)
			return
		}
		next(w, r)
	}
}
