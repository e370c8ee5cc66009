package webhooks

import (
	"bytes"
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"vrptw/internal/config"
	"vrptw/internal/metrics"
)

type Worker struct {
	Queue       *Queue
	HTTP        *http.Client
	Stop        chan struct{}
	MaxAttempts int
	now         func() time.Time
}

// NewWorker reads WEBHOOK_MAX_ATTEMPTS (default 10).
func NewWorker(q *Queue) *Worker {
	max := config.EnvInt("WEBHOOK_MAX_ATTEMPTS", 10)
	if max < 1 {
		max = 10
	}
	return &Worker{Queue: q, HTTP: &http.Client{Timeout: 5 * time.Second}, Stop: make(chan struct{}), MaxAttempts: max, now: time.Now}
}

func (w *Worker) Start() {
	go func() {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-w.Stop:
				return
			case <-ticker.C:
				w.processOnce()
			}
		}
	}()
}

func (w *Worker) clock() time.Time {
	if w.now == nil {
		return time.Now()
	}
	return w.now()
}

func (w *Worker) processOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	items := w.Queue.due(w.clock(), 50)
	for _, it := range items {
		success := false
		next := w.clock().Add(nextBackoff(it.Attempts))
		code, latency, lastErr := 0, 0, ""
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, it.URL, bytes.NewReader(it.Payload))
		if err == nil {
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("X-Event-Type", it.EventType)
			if it.Secret != "" {
				req.Header.Set("X-Signature", Sign(it.Secret, it.Payload))
			}
			start := time.Now()
			var resp *http.Response
			resp, err = w.HTTP.Do(req)
			latency = int(time.Since(start).Milliseconds())
			if err == nil {
				code = resp.StatusCode
				_ = resp.Body.Close()
				success = code >= 200 && code < 300
			}
		}
		if err != nil {
			lastErr = err.Error()
		} else if !success {
			lastErr = "status " + strconv.Itoa(code)
		}
		status := "delivered"
		switch {
		case success:
			w.Queue.mark(it.ID, true, next, "", code, latency)
		case it.Attempts+1 >= w.MaxAttempts:
			status = "dead"
			w.Queue.fail(it.ID, lastErr, code, latency)
			log.Printf("webhook %s to %s dropped after %d attempts: %s", it.EventType, it.URL, it.Attempts+1, lastErr)
		default:
			status = "retry"
			w.Queue.mark(it.ID, false, next, lastErr, code, latency)
		}
		metrics.WebhookDeliveries.WithLabelValues(it.EventType, status).Inc()
		metrics.WebhookLatency.WithLabelValues(it.EventType, status).Observe(float64(latency))
	}
}

func nextBackoff(attempts int) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	if attempts > 10 {
		attempts = 10
	}
	base := time.Second * time.Duration(1<<attempts)
	if base > time.Hour {
		base = time.Hour
	}
	return base
}
