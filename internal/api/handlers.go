package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"vrptw/internal/artifact"
	"vrptw/internal/buildinfo"
	"vrptw/internal/model"
	"vrptw/internal/opt"
	"vrptw/internal/store"
)

const maxBodyBytes = 8 << 20

// SolveHandler handles POST /v1/solve. Synchronous requests answer with the
// finished run; async ones answer 202 with the queued run.
func (s *Server) SolveHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/solve" { writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path); return }
	if r.Method != http.MethodPost { w.WriteHeader(http.StatusMethodNotAllowed); return }
	var req model.SolveRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil { writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path); return }
	if err := validateSolveRequest(&req); err != nil { writeProblem(w, http.StatusBadRequest, "Invalid request", err.Error(), r.URL.Path); return }
	inst, params, err := s.prepare(&req)
	if err != nil { writeProblem(w, http.StatusBadRequest, "Invalid instance", err.Error(), r.URL.Path); return }

	run := s.newRun(inst, params)
	cb := callback{url: req.CallbackURL, secret: req.CallbackSecret}
	if req.Async {
		s.save(r.Context(), run)
		s.startAsync(run, inst, params, cb)
		w.Header().Set("Location", "/v1/runs/"+run.ID)
		writeJSON(w, http.StatusAccepted, run)
		return
	}
	run = s.execute(r.Context(), run, inst, params, cb)
	if run.Status == model.StatusFailed { writeProblem(w, http.StatusUnprocessableEntity, "Solve failed", run.Error, "/v1/runs/"+run.ID); return }
	writeJSON(w, http.StatusOK, run)
}

// RunsIndexHandler handles GET /v1/runs?instance=&cursor=&limit=.
func (s *Server) RunsIndexHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/runs" { writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path); return }
	if r.Method != http.MethodGet { w.WriteHeader(http.StatusMethodNotAllowed); return }
	q := r.URL.Query()
	limit := 100
	if v := q.Get("limit"); v != "" { fmt.Sscanf(v, "%d", &limit) }
	items, next, err := s.Store.ListRuns(r.Context(), q.Get("instance"), q.Get("cursor"), limit)
	if err != nil { writeProblem(w, 500, "List runs failed", err.Error(), r.URL.Path); return }
	if items == nil { items = []model.Run{} }
	writeJSON(w, 200, map[string]any{"items": items, "nextCursor": next})
}

// RunByIDHandler handles /v1/runs/{id} and its /artifact, /events/stream and /ws children.
func (s *Server) RunByIDHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/runs/"), "/")
	parts := strings.Split(rest, "/")
	id := parts[0]
	if id == "" { writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path); return }
	if r.Method != http.MethodGet { w.WriteHeader(http.StatusMethodNotAllowed); return }
	run, err := s.Store.GetRun(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) { writeProblem(w, http.StatusNotFound, "Run not found", id, r.URL.Path); return }
	if err != nil { writeProblem(w, 500, "Get run failed", err.Error(), r.URL.Path); return }

	switch strings.Join(parts[1:], "/") {
	case "":
		writeJSON(w, 200, run)
	case "artifact":
		s.writeArtifact(w, r, run)
	case "events/stream":
		s.streamEvents(w, r, run)
	case "ws":
		s.RunWSHandler(w, r, run)
	default:
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
	}
}

func (s *Server) writeArtifact(w http.ResponseWriter, r *http.Request, run model.Run) {
	if run.Status != model.StatusCompleted { writeProblem(w, http.StatusConflict, "Run not completed", run.Status, r.URL.Path); return }
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact.FileName(artifact.LNSPrefix, run.Instance)))
	_ = artifact.Write(w, artifact.Result{
		Instance:        run.Instance,
		Routes:          run.Routes,
		TotalDistance:   run.TotalDistance,
		ComputationTime: time.Duration(run.ComputationMs) * time.Millisecond,
		HasDistance:     true,
		HasTime:         true,
	})
}

// terminalEvent rebuilds the last event of a finished run for late subscribers.
func terminalEvent(run model.Run) SSEEvent {
	if run.Status == model.StatusFailed {
		return SSEEvent{Type: EventFailed, Data: map[string]any{"runId": run.ID, "error": run.Error}}
	}
	return SSEEvent{Type: EventCompleted, Data: map[string]any{
		"runId": run.ID, "instance": run.Instance, "routes": len(run.Routes),
		"totalDistance": run.TotalDistance, "unrouted": run.Unrouted, "computationMs": run.ComputationMs,
	}}
}

func writeSSE(w http.ResponseWriter, f http.Flusher, evt SSEEvent) {
	b, _ := json.Marshal(evt.Data)
	fmt.Fprintf(w, "event: %s\n", evt.Type)
	fmt.Fprintf(w, "data: %s\n\n", string(b))
	f.Flush()
}

// streamEvents serves the run's events as Server-Sent Events until the run
// finishes or the client goes away.
func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request, run model.Run) {
	flusher, ok := w.(http.Flusher)
	if !ok { writeProblem(w, 500, "Streaming unsupported", "", r.URL.Path); return }
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	ch := s.Broker.Subscribe(run.ID)
	defer s.Broker.Unsubscribe(run.ID, ch)
	heartbeat := func() {
		writeSSE(w, flusher, SSEEvent{Type: "heartbeat", Data: map[string]any{"runId": run.ID, "ts": time.Now().Format(time.RFC3339)}})
	}
	heartbeat()
	// the run may have finished before the subscription existed
	if cur, err := s.Store.GetRun(r.Context(), run.ID); err == nil && cur.Done() {
		writeSSE(w, flusher, terminalEvent(cur))
		return
	}
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			writeSSE(w, flusher, evt)
			if evt.Terminal() {
				return
			}
		case <-ticker.C:
			// a full subscriber buffer can drop the terminal event
			if cur, err := s.Store.GetRun(r.Context(), run.ID); err == nil && cur.Done() {
				writeSSE(w, flusher, terminalEvent(cur))
				return
			}
			heartbeat()
		}
	}
}

// CatalogHandler handles GET /v1/catalog.
func (s *Server) CatalogHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet { w.WriteHeader(http.StatusMethodNotAllowed); return }
	writeJSON(w, 200, s.Catalog)
}

// RunMetricsHandler handles GET /v1/admin/run-metrics?instance=&algo=.
func (s *Server) RunMetricsHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/admin/run-metrics" || r.Method != http.MethodGet { writeProblem(w, 404, "Not Found", "", r.URL.Path); return }
	instance := r.URL.Query().Get("instance")
	if instance == "" { writeProblem(w, 400, "Missing instance", "", r.URL.Path); return }
	algo := r.URL.Query().Get("algo")
	// Prefer stored metrics; fall back to the in-process registry
	items, err := s.Store.ListRunMetrics(r.Context(), instance, algo)
	if err != nil || len(items) == 0 {
		items = items[:0]
		for a, m := range opt.GetMetrics(instance) {
			if algo != "" && a != algo { continue }
			items = append(items, model.RunMetrics{Instance: instance, Algo: a, Metrics: m})
		}
	}
	if items == nil { items = []model.RunMetrics{} }
	writeJSON(w, 200, map[string]any{"items": items})
}

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, 200, map[string]string{"status": "ok"})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
	defer cancel()
	if pg, ok := s.Store.(store.Pinger); ok {
		if err := pg.Ping(ctx); err != nil { writeProblem(w, 503, "Not Ready", err.Error(), r.URL.Path); return }
	}
	if rb, ok := s.Broker.(*RedisBroker); ok {
		if err := rb.Ping(ctx); err != nil { writeProblem(w, 503, "Not Ready", err.Error(), r.URL.Path); return }
	}
	writeJSON(w, 200, map[string]string{"status": "ready"})
}

func (s *Server) VersionHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, 200, buildinfo.Info())
}
