package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"vrptw/internal/gaps"
	"vrptw/internal/model"
	"vrptw/internal/opt"
	"vrptw/internal/planner"
	"vrptw/internal/solomon"
)

// errBadRequest marks request errors found while preparing a run.
var errBadRequest = errors.New("bad request")

// prepare turns a validated request into an instance and resolved parameters.
func (s *Server) prepare(req *model.SolveRequest) (*solomon.Instance, planner.Params, error) {
	var inst *solomon.Instance
	if req.Solomon != "" {
		parsed, err := solomon.Parse(strings.NewReader(req.Solomon))
		if err != nil {
			return nil, planner.Params{}, fmt.Errorf("%w: %v", errBadRequest, err)
		}
		inst = parsed
	} else {
		inst = &solomon.Instance{Customers: make([]opt.Customer, 0, len(req.Customers))}
		for _, c := range req.Customers {
			inst.Customers = append(inst.Customers, c.Customer())
		}
	}
	if req.Instance != "" {
		inst.Name = req.Instance
	}
	if inst.Name == "" {
		inst.Name = "inline"
	}
	planner.ApplyCatalog(inst, s.Catalog)

	params := planner.FromDefaults(s.Catalog.Defaults)
	if req.Capacity > 0 {
		params.Capacity = req.Capacity
	}
	if req.MaxVehicles > 0 {
		params.MaxVehicles = req.MaxVehicles
	}
	if req.MaxNoImprove != nil {
		params.MaxNoImprove = *req.MaxNoImprove
	}
	if req.RemovalFraction > 0 {
		params.RemovalFraction = req.RemovalFraction
	}
	if req.Seed != nil {
		params.Seed = *req.Seed
	}
	if params.Capacity <= 0 && inst.Capacity <= 0 {
		return nil, planner.Params{}, fmt.Errorf("%w: %v", errBadRequest, planner.ErrNoCapacity)
	}
	return inst, params, nil
}

func (s *Server) newRun(inst *solomon.Instance, params planner.Params) model.Run {
	now := time.Now().UTC()
	capacity := params.Capacity
	if capacity <= 0 {
		capacity = inst.Capacity
	}
	sys := s.System
	return model.Run{
		ID:       uuid.New().String(),
		Instance: inst.Name,
		Status:   model.StatusQueued,
		Params: model.RunParams{
			Capacity:        capacity,
			MaxVehicles:     params.MaxVehicles,
			MaxNoImprove:    params.MaxNoImprove,
			RemovalFraction: params.RemovalFraction,
			Seed:            params.Seed,
		},
		System:    &sys,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

type callback struct {
	url, secret string
}

// execute solves run to completion, publishing lifecycle events and
// persisting every status change. It waits for a free solver slot first.
func (s *Server) execute(ctx context.Context, run model.Run, inst *solomon.Instance, params planner.Params, cb callback) model.Run {
	if err := s.slots.Acquire(ctx, 1); err != nil {
		return s.fail(ctx, run, err, cb)
	}
	defer s.slots.Release(1)

	run.Status = model.StatusRunning
	run.UpdatedAt = time.Now().UTC()
	s.save(ctx, run)
	s.Broker.Publish(run.ID, SSEEvent{Type: EventStarted, Data: map[string]any{"runId": run.ID, "instance": run.Instance}})

	params.RunID = run.ID
	res, err := planner.Plan(inst, params, planner.Observer{
		Constructed: func(sol opt.Solution, unrouted []int) {
			s.Broker.Publish(run.ID, SSEEvent{Type: EventConstructed, Data: map[string]any{
				"runId": run.ID, "routes": len(sol.Routes), "distance": sol.Cost, "unrouted": unrouted,
			}})
		},
		Improved: func(imp opt.Improvement) {
			s.Broker.Publish(run.ID, SSEEvent{Type: EventImproved, Data: map[string]any{
				"runId": run.ID, "iteration": imp.Iteration, "distance": imp.Cost, "routes": imp.Routes,
			}})
		},
	})
	if err != nil {
		return s.fail(ctx, run, err, cb)
	}

	run.Status = model.StatusCompleted
	run.Routes = res.Best.Routes
	run.TotalDistance = res.Best.Cost
	run.InitialDistance = res.Initial.Cost
	run.Unrouted = res.Unrouted
	run.Iterations = res.LNS.Iterations
	run.Improvements = res.LNS.Improvements
	run.ComputationMs = res.Elapsed.Milliseconds()
	run.Params.Capacity = res.Capacity
	run.Params.MaxVehicles = res.MaxVehicles
	if best, ok := s.Catalog.BestKnown(run.Instance); ok {
		g := gaps.Gap(run.TotalDistance, best)
		run.BestKnown, run.GapPct = &best, &g
	}
	run.UpdatedAt = time.Now().UTC()
	s.save(ctx, run)

	for algo, m := range map[string]opt.Metrics{
		"construct": {InitialCost: res.Initial.Cost, BestCost: res.Initial.Cost},
		"lns":       res.LNS,
	} {
		if algo == "lns" && params.MaxNoImprove == 0 {
			continue
		}
		rm := model.RunMetrics{RunID: run.ID, Instance: run.Instance, Algo: algo, Metrics: m, CreatedAt: run.UpdatedAt}
		if err := s.Store.SaveRunMetrics(ctx, rm); err != nil {
			log.Printf("run=%s save metrics: %v", run.ID, err)
		}
	}

	data := map[string]any{
		"runId": run.ID, "instance": run.Instance, "routes": len(run.Routes),
		"totalDistance": run.TotalDistance, "unrouted": run.Unrouted, "computationMs": run.ComputationMs,
	}
	s.Broker.Publish(run.ID, SSEEvent{Type: EventCompleted, Data: data})
	s.notify(cb, EventCompleted, run)
	log.Printf("run=%s instance=%s completed routes=%d distance=%.2f", run.ID, run.Instance, len(run.Routes), run.TotalDistance)
	return run
}

func (s *Server) fail(ctx context.Context, run model.Run, err error, cb callback) model.Run {
	run.Status = model.StatusFailed
	run.Error = err.Error()
	run.UpdatedAt = time.Now().UTC()
	s.save(ctx, run)
	s.Broker.Publish(run.ID, SSEEvent{Type: EventFailed, Data: map[string]any{"runId": run.ID, "error": run.Error}})
	s.notify(cb, EventFailed, run)
	log.Printf("run=%s instance=%s failed: %v", run.ID, run.Instance, err)
	return run
}

func (s *Server) save(ctx context.Context, run model.Run) {
	if err := s.Store.SaveRun(ctx, run); err != nil {
		log.Printf("run=%s save: %v", run.ID, err)
	}
}

func (s *Server) notify(cb callback, eventType string, run model.Run) {
	if cb.url == "" {
		return
	}
	if _, err := s.Pub.Emit(cb.url, cb.secret, eventType, run); err != nil {
		log.Printf("run=%s callback: %v", run.ID, err)
	}
}

// startAsync runs execute in the background, detached from the request.
func (s *Server) startAsync(run model.Run, inst *solomon.Instance, params planner.Params, cb callback) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.execute(context.Background(), run, inst, params, cb)
	}()
}
