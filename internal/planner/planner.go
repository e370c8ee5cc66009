// Package planner runs the solver phases on a parsed instance: construction,
// optional LNS improvement, validation, timing and metrics.
package planner

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	"vrptw/internal/artifact"
	"vrptw/internal/config"
	"vrptw/internal/metrics"
	"vrptw/internal/opt"
	"vrptw/internal/solomon"
)

var (
	// ErrNoCapacity means neither the caller, the catalog nor the file gave a vehicle capacity.
	ErrNoCapacity = errors.New("planner: vehicle capacity unknown")
	// ErrNoVehicles means no vehicle limit could be resolved.
	ErrNoVehicles = errors.New("planner: vehicle count unknown")
)

// Params are the knobs of one run. Capacity and MaxVehicles fall back to the
// instance when zero; the LNS fields are used as given.
type Params struct {
	RunID           string
	Capacity        float64
	MaxVehicles     int
	MaxNoImprove    int
	RemovalFraction float64
	Seed            int64
}

// FromDefaults seeds Params with the catalog defaults.
func FromDefaults(d config.Defaults) Params {
	return Params{
		MaxVehicles:     d.MaxVehicles,
		MaxNoImprove:    d.MaxNoImprove,
		RemovalFraction: d.RemovalFraction,
		Seed:            d.Seed,
	}
}

func (p Params) validate() error {
	if p.Capacity < 0 {
		return fmt.Errorf("planner: capacity must be positive, got %v", p.Capacity)
	}
	if p.MaxVehicles < 0 {
		return fmt.Errorf("planner: max vehicles must be positive, got %d", p.MaxVehicles)
	}
	if p.MaxNoImprove < 0 {
		return fmt.Errorf("planner: max no-improve must be >= 0, got %d", p.MaxNoImprove)
	}
	if p.MaxNoImprove > 0 && (p.RemovalFraction <= 0 || p.RemovalFraction > 1) {
		return fmt.Errorf("planner: removal fraction must be in (0, 1], got %v", p.RemovalFraction)
	}
	return nil
}

// Observer receives progress while a run executes. Nil fields are skipped.
// Callbacks run on the solving goroutine.
type Observer struct {
	Constructed func(sol opt.Solution, unrouted []int)
	Improved    func(opt.Improvement)
}

// Result is everything a run produced.
type Result struct {
	Instance      string
	Capacity      float64
	MaxVehicles   int
	Initial       opt.Solution
	Best          opt.Solution
	Unrouted      []int
	LNS           opt.Metrics
	ConstructTime time.Duration
	LNSTime       time.Duration
	Elapsed       time.Duration
}

// Artifact renders the best solution in the route file format.
func (r Result) Artifact() artifact.Result {
	return artifact.Result{
		Instance:        r.Instance,
		Routes:          r.Best.Routes,
		TotalDistance:   r.Best.Cost,
		ComputationTime: r.Elapsed,
		HasDistance:     true,
		HasTime:         true,
	}
}

// ApplyCatalog copies the catalog's capacity and vehicle count for inst onto
// it, so catalog metadata wins over the file header. It reports whether the
// instance was found.
func ApplyCatalog(inst *solomon.Instance, cat *config.Catalog) bool {
	if cat == nil {
		return false
	}
	rec, err := cat.Lookup(inst.Name)
	if err != nil {
		return false
	}
	if rec.Capacity > 0 {
		inst.Capacity = rec.Capacity
	}
	if rec.Vehicles > 0 {
		inst.VehicleNumber = rec.Vehicles
	}
	return true
}

func problem(inst *solomon.Instance, params Params) (opt.Problem, error) {
	if err := params.validate(); err != nil {
		return opt.Problem{}, err
	}
	p := inst.Problem(params.Capacity, params.MaxVehicles)
	if p.Capacity <= 0 {
		return opt.Problem{}, fmt.Errorf("%w for instance %q", ErrNoCapacity, inst.Name)
	}
	if p.MaxVehicles <= 0 {
		return opt.Problem{}, fmt.Errorf("%w for instance %q", ErrNoVehicles, inst.Name)
	}
	return p, nil
}

// Plan builds an initial solution and, unless params.MaxNoImprove is zero,
// improves it. Customers that construction cannot route are reported in
// Result.Unrouted and logged; they are not an error.
func Plan(inst *solomon.Instance, params Params, obs Observer) (Result, error) {
	p, err := problem(inst, params)
	if err != nil {
		metrics.Runs.WithLabelValues("failed").Inc()
		return Result{}, err
	}
	start := time.Now()
	res := Result{Instance: inst.Name, Capacity: p.Capacity, MaxVehicles: p.MaxVehicles}

	initial, unrouted := opt.Construct(p)
	res.ConstructTime = time.Since(start)
	res.Initial, res.Unrouted = initial, unrouted
	metrics.PhaseDuration.WithLabelValues("construct").Observe(res.ConstructTime.Seconds())
	metrics.Unrouted.Add(float64(len(unrouted)))
	logf(params, "instance=%s phase=construct routes=%d distance=%.2f took=%v", inst.Name, len(initial.Routes), initial.Cost, res.ConstructTime)
	if len(unrouted) > 0 {
		logf(params, "warning: instance=%s not all customers could be routed: %d left out %v", inst.Name, len(unrouted), unrouted)
	}
	opt.RecordMetrics(inst.Name, "construct", opt.Metrics{InitialCost: initial.Cost, BestCost: initial.Cost})
	if obs.Constructed != nil {
		obs.Constructed(initial, unrouted)
	}

	res.Best = initial
	if params.MaxNoImprove > 0 {
		res.Best, res.LNS, res.LNSTime = improve(p, inst.Name, initial, params, obs)
	}
	res.Elapsed = time.Since(start)
	return res, finish(inst.Name, p, res)
}

// Refine improves existing routes, for example ones read back from an
// artifact. The routes must be a valid partial solution of inst; customers
// they do not visit stay unrouted.
func Refine(inst *solomon.Instance, routes []opt.Route, params Params, obs Observer) (Result, error) {
	p, err := problem(inst, params)
	if err != nil {
		metrics.Runs.WithLabelValues("failed").Inc()
		return Result{}, err
	}
	initial := opt.NewSolution(p.Customers, routes)
	if err := opt.Validate(p, initial); err != nil {
		metrics.Runs.WithLabelValues("failed").Inc()
		return Result{}, fmt.Errorf("planner: input routes: %w", err)
	}
	start := time.Now()
	res := Result{Instance: inst.Name, Capacity: p.Capacity, MaxVehicles: p.MaxVehicles, Initial: initial, Best: initial}
	res.Unrouted = opt.Missing(p, initial)
	if len(res.Unrouted) > 0 {
		logf(params, "warning: instance=%s input routes leave %d customers out %v", inst.Name, len(res.Unrouted), res.Unrouted)
	}
	if params.MaxNoImprove > 0 {
		res.Best, res.LNS, res.LNSTime = improve(p, inst.Name, initial, params, obs)
	}
	res.Elapsed = time.Since(start)
	return res, finish(inst.Name, p, res)
}

func improve(p opt.Problem, name string, initial opt.Solution, params Params, obs Observer) (opt.Solution, opt.Metrics, time.Duration) {
	start := time.Now()
	rng := rand.New(rand.NewSource(params.Seed))
	best, m := opt.Improve(p, initial, opt.LNSOptions{
		MaxNoImprove:    params.MaxNoImprove,
		RemovalFraction: params.RemovalFraction,
		OnImprove:       obs.Improved,
	}, rng)
	took := time.Since(start)
	metrics.PhaseDuration.WithLabelValues("lns").Observe(took.Seconds())
	metrics.LNSIterations.Add(float64(m.Iterations))
	metrics.LNSImprovements.Add(float64(m.Improvements))
	opt.RecordMetrics(name, "lns", m)
	logf(params, "instance=%s phase=lns iterations=%d improvements=%d distance=%.2f->%.2f took=%v",
		name, m.Iterations, m.Improvements, m.InitialCost, m.BestCost, took)
	return best, m, took
}

func finish(name string, p opt.Problem, res Result) error {
	if err := opt.Validate(p, res.Best); err != nil {
		metrics.Runs.WithLabelValues("failed").Inc()
		return fmt.Errorf("planner: produced an invalid solution: %w", err)
	}
	outcome := "ok"
	if len(res.Unrouted) > 0 {
		outcome = "partial"
	}
	metrics.Runs.WithLabelValues(outcome).Inc()
	metrics.BestDistance.WithLabelValues(name).Set(res.Best.Cost)
	return nil
}

func logf(params Params, format string, args ...any) {
	if params.RunID != "" {
		format = "run=" + params.RunID + " " + format
	}
	log.Printf(format, args...)
}
