package opt

import (
	"math"
	"slices"
)

// Rand is the source the destroy step samples from. *math/rand.Rand satisfies it.
type Rand interface {
	Intn(n int) int
}

// LNSOptions controls the destroy/repair loop.
type LNSOptions struct {
	// MaxNoImprove is the number of consecutive non-improving iterations after
	// which the search stops. Zero returns the initial solution untouched.
	MaxNoImprove int
	// RemovalFraction is the share of routed customers removed per iteration, in (0, 1].
	RemovalFraction float64
	// OnImprove, when set, is called synchronously after every accepted iteration.
	OnImprove func(Improvement)
}

// Improvement describes an accepted destroy/repair iteration.
type Improvement struct {
	Iteration int     `json:"iteration"`
	Cost      float64 `json:"cost"`
	Routes    int     `json:"routes"`
}

// Metrics summarises one Improve call.
type Metrics struct {
	Iterations    int            `json:"iterations"`
	Improvements  int            `json:"improvements"`
	EmptyDestroys int            `json:"emptyDestroys"`
	Removed       int            `json:"removed"`
	OpenedRoutes  int            `json:"openedRoutes"`
	InitialCost   float64        `json:"initialCost"`
	BestCost      float64        `json:"bestCost"`
	Snapshots     []CostSnapshot `json:"snapshots,omitempty"`
}

// CostSnapshot records the best cost at a given iteration.
type CostSnapshot struct {
	Iteration int     `json:"iteration"`
	BestCost  float64 `json:"bestCost"`
	Routes    int     `json:"routes"`
}

const snapshotEvery = 50

// Improve runs large neighbourhood search on initial. Each iteration removes a
// random subset of the routed customers from the current solution and
// reinserts them by cheapest feasible insertion, opening a new route for any
// customer that fits nowhere. A repaired solution is kept only when it is
// strictly shorter than the best one so far; otherwise it is thrown away and
// the non-improvement counter grows. Only the best solution is returned.
func Improve(p Problem, initial Solution, o LNSOptions, rng Rand) (Solution, Metrics) {
	best := initial.Clone()
	best.Cost = TotalDistance(p.Customers, best.Routes)
	current := best.Clone()
	m := Metrics{InitialCost: best.Cost, BestCost: best.Cost}

	noImprove := 0
	for noImprove < o.MaxNoImprove {
		m.Iterations++
		removed := destroySet(current, o.RemovalFraction, rng)
		if len(removed) == 0 {
			m.EmptyDestroys++
			noImprove++
			continue
		}
		m.Removed += len(removed)
		routes, opened := repair(p, destroy(current, removed), removed)
		m.OpenedRoutes += opened
		cand := NewSolution(p.Customers, routes)
		if cand.Cost < best.Cost {
			best = cand
			current = cand.Clone()
			noImprove = 0
			m.Improvements++
			m.BestCost = best.Cost
			if o.OnImprove != nil {
				o.OnImprove(Improvement{Iteration: m.Iterations, Cost: best.Cost, Routes: len(best.Routes)})
			}
		} else {
			noImprove++
		}
		if m.Iterations%snapshotEvery == 0 {
			m.Snapshots = append(m.Snapshots, CostSnapshot{Iteration: m.Iterations, BestCost: best.Cost, Routes: len(best.Routes)})
		}
	}
	return best, m
}

// destroySet draws max(1, round(fraction*n)) of the n routed customers
// uniformly without replacement and returns them in ascending order.
func destroySet(s Solution, fraction float64, rng Rand) []int {
	routed := s.Routed()
	n := len(routed)
	if n == 0 {
		return nil
	}
	k := int(math.Round(fraction * float64(n)))
	if k < 1 {
		k = 1
	}
	if k > n {
		k = n
	}
	for i := 0; i < k; i++ {
		j := i + rng.Intn(n-i)
		routed[i], routed[j] = routed[j], routed[i]
	}
	out := routed[:k]
	slices.Sort(out)
	return out
}

// destroy returns fresh copies of s's routes without the removed customers.
func destroy(s Solution, removed []int) []Route {
	rm := make(map[int]bool, len(removed))
	for _, id := range removed {
		rm[id] = true
	}
	out := make([]Route, 0, len(s.Routes))
	for _, r := range s.Routes {
		nr := make(Route, 0, len(r))
		for _, id := range r {
			if !rm[id] {
				nr = append(nr, id)
			}
		}
		out = append(out, bracket(nr))
	}
	return out
}

// bracket makes sure r starts and ends at the depot.
func bracket(r Route) Route {
	if len(r) == 0 || r[0] != Depot {
		r = append(Route{Depot}, r...)
	}
	if len(r) == 1 || r[len(r)-1] != Depot {
		r = append(r, Depot)
	}
	return r
}

// repair reinserts pool into routes by cheapest feasible insertion. When no
// pooled customer fits anywhere, the first one gets its own route. Empty
// routes stay available as insertion targets until the pool is drained.
func repair(p Problem, routes []Route, pool []int) ([]Route, int) {
	pool = slices.Clone(pool)
	opened := 0
	for len(pool) > 0 {
		mv, ok := bestInsertion(p, routes, pool)
		if !ok {
			routes = append(routes, Route{Depot, pool[0], Depot})
			pool = pool[1:]
			opened++
			continue
		}
		routes[mv.route] = routes[mv.route].insertAt(mv.id, mv.pos)
		pool = removeID(pool, mv.id)
	}
	return dropEmpty(routes), opened
}
