package opt

import (
	"fmt"
	"slices"
)

// Route is an ordered list of customer IDs bracketed by the depot.
type Route []int

// Empty reports whether the route visits no customer.
func (r Route) Empty() bool { return len(r) <= 2 }

// Customers returns the IDs strictly between the depot brackets.
func (r Route) Customers() []int {
	if len(r) <= 2 {
		return nil
	}
	return r[1 : len(r)-1]
}

// insertAt returns a copy of r with id placed at pos.
func (r Route) insertAt(id, pos int) Route {
	out := make(Route, 0, len(r)+1)
	out = append(out, r[:pos]...)
	out = append(out, id)
	return append(out, r[pos:]...)
}

// Solution is a set of routes and its total distance.
type Solution struct {
	Routes []Route
	Cost   float64
}

// Clone deep-copies the solution so the copy can be mutated independently.
func (s Solution) Clone() Solution {
	out := Solution{Routes: make([]Route, len(s.Routes)), Cost: s.Cost}
	for i, r := range s.Routes {
		out.Routes[i] = slices.Clone(r)
	}
	return out
}

// Routed returns every non-depot ID in route order.
func (s Solution) Routed() []int {
	var ids []int
	for _, r := range s.Routes {
		for _, id := range r {
			if id != Depot {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// dropEmpty removes depot-only routes in place.
func dropEmpty(routes []Route) []Route {
	out := routes[:0]
	for _, r := range routes {
		if !r.Empty() {
			out = append(out, r)
		}
	}
	return out
}

// NewSolution builds a solution from routes and prices it.
func NewSolution(cs Customers, routes []Route) Solution {
	s := Solution{Routes: dropEmpty(routes)}
	s.Cost = TotalDistance(cs, s.Routes)
	return s
}

// Validate checks every solution invariant: depot brackets, known customers,
// no customer visited twice, capacity and time windows. Missing customers are
// not an error; callers compare Routed against the instance when they need
// full coverage.
func Validate(p Problem, s Solution) error {
	seen := map[int]int{}
	for ri, r := range s.Routes {
		if len(r) < 2 || r[0] != Depot || r[len(r)-1] != Depot {
			return fmt.Errorf("route %d: not bracketed by the depot: %v", ri+1, r)
		}
		for _, id := range r.Customers() {
			if id == Depot {
				return fmt.Errorf("route %d: depot visited mid-route", ri+1)
			}
			if _, ok := p.Customers[id]; !ok {
				return fmt.Errorf("route %d: unknown customer %d", ri+1, id)
			}
			if prev, dup := seen[id]; dup {
				return fmt.Errorf("customer %d visited by routes %d and %d", id, prev+1, ri+1)
			}
			seen[id] = ri
		}
		if load := routeLoad(p.Customers, r); load > p.Capacity {
			return fmt.Errorf("route %d: load %.2f exceeds capacity %.2f", ri+1, load, p.Capacity)
		}
		if at, ok := schedule(p.Customers, r); !ok {
			return fmt.Errorf("route %d: time window violated at customer %d", ri+1, at)
		}
	}
	return nil
}

// Missing lists the customers of p that s does not visit, ascending.
func Missing(p Problem, s Solution) []int {
	routed := map[int]bool{}
	for _, id := range s.Routed() {
		routed[id] = true
	}
	var out []int
	for _, id := range p.customerIDs() {
		if !routed[id] {
			out = append(out, id)
		}
	}
	return out
}
