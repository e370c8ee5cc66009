package opt

// routeLoad sums the demand of every customer on r.
func routeLoad(cs Customers, r Route) float64 {
	load := 0.0
	for _, id := range r {
		if id != Depot {
			load += cs[id].Demand
		}
	}
	return load
}

// schedule propagates service start times along r from time 0 at the depot.
// It returns the first customer whose service would start after its due time.
func schedule(cs Customers, r Route) (int, bool) {
	t := 0.0
	for i := 1; i < len(r); i++ {
		prev, cur := cs[r[i-1]], cs[r[i]]
		start := t + Distance(prev, cur)
		if start < cur.Ready {
			start = cur.Ready
		}
		if start > cur.Due {
			return cur.ID, false
		}
		t = start + cur.Service
	}
	return 0, true
}

// Feasible reports whether inserting customer id into r at pos keeps the route
// within capacity and keeps every visit, including the ones after pos and the
// return to the depot, inside its time window. pos is the index the customer
// will occupy: 1 <= pos <= len(r)-1.
func Feasible(p Problem, r Route, id, pos int) bool {
	if pos < 1 || pos > len(r)-1 {
		return false
	}
	c, ok := p.Customers[id]
	if !ok {
		return false
	}
	if routeLoad(p.Customers, r)+c.Demand > p.Capacity {
		return false
	}
	return timeFeasible(p.Customers, r, c, pos)
}

// timeFeasible simulates r with c inserted at pos without building the new route.
func timeFeasible(cs Customers, r Route, c Customer, pos int) bool {
	t := 0.0
	prev := cs[r[0]]
	visit := func(cur Customer) bool {
		start := t + Distance(prev, cur)
		if start < cur.Ready {
			start = cur.Ready
		}
		if start > cur.Due {
			return false
		}
		t = start + cur.Service
		prev = cur
		return true
	}
	for i := 1; i < len(r); i++ {
		if i == pos && !visit(c) {
			return false
		}
		if !visit(cs[r[i]]) {
			return false
		}
	}
	return true
}
