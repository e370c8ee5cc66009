package opt

// InsertionCost is the detour of placing customer id between r[pos-1] and r[pos].
func InsertionCost(p Problem, r Route, id, pos int) float64 {
	prev, next, c := p.Customers[r[pos-1]], p.Customers[r[pos]], p.Customers[id]
	return Distance(prev, c) + Distance(c, next) - Distance(prev, next)
}

// insertion is a candidate move found by bestInsertion.
type insertion struct {
	id    int
	route int
	pos   int
	cost  float64
}

// bestInsertion scans ids (in the given order), then routes by index, then
// positions left to right, and returns the cheapest feasible move. Ties keep
// the first move found so results are reproducible.
func bestInsertion(p Problem, routes []Route, ids []int) (insertion, bool) {
	loads := make([]float64, len(routes))
	for ri, r := range routes {
		loads[ri] = routeLoad(p.Customers, r)
	}
	best := insertion{}
	found := false
	for _, id := range ids {
		c := p.Customers[id]
		for ri, r := range routes {
			if loads[ri]+c.Demand > p.Capacity {
				continue
			}
			for pos := 1; pos < len(r); pos++ {
				if !timeFeasible(p.Customers, r, c, pos) {
					continue
				}
				cost := InsertionCost(p, r, id, pos)
				if !found || cost < best.cost {
					best = insertion{id: id, route: ri, pos: pos, cost: cost}
					found = true
				}
			}
		}
	}
	return best, found
}

// removeID deletes the first occurrence of id from ids, preserving order.
func removeID(ids []int, id int) []int {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
