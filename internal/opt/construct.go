package opt

// Construct builds routes by cheapest feasible insertion. Each route is grown
// by repeatedly inserting the globally cheapest (customer, position) pair
// among the unrouted customers until nothing else fits, then the next route
// is opened. At most p.MaxVehicles routes are opened; customers still unrouted
// after that are returned in ascending order and left out of the solution.
func Construct(p Problem) (Solution, []int) {
	unrouted := p.customerIDs()
	var routes []Route
	for len(unrouted) > 0 && len(routes) < p.MaxVehicles {
		route := Route{Depot, Depot}
		for len(unrouted) > 0 {
			mv, ok := bestInsertion(p, []Route{route}, unrouted)
			if !ok {
				break
			}
			route = route.insertAt(mv.id, mv.pos)
			unrouted = removeID(unrouted, mv.id)
		}
		if route.Empty() {
			// every route starts from the same empty state, so a fresh one
			// cannot take any of the remaining customers either
			break
		}
		routes = append(routes, route)
	}
	return NewSolution(p.Customers, routes), unrouted
}
