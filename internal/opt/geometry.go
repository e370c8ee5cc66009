package opt

import "math"

// Distance is the Euclidean distance between two customers. Travel time equals
// distance (unit speed).
func Distance(a, b Customer) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// RouteDistance sums consecutive-point distances along r.
func RouteDistance(cs Customers, r Route) float64 {
	total := 0.0
	for i := 0; i < len(r)-1; i++ {
		total += Distance(cs[r[i]], cs[r[i+1]])
	}
	return total
}

// TotalDistance is the objective: the distance of every route added up.
func TotalDistance(cs Customers, routes []Route) float64 {
	total := 0.0
	for _, r := range routes {
		total += RouteDistance(cs, r)
	}
	return total
}
