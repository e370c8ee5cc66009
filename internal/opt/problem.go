package opt

import "slices"

// Depot is the customer every route starts and ends at.
const Depot = 0

// Customer is one stop of a VRPTW instance. The depot is the customer with ID 0.
type Customer struct {
	ID      int
	X, Y    float64
	Demand  float64
	Ready   float64
	Due     float64
	Service float64
}

// Customers is the read-only lookup shared by every component of a run.
type Customers map[int]Customer

// NewCustomers indexes a customer list by ID.
func NewCustomers(list []Customer) Customers {
	out := make(Customers, len(list))
	for _, c := range list {
		out[c.ID] = c
	}
	return out
}

// Problem bundles the customer table with the fleet parameters.
type Problem struct {
	Customers   Customers
	Capacity    float64
	MaxVehicles int
}

// customerIDs returns every non-depot ID in ascending order.
func (p Problem) customerIDs() []int {
	ids := make([]int, 0, len(p.Customers))
	for id := range p.Customers {
		if id != Depot {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}
