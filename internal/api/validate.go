package api

import (
	"fmt"
	"net/url"

	"vrptw/internal/model"
)

func validateSolveRequest(req *model.SolveRequest) error {
	if (len(req.Customers) == 0) == (req.Solomon == "") {
		return fmt.Errorf("exactly one of customers or solomon is required")
	}
	if req.Capacity < 0 {
		return fmt.Errorf("capacity must be > 0")
	}
	if req.MaxVehicles < 0 {
		return fmt.Errorf("maxVehicles must be > 0")
	}
	if req.MaxNoImprove != nil && *req.MaxNoImprove < 0 {
		return fmt.Errorf("maxNoImprove must be >= 0")
	}
	if req.RemovalFraction < 0 || req.RemovalFraction > 1 {
		return fmt.Errorf("removalFraction must be in (0,1]")
	}
	if req.CallbackURL != "" {
		u, err := url.Parse(req.CallbackURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("callbackUrl must be an absolute http(s) URL")
		}
	}
	seen := map[int]bool{}
	depot := false
	for i, c := range req.Customers {
		if c.ID < 0 {
			return fmt.Errorf("customers[%d]: id must be >= 0", i)
		}
		if seen[c.ID] {
			return fmt.Errorf("customers[%d]: duplicate id %d", i, c.ID)
		}
		seen[c.ID] = true
		if c.ID == 0 {
			depot = true
		}
		if c.Ready > c.Due {
			return fmt.Errorf("customers[%d]: ready %v after due %v", i, c.Ready, c.Due)
		}
		if c.Demand < 0 || c.Service < 0 {
			return fmt.Errorf("customers[%d]: demand and service must be >= 0", i)
		}
	}
	if len(req.Customers) > 0 && !depot {
		return fmt.Errorf("customers: depot (id 0) missing")
	}
	return nil
}
