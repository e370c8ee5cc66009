package model

import (
	"time"

	"vrptw/internal/opt"
	"vrptw/internal/sysinfo"
)

// Run statuses.
const (
	StatusQueued    = "queued"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// CustomerIn is one row of an inline instance. ID 0 is the depot.
type CustomerIn struct {
	ID      int     `json:"id"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Demand  float64 `json:"demand"`
	Ready   float64 `json:"ready"`
	Due     float64 `json:"due"`
	Service float64 `json:"service"`
}

func (c CustomerIn) Customer() opt.Customer {
	return opt.Customer{ID: c.ID, X: c.X, Y: c.Y, Demand: c.Demand, Ready: c.Ready, Due: c.Due, Service: c.Service}
}

// SolveRequest is the body of POST /v1/solve. Exactly one of Customers and
// Solomon carries the instance. Unset solver fields take the catalog defaults.
type SolveRequest struct {
	Instance        string       `json:"instance,omitempty"`
	Customers       []CustomerIn `json:"customers,omitempty"`
	Solomon         string       `json:"solomon,omitempty"`
	Capacity        float64      `json:"capacity,omitempty"`
	MaxVehicles     int          `json:"maxVehicles,omitempty"`
	MaxNoImprove    *int         `json:"maxNoImprove,omitempty"`
	RemovalFraction float64      `json:"removalFraction,omitempty"`
	Seed            *int64       `json:"seed,omitempty"`
	Async           bool         `json:"async,omitempty"`
	CallbackURL     string       `json:"callbackUrl,omitempty"`
	CallbackSecret  string       `json:"callbackSecret,omitempty"`
}

// RunParams are the resolved solver parameters of a run.
type RunParams struct {
	Capacity        float64 `json:"capacity"`
	MaxVehicles     int     `json:"maxVehicles"`
	MaxNoImprove    int     `json:"maxNoImprove"`
	RemovalFraction float64 `json:"removalFraction"`
	Seed            int64   `json:"seed"`
}

// Run is a solve request and, once finished, its outcome.
type Run struct {
	ID              string           `json:"id"`
	Instance        string           `json:"instance"`
	Status          string           `json:"status"`
	Error           string           `json:"error,omitempty"`
	Params          RunParams        `json:"params"`
	Routes          []opt.Route      `json:"routes,omitempty"`
	TotalDistance   float64          `json:"totalDistance"`
	InitialDistance float64          `json:"initialDistance"`
	Unrouted        []int            `json:"unrouted,omitempty"`
	Iterations      int              `json:"iterations"`
	Improvements    int              `json:"improvements"`
	ComputationMs   int64            `json:"computationMs"`
	BestKnown       *float64         `json:"bestKnown,omitempty"`
	GapPct          *float64         `json:"gapPct,omitempty"`
	System          *sysinfo.SysInfo `json:"system,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

// Done reports whether the run reached a final status.
func (r Run) Done() bool { return r.Status == StatusCompleted || r.Status == StatusFailed }

// RunMetrics is the search telemetry of one phase of a run.
type RunMetrics struct {
	RunID     string      `json:"runId"`
	Instance  string      `json:"instance"`
	Algo      string      `json:"algo"`
	Metrics   opt.Metrics `json:"metrics"`
	CreatedAt time.Time   `json:"createdAt"`
}
