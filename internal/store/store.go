package store

import (
	"context"
	"errors"

	"vrptw/internal/model"
)

// Store is the persistence interface used by the API server.
type Store interface {
	// Runs
	SaveRun(ctx context.Context, run model.Run) error
	GetRun(ctx context.Context, id string) (model.Run, error)
	ListRuns(ctx context.Context, instance, cursor string, limit int) (items []model.Run, nextCursor string, err error)

	// Search telemetry
	SaveRunMetrics(ctx context.Context, m model.RunMetrics) error
	ListRunMetrics(ctx context.Context, instance, algo string) ([]model.RunMetrics, error)
}

// Pinger is implemented by stores backed by a remote connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

var ErrNotFound = errors.New("not found")

const (
	defaultLimit = 50
	maxLimit     = 500
)

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}
