package store

import (
	"context"
	"sync"
	"time"

	"vrptw/internal/model"
)

// Memory is a simple in-memory store used when no DATABASE_URL is set.
type Memory struct {
	mu      sync.Mutex
	runs    map[string]model.Run // id -> run
	order   []string             // run ids in creation order
	metrics []model.RunMetrics
}

func NewMemory() *Memory {
	return &Memory{runs: map[string]model.Run{}}
}

func (m *Memory) SaveRun(ctx context.Context, run model.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	if run.UpdatedAt.IsZero() {
		run.UpdatedAt = run.CreatedAt
	}
	if _, ok := m.runs[run.ID]; !ok {
		m.order = append(m.order, run.ID)
	}
	m.runs[run.ID] = run
	return nil
}

func (m *Memory) GetRun(ctx context.Context, id string) (model.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return model.Run{}, ErrNotFound
	}
	return run, nil
}

func (m *Memory) ListRuns(ctx context.Context, instance, cursor string, limit int) ([]model.Run, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	limit = clampLimit(limit)
	start := 0
	if cursor != "" {
		for i, id := range m.order {
			if id == cursor {
				start = i + 1
				break
			}
		}
	}
	var out []model.Run
	next := ""
	for _, id := range m.order[start:] {
		run := m.runs[id]
		if instance != "" && run.Instance != instance {
			continue
		}
		if len(out) == limit {
			next = out[len(out)-1].ID
			break
		}
		out = append(out, run)
	}
	return out, next, nil
}

func (m *Memory) SaveRunMetrics(ctx context.Context, rm model.RunMetrics) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rm.CreatedAt.IsZero() {
		rm.CreatedAt = time.Now().UTC()
	}
	m.metrics = append(m.metrics, rm)
	return nil
}

func (m *Memory) ListRunMetrics(ctx context.Context, instance, algo string) ([]model.RunMetrics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.RunMetrics
	for _, rm := range m.metrics {
		if (instance == "" || rm.Instance == instance) && (algo == "" || rm.Algo == algo) {
			out = append(out, rm)
		}
	}
	return out, nil
}
