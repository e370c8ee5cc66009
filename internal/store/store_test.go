package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"vrptw/internal/model"
	"vrptw/internal/opt"
)

// exerciseStore runs the behaviour every Store implementation must share.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		inst := "C101"
		if i%2 == 1 {
			inst = "C204"
		}
		run := model.Run{
			ID:        fmt.Sprintf("run-%d", i),
			Instance:  inst,
			Status:    model.StatusQueued,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
			UpdatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := s.SaveRun(ctx, run); err != nil {
			t.Fatalf("SaveRun: %v", err)
		}
	}

	// update in place
	done := model.Run{
		ID:            "run-0",
		Instance:      "C101",
		Status:        model.StatusCompleted,
		Routes:        []opt.Route{{0, 2, 1, 0}},
		TotalDistance: 34.14,
		CreatedAt:     base,
		UpdatedAt:     base.Add(time.Minute),
	}
	if err := s.SaveRun(ctx, done); err != nil {
		t.Fatalf("SaveRun update: %v", err)
	}
	got, err := s.GetRun(ctx, "run-0")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Status != model.StatusCompleted || got.TotalDistance != 34.14 || len(got.Routes) != 1 {
		t.Fatalf("unexpected run: %+v", got)
	}
	if !got.CreatedAt.Equal(base) {
		t.Fatalf("createdAt changed: %v", got.CreatedAt)
	}

	if _, err := s.GetRun(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}

	page, next, err := s.ListRuns(ctx, "", "", 2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(page) != 2 || page[0].ID != "run-0" || page[1].ID != "run-1" || next != "run-1" {
		t.Fatalf("first page: %v next=%q", ids(page), next)
	}
	page, next, err = s.ListRuns(ctx, "", next, 2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(page) != 2 || page[0].ID != "run-2" || next != "run-3" {
		t.Fatalf("second page: %v next=%q", ids(page), next)
	}
	page, next, _ = s.ListRuns(ctx, "", next, 2)
	if len(page) != 1 || page[0].ID != "run-4" || next != "" {
		t.Fatalf("last page: %v next=%q", ids(page), next)
	}
	page, _, _ = s.ListRuns(ctx, "C204", "", 10)
	if len(page) != 2 || page[0].ID != "run-1" || page[1].ID != "run-3" {
		t.Fatalf("filtered: %v", ids(page))
	}

	m := opt.Metrics{Iterations: 60, Improvements: 4, InitialCost: 40, BestCost: 34.14, Snapshots: []opt.CostSnapshot{{Iteration: 50, BestCost: 34.14, Routes: 1}}}
	for _, algo := range []string{"construct", "lns"} {
		if err := s.SaveRunMetrics(ctx, model.RunMetrics{RunID: "run-0", Instance: "C101", Algo: algo, Metrics: m, CreatedAt: base}); err != nil {
			t.Fatalf("SaveRunMetrics: %v", err)
		}
	}
	list, err := s.ListRunMetrics(ctx, "C101", "lns")
	if err != nil {
		t.Fatalf("ListRunMetrics: %v", err)
	}
	if len(list) != 1 || list[0].Metrics.Iterations != 60 || len(list[0].Metrics.Snapshots) != 1 {
		t.Fatalf("metrics: %+v", list)
	}
	all, _ := s.ListRunMetrics(ctx, "C101", "")
	if len(all) != 2 {
		t.Fatalf("want 2 metric rows, got %d", len(all))
	}
}

func ids(runs []model.Run) []string {
	out := make([]string, len(runs))
	for i, r := range runs {
		out[i] = r.ID
	}
	return out
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestClampLimit(t *testing.T) {
	if clampLimit(0) != defaultLimit || clampLimit(10_000) != maxLimit || clampLimit(7) != 7 {
		t.Fatal("clampLimit")
	}
}
