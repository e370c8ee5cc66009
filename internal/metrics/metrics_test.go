package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterDefaultIsIdempotent(t *testing.T) {
	RegisterDefault()
	RegisterDefault()
	Runs.WithLabelValues("ok").Inc()
	if got := testutil.ToFloat64(Runs.WithLabelValues("ok")); got < 1 {
		t.Fatalf("runs counter = %v", got)
	}
	mfs, err := Registry.Gather()
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, mf := range mfs {
		if mf.GetName() == "vrptw_runs_total" {
			found = true
		}
	}
	if !found {
		t.Fatal("vrptw_runs_total not gathered")
	}
}
