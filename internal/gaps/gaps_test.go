package gaps

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vrptw/internal/artifact"
	"vrptw/internal/config"
	"vrptw/internal/opt"
)

func TestReport(t *testing.T) {
	dir := t.TempDir()
	save := func(stem string, r artifact.Result) {
		require.NoError(t, artifact.Save(filepath.Join(dir, artifact.FileName(artifact.LNSPrefix, stem)), r))
	}
	save("C101", artifact.Result{Instance: "C101", Routes: []opt.Route{{0, 1, 0}}, TotalDistance: 870.387, HasDistance: true})
	save("C204", artifact.Result{Instance: "C204", TotalDistance: 591.56, HasDistance: true})
	save("R101", artifact.Result{Instance: "R101", TotalDistance: 1700, HasDistance: true})
	save("nodist", artifact.Result{Instance: "C101"})
	// not an improvement artifact
	require.NoError(t, artifact.Save(filepath.Join(dir, artifact.FileName(artifact.ConstructPrefix, "C101")), artifact.Result{Instance: "C101"}))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "output_routes_lns_bad.txt"), []byte("Route 1: 0 -> ? -> 0\n"), 0o644))

	rows, err := Report(dir, artifact.LNSPrefix, config.Default())
	require.NoError(t, err)
	require.Len(t, rows, 5)

	byFile := map[string]Row{}
	for _, r := range rows {
		byFile[r.File] = r
	}
	c101 := byFile["output_routes_lns_C101.txt"]
	require.NoError(t, c101.Err)
	assert.Equal(t, 828.94, c101.BestKnown)
	assert.InDelta(t, 5.0, c101.Gap, 1e-3)
	assert.InDelta(t, 0.0, byFile["output_routes_lns_C204.txt"].Gap, 1e-9)
	assert.ErrorIs(t, byFile["output_routes_lns_R101.txt"].Err, config.ErrUnknownInstance)
	assert.Error(t, byFile["output_routes_lns_nodist.txt"].Err)
	assert.Error(t, byFile["output_routes_lns_bad.txt"].Err)
}

func TestReportReadsFileNameInstances(t *testing.T) {
	dir := t.TempDir()
	body := "Instance: C104.txt\nRoute 1: 0 -> 1 -> 0\nTotal Distance: 907.26\nComputation Time: 1.50 seconds\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "output_routes_lns_C104.txt"), []byte(body), 0o644))

	rows, err := Report(dir, artifact.LNSPrefix, config.Default())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.NoError(t, rows[0].Err)
	assert.Equal(t, "C104.txt", rows[0].Instance)
	assert.Equal(t, 824.78, rows[0].BestKnown)
	assert.InDelta(t, 10.0, rows[0].Gap, 1e-3)
}

func TestReportMissingDir(t *testing.T) {
	_, err := Report(filepath.Join(t.TempDir(), "nope"), artifact.LNSPrefix, config.Default())
	assert.Error(t, err)
}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer
	rows := []Row{
		{File: "a.txt", Instance: "C101", TotalDistance: 870.38, BestKnown: 828.94, Gap: 5},
		{File: "b.txt", Err: assert.AnError},
	}
	require.NoError(t, WriteSummary(&buf, rows))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "File\tInstance\tTotalDistance\tBestKnown\tGap (%)", lines[0])
	assert.Equal(t, "a.txt\tC101\t870.38\t828.94\t5", lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "b.txt\tERROR\t-\t-\t"))
}
