// Package gaps compares saved run artifacts with best-known distances.
package gaps

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"vrptw/internal/artifact"
	"vrptw/internal/config"
)

// SummaryFile is the default report name.
const SummaryFile = "gaps_summary.txt"

// Row is one line of the report. Err is set when the file could not be
// evaluated; the other numeric fields are then meaningless.
type Row struct {
	File          string
	Instance      string
	TotalDistance float64
	BestKnown     float64
	Gap           float64
	Err           error
}

// Gap is the relative excess of total over best, in percent.
func Gap(total, best float64) float64 { return (total - best) / best * 100 }

// Report evaluates every <prefix>*.txt file in dir, sorted by name. A file that
// cannot be read or has no best-known reference yields an error row; only a
// failure to list dir is returned as an error.
func Report(dir, prefix string, cat *config.Catalog) ([]Row, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), prefix) && strings.HasSuffix(e.Name(), ".txt") {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)
	rows := make([]Row, 0, len(names))
	for _, name := range names {
		rows = append(rows, evaluate(filepath.Join(dir, name), cat))
	}
	return rows, nil
}

func evaluate(path string, cat *config.Catalog) Row {
	row := Row{File: filepath.Base(path)}
	res, err := artifact.LoadFile(path)
	switch {
	case err != nil:
		row.Err = err
	case res.Instance == "":
		row.Err = errors.New("instance name not found")
	case !res.HasDistance:
		row.Err = errors.New("total distance not found")
	}
	if row.Err != nil {
		return row
	}
	best, ok := cat.BestKnown(res.Instance)
	if !ok {
		row.Err = fmt.Errorf("%w: no best-known distance for %s", config.ErrUnknownInstance, res.Instance)
		return row
	}
	row.Instance = res.Instance
	row.TotalDistance = res.TotalDistance
	row.BestKnown = best
	row.Gap = Gap(res.TotalDistance, best)
	return row
}

// WriteSummary writes rows as a tab-separated table with a header line.
func WriteSummary(w io.Writer, rows []Row) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "File\tInstance\tTotalDistance\tBestKnown\tGap (%)")
	for _, r := range rows {
		if r.Err != nil {
			fmt.Fprintf(bw, "%s\tERROR\t-\t-\t%s\n", r.File, r.Err)
			continue
		}
		fmt.Fprintf(bw, "%s\t%s\t%s\t%s\t%s\n", r.File, r.Instance, num(r.TotalDistance), num(r.BestKnown), num(r.Gap))
	}
	return bw.Flush()
}

func num(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
