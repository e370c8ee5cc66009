// Package artifact reads and writes the plain-text route files produced by a run:
//
//	Instance: C101
//	Route 1: 0 -> 5 -> 3 -> 0
//	Total Distance: 191.81
//	Computation Time: 0.02 seconds
package artifact

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"vrptw/internal/opt"
)

// File name prefixes of the construction and improvement artifacts.
const (
	ConstructPrefix = "output_routes_"
	LNSPrefix       = "output_routes_lns_"
)

// Result is the content of one artifact. Lines are only written for the fields
// that are set.
type Result struct {
	Instance        string
	Routes          []opt.Route
	TotalDistance   float64
	ComputationTime time.Duration
	HasDistance     bool
	HasTime         bool
}

// FileName returns prefix + stem + ".txt".
func FileName(prefix, stem string) string { return prefix + stem + ".txt" }

// Write renders r in the artifact format.
func Write(w io.Writer, r Result) error {
	bw := bufio.NewWriter(w)
	if r.Instance != "" {
		fmt.Fprintf(bw, "Instance: %s\n", r.Instance)
	}
	for i, route := range r.Routes {
		fmt.Fprintf(bw, "Route %d: %s\n", i+1, JoinRoute(route))
	}
	if r.HasDistance {
		fmt.Fprintf(bw, "Total Distance: %.2f\n", r.TotalDistance)
	}
	if r.HasTime {
		fmt.Fprintf(bw, "Computation Time: %.2f seconds\n", r.ComputationTime.Seconds())
	}
	return bw.Flush()
}

// JoinRoute renders r as "0 -> 5 -> 3 -> 0", the form used on Route lines.
func JoinRoute(r opt.Route) string {
	parts := make([]string, len(r))
	for i, id := range r {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, " -> ")
}

// Save writes r to path, creating parent directories.
func Save(path string, r Result) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Read parses an artifact. Unknown lines are ignored; malformed known lines are errors.
func Read(rd io.Reader) (Result, error) {
	var res Result
	sc := bufio.NewScanner(rd)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimSpace(sc.Text())
		switch {
		case strings.HasPrefix(line, "Instance:"):
			res.Instance = strings.TrimSpace(strings.TrimPrefix(line, "Instance:"))
		case strings.HasPrefix(line, "Route"):
			_, body, ok := strings.Cut(line, ":")
			if !ok {
				return Result{}, fmt.Errorf("artifact: line %d: missing ':'", n)
			}
			route, err := parseRoute(body)
			if err != nil {
				return Result{}, fmt.Errorf("artifact: line %d: %w", n, err)
			}
			res.Routes = append(res.Routes, route)
		case strings.HasPrefix(line, "Total Distance:"):
			v, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimPrefix(line, "Total Distance:")), 64)
			if err != nil {
				return Result{}, fmt.Errorf("artifact: line %d: total distance: %w", n, err)
			}
			res.TotalDistance, res.HasDistance = v, true
		case strings.HasPrefix(line, "Computation Time:"):
			s := strings.TrimSpace(strings.TrimPrefix(line, "Computation Time:"))
			v, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(s, "seconds")), 64)
			if err != nil {
				return Result{}, fmt.Errorf("artifact: line %d: computation time: %w", n, err)
			}
			res.ComputationTime, res.HasTime = time.Duration(v*float64(time.Second)), true
		}
	}
	return res, sc.Err()
}

func parseRoute(s string) (opt.Route, error) {
	parts := strings.Split(s, "->")
	route := make(opt.Route, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("route id %q: %w", strings.TrimSpace(p), err)
		}
		route = append(route, id)
	}
	return route, nil
}

// LoadFile reads the artifact at path.
func LoadFile(path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, err
	}
	defer f.Close()
	res, err := Read(f)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", path, err)
	}
	return res, nil
}
