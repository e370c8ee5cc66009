package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/urfave/cli"
	"golang.org/x/sync/errgroup"

	"vrptw/internal/artifact"
	"vrptw/internal/config"
	"vrptw/internal/gaps"
	"vrptw/internal/planner"
	"vrptw/internal/solomon"
	"vrptw/internal/sysinfo"
)

// outcome is the result of one instance file.
type outcome struct {
	path     string
	artifact string
	res      planner.Result
	best     float64
	hasBest  bool
	err      error
}

func loadCatalog(c *cli.Context) (*config.Catalog, error) {
	if path := c.GlobalString("config"); path != "" {
		if err := os.Setenv("VRPTW_CONFIG", path); err != nil {
			return nil, err
		}
	}
	return config.FromEnv()
}

// solverParams starts from the catalog defaults and applies the flags the
// user set. Without improve the LNS phase is switched off.
func solverParams(c *cli.Context, cat *config.Catalog, improve bool) planner.Params {
	p := planner.FromDefaults(cat.Defaults)
	if c.IsSet("capacity") {
		p.Capacity = c.Float64("capacity")
	}
	if c.IsSet("vehicles") {
		p.MaxVehicles = c.Int("vehicles")
	}
	if !improve {
		p.MaxNoImprove = 0
		return p
	}
	if c.IsSet("max-no-improve") {
		p.MaxNoImprove = c.Int("max-no-improve")
	}
	if c.IsSet("fraction") {
		p.RemovalFraction = c.Float64("fraction")
	}
	if c.IsSet("seed") {
		p.Seed = c.Int64("seed")
	}
	return p
}

func solveAction(improve bool) func(*cli.Context) error {
	return func(c *cli.Context) error {
		files := c.Args()
		if len(files) == 0 {
			return cli.NewExitError("at least one instance file is required", 2)
		}
		cat, err := loadCatalog(c)
		if err != nil {
			return err
		}
		params := solverParams(c, cat, improve)
		prefix := artifact.ConstructPrefix
		if improve {
			prefix = artifact.LNSPrefix
		}

		results := make([]outcome, len(files))
		var g errgroup.Group
		g.SetLimit(max(1, c.Int("parallel")))
		for i, path := range files {
			out := filepath.Join(c.GlobalString("out"), artifact.FileName(prefix, solomon.Stem(path)))
			g.Go(func() error {
				results[i] = solveFile(path, cat, params, out)
				return nil
			})
		}
		_ = g.Wait()
		return report(c.App.Writer, results)
	}
}

func solveFile(path string, cat *config.Catalog, params planner.Params, out string) outcome {
	o := outcome{path: path, artifact: out}
	inst, err := solomon.Load(path)
	if err != nil {
		o.err = err
		return o
	}
	planner.ApplyCatalog(inst, cat)
	if o.res, o.err = planner.Plan(inst, params, planner.Observer{}); o.err != nil {
		return o
	}
	o.best, o.hasBest = cat.BestKnown(inst.Name)
	o.err = artifact.Save(out, o.res.Artifact())
	return o
}

func improveAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.NewExitError("an instance file is required", 2)
	}
	instPath := c.Args().First()
	stem := solomon.Stem(instPath)
	routesPath := c.Args().Get(1)
	if routesPath == "" {
		routesPath = filepath.Join(c.GlobalString("out"), artifact.FileName(artifact.ConstructPrefix, stem))
	}
	cat, err := loadCatalog(c)
	if err != nil {
		return err
	}
	inst, err := solomon.Load(instPath)
	if err != nil {
		return err
	}
	planner.ApplyCatalog(inst, cat)
	prev, err := artifact.LoadFile(routesPath)
	if err != nil {
		return err
	}

	o := outcome{path: instPath, artifact: filepath.Join(c.GlobalString("out"), artifact.FileName(artifact.LNSPrefix, stem))}
	o.res, o.err = planner.Refine(inst, prev.Routes, solverParams(c, cat, true), planner.Observer{})
	if o.err == nil {
		o.best, o.hasBest = cat.BestKnown(inst.Name)
		o.err = artifact.Save(o.artifact, o.res.Artifact())
	}
	return report(c.App.Writer, []outcome{o})
}

func gapsAction(c *cli.Context) error {
	dir := "."
	if c.NArg() > 0 {
		dir = c.Args().First()
	}
	cat, err := loadCatalog(c)
	if err != nil {
		return err
	}
	rows, err := gaps.Report(dir, c.String("prefix"), cat)
	if err != nil {
		return err
	}
	if c.String("summary") == "-" {
		return gaps.WriteSummary(c.App.Writer, rows)
	}
	path := c.String("summary")
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := gaps.WriteSummary(f, rows); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.App.Writer, "%s written (%d files)\n", path, len(rows))
	return err
}

// report prints a summary per instance in input order and fails when any
// instance failed.
func report(w io.Writer, results []outcome) error {
	failed := 0
	for _, o := range results {
		if o.err != nil {
			log.Printf("%s: %v", o.path, o.err)
			failed++
			continue
		}
		printSummary(w, o)
	}
	if len(results)-failed > 0 {
		fmt.Fprintf(w, "System: %s\n", sysinfo.Collect())
	}
	if failed > 0 {
		return cli.NewExitError(fmt.Sprintf("%d of %d instances failed", failed, len(results)), 1)
	}
	return nil
}

func printSummary(w io.Writer, o outcome) {
	res := o.res
	for i, r := range res.Best.Routes {
		fmt.Fprintf(w, "Route %d: %s\n", i+1, artifact.JoinRoute(r))
	}
	fmt.Fprintf(w, "Instance computed: %s\n", res.Instance)
	fmt.Fprintf(w, "Number of Vehicles Used: %d\n", len(res.Best.Routes))
	fmt.Fprintf(w, "Vehicle Capacity: %s\n", strconv.FormatFloat(res.Capacity, 'f', -1, 64))
	if res.LNS.Iterations > 0 {
		fmt.Fprintf(w, "Initial Distance: %.2f (%d LNS iterations, %d improvements)\n", res.Initial.Cost, res.LNS.Iterations, res.LNS.Improvements)
	}
	fmt.Fprintf(w, "Objective Value (Total Distance): %.2f\n", res.Best.Cost)
	if o.hasBest {
		fmt.Fprintf(w, "Gap (%%): %.2f%%\n", gaps.Gap(res.Best.Cost, o.best))
	}
	if len(res.Unrouted) > 0 {
		fmt.Fprintf(w, "Unrouted Customers: %v\n", res.Unrouted)
	}
	fmt.Fprintf(w, "Computation Time: %.2f seconds\n", res.Elapsed.Seconds())
	fmt.Fprintf(w, "Routes written to %s\n\n", o.artifact)
}
