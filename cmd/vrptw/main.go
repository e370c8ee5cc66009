// Command vrptw solves Solomon VRPTW instances from the command line.
package main

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"runtime"
	"slices"

	"github.com/joho/godotenv"
	"github.com/urfave/cli"

	"vrptw/internal/artifact"
	"vrptw/internal/buildinfo"
	"vrptw/internal/gaps"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("warning: .env not loaded: %v", err)
	}
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "vrptw"
	app.Usage = "cheapest-insertion construction and LNS improvement for Solomon VRPTW instances"
	app.Version = buildinfo.Version
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "config", Usage: "instance catalog YAML (default: built-in)", EnvVar: "VRPTW_CONFIG"},
		cli.StringFlag{Name: "out, o", Value: ".", Usage: "directory for route artifacts"},
	}

	solverFlags := []cli.Flag{
		cli.Float64Flag{Name: "capacity", Usage: "vehicle capacity (default: catalog, then file header)"},
		cli.IntFlag{Name: "vehicles", Usage: "maximum number of routes (default: catalog defaults)"},
		cli.IntFlag{Name: "max-no-improve", Usage: "LNS stops after this many iterations without improvement"},
		cli.Float64Flag{Name: "fraction", Usage: "share of customers removed per LNS iteration"},
		cli.Int64Flag{Name: "seed", Usage: "random seed for the destroy step"},
	}
	parallelFlag := cli.IntFlag{Name: "parallel, p", Value: runtime.NumCPU(), Usage: "instances solved at once"}

	app.Commands = []cli.Command{
		{
			Name:      "solve",
			Usage:     "construct and improve one or more instances",
			ArgsUsage: "<instance.txt>...",
			Flags:     slices.Concat(solverFlags, []cli.Flag{parallelFlag}),
			Action:    solveAction(true),
		},
		{
			Name:      "construct",
			Usage:     "build initial routes with cheapest insertion only",
			ArgsUsage: "<instance.txt>...",
			Flags:     slices.Concat(solverFlags[:2], []cli.Flag{parallelFlag}),
			Action:    solveAction(false),
		},
		{
			Name:      "improve",
			Usage:     "run LNS on routes read from an artifact",
			ArgsUsage: "<instance.txt> [routes.txt]",
			Flags:     solverFlags,
			Action:    improveAction,
		},
		{
			Name:      "gaps",
			Usage:     "compare artifacts in a directory with best-known distances",
			ArgsUsage: "[dir]",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "prefix", Value: artifact.LNSPrefix, Usage: "artifact file name prefix"},
				cli.StringFlag{Name: "summary", Value: gaps.SummaryFile, Usage: "report file name, '-' for stdout"},
			},
			Action: gapsAction,
		},
		{
			Name:  "version",
			Usage: "print build information",
			Action: func(c *cli.Context) error {
				_, err := os.Stdout.WriteString(buildinfo.String() + "\n")
				return err
			},
		},
	}
	return app
}
