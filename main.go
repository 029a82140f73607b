package main

import (
	"fmt"
	"os"

	"github.com/achilleasa/curvebvh/cmd"
	"github.com/urfave/cli"
)

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "curvebvh"
	app.Usage = "build and query bounding volume hierarchies over hair curves"
	app.Version = "0.0.1"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
		cli.StringFlag{
			Name:  "config, c",
			Usage: "load settings from a yaml file",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "build",
			Usage: "build a BVH over a generated hair scene",
			Description: `
Generate a hair scene, build a BVH over its curve segments using the binned
surface area heuristic and display the tree statistics.`,
			Flags:  cmd.BuildFlags,
			Action: cmd.BuildBVH,
		},
		{
			Name:  "trace",
			Usage: "trace rays against a generated hair scene",
			Description: `
Build a BVH over a generated hair scene, trace a grid of primary rays and a
shadow ray for every hit using the selected query mode.`,
			Flags: append(append([]cli.Flag{
				cli.IntFlag{
					Name:  "resolution",
					Value: 256,
					Usage: "ray grid resolution",
				},
				cli.IntFlag{
					Name:  "width",
					Usage: "packet width used in normal mode (defaults to the first enabled width)",
				},
			}, cmd.BuildFlags...), cmd.QueryFlags...),
			Action: cmd.Trace,
		},
		{
			Name:   "intersectors",
			Usage:  "list the intersector dispatch table",
			Flags:  append(append([]cli.Flag{}, cmd.BuildFlags...), cmd.QueryFlags...),
			Action: cmd.ListIntersectors,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
