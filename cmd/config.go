package cmd

import (
	"github.com/achilleasa/curvebvh/config"
	"github.com/achilleasa/curvebvh/log"
	"github.com/urfave/cli"
)

// BuildFlags configure scene generation and BVH construction. Flags that are
// set override the values of the configuration file.
var BuildFlags = []cli.Flag{
	cli.IntFlag{
		Name:  "strands",
		Value: 10000,
		Usage: "number of generated hair strands",
	},
	cli.Int64Flag{
		Name:  "seed",
		Value: 1,
		Usage: "random seed for hair generation",
	},
	cli.StringFlag{
		Name:  "layout",
		Value: config.LayoutOriented,
		Usage: "leaf layout (oriented, quantized8, quantized16)",
	},
	cli.IntFlag{
		Name:  "leaf-size",
		Value: 8,
		Usage: "max primitives per leaf block",
	},
	cli.IntFlag{
		Name:  "max-depth",
		Value: 40,
		Usage: "max tree depth",
	},
	cli.IntFlag{
		Name:  "parallel-threshold",
		Value: 4096,
		Usage: "min primitive count for parallel binning and partitioning",
	},
	cli.IntFlag{
		Name:  "workers",
		Value: 0,
		Usage: "number of worker threads (0 = all cpus)",
	},
}

// QueryFlags configure the dispatch table.
var QueryFlags = []cli.Flag{
	cli.StringFlag{
		Name:  "mode",
		Value: config.ModeNormal.String(),
		Usage: "query mode (normal, stream-coherent, stream-incoherent)",
	},
	cli.IntSliceFlag{
		Name:  "widths",
		Usage: "enabled packet widths (1, 4, 8, 16); may be repeated",
	},
	cli.BoolFlag{
		Name:  "foreign",
		Usage: "pass packed lane masks to packet intersectors",
	},
}

// Load the configuration file (if any), apply command line overrides and
// validate the result. The configured log level is applied unless the
// verbosity flags raise it.
func loadConfig(ctx *cli.Context) (config.Config, error) {
	cfg := config.Default()
	if path := ctx.GlobalString("config"); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return config.Config{}, err
		}
	}

	if ctx.IsSet("layout") {
		cfg.Leaf.Layout = ctx.String("layout")
	}
	if ctx.IsSet("leaf-size") {
		cfg.Leaf.MaxSize = ctx.Int("leaf-size")
	}
	if ctx.IsSet("max-depth") {
		cfg.Builder.MaxDepth = ctx.Int("max-depth")
	}
	if ctx.IsSet("parallel-threshold") {
		cfg.Builder.ParallelThreshold = ctx.Int("parallel-threshold")
	}
	if ctx.IsSet("workers") {
		cfg.Builder.Workers = ctx.Int("workers")
	}
	if ctx.IsSet("mode") {
		cfg.Query.Mode = ctx.String("mode")
	}
	if ctx.IsSet("widths") {
		cfg.Query.Widths = ctx.IntSlice("widths")
	}
	if ctx.IsSet("foreign") {
		cfg.Query.Foreign = ctx.Bool("foreign")
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return config.Config{}, config.Invalid("log_level", cfg.LogLevel, err.Error())
	}
	log.SetLevel(level)
	setupLogging(ctx)

	return cfg, nil
}
