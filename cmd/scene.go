package cmd

import (
	"github.com/achilleasa/curvebvh/bvh"
	"github.com/achilleasa/curvebvh/config"
	"github.com/achilleasa/curvebvh/geometry"
	"github.com/achilleasa/curvebvh/leaf"
	"github.com/achilleasa/curvebvh/parallel"
	"github.com/urfave/cli"
)

// The geometry id of the generated hair.
const hairGeomID = 1

// Generate a hair scene and build a BVH over it.
func buildTree(ctx *cli.Context, cfg config.Config, sched parallel.Scheduler) (*bvh.BVH, error) {
	opts := geometry.DefaultHairOptions(ctx.Int("strands"))
	opts.Seed = ctx.Int64("seed")

	logger.Infof("generating %d hair strands (seed %d)", opts.Strands, opts.Seed)
	scene, err := geometry.NewScene(geometry.GenerateHair(hairGeomID, opts))
	if err != nil {
		return nil, err
	}

	layout, err := leaf.ParseLayout(cfg.Leaf.Layout)
	if err != nil {
		return nil, err
	}
	enc, err := leaf.NewEncoder(layout, scene)
	if err != nil {
		return nil, err
	}

	logger.Infof("building %s BVH using %d worker(s)", layout, sched.NumWorkers())
	return bvh.Build(sched, scene, enc, bvh.OptionsFromConfig(cfg))
}

// Build a BVH over a generated hair scene and display its statistics.
func BuildBVH(ctx *cli.Context) error {
	setupLogging(ctx)

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	tree, err := buildTree(ctx, cfg, parallel.NewPool(cfg.Builder.Workers))
	if err != nil {
		return err
	}

	logger.Noticef("bvh statistics:\n%s", tree.Stats().Table())
	return nil
}
