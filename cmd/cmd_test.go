package cmd

import (
	"flag"
	"testing"

	"github.com/achilleasa/curvebvh/accel"
	"github.com/achilleasa/curvebvh/config"
	"github.com/achilleasa/curvebvh/parallel"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"
)

func newContext(t *testing.T, args ...string) *cli.Context {
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	flags := append(append([]cli.Flag{cli.IntFlag{Name: "width"}}, BuildFlags...), QueryFlags...)
	for _, f := range flags {
		f.Apply(set)
	}
	require.NoError(t, set.Parse(args))
	return cli.NewContext(nil, set, nil)
}

func TestLoadConfigOverrides(t *testing.T) {
	ctx := newContext(t,
		"--layout", "quantized8",
		"--leaf-size", "4",
		"--parallel-threshold", "128",
		"--mode", "stream-coherent",
		"--widths", "4", "--widths", "16",
		"--foreign",
	)
	cfg, err := loadConfig(ctx)
	require.NoError(t, err)

	assert.Equal(t, config.LayoutQuantized8, cfg.Leaf.Layout)
	assert.Equal(t, 4, cfg.Leaf.MaxSize)
	assert.Equal(t, 128, cfg.Builder.ParallelThreshold)
	assert.Equal(t, 40, cfg.Builder.MaxDepth, "unset flags keep the configured value")
	assert.Equal(t, "stream-coherent", cfg.Query.Mode)
	assert.Equal(t, []int{4, 16}, cfg.Query.Widths)
	assert.True(t, cfg.Query.Foreign)
}

func TestLoadConfigRejectsBadFlags(t *testing.T) {
	specs := [][]string{
		{"--mode", "batched"},
		{"--layout", "sparse"},
		{"--widths", "3"},
		{"--leaf-size", "12"},
	}
	for index, args := range specs {
		_, err := loadConfig(newContext(t, args...))
		assert.True(t, errors.Is(err, config.ErrInvalidConfig), "spec %d: got %v", index, err)
	}
}

func TestPacketWidth(t *testing.T) {
	q := config.Default().Query
	q.Widths = []int{4, 16}

	width, err := packetWidth(newContext(t), q)
	require.NoError(t, err)
	assert.Equal(t, 4, width)

	width, err = packetWidth(newContext(t, "--width", "16"), q)
	require.NoError(t, err)
	assert.Equal(t, 16, width)

	_, err = packetWidth(newContext(t, "--width", "8"), q)
	assert.True(t, errors.Is(err, config.ErrInvalidConfig), "got %v", err)
}

func TestRayOrder(t *testing.T) {
	coherent := rayOrder(100, config.ModeStreamCoherent, 1)
	incoherent := rayOrder(100, config.ModeStreamIncoherent, 1)

	seen := make(map[int]bool)
	inPlace := 0
	for i := range incoherent {
		assert.Equal(t, i, coherent[i])
		seen[incoherent[i]] = true
		if incoherent[i] == i {
			inPlace++
		}
	}
	assert.Len(t, seen, 100, "expected a permutation")
	assert.Less(t, inPlace, 100, "expected a shuffled order")
}

func TestQueryModesAgree(t *testing.T) {
	ctx := newContext(t, "--strands", "2000", "--workers", "4", "--parallel-threshold", "256")
	cfg, err := loadConfig(ctx)
	require.NoError(t, err)

	sched := parallel.NewPool(cfg.Builder.Workers)
	tree, err := buildTree(ctx, cfg, sched)
	require.NoError(t, err)

	type spec struct {
		mode    config.QueryMode
		width   int
		foreign bool
	}
	specs := []spec{
		{config.ModeNormal, 1, false},
		{config.ModeNormal, 4, false},
		{config.ModeNormal, 8, true},
		{config.ModeNormal, 16, false},
		{config.ModeNormal, 16, true},
		{config.ModeStreamCoherent, 1, false},
		{config.ModeStreamIncoherent, 1, false},
	}

	var expRays, shadowSeeds []accel.Ray
	var expShadowed []bool
	for index, s := range specs {
		q := cfg.Query
		q.Mode = s.mode.String()
		q.Foreign = s.foreign
		set, err := accel.NewBVHAccelSet(0, tree, q)
		require.NoError(t, err)

		rays := primaryRays(40)
		submit(sched, set, rays, rayOrder(len(rays), s.mode, 7), s.mode, s.width, false)

		// All variants trace the shadow rays cast from the first variant's hits.
		if expRays == nil {
			expRays = rays
			for i := range rays {
				if rays[i].Hit() {
					hitPoint := rays[i].Org.Add(rays[i].Dir.Mul(rays[i].TFar))
					shadowSeeds = append(shadowSeeds, accel.NewRay(hitPoint, lightDir, shadowRayEpsilon, 1e3))
				}
			}
			require.NotEmpty(t, shadowSeeds, "expected some primary rays to hit the hair")
		}
		for i := range rays {
			require.Equal(t, expRays[i], rays[i], "spec %d: ray %d", index, i)
		}

		shadows := append([]accel.Ray(nil), shadowSeeds...)
		submit(sched, set, shadows, rayOrder(len(shadows), s.mode, 7), s.mode, s.width, true)
		shadowed := make([]bool, len(shadows))
		for i := range shadows {
			shadowed[i] = shadows[i].Occluded()
		}
		if expShadowed == nil {
			expShadowed = shadowed
			continue
		}
		assert.Equal(t, expShadowed, shadowed, "spec %d", index)
	}
}
