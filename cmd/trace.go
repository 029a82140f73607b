package cmd

import (
	"bytes"
	"fmt"
	"math/rand"
	"slices"
	"time"

	"github.com/achilleasa/curvebvh/accel"
	"github.com/achilleasa/curvebvh/config"
	"github.com/achilleasa/curvebvh/parallel"
	"github.com/achilleasa/curvebvh/types"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

const (
	// Rays submitted per stream call.
	streamSize = 256

	// Min rays traced by a single task.
	traceStepSize = 1024

	// Offset applied to shadow ray origins.
	shadowRayEpsilon float32 = 1e-4
)

var (
	cameraOrigin = types.XYZ(0, 0, 4)
	lightDir     = types.XYZ(0.3, 1, 0.2).Normalize()
)

type traceStats struct {
	mode     config.QueryMode
	width    int
	rays     int
	hits     int64
	shadowed int64
	elapsed  time.Duration
}

// Trace a grid of primary rays against a hair scene followed by shadow rays
// from every hit point.
func Trace(ctx *cli.Context) error {
	setupLogging(ctx)

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	mode, err := config.ParseQueryMode(cfg.Query.Mode)
	if err != nil {
		return err
	}
	width, err := packetWidth(ctx, cfg.Query)
	if err != nil {
		return err
	}

	sched := parallel.NewPool(cfg.Builder.Workers)
	tree, err := buildTree(ctx, cfg, sched)
	if err != nil {
		return err
	}
	set, err := accel.NewBVHAccelSet(0, tree, cfg.Query)
	if err != nil {
		return err
	}

	rays := primaryRays(ctx.Int("resolution"))
	order := rayOrder(len(rays), mode, ctx.Int64("seed"))
	stats := traceStats{mode: mode, width: width, rays: len(rays)}

	start := time.Now()
	submit(sched, set, rays, order, mode, width, false)

	shadowRays := make([]accel.Ray, 0, len(rays))
	for i := range rays {
		if !rays[i].Hit() {
			continue
		}
		stats.hits++
		hitPoint := rays[i].Org.Add(rays[i].Dir.Mul(rays[i].TFar))
		shadowRays = append(shadowRays, accel.NewRay(hitPoint, lightDir, shadowRayEpsilon, 1e3))
	}
	submit(sched, set, shadowRays, rayOrder(len(shadowRays), mode, ctx.Int64("seed")), mode, width, true)
	stats.shadowed = parallel.Reduce(sched, 0, len(shadowRays), traceStepSize, 0, func(r parallel.Range) int64 {
		var count int64
		for i := r.Begin; i < r.End; i++ {
			if shadowRays[i].Occluded() {
				count++
			}
		}
		return count
	}, func(a, b int64) int64 { return a + b })
	stats.elapsed = time.Since(start)

	displayTraceStats(stats)
	return nil
}

// Select the packet width for normal mode queries.
func packetWidth(ctx *cli.Context, q config.Query) (int, error) {
	if !ctx.IsSet("width") {
		return q.Widths[0], nil
	}
	width := ctx.Int("width")
	if !slices.Contains(q.Widths, width) {
		return 0, config.Invalid("width", width, fmt.Sprintf("not enabled in query widths %v", q.Widths))
	}
	return width, nil
}

// Generate a res x res grid of rays through the scene.
func primaryRays(res int) []accel.Ray {
	rays := make([]accel.Ray, 0, res*res)
	for y := 0; y < res; y++ {
		for x := 0; x < res; x++ {
			target := types.XYZ(
				3*(float32(x)+0.5)/float32(res)-1.5,
				1.5-3*(float32(y)+0.5)/float32(res),
				0,
			)
			dir := target.Sub(cameraOrigin).Normalize()
			rays = append(rays, accel.NewRay(cameraOrigin, dir, 0, 1e3))
		}
	}
	return rays
}

// Get the submission order of the rays. Incoherent streams visit the rays
// in random order; all other modes keep scanline order.
func rayOrder(count int, mode config.QueryMode, seed int64) []int {
	order := make([]int, count)
	for i := range order {
		order[i] = i
	}
	if mode == config.ModeStreamIncoherent {
		rng := rand.New(rand.NewSource(seed))
		rng.Shuffle(count, func(i, j int) { order[i], order[j] = order[j], order[i] })
	}
	return order
}

// Submit rays to the set using the selected mode.
func submit(sched parallel.Scheduler, set *accel.AccelSet, rays []accel.Ray, order []int, mode config.QueryMode, width int, occluded bool) {
	parallel.ForRange(sched, 0, len(rays), traceStepSize, func(r parallel.Range) {
		if mode == config.ModeNormal {
			tracePackets(set, rays[r.Begin:r.End], width, occluded)
			return
		}

		batch := make([]*accel.Ray, 0, streamSize)
		flush := func() {
			if occluded {
				set.OccludedN(batch, 0)
			} else {
				set.IntersectN(batch, 0)
			}
			batch = batch[:0]
		}
		for _, index := range order[r.Begin:r.End] {
			if batch = append(batch, &rays[index]); len(batch) == streamSize {
				flush()
			}
		}
		if len(batch) != 0 {
			flush()
		}
	})
}

// Trace rays in packets of the given width. The trailing packet is padded
// with inactive lanes.
func tracePackets(set *accel.AccelSet, rays []accel.Ray, width int, occluded bool) {
	for base := 0; base < len(rays); base += width {
		lanes := rays[base:min(base+width, len(rays))]
		switch width {
		case 1:
			if occluded {
				set.Occluded(&lanes[0], 0)
			} else {
				set.Intersect(&lanes[0], 0)
			}
		case 4:
			var packet accel.Ray4
			var valid accel.Valid4
			for i := range lanes {
				valid[i] = true
			}
			copy(packet[:], lanes)
			if occluded {
				set.Occluded4(&valid, &packet, 0)
			} else {
				set.Intersect4(&valid, &packet, 0)
			}
			copy(lanes, packet[:])
		case 8:
			var packet accel.Ray8
			var valid accel.Valid8
			for i := range lanes {
				valid[i] = true
			}
			copy(packet[:], lanes)
			if occluded {
				set.Occluded8(&valid, &packet, 0)
			} else {
				set.Intersect8(&valid, &packet, 0)
			}
			copy(lanes, packet[:])
		case 16:
			var packet accel.Ray16
			var valid accel.Valid16
			for i := range lanes {
				valid[i] = true
			}
			copy(packet[:], lanes)
			if occluded {
				set.Occluded16(&valid, &packet, 0)
			} else {
				set.Intersect16(&valid, &packet, 0)
			}
			copy(lanes, packet[:])
		}
	}
}

func displayTraceStats(stats traceStats) {
	totalRays := stats.rays + int(stats.hits)
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Mode", "Width", "Primary rays", "Hits", "Shadow rays", "Shadowed"})
	table.Append([]string{
		stats.mode.String(),
		fmt.Sprintf("%d", stats.width),
		fmt.Sprintf("%d", stats.rays),
		fmt.Sprintf("%d", stats.hits),
		fmt.Sprintf("%d", stats.hits),
		fmt.Sprintf("%d", stats.shadowed),
	})
	table.SetFooter([]string{"", "", "", "TOTAL", stats.elapsed.String(), fmt.Sprintf("%.2f Mrays/s", float64(totalRays)/stats.elapsed.Seconds()/1e6)})

	table.Render()
	logger.Noticef("trace statistics\n%s", buf.String())
}
