package bvh

import (
	"math"
	"sort"
	"testing"

	"github.com/achilleasa/curvebvh/config"
	"github.com/achilleasa/curvebvh/geometry"
	"github.com/achilleasa/curvebvh/leaf"
	"github.com/achilleasa/curvebvh/parallel"
	"github.com/achilleasa/curvebvh/types"
	"github.com/pkg/errors"
)

type boxGeometry struct {
	id    uint32
	boxes []types.BBox
}

func (g *boxGeometry) ID() uint32                    { return g.id }
func (g *boxGeometry) Size() int                     { return len(g.boxes) }
func (g *boxGeometry) Bounds(prim int) types.BBox    { return g.boxes[prim] }
func (g *boxGeometry) Direction(prim int) types.Vec3 { return g.boxes[prim].Size() }
func (g *boxGeometry) BoundsIn(space types.AffineSpace3, prim int) types.BBox {
	return space.ApplyBBox(g.boxes[prim])
}

var allLayouts = []leaf.Layout{leaf.Oriented, leaf.Quantized8, leaf.Quantized16}

func mustScene(t *testing.T, geoms ...geometry.Geometry) *geometry.Scene {
	scene, err := geometry.NewScene(geoms...)
	if err != nil {
		t.Fatal(err)
	}
	return scene
}

func hairScene(t *testing.T, strands int) *geometry.Scene {
	return mustScene(t, geometry.GenerateHair(1, geometry.DefaultHairOptions(strands)))
}

func mustBuild(t *testing.T, sched parallel.Scheduler, scene *geometry.Scene, layout leaf.Layout, opts Options) *BVH {
	enc, err := leaf.NewEncoder(layout, scene)
	if err != nil {
		t.Fatal(err)
	}
	tree, err := Build(sched, scene, enc, opts)
	if err != nil {
		t.Fatal(err)
	}
	return tree
}

// Walk the tree and verify that every child is contained in its parent.
func checkNesting(t *testing.T, tree *BVH, ref NodeRef) {
	node := tree.Node(ref)
	if node.IsLeaf() {
		return
	}
	for _, child := range node.Children {
		if !node.Bounds.Contains(tree.Node(child).Bounds, 0) {
			t.Fatalf("child bounds %v not contained in parent bounds %v", tree.Node(child).Bounds, node.Bounds)
		}
		checkNesting(t, tree, child)
	}
}

func sortedIDs(ids []uint64) []uint64 {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func TestLeafCount(t *testing.T) {
	type primSpec struct {
		min types.Vec3
		max types.Vec3
	}

	primSpecs := []primSpec{
		{types.Vec3{-2, 0, -2}, types.Vec3{-1, 1, -1}},
		{types.Vec3{1, 0, -2}, types.Vec3{2, 1, -1}},
		{types.Vec3{-2, 0, 1}, types.Vec3{-1, 1, 2}},
		{types.Vec3{1, 0, 1}, types.Vec3{2, 1, 2}},
	}
	g := &boxGeometry{id: 0}
	for _, ps := range primSpecs {
		g.boxes = append(g.boxes, types.NewBBox(ps.min, ps.max))
	}
	scene := mustScene(t, g)

	type spec struct {
		maxLeafSize int
		expLeaves   int
		expNodes    int
	}
	specs := []spec{
		// Partition each item in a single leaf
		{1, 4, 7},
		// Partition two items in a single leaf
		{2, 2, 3},
		{4, 1, 1},
	}

	for index, s := range specs {
		opts := DefaultOptions()
		opts.MaxLeafSize = s.maxLeafSize
		tree := mustBuild(t, parallel.NewPool(1), scene, leaf.Oriented, opts)

		leaves := 0
		tree.Leaves(func(node *Node, _ int) {
			leaves++
			if got := node.NumPrimitives(); got != s.maxLeafSize {
				t.Fatalf("[spec %d] expected leaf to contain %d items; got %d", index, s.maxLeafSize, got)
			}
		})
		if leaves != s.expLeaves {
			t.Fatalf("[spec %d] expected %d leaves; got %d", index, s.expLeaves, leaves)
		}
		if stats := tree.Stats(); stats.Nodes != s.expNodes || stats.Leaves != s.expLeaves {
			t.Fatalf("[spec %d] expected stats to report %d nodes and %d leaves; got %d and %d", index, s.expNodes, s.expLeaves, stats.Nodes, stats.Leaves)
		}
	}
}

func TestBuildPreservesPrimitives(t *testing.T) {
	scene := hairScene(t, 3000)
	refs, _ := geometry.CreatePrimRefs(parallel.NewPool(1), scene)
	expIDs := make([]uint64, len(refs))
	for i := range refs {
		expIDs[i] = refs[i].ID64()
	}
	sortedIDs(expIDs)

	type spec struct {
		workers   int
		threshold int
	}
	specs := []spec{
		{1, 1 << 20},
		{4, 1 << 20},
		{4, 64},
		{16, 128},
	}

	for index, s := range specs {
		for _, layout := range allLayouts {
			for _, maxLeafSize := range []int{1, 3, 8} {
				opts := Options{MaxLeafSize: maxLeafSize, MaxDepth: 40, ParallelThreshold: s.threshold}
				tree := mustBuild(t, parallel.NewPool(s.workers), scene, layout, opts)

				gotIDs := sortedIDs(tree.PrimIDs())
				if len(gotIDs) != len(expIDs) {
					t.Fatalf("[spec %d, %s, M=%d] expected %d primitives; got %d", index, layout, maxLeafSize, len(expIDs), len(gotIDs))
				}
				for i := range gotIDs {
					if gotIDs[i] != expIDs[i] {
						t.Fatalf("[spec %d, %s, M=%d] primitive id mismatch at %d: expected %x; got %x", index, layout, maxLeafSize, i, expIDs[i], gotIDs[i])
					}
				}

				tree.Leaves(func(node *Node, depth int) {
					if depth > opts.MaxDepth {
						t.Fatalf("[spec %d] leaf depth %d exceeds max depth", index, depth)
					}
					for _, block := range node.Blocks {
						if block.Len() < 1 || block.Len() > maxLeafSize {
							t.Fatalf("[spec %d, %s] expected blocks with 1 to %d primitives; got %d", index, layout, maxLeafSize, block.Len())
						}
						for i := 0; i < block.Len(); i++ {
							exact := scene.Get(block.GeomID(i)).Bounds(int(block.PrimID(i)))
							if !node.Bounds.Contains(exact, 0) {
								t.Fatalf("[spec %d, %s] leaf bounds %v do not contain primitive bounds %v", index, layout, node.Bounds, exact)
							}
							if !block.Bounds(i).Contains(exact, 1e-4) {
								t.Fatalf("[spec %d, %s] decoded bounds %v do not contain primitive bounds %v", index, layout, block.Bounds(i), exact)
							}
						}
					}
				})
				checkNesting(t, tree, tree.Root())

				if !tree.Node(tree.Root()).Bounds.Contains(tree.Bounds(), 0) {
					t.Fatalf("[spec %d] root bounds do not contain scene bounds", index)
				}
				stats := tree.Stats()
				if stats.Primitives != len(refs) || stats.ScenePrimitives != scene.NumPrimitives() {
					t.Fatalf("[spec %d] unexpected primitive stats: %+v", index, stats)
				}
				if s.workers > 1 && s.threshold < len(refs) && stats.ParallelSplits == 0 {
					t.Fatalf("[spec %d] expected the parallel split path to run", index)
				}
				if s.threshold >= len(refs) && stats.ParallelSplits != 0 {
					t.Fatalf("[spec %d] expected only sequential splits; got %d parallel splits", index, stats.ParallelSplits)
				}
				if stats.Records != stats.SequentialSplits+stats.ParallelSplits+stats.Leaves {
					t.Fatalf("[spec %d] build state counters do not add up: %+v", index, stats)
				}
			}
		}
	}
}

// Decoded leaf bounds must not depend on whether the tree was built
// sequentially or in parallel: oriented blocks decode bit-exactly, quantized
// blocks stay within the error bound of their layout.
func TestSequentialAndParallelBuildsAgree(t *testing.T) {
	scene := hairScene(t, 4000)
	seqOpts := Options{MaxLeafSize: 4, MaxDepth: 40, ParallelThreshold: 1 << 20}
	parOpts := Options{MaxLeafSize: 4, MaxDepth: 40, ParallelThreshold: 100}

	type decoded struct {
		bounds   types.BBox
		leafDiag float32
	}
	collect := func(tree *BVH) map[uint64]decoded {
		out := make(map[uint64]decoded)
		tree.Leaves(func(node *Node, _ int) {
			for _, block := range node.Blocks {
				for i := 0; i < block.Len(); i++ {
					ref := geometry.PrimRef{GeomID: block.GeomID(i), PrimID: block.PrimID(i)}
					out[ref.ID64()] = decoded{bounds: block.Bounds(i), leafDiag: node.Bounds.Size().Len()}
				}
			}
		})
		return out
	}

	for _, layout := range allLayouts {
		seq := collect(mustBuild(t, parallel.NewPool(1), scene, layout, seqOpts))
		par := collect(mustBuild(t, parallel.NewPool(8), scene, layout, parOpts))
		if len(seq) != len(par) {
			t.Fatalf("[%s] expected %d decoded primitives; got %d", layout, len(seq), len(par))
		}

		for id, s := range seq {
			p, ok := par[id]
			if !ok {
				t.Fatalf("[%s] primitive %x missing from parallel build", layout, id)
			}
			if layout == leaf.Oriented {
				if s.bounds != p.bounds {
					t.Fatalf("[%s] expected bit-exact decoded bounds for %x; got %v and %v", layout, id, s.bounds, p.bounds)
				}
				continue
			}

			exact := scene.Get(uint32(id >> 32)).Bounds(int(uint32(id)))
			center, h := exact.Center(), exact.Size().Len()/2
			for _, d := range []decoded{s, p} {
				tol := 2*h + 4*d.leafDiag/255 + 1e-4
				limit := types.NewBBox(center.Sub(types.Splat(tol)), center.Add(types.Splat(tol)))
				if !d.bounds.Contains(exact, 1e-4) || !limit.Contains(d.bounds, 0) {
					t.Fatalf("[%s] decoded bounds %v for %x outside error bound around %v", layout, d.bounds, id, exact)
				}
			}
		}
	}
}

func TestForcedLeafIsSplitIntoBlocks(t *testing.T) {
	g := &boxGeometry{id: 4}
	for i := 0; i < 130; i++ {
		min := types.XYZ(float32(i), float32(i%7), 0)
		g.boxes = append(g.boxes, types.NewBBox(min, min.Add(types.Splat(0.5))))
	}
	scene := mustScene(t, g)

	for _, workers := range []int{1, 4} {
		sched := parallel.NewPool(workers)
		opts := Options{MaxLeafSize: 8, MaxDepth: 0, ParallelThreshold: 16}
		tree := mustBuild(t, sched, scene, leaf.Quantized8, opts)

		root := tree.Node(tree.Root())
		if !root.IsLeaf() {
			t.Fatal("expected root to be a leaf")
		}
		if len(root.Blocks) != 17 {
			t.Fatalf("expected 17 leaf blocks; got %d", len(root.Blocks))
		}
		for i, block := range root.Blocks[:16] {
			if block.Len() != 8 {
				t.Fatalf("expected block %d to hold 8 primitives; got %d", i, block.Len())
			}
		}

		state := parallel.NewPrefixSumState(0)
		total := parallel.PrefixSum(sched, state, 0, len(root.Blocks), 1, 0,
			func(r parallel.Range, _ int) int {
				count := 0
				for _, block := range root.Blocks[r.Begin:r.End] {
					count += block.Len()
				}
				return count
			}, func(a, b int) int { return a + b },
		)
		if total != 130 {
			t.Fatalf("expected blocks to hold 130 primitives; got %d", total)
		}
	}
}

func TestCoincidentPrimitives(t *testing.T) {
	g := &boxGeometry{id: 2}
	box := types.NewBBox(types.Splat(-1), types.Splat(1))
	for i := 0; i < 1000; i++ {
		g.boxes = append(g.boxes, box)
	}
	scene := mustScene(t, g)

	for _, threshold := range []int{1 << 20, 64} {
		opts := Options{MaxLeafSize: 4, MaxDepth: 40, ParallelThreshold: threshold}
		tree := mustBuild(t, parallel.NewPool(4), scene, leaf.Oriented, opts)

		count := 0
		tree.Leaves(func(node *Node, _ int) {
			for _, block := range node.Blocks {
				if block.Len() > 4 {
					t.Fatalf("expected at most 4 primitives per block; got %d", block.Len())
				}
				count += block.Len()
			}
		})
		if count != 1000 {
			t.Fatalf("expected 1000 primitives; got %d", count)
		}
		if tree.Stats().DegenerateSplits == 0 {
			t.Fatal("expected coincident centroids to trigger median splits")
		}
	}
}

func TestBuildEmptyScene(t *testing.T) {
	g := &boxGeometry{id: 1, boxes: []types.BBox{types.EmptyBBox()}}
	tree := mustBuild(t, parallel.NewPool(2), mustScene(t, g), leaf.Oriented, DefaultOptions())

	if tree.Root().IsValid() {
		t.Fatal("expected empty tree to have an invalid root")
	}
	tree.Leaves(func(*Node, int) {
		t.Fatal("expected empty tree to have no leaves")
	})
	if _, hit := tree.Intersect(types.XYZ(0, 0, -5), types.XYZ(0, 0, 1), 0, math.MaxFloat32); hit {
		t.Fatal("expected no hit on empty tree")
	}
	if tree.Stats().ScenePrimitives != 1 || tree.Stats().Primitives != 0 {
		t.Fatalf("unexpected stats: %+v", tree.Stats())
	}
}

func TestInvalidOptions(t *testing.T) {
	scene := hairScene(t, 10)
	enc, err := leaf.NewEncoder(leaf.Oriented, scene)
	if err != nil {
		t.Fatal(err)
	}

	specs := []Options{
		{MaxLeafSize: 0, MaxDepth: 10, ParallelThreshold: 10},
		{MaxLeafSize: 9, MaxDepth: 10, ParallelThreshold: 10},
		{MaxLeafSize: 4, MaxDepth: -1, ParallelThreshold: 10},
		{MaxLeafSize: 4, MaxDepth: 10, ParallelThreshold: 0},
	}
	for index, opts := range specs {
		if _, err := Build(parallel.NewPool(1), scene, enc, opts); !errors.Is(err, config.ErrInvalidConfig) {
			t.Fatalf("[spec %d] expected ErrInvalidConfig; got %v", index, err)
		}
	}
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Leaf.MaxSize = 3
	cfg.Builder.MaxDepth = 12
	cfg.Builder.ParallelThreshold = 99

	exp := Options{MaxLeafSize: 3, MaxDepth: 12, ParallelThreshold: 99}
	if got := OptionsFromConfig(cfg); got != exp {
		t.Fatalf("expected %+v; got %+v", exp, got)
	}
}
