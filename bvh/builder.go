package bvh

import (
	"sync/atomic"
	"time"

	"github.com/achilleasa/curvebvh/config"
	"github.com/achilleasa/curvebvh/geometry"
	"github.com/achilleasa/curvebvh/leaf"
	"github.com/achilleasa/curvebvh/log"
	"github.com/achilleasa/curvebvh/parallel"
	"github.com/achilleasa/curvebvh/types"
	"github.com/pkg/errors"
)

// Options control the shape of the generated tree.
type Options struct {
	// The maximum number of primitives per leaf block (M).
	MaxLeafSize int

	// Records at this depth always become leaves.
	MaxDepth int

	// Records with more primitives than this are binned and partitioned in
	// parallel and their children are spawned as new tasks.
	ParallelThreshold int
}

// DefaultOptions returns the builder defaults.
func DefaultOptions() Options {
	return OptionsFromConfig(config.Default())
}

// Extract builder options from a configuration.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		MaxLeafSize:       cfg.Leaf.MaxSize,
		MaxDepth:          cfg.Builder.MaxDepth,
		ParallelThreshold: cfg.Builder.ParallelThreshold,
	}
}

func (o Options) validate() error {
	if o.MaxLeafSize < 1 || o.MaxLeafSize > leaf.MaxSize {
		return config.Invalid("max leaf size", o.MaxLeafSize, "must be between 1 and 8")
	}
	if o.MaxDepth < 0 {
		return config.Invalid("max depth", o.MaxDepth, "must not be negative")
	}
	if o.ParallelThreshold < 1 {
		return config.Invalid("parallel threshold", o.ParallelThreshold, "must be at least 1")
	}
	return nil
}

// The states a build record goes through.
type buildState uint8

const (
	splitNeeded buildState = iota
	sequentialSplit
	parallelSplit
	leafNeeded
	numBuildStates
)

func (s buildState) String() string {
	switch s {
	case splitNeeded:
		return "split needed"
	case sequentialSplit:
		return "sequential split"
	case parallelSplit:
		return "parallel split"
	case leafNeeded:
		return "leaf"
	}
	return "unknown"
}

// A buildRecord describes a range of the reference list that still needs to
// be processed and the node slot it should be written to.
type buildRecord struct {
	begin, end int
	info       geometry.PrimInfo
	depth      int
	node       NodeRef
}

func (r *buildRecord) size() int {
	return r.end - r.begin
}

type buildStats struct {
	states           [numBuildStates]atomic.Int64
	nodes            atomic.Int64
	leaves           atomic.Int64
	leafBlocks       atomic.Int64
	leafBytes        atomic.Int64
	primitives       atomic.Int64
	degenerateSplits atomic.Int64
	maxDepth         atomic.Int64
}

func (s *buildStats) trackDepth(depth int) {
	for {
		cur := s.maxDepth.Load()
		if int64(depth) <= cur || s.maxDepth.CompareAndSwap(cur, int64(depth)) {
			return
		}
	}
}

type builder struct {
	logger log.Logger
	sched  parallel.Scheduler
	tasks  *parallel.TaskGroup
	enc    leaf.Encoder
	opts   Options

	refs    []geometry.PrimRef
	scratch []geometry.PrimRef
	arena   *nodeArena

	stats buildStats
}

// Build a binary BVH over all valid primitives of scene using the binned
// surface area heuristic. Leaves are encoded with enc.
//
// Large records are binned and partitioned in parallel on sched and their
// subtrees are built as concurrent tasks whenever a worker is idle; smaller
// records are processed by the task that owns them. Build returns once every
// task has completed.
func Build(sched parallel.Scheduler, scene *geometry.Scene, enc leaf.Encoder, opts Options) (*BVH, error) {
	if err := opts.validate(); err != nil {
		return nil, errors.Wrap(err, "bvh")
	}

	start := time.Now()
	refs, pinfo := geometry.CreatePrimRefs(sched, scene)

	b := &builder{
		logger: log.New("builder"),
		sched:  sched,
		tasks:  parallel.NewTaskGroup(sched.NumWorkers()),
		enc:    enc,
		opts:   opts,
		refs:   refs,
		arena:  newNodeArena(arenaBlocksFor(len(refs), opts.ParallelThreshold, sched.NumWorkers())),
	}
	if len(refs) > opts.ParallelThreshold && sched.NumWorkers() > 1 {
		b.scratch = make([]geometry.PrimRef, len(refs))
	}

	tree := &BVH{
		root:   InvalidNodeRef,
		arena:  b.arena,
		bounds: pinfo.GeomBounds,
		layout: enc.Layout(),
	}

	if len(refs) != 0 {
		alloc := newNodeAllocator(b.arena)
		tree.root = alloc.alloc(1)
		b.recurse(buildRecord{begin: 0, end: len(refs), info: pinfo, node: tree.root}, alloc)
		b.tasks.Wait()
		tree.refit(tree.root)
	}

	tree.stats = b.collectStats(scene.NumPrimitives(), time.Since(start))
	b.logger.Debugf(
		"BVH tree build time: %d ms, maxDepth: %d, nodes: %d, leafs: %d, blocks: %d",
		tree.stats.BuildTime.Milliseconds(),
		tree.stats.MaxDepth, tree.stats.Nodes, tree.stats.Leaves, tree.stats.LeafBlocks,
	)
	return tree, nil
}

// Decide what to do with a record.
func (b *builder) classify(rec *buildRecord) buildState {
	if rec.size() <= b.opts.MaxLeafSize || rec.depth >= b.opts.MaxDepth {
		return leafNeeded
	}
	if b.scratch != nil && rec.size() > b.opts.ParallelThreshold {
		return parallelSplit
	}
	return sequentialSplit
}

// Process a record and all records generated from it. The allocator belongs
// to the calling task.
func (b *builder) recurse(rec buildRecord, alloc *nodeAllocator) {
	b.stats.states[splitNeeded].Add(1)
	b.stats.nodes.Add(1)
	b.stats.trackDepth(rec.depth)

	node := b.arena.node(rec.node)
	node.Bounds = rec.info.GeomBounds

	state := b.classify(&rec)
	b.stats.states[state].Add(1)
	if state == leafNeeded {
		b.createLeaf(&rec, node)
		return
	}

	left, right := b.split(&rec, state)
	first := alloc.alloc(2)
	left.node, right.node = first, first.next()
	node.Children = [2]NodeRef{left.node, right.node}

	if state == sequentialSplit {
		b.recurse(left, alloc)
		b.recurse(right, alloc)
		return
	}

	for _, child := range [2]buildRecord{left, right} {
		child := child
		spawned := b.tasks.TrySpawn(func() {
			b.recurse(child, newNodeAllocator(b.arena))
		})
		if !spawned {
			b.recurse(child, alloc)
		}
	}
}

// Split a record into two non-empty records.
func (b *builder) split(rec *buildRecord, state buildState) (buildRecord, buildRecord) {
	refs := b.refs[rec.begin:rec.end]
	m := newBinMapping(rec.info.CentBounds)

	var binned bins
	if state == parallelSplit {
		binned = parallelBins(b.sched, refs, m)
	} else {
		binned = sequentialBins(refs, m)
	}

	var (
		mid  int
		info sideInfo
	)
	split := binned.bestSplit(m)
	switch {
	case !split.valid():
		b.stats.degenerateSplits.Add(1)
		mid, info = medianPartition(refs)
	case state == parallelSplit:
		mid, info = parallelPartition(b.sched, refs, b.scratch[rec.begin:rec.end], split, m)
	default:
		mid, info = sequentialPartition(refs, split, m)
	}

	left := buildRecord{begin: rec.begin, end: rec.begin + mid, info: info.left, depth: rec.depth + 1}
	right := buildRecord{begin: rec.begin + mid, end: rec.end, info: info.right, depth: rec.depth + 1}
	return left, right
}

// Encode the references of a record into ceil(count / M) leaf blocks.
func (b *builder) createLeaf(rec *buildRecord, node *Node) {
	maxSize := b.opts.MaxLeafSize
	blocks := make([]leaf.Block, 0, (rec.size()+maxSize-1)/maxSize)
	bytes := 0
	for begin := rec.begin; begin < rec.end; begin += maxSize {
		block := b.enc.Encode(b.refs[begin:min(begin+maxSize, rec.end)])
		bytes += block.SizeBytes()
		blocks = append(blocks, block)
	}
	node.Blocks = blocks

	b.stats.leaves.Add(1)
	b.stats.leafBlocks.Add(int64(len(blocks)))
	b.stats.leafBytes.Add(int64(bytes))
	b.stats.primitives.Add(int64(rec.size()))
}

func (b *builder) collectStats(scenePrims int, buildTime time.Duration) Stats {
	s := Stats{
		Layout:           b.enc.Layout(),
		ScenePrimitives:  scenePrims,
		Primitives:       int(b.stats.primitives.Load()),
		Nodes:            int(b.stats.nodes.Load()),
		Leaves:           int(b.stats.leaves.Load()),
		LeafBlocks:       int(b.stats.leafBlocks.Load()),
		MaxDepth:         int(b.stats.maxDepth.Load()),
		DegenerateSplits: int(b.stats.degenerateSplits.Load()),
		DegenerateSpaces: int(b.enc.DegenerateSpaces()),
		ArenaBlocks:      b.arena.usedBlocks(),
		NodeBytes:        b.arena.usedBlocks() * int(nodeBlockBytes),
		LeafBytes:        int(b.stats.leafBytes.Load()),
		BuildTime:        buildTime,
	}
	s.Records = int(b.stats.states[splitNeeded].Load())
	s.SequentialSplits = int(b.stats.states[sequentialSplit].Load())
	s.ParallelSplits = int(b.stats.states[parallelSplit].Load())
	return s
}

// Grow node bounds bottom-up so every node also contains the decoded bounds
// of the primitives below it. Decoded oriented boxes may poke out of the
// world-space bounds of their primitives.
func (t *BVH) refit(ref NodeRef) types.BBox {
	node := t.arena.node(ref)
	if node.IsLeaf() {
		for _, block := range node.Blocks {
			for i := 0; i < block.Len(); i++ {
				node.Bounds = node.Bounds.Extend(block.Bounds(i))
			}
		}
		return node.Bounds
	}
	node.Bounds = node.Bounds.Extend(t.refit(node.Children[0])).Extend(t.refit(node.Children[1]))
	return node.Bounds
}
