package bvh

import (
	"sync/atomic"

	"github.com/achilleasa/curvebvh/contract"
)

// The number of node slots in an arena block.
const nodeBlockSize = 64

type nodeBlock [nodeBlockSize]Node

// nodeArena stores nodes in fixed-size blocks. The directory is sized up
// front; blocks are allocated lazily by the task that claims them with a
// single atomic increment, so concurrent build tasks never contend on
// individual node allocations.
type nodeArena struct {
	blocks []*nodeBlock
	next   atomic.Uint32
}

func newNodeArena(maxBlocks int) *nodeArena {
	return &nodeArena{blocks: make([]*nodeBlock, maxBlocks)}
}

// Estimate the directory size needed to build a tree over numPrims
// primitives. A binary tree with at least one primitive per leaf has fewer
// than 2*numPrims nodes. Each allocator wastes at most one slot per block
// (children are allocated in pairs) plus its last partially used block; only
// records larger than parallelThreshold spawn tasks with their own allocator.
func arenaBlocksFor(numPrims, parallelThreshold, workers int) int {
	nodes := 2 * numPrims
	blocks := 2 * (nodes/nodeBlockSize + 1)
	maxTasks := 4*(numPrims/max(parallelThreshold, 1)) + workers + 1
	return blocks + maxTasks
}

// Claim a fresh block.
func (a *nodeArena) allocBlock() uint32 {
	id := a.next.Add(1) - 1
	contract.Require(int(id) < len(a.blocks), "nodeArena.allocBlock", "arena exhausted after %d blocks", len(a.blocks))
	a.blocks[id] = new(nodeBlock)
	return id
}

// Get a pointer to a node.
func (a *nodeArena) node(ref NodeRef) *Node {
	return &a.blocks[ref.Block][ref.Slot]
}

// The number of blocks claimed so far.
func (a *nodeArena) usedBlocks() int {
	return int(a.next.Load())
}

// A nodeAllocator hands out node slots to a single build task. It must not
// be shared between goroutines.
type nodeAllocator struct {
	arena *nodeArena
	block uint32
	slot  int
}

func newNodeAllocator(arena *nodeArena) *nodeAllocator {
	return &nodeAllocator{arena: arena, slot: nodeBlockSize}
}

// Allocate count consecutive slots (count <= nodeBlockSize) within one block
// and return the ref of the first one.
func (al *nodeAllocator) alloc(count int) NodeRef {
	if al.slot+count > nodeBlockSize {
		al.block = al.arena.allocBlock()
		al.slot = 0
	}
	ref := NodeRef{Block: al.block, Slot: uint32(al.slot)}
	al.slot += count
	return ref
}

// Get the ref following r in the same block.
func (r NodeRef) next() NodeRef {
	return NodeRef{Block: r.Block, Slot: r.Slot + 1}
}
