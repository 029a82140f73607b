// Package bvh builds and traverses binary bounding volume hierarchies over
// the primitives of a geometry.Scene.
package bvh

import (
	"math"

	"github.com/achilleasa/curvebvh/geometry"
	"github.com/achilleasa/curvebvh/leaf"
	"github.com/achilleasa/curvebvh/types"
)

// Initial traversal stack capacity. Traversal pushes at most one extra node
// per tree level; deeper trees spill to the heap.
const maxStackDepth = 128

// A BVH is immutable once built and may be queried concurrently.
type BVH struct {
	root   NodeRef
	arena  *nodeArena
	bounds types.BBox
	layout leaf.Layout
	stats  Stats
}

// Get the root node ref. Empty trees have an invalid root.
func (t *BVH) Root() NodeRef {
	return t.root
}

// Get a node.
func (t *BVH) Node(ref NodeRef) *Node {
	return t.arena.node(ref)
}

// Get the bounds of all indexed primitives.
func (t *BVH) Bounds() types.BBox {
	return t.bounds
}

// Get the leaf layout used by this tree.
func (t *BVH) Layout() leaf.Layout {
	return t.layout
}

// Get build statistics.
func (t *BVH) Stats() Stats {
	return t.stats
}

// Visit every leaf node in depth-first order together with its depth.
func (t *BVH) Leaves(fn func(node *Node, depth int)) {
	if !t.root.IsValid() {
		return
	}
	t.visit(t.root, 0, fn)
}

func (t *BVH) visit(ref NodeRef, depth int, fn func(*Node, int)) {
	node := t.arena.node(ref)
	if node.IsLeaf() {
		fn(node, depth)
		return
	}
	t.visit(node.Children[0], depth+1, fn)
	t.visit(node.Children[1], depth+1, fn)
}

// A Hit describes the closest primitive found along a ray.
type Hit struct {
	T      float32
	GeomID uint32
	PrimID uint32
}

// Find the closest primitive whose oriented bounds are hit by the ray in
// [tNear, tFar].
func (t *BVH) Intersect(org, dir types.Vec3, tNear, tFar float32) (Hit, bool) {
	hit := Hit{T: math.MaxFloat32}
	found := false
	t.traverse(org, dir, tNear, tFar, func(block leaf.Block, i int, dist float32) (float32, bool) {
		if dist < hit.T {
			hit = Hit{T: dist, GeomID: block.GeomID(i), PrimID: block.PrimID(i)}
			found = true
		}
		return hit.T, false
	})
	return hit, found
}

// Returns true if any primitive is hit by the ray in [tNear, tFar].
func (t *BVH) Occluded(org, dir types.Vec3, tNear, tFar float32) bool {
	occluded := false
	t.traverse(org, dir, tNear, tFar, func(leaf.Block, int, float32) (float32, bool) {
		occluded = true
		return tFar, true
	})
	return occluded
}

// Walk the tree front to back and invoke onHit for every primitive hit.
// The callback returns the new tFar and whether traversal should stop.
func (t *BVH) traverse(org, dir types.Vec3, tNear, tFar float32, onHit func(block leaf.Block, i int, dist float32) (float32, bool)) {
	if !t.root.IsValid() {
		return
	}

	invDir := types.InvDir(dir)
	var stackBuf [maxStackDepth]NodeRef
	stack := append(stackBuf[:0], t.root)
	for len(stack) > 0 {
		ref := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		node := t.arena.node(ref)
		if _, _, ok := node.Bounds.IntersectRay(org, invDir, tNear, tFar); !ok {
			continue
		}

		if node.IsLeaf() {
			for _, block := range node.Blocks {
				for i := 0; i < block.Len(); i++ {
					dist, ok := block.Intersect(i, org, dir, tNear, tFar)
					if !ok {
						continue
					}
					var stop bool
					if tFar, stop = onHit(block, i, dist); stop {
						return
					}
				}
			}
			continue
		}

		// Push the far child first so the near child is visited next
		left := t.arena.node(node.Children[0])
		right := t.arena.node(node.Children[1])
		lNear, _, lHit := left.Bounds.IntersectRay(org, invDir, tNear, tFar)
		rNear, _, rHit := right.Bounds.IntersectRay(org, invDir, tNear, tFar)
		switch {
		case lHit && rHit && rNear < lNear:
			stack = append(stack, node.Children[0], node.Children[1])
		case lHit && rHit:
			stack = append(stack, node.Children[1], node.Children[0])
		case lHit:
			stack = append(stack, node.Children[0])
		case rHit:
			stack = append(stack, node.Children[1])
		}
	}
}

// Collect the ids of all primitives stored in the tree.
func (t *BVH) PrimIDs() []uint64 {
	ids := make([]uint64, 0, t.stats.Primitives)
	t.Leaves(func(node *Node, _ int) {
		for _, block := range node.Blocks {
			for i := 0; i < block.Len(); i++ {
				ref := geometry.PrimRef{GeomID: block.GeomID(i), PrimID: block.PrimID(i)}
				ids = append(ids, ref.ID64())
			}
		}
	})
	return ids
}
