package bvh

import (
	"math"

	"github.com/achilleasa/curvebvh/leaf"
	"github.com/achilleasa/curvebvh/types"
)

// A NodeRef addresses a node inside the node arena as a (block, slot) pair.
type NodeRef struct {
	Block uint32
	Slot  uint32
}

// InvalidNodeRef marks a missing node (e.g. the root of an empty BVH).
var InvalidNodeRef = NodeRef{Block: math.MaxUint32, Slot: math.MaxUint32}

// Returns true if the ref points to a node.
func (r NodeRef) IsValid() bool {
	return r != InvalidNodeRef
}

// Bvh nodes hold their bounds and, depending on the node type, either:
//
//   - for internal nodes, the refs of the left and right child nodes
//   - for leaves, the encoded leaf blocks; each block holds at most M
//     primitives and a leaf holds ceil(count / M) blocks.
type Node struct {
	Bounds   types.BBox
	Children [2]NodeRef
	Blocks   []leaf.Block
}

// Returns true if this is a leaf node.
func (n *Node) IsLeaf() bool {
	return n.Blocks != nil
}

// Get the number of primitives stored in a leaf node.
func (n *Node) NumPrimitives() int {
	count := 0
	for _, b := range n.Blocks {
		count += b.Len()
	}
	return count
}
