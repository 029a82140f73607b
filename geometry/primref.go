package geometry

import (
	"github.com/achilleasa/curvebvh/parallel"
	"github.com/achilleasa/curvebvh/types"
)

// Minimum number of primitives processed by a single extraction task.
const primRefStepSize = 1024

// A PrimRef is a lightweight proxy for a scene primitive used during BVH
// construction.
type PrimRef struct {
	Bounds types.BBox
	GeomID uint32
	PrimID uint32
}

// Get the combined 64-bit id of the referenced primitive. The id is unique
// within a scene and totally ordered.
func (p *PrimRef) ID64() uint64 {
	return uint64(p.GeomID)<<32 | uint64(p.PrimID)
}

// Get the bounds center.
func (p *PrimRef) Center() types.Vec3 {
	return p.Bounds.Center()
}

// PrimInfo accumulates statistics over a set of primitive references.
type PrimInfo struct {
	Count      int
	GeomBounds types.BBox
	CentBounds types.BBox
}

// Create an empty PrimInfo.
func EmptyPrimInfo() PrimInfo {
	return PrimInfo{
		GeomBounds: types.EmptyBBox(),
		CentBounds: types.EmptyBBox(),
	}
}

// Add a primitive to the statistics.
func (pi *PrimInfo) Add(bounds types.BBox) {
	pi.Count++
	pi.GeomBounds = pi.GeomBounds.Extend(bounds)
	pi.CentBounds = pi.CentBounds.ExtendPoint(bounds.Center())
}

// Merge two PrimInfo values.
func MergePrimInfo(a, b PrimInfo) PrimInfo {
	return PrimInfo{
		Count:      a.Count + b.Count,
		GeomBounds: a.GeomBounds.Extend(b.GeomBounds),
		CentBounds: a.CentBounds.Extend(b.CentBounds),
	}
}

// Calculate PrimInfo for a slice of references.
func ComputePrimInfo(refs []PrimRef) PrimInfo {
	pi := EmptyPrimInfo()
	for i := range refs {
		pi.Add(refs[i].Bounds)
	}
	return pi
}

// CreatePrimRefs extracts a reference for every scene primitive with valid
// bounds. Invalid primitives (empty, NaN or infinite bounds) are skipped.
//
// Extraction runs as a parallel prefix sum: the first pass optimistically
// writes the references of each chunk at the chunk's own offset. If any
// primitive was rejected, a second pass over the same state re-runs every
// chunk with its exclusive prefix to compact the output.
func CreatePrimRefs(sched parallel.Scheduler, scene *Scene) ([]PrimRef, PrimInfo) {
	numPrims := scene.NumPrimitives()
	refs := make([]PrimRef, numPrims)
	state := parallel.NewPrefixSumState(EmptyPrimInfo())

	pinfo := parallel.PrefixSum(sched, state, 0, numPrims, primRefStepSize, EmptyPrimInfo(),
		func(r parallel.Range, _ PrimInfo) PrimInfo {
			return extractPrimRefs(scene, refs, r, r.Begin)
		}, MergePrimInfo,
	)

	if pinfo.Count != numPrims {
		pinfo = parallel.PrefixSum(sched, state, 0, numPrims, primRefStepSize, EmptyPrimInfo(),
			func(r parallel.Range, base PrimInfo) PrimInfo {
				return extractPrimRefs(scene, refs, r, base.Count)
			}, MergePrimInfo,
		)
	}

	return refs[:pinfo.Count], pinfo
}

// Write references for the valid primitives of range r into refs starting at
// index k.
func extractPrimRefs(scene *Scene, refs []PrimRef, r parallel.Range, k int) PrimInfo {
	pi := EmptyPrimInfo()
	for index := r.Begin; index < r.End; index++ {
		g, prim := scene.Locate(index)
		bounds := g.Bounds(prim)
		if !bounds.IsValid() {
			continue
		}
		refs[k] = PrimRef{Bounds: bounds, GeomID: g.ID(), PrimID: uint32(prim)}
		k++
		pi.Add(bounds)
	}
	return pi
}
