package bvh

import (
	"math"

	"github.com/achilleasa/curvebvh/geometry"
	"github.com/achilleasa/curvebvh/parallel"
	"github.com/achilleasa/curvebvh/types"
)

const (
	// The number of SAH bins per axis.
	numBins = 16

	// The binner skips axes whose centroid extent is below this threshold.
	minCentroidExtent float32 = 1e-19
)

// binMapping maps primitive centroids to bin indices.
type binMapping struct {
	ofs   types.Vec3
	scale types.Vec3
}

func newBinMapping(centBounds types.BBox) binMapping {
	m := binMapping{ofs: centBounds.Min}
	diag := centBounds.Size()
	for axis := 0; axis < 3; axis++ {
		if diag[axis] > minCentroidExtent {
			// Scale slightly below numBins so the max centroid maps into
			// the last bin.
			m.scale[axis] = 0.99 * numBins / diag[axis]
		}
	}
	return m
}

// Returns true if the centroids have no extent along axis.
func (m binMapping) degenerate(axis int) bool {
	return m.scale[axis] == 0
}

// Get the bin index of a centroid along axis.
func (m binMapping) bin(center types.Vec3, axis int) int {
	i := int((center[axis] - m.ofs[axis]) * m.scale[axis])
	if i < 0 {
		return 0
	} else if i >= numBins {
		return numBins - 1
	}
	return i
}

// bins accumulates primitive bounds and counts per bin and axis.
type bins struct {
	bounds [3][numBins]types.BBox
	counts [3][numBins]int
}

func emptyBins() bins {
	var b bins
	for axis := 0; axis < 3; axis++ {
		for i := 0; i < numBins; i++ {
			b.bounds[axis][i] = types.EmptyBBox()
		}
	}
	return b
}

// Bin a set of references.
func (b *bins) add(refs []geometry.PrimRef, m binMapping) {
	for i := range refs {
		center := refs[i].Center()
		for axis := 0; axis < 3; axis++ {
			bin := m.bin(center, axis)
			b.counts[axis][bin]++
			b.bounds[axis][bin] = b.bounds[axis][bin].Extend(refs[i].Bounds)
		}
	}
}

// Merge two sets of bins element-wise.
func mergeBins(a, b bins) bins {
	for axis := 0; axis < 3; axis++ {
		for i := 0; i < numBins; i++ {
			a.counts[axis][i] += b.counts[axis][i]
			a.bounds[axis][i] = a.bounds[axis][i].Extend(b.bounds[axis][i])
		}
	}
	return a
}

// binningState holds the per-task bins of a parallel binning pass.
type binningState = parallel.PrefixSumState[bins]

// A binSplit places bins [0, pos) of axis on the left side.
type binSplit struct {
	axis int
	pos  int
	cost float32
}

var invalidSplit = binSplit{axis: -1, cost: math.MaxFloat32}

func (s binSplit) valid() bool {
	return s.axis >= 0
}

// Returns true if a reference falls on the left side of the split.
func (s binSplit) left(ref *geometry.PrimRef, m binMapping) bool {
	return m.bin(ref.Center(), s.axis) < s.pos
}

// Select the split with the lowest SAH cost:
//
// left count * left half area + right count * right half area.
//
// Candidates that leave one side empty are never selected. If no axis has a
// usable candidate the returned split is invalid.
func (b *bins) bestSplit(m binMapping) binSplit {
	best := invalidSplit
	for axis := 0; axis < 3; axis++ {
		if m.degenerate(axis) {
			continue
		}

		// Sweep from the right to collect the right side areas and counts
		var rArea [numBins]float32
		var rCount [numBins]int
		rBox := types.EmptyBBox()
		count := 0
		for i := numBins - 1; i > 0; i-- {
			rBox = rBox.Extend(b.bounds[axis][i])
			count += b.counts[axis][i]
			rArea[i] = rBox.HalfArea()
			rCount[i] = count
		}

		lBox := types.EmptyBBox()
		lCount := 0
		for pos := 1; pos < numBins; pos++ {
			lBox = lBox.Extend(b.bounds[axis][pos-1])
			lCount += b.counts[axis][pos-1]
			if lCount == 0 || rCount[pos] == 0 {
				continue
			}

			cost := float32(lCount)*lBox.HalfArea() + float32(rCount[pos])*rArea[pos]
			if cost < best.cost {
				best = binSplit{axis: axis, pos: pos, cost: cost}
			}
		}
	}
	return best
}
