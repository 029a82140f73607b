package bvh

import (
	"github.com/achilleasa/curvebvh/geometry"
	"github.com/achilleasa/curvebvh/parallel"
)

// Minimum number of references processed by a single binning or
// partitioning task.
const parallelStepSize = 256

// The left and right side statistics of a partition.
type sideInfo struct {
	left, right geometry.PrimInfo
}

func emptySideInfo() sideInfo {
	return sideInfo{left: geometry.EmptyPrimInfo(), right: geometry.EmptyPrimInfo()}
}

func mergeSideInfo(a, b sideInfo) sideInfo {
	return sideInfo{
		left:  geometry.MergePrimInfo(a.left, b.left),
		right: geometry.MergePrimInfo(a.right, b.right),
	}
}

// Bin refs sequentially.
func sequentialBins(refs []geometry.PrimRef, m binMapping) bins {
	b := emptyBins()
	b.add(refs, m)
	return b
}

// Bin refs in parallel. Every task fills its own bins which are merged
// element-wise once all tasks complete.
func parallelBins(sched parallel.Scheduler, refs []geometry.PrimRef, m binMapping) bins {
	var state *binningState = parallel.NewPrefixSumState(emptyBins())
	return parallel.PrefixSum(sched, state, 0, len(refs), parallelStepSize, emptyBins(),
		func(r parallel.Range, _ bins) bins {
			return sequentialBins(refs[r.Begin:r.End], m)
		}, mergeBins,
	)
}

// Partition refs in place so that all references on the left side of the
// split precede the ones on the right side. Returns the number of left
// references and the statistics of both sides.
func sequentialPartition(refs []geometry.PrimRef, split binSplit, m binMapping) (int, sideInfo) {
	info := emptySideInfo()
	l, r := 0, len(refs)-1
	for l <= r {
		if split.left(&refs[l], m) {
			info.left.Add(refs[l].Bounds)
			l++
			continue
		}
		refs[l], refs[r] = refs[r], refs[l]
		info.right.Add(refs[r].Bounds)
		r--
	}
	return l, info
}

// Partition refs in parallel using scratch (len(scratch) == len(refs)) as
// the output buffer. The first prefix sum pass counts the left and right
// references of each task; the second pass scatters each task's references
// to its exclusive prefix offsets. The result is copied back into refs.
func parallelPartition(sched parallel.Scheduler, refs, scratch []geometry.PrimRef, split binSplit, m binMapping) (int, sideInfo) {
	state := parallel.NewPrefixSumState(emptySideInfo())
	classify := func(r parallel.Range, _ sideInfo) sideInfo {
		info := emptySideInfo()
		for i := r.Begin; i < r.End; i++ {
			if split.left(&refs[i], m) {
				info.left.Add(refs[i].Bounds)
			} else {
				info.right.Add(refs[i].Bounds)
			}
		}
		return info
	}
	total := parallel.PrefixSum(sched, state, 0, len(refs), parallelStepSize, emptySideInfo(), classify, mergeSideInfo)
	numLeft := total.left.Count

	parallel.PrefixSum(sched, state, 0, len(refs), parallelStepSize, emptySideInfo(),
		func(r parallel.Range, prefix sideInfo) sideInfo {
			info := emptySideInfo()
			l := prefix.left.Count
			rr := numLeft + prefix.right.Count
			for i := r.Begin; i < r.End; i++ {
				if split.left(&refs[i], m) {
					scratch[l+info.left.Count] = refs[i]
					info.left.Add(refs[i].Bounds)
				} else {
					scratch[rr+info.right.Count] = refs[i]
					info.right.Add(refs[i].Bounds)
				}
			}
			return info
		}, mergeSideInfo,
	)

	parallel.ForRange(sched, 0, len(refs), parallelStepSize, func(r parallel.Range) {
		copy(refs[r.Begin:r.End], scratch[r.Begin:r.End])
	})

	return numLeft, total
}

// Split refs at the object median. Both halves are non-empty when
// len(refs) >= 2.
func medianPartition(refs []geometry.PrimRef) (int, sideInfo) {
	mid := len(refs) / 2
	return mid, sideInfo{
		left:  geometry.ComputePrimInfo(refs[:mid]),
		right: geometry.ComputePrimInfo(refs[mid:]),
	}
}
