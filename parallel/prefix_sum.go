package parallel

// PrefixSumState holds the per-chunk scratch of a prefix sum. Counts contains
// the partial result of each chunk and Sums the exclusive prefix of each
// chunk, as computed by the most recent PrefixSum call on this state.
type PrefixSumState[V any] struct {
	Counts [MaxTasks]V
	Sums   [MaxTasks]V
}

// Create a state whose prefixes are all set to identity.
func NewPrefixSumState[V any](identity V) *PrefixSumState[V] {
	state := &PrefixSumState[V]{}
	for i := range state.Sums {
		state.Sums[i] = identity
	}
	return state
}

// PrefixSum splits [first, last) into chunks of at least minStepSize items
// and runs in two phases separated by a barrier:
//
//  1. (parallel) every chunk evaluates fn(chunkRange, state.Sums[chunk]) and
//     stores the result in state.Counts[chunk].
//  2. (sequential) the chunk results are folded left to right with
//     reduction, starting from identity; before folding chunk i its
//     exclusive prefix is recorded in state.Sums[i].
//
// The total is returned. Since the chunking only depends on the range, the
// scheduler and minStepSize, a second call on the same state invokes every
// chunk with the prefix computed by the first call. This is how callers
// implement stream compaction: count in the first pass, scatter in the second.
func PrefixSum[V any](s Scheduler, state *PrefixSumState[V], first, last, minStepSize int, identity V, fn func(r Range, prefix V) V, reduction func(a, b V) V) V {
	taskCount := TaskCount(s, last-first, minStepSize)

	s.ParallelFor(taskCount, func(taskIndex int) {
		r := chunkRange(first, last, taskIndex, taskCount)
		state.Counts[taskIndex] = fn(r, state.Sums[taskIndex])
	})

	sum := identity
	for i := 0; i < taskCount; i++ {
		c := state.Counts[i]
		state.Sums[i] = sum
		sum = reduction(sum, c)
	}

	return sum
}

// Reduce computes fn over chunks of [first, last) in parallel and combines
// the chunk results left to right with reduction.
func Reduce[V any](s Scheduler, first, last, minStepSize int, identity V, fn func(r Range) V, reduction func(a, b V) V) V {
	state := NewPrefixSumState(identity)
	return PrefixSum(s, state, first, last, minStepSize, identity, func(r Range, _ V) V {
		return fn(r)
	}, reduction)
}
