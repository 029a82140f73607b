// Package parallel provides the bounded fan-out task primitives used by the
// BVH builder: a parallel-for with a full barrier, opportunistic task
// spawning and a two-phase prefix sum.
package parallel

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// The maximum number of chunks a single prefix sum or reduction is split into.
const MaxTasks = 32

// A half-open index range.
type Range struct {
	Begin, End int
}

// Get the number of indices in the range.
func (r Range) Size() int {
	return r.End - r.Begin
}

// The Scheduler interface is implemented by worker pools that can execute
// parallel-for loops.
type Scheduler interface {
	// The number of workers available to this scheduler.
	NumWorkers() int

	// Invoke fn for every task index in [0, taskCount). The call returns
	// only after all tasks have completed.
	ParallelFor(taskCount int, fn func(taskIndex int))
}

// A fixed-size pool of workers.
type Pool struct {
	workers int
}

// Create a new pool. If workers is <= 0 the pool uses GOMAXPROCS workers.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Pool{workers: workers}
}

// NumWorkers implements Scheduler.
func (p *Pool) NumWorkers() int {
	return p.workers
}

// ParallelFor implements Scheduler.
func (p *Pool) ParallelFor(taskCount int, fn func(taskIndex int)) {
	if taskCount <= 0 {
		return
	}
	if taskCount == 1 || p.workers == 1 {
		for i := 0; i < taskCount; i++ {
			fn(i)
		}
		return
	}

	var g errgroup.Group
	g.SetLimit(p.workers)
	for i := 0; i < taskCount; i++ {
		taskIndex := i
		g.Go(func() error {
			fn(taskIndex)
			return nil
		})
	}
	_ = g.Wait()
}

// A TaskGroup runs tasks on idle workers. Unlike ParallelFor it never blocks
// when all workers are busy; callers fall back to running the work inline.
type TaskGroup struct {
	g errgroup.Group
}

// Create a task group that runs at most workers-1 tasks next to the calling
// goroutine.
func NewTaskGroup(workers int) *TaskGroup {
	tg := &TaskGroup{}
	tg.g.SetLimit(max(workers-1, 0))
	return tg
}

// Try to run fn on an idle worker. Returns false if no worker is free.
func (tg *TaskGroup) TrySpawn(fn func()) bool {
	return tg.g.TryGo(func() error {
		fn()
		return nil
	})
}

// Wait for all spawned tasks, including tasks spawned by other tasks.
func (tg *TaskGroup) Wait() {
	_ = tg.g.Wait()
}

// Calculate the number of chunks for splitting size items into chunks of at
// least minStepSize items.
func TaskCount(s Scheduler, size, minStepSize int) int {
	if size <= 0 {
		return 0
	}
	if minStepSize <= 0 {
		minStepSize = 1
	}
	numBlocks := (size + minStepSize - 1) / minStepSize
	return min(s.NumWorkers(), numBlocks, MaxTasks)
}

// Get the sub-range processed by a chunk.
func chunkRange(first, last, taskIndex, taskCount int) Range {
	return Range{
		Begin: first + (taskIndex+0)*(last-first)/taskCount,
		End:   first + (taskIndex+1)*(last-first)/taskCount,
	}
}

// ForRange splits [first, last) into chunks of at least minStepSize items and
// invokes fn for each chunk in parallel. It returns once all chunks are done.
func ForRange(s Scheduler, first, last, minStepSize int, fn func(r Range)) {
	taskCount := TaskCount(s, last-first, minStepSize)
	s.ParallelFor(taskCount, func(taskIndex int) {
		fn(chunkRange(first, last, taskIndex, taskCount))
	})
}
