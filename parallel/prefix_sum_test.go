package parallel

import (
	"math/rand"
	"sync/atomic"
	"testing"
)

func add(a, b int) int { return a + b }

func TestPrefixSumChunkCounts(t *testing.T) {
	counts := []int{3, 1, 4, 1, 5}
	pool := NewPool(len(counts))
	state := NewPrefixSumState(0)

	total := PrefixSum(pool, state, 0, len(counts), 1, 0, func(r Range, _ int) int {
		sum := 0
		for i := r.Begin; i < r.End; i++ {
			sum += counts[i]
		}
		return sum
	}, add)

	if total != 14 {
		t.Fatalf("expected total to be 14; got %d", total)
	}

	expPrefixes := []int{0, 3, 4, 8, 9}
	for i, exp := range expPrefixes {
		if state.Sums[i] != exp {
			t.Fatalf("expected exclusive prefix %d to be %d; got %d", i, exp, state.Sums[i])
		}
	}
}

func TestPrefixSumSingleChunkMatchesFold(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	values := make([]string, 1000)
	for i := range values {
		values[i] = string(rune('a' + rng.Intn(26)))
	}

	// String concatenation is associative but not commutative so any
	// reordering of the chunk results shows up in the output.
	concat := func(a, b string) string { return a + b }
	expected := "seed:"
	for _, v := range values {
		expected = concat(expected, v)
	}

	chunkFold := func(r Range, _ string) string {
		acc := ""
		for i := r.Begin; i < r.End; i++ {
			acc = concat(acc, values[i])
		}
		return acc
	}

	for _, workers := range []int{1, 3, 32} {
		pool := NewPool(workers)
		got := PrefixSum(pool, NewPrefixSumState("seed:"), 0, len(values), 1, "seed:", chunkFold, concat)
		if got != expected {
			t.Fatalf("[workers %d] expected prefix sum to match sequential fold", workers)
		}
	}
}

func TestPrefixSumCompaction(t *testing.T) {
	in := make([]int, 5000)
	for i := range in {
		in[i] = i
	}
	keep := func(v int) bool { return v%3 != 0 }

	pool := NewPool(8)
	state := NewPrefixSumState(0)
	count := func(r Range, _ int) int {
		n := 0
		for i := r.Begin; i < r.End; i++ {
			if keep(in[i]) {
				n++
			}
		}
		return n
	}
	total := PrefixSum(pool, state, 0, len(in), 64, 0, count, add)

	out := make([]int, total)
	total2 := PrefixSum(pool, state, 0, len(in), 64, 0, func(r Range, prefix int) int {
		n := 0
		for i := r.Begin; i < r.End; i++ {
			if keep(in[i]) {
				out[prefix+n] = in[i]
				n++
			}
		}
		return n
	}, add)

	if total != total2 {
		t.Fatalf("expected both passes to agree on the total; got %d and %d", total, total2)
	}
	prev := -1
	for _, v := range out {
		if !keep(v) || v <= prev {
			t.Fatalf("expected compacted output to be ordered and filtered; got %d after %d", v, prev)
		}
		prev = v
	}
}

func TestPrefixSumEmptyRange(t *testing.T) {
	called := false
	total := PrefixSum(NewPool(4), NewPrefixSumState(5), 10, 10, 1, 5, func(r Range, _ int) int {
		called = true
		return 1
	}, add)
	if called || total != 5 {
		t.Fatalf("expected empty range to return identity without invoking fn; got %d (called: %t)", total, called)
	}
}

func TestTaskCount(t *testing.T) {
	type spec struct {
		workers, size, minStep, exp int
	}
	specs := []spec{
		{4, 0, 1, 0},
		{4, 3, 1, 3},
		{4, 100, 1, 4},
		{64, 100000, 1, MaxTasks},
		{64, 100, 30, 4},
		{8, 10, 0, 8},
	}

	for index, s := range specs {
		if got := TaskCount(NewPool(s.workers), s.size, s.minStep); got != s.exp {
			t.Fatalf("[spec %d] expected task count %d; got %d", index, s.exp, got)
		}
	}
}

func TestReduce(t *testing.T) {
	pool := NewPool(6)
	got := Reduce(pool, 0, 10001, 10, 0, func(r Range) int {
		s := 0
		for i := r.Begin; i < r.End; i++ {
			s += i
		}
		return s
	}, add)
	if got != 10000*10001/2 {
		t.Fatalf("expected reduction to sum all indices; got %d", got)
	}
}

func TestTaskGroup(t *testing.T) {
	tg := NewTaskGroup(1)
	if tg.TrySpawn(func() {}) {
		t.Fatal("expected a single worker task group to refuse spawning")
	}

	tg = NewTaskGroup(4)
	var count int32
	var spawn func(depth int)
	spawn = func(depth int) {
		atomic.AddInt32(&count, 1)
		if depth == 0 {
			return
		}
		for i := 0; i < 2; i++ {
			if !tg.TrySpawn(func() { spawn(depth - 1) }) {
				spawn(depth - 1)
			}
		}
	}
	spawn(6)
	tg.Wait()

	if count != 127 {
		t.Fatalf("expected 127 task invocations; got %d", count)
	}
}

func TestForRangeCoversRange(t *testing.T) {
	for _, workers := range []int{1, 3, 8} {
		var (
			visited = make([]int32, 1000)
			chunks  atomic.Int32
		)
		ForRange(NewPool(workers), 10, len(visited), 64, func(r Range) {
			chunks.Add(1)
			for i := r.Begin; i < r.End; i++ {
				atomic.AddInt32(&visited[i], 1)
			}
		})

		for i, count := range visited {
			exp := int32(1)
			if i < 10 {
				exp = 0
			}
			if count != exp {
				t.Fatalf("[workers %d] expected index %d to be visited %d times; got %d", workers, i, exp, count)
			}
		}
		if got, exp := int(chunks.Load()), TaskCount(NewPool(workers), 990, 64); got != exp {
			t.Fatalf("[workers %d] expected %d chunks; got %d", workers, exp, got)
		}
	}
}
