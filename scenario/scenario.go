// Package scenario defines the test cases the harness generates: a serial
// init segment, one operation sequence per worker thread, and a serial post
// segment.
package scenario

import (
	"math/rand"

	"golang.org/x/exp/slices"

	"lincheck/strategy"
)

// A Scenario tells which operations to run and where.
//
// Init and Post are executed by the coordinating thread before and after the
// parallel segment. Each inner sequence of Parallel is executed in order by
// one worker thread; the sequences of different threads are interleaved by
// the explorer.
type Scenario[Op any] struct {
	Init     []Op
	Parallel [][]Op
	Post     []Op
}

// NumOps returns the total number of operations across all segments.
func (s Scenario[Op]) NumOps() int {
	n := len(s.Init) + len(s.Post)
	for _, ops := range s.Parallel {
		n += len(ops)
	}
	return n
}

// ParallelLens returns the number of operations per worker thread.
func (s Scenario[Op]) ParallelLens() []int {
	lens := make([]int, len(s.Parallel))
	for t, ops := range s.Parallel {
		lens[t] = len(ops)
	}
	return lens
}

// Clone returns a deep copy of the scenario.
func (s Scenario[Op]) Clone() Scenario[Op] {
	parallel := make([][]Op, len(s.Parallel))
	for t, ops := range s.Parallel {
		parallel[t] = slices.Clone(ops)
	}
	return Scenario[Op]{
		Init:     slices.Clone(s.Init),
		Parallel: parallel,
		Post:     slices.Clone(s.Post),
	}
}

// A Generator samples random scenarios.
//
// NumOps is a soft budget for the total number of operations. The partition
// between the segments is random, biased toward a nonempty parallel section
// when more than one thread is configured.
type Generator[Op any] struct {
	NumThreads int
	NumOps     int
	Ops        strategy.Strategy[Op]
}

// Sample generates a scenario. The generated scenario has exactly NumThreads
// parallel sequences, some of which may be empty.
func (g Generator[Op]) Sample(r *rand.Rand) (Scenario[Op], error) {
	sc := Scenario[Op]{Parallel: make([][]Op, g.NumThreads)}

	n := 1 + r.Intn(g.NumOps)
	for i := 0; i < n; i++ {
		op, err := g.Ops.Generate(r)
		if err != nil {
			return Scenario[Op]{}, err
		}
		if g.NumThreads >= 2 {
			// half of the operations land in the parallel section
			switch k := r.Intn(4); k {
			case 0:
				sc.Init = append(sc.Init, op)
			case 3:
				sc.Post = append(sc.Post, op)
			default:
				t := r.Intn(g.NumThreads)
				sc.Parallel[t] = append(sc.Parallel[t], op)
			}
		} else {
			switch r.Intn(3) {
			case 0:
				sc.Init = append(sc.Init, op)
			case 1:
				sc.Parallel[0] = append(sc.Parallel[0], op)
			default:
				sc.Post = append(sc.Post, op)
			}
		}
	}

	// Bias toward a nonempty parallel section: move an operation there if the
	// partition left it empty.
	if g.NumThreads >= 2 && parallelEmpty(sc) {
		t := r.Intn(g.NumThreads)
		if len(sc.Init) > 0 {
			op := sc.Init[len(sc.Init)-1]
			sc.Init = sc.Init[:len(sc.Init)-1]
			sc.Parallel[t] = append(sc.Parallel[t], op)
		} else if len(sc.Post) > 0 {
			op := sc.Post[0]
			sc.Post = sc.Post[1:]
			sc.Parallel[t] = append(sc.Parallel[t], op)
		}
	}

	return sc, nil
}

func parallelEmpty[Op any](sc Scenario[Op]) bool {
	for _, ops := range sc.Parallel {
		if len(ops) > 0 {
			return false
		}
	}
	return true
}
