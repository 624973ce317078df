package history

import (
	"sort"
	"sync/atomic"
)

// A Recorder collects the execution of one scenario.
//
// The serial segments are recorded by the coordinating thread. The parallel
// segment is recorded through per-thread sub-recorders that write into
// pre-sized slots, so recording introduces no synchronization between the
// worker threads beyond the shared timestamp counter. The counter uses plain
// sync/atomic, which the explorer does not instrument, so it does not
// restrict the interleavings of the operations themselves.
type Recorder[Op, Ret any] struct {
	init []Invocation[Op, Ret]
	post []Invocation[Op, Ret]

	cells  [][]ParallelInvocation[Op, Ret]
	filled []int

	timer int64
}

// NewRecorder creates a recorder for a scenario with the given shape.
// parallelLens holds the number of operations per worker thread.
func NewRecorder[Op, Ret any](initLen int, parallelLens []int, postLen int) *Recorder[Op, Ret] {
	cells := make([][]ParallelInvocation[Op, Ret], len(parallelLens))
	for t, n := range parallelLens {
		cells[t] = make([]ParallelInvocation[Op, Ret], n)
	}
	return &Recorder[Op, Ret]{
		init:   make([]Invocation[Op, Ret], 0, initLen),
		post:   make([]Invocation[Op, Ret], 0, postLen),
		cells:  cells,
		filled: make([]int, len(parallelLens)),
	}
}

// RecordInit executes f and appends the invocation to the init segment.
func (r *Recorder[Op, Ret]) RecordInit(op Op, f func() Ret) {
	ret := f()
	r.init = append(r.init, Invocation[Op, Ret]{Op: op, Ret: ret})
}

// RecordPost executes f and appends the invocation to the post segment.
func (r *Recorder[Op, Ret]) RecordPost(op Op, f func() Ret) {
	ret := f()
	r.post = append(r.post, Invocation[Op, Ret]{Op: op, Ret: ret})
}

// Thread returns the sub-recorder for worker thread t.
func (r *Recorder[Op, Ret]) Thread(t int) *ThreadRecorder[Op, Ret] {
	return &ThreadRecorder[Op, Ret]{rec: r, thread: t}
}

// Finish assembles the execution recorded so far.
//
// The parallel invocations are ordered by completion. Finish may be called
// before every slot is filled, in which case it returns the partial
// transcript, e.g. for reporting an execution that panicked midway.
func (r *Recorder[Op, Ret]) Finish() *Execution[Op, Ret] {
	parallel := []ParallelInvocation[Op, Ret]{}
	for t, cells := range r.cells {
		parallel = append(parallel, cells[:r.filled[t]]...)
	}
	sort.Slice(parallel, func(i, j int) bool {
		return parallel[i].Return < parallel[j].Return
	})
	return &Execution[Op, Ret]{
		Init:     r.init,
		Parallel: parallel,
		Post:     r.post,
	}
}

// A ThreadRecorder records the operations of a single worker thread.
type ThreadRecorder[Op, Ret any] struct {
	rec    *Recorder[Op, Ret]
	thread int
	next   int
}

// Record executes f and stores the completed invocation into the thread's
// next pre-sized slot. The call timestamp is taken before f runs and the
// return timestamp after it.
func (tr *ThreadRecorder[Op, Ret]) Record(op Op, f func() Ret) {
	call := int(atomic.AddInt64(&tr.rec.timer, 1)) - 1
	ret := f()
	returned := int(atomic.AddInt64(&tr.rec.timer, 1)) - 1

	tr.rec.cells[tr.thread][tr.next] = ParallelInvocation[Op, Ret]{
		Thread: tr.thread,
		Call:   call,
		Return: returned,
		Op:     op,
		Ret:    ret,
	}
	tr.next++
	tr.rec.filled[tr.thread] = tr.next
}
