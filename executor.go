package lincheck

import (
	"lincheck/explorer"
	"lincheck/history"
	"lincheck/scenario"
)

// runScenario executes the scenario once inside the given explorer run and
// returns the observed execution.
//
// The init and post segments run on the coordinating thread. The parallel
// segment spawns one worker per sequence; each worker walks its sequence in
// order and records every return into its pre-sized slot, so the recording
// adds no synchronization between the workers.
func runScenario[C, S, Op, Ret any](r *explorer.Run, sp Spec[C, S, Op, Ret], sc scenario.Scenario[Op]) *history.Execution[Op, Ret] {
	c := sp.NewConcurrent(r)
	rec := history.NewRecorder[Op, Ret](len(sc.Init), sc.ParallelLens(), len(sc.Post))

	// A panic inside Observe is wrapped together with the offending
	// operation, the thread and the transcript recorded so far, and rethrown
	// for the explorer to unwind the run.
	observe := func(thread int, op Op) (ret Ret) {
		defer func() {
			if p := recover(); p != nil {
				if explorer.IsRunAborted(p) {
					panic(p)
				}
				panic(&observeAbort[Op, Ret]{
					thread:     thread,
					op:         op,
					value:      p,
					transcript: rec.Finish(),
				})
			}
		}()
		return sp.Observe(c, op)
	}

	for _, op := range sc.Init {
		op := op
		rec.RecordInit(op, func() Ret { return observe(mainThread, op) })
	}

	for t, ops := range sc.Parallel {
		t, ops := t, ops
		tr := rec.Thread(t)
		r.Go(func() {
			for _, op := range ops {
				op := op
				tr.Record(op, func() Ret { return observe(t, op) })
			}
		})
	}
	r.Join()

	for _, op := range sc.Post {
		op := op
		rec.RecordPost(op, func() Ret { return observe(mainThread, op) })
	}

	return rec.Finish()
}

// The thread id reported for panics on the coordinating thread.
const mainThread = -1

type observeAbort[Op, Ret any] struct {
	thread     int
	op         Op
	value      any
	transcript *history.Execution[Op, Ret]
}

// The checker rejected the execution of one explored interleaving.
type nonLinearizableError[Op, Ret any] struct {
	exec *history.Execution[Op, Ret]
}

func (e *nonLinearizableError[Op, Ret]) Error() string {
	return "lincheck: non-linearizable execution"
}
