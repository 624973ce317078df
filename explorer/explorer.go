// Package explorer provides a deterministic interleaving explorer for
// cooperative threads together with the instrumented synchronization
// primitives the explored code must use.
//
// The explorer executes a body function once per interleaving. Which
// interleavings are covered is decided by the configured scheduler: an
// exhaustive depth first search, a random walk or the replay of a single
// recorded run.
package explorer

import (
	"errors"
	"runtime/debug"
	"sync/atomic"

	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"

	"lincheck/scheduler"
)

type Explorer struct {
	sch scheduler.GlobalScheduler

	maxRuns       int
	maxDepth      int
	numConcurrent int
}

// Create a new Explorer.
//
// Configure the explorer with the scheduler used to select interleavings.
//
// maxRuns bounds the total number of runs executed during one exploration.
//
// maxDepth bounds the number of scheduling steps in a single run.
//
// numConcurrent specifies how many runs are executed concurrently.
// Concurrent runs do not share any state, each run communicates only with the
// global scheduler.
func New(sch scheduler.GlobalScheduler, maxRuns, maxDepth, numConcurrent int) *Explorer {
	if numConcurrent < 1 {
		numConcurrent = 1
	}
	return &Explorer{
		sch:           sch,
		maxRuns:       maxRuns,
		maxDepth:      maxDepth,
		numConcurrent: numConcurrent,
	}
}

// Explore executes body once for every interleaving provided by the scheduler.
//
// The exploration stops when the scheduler has no more runs, when maxRuns is
// reached, or as soon as one run fails. A run fails if body returns a non-nil
// error, if a thread panics, or if the explorer diagnoses a deadlock, a data
// race or an excessive depth. The first failure is returned.
func (e *Explorer) Explore(body func(*Run) error) error {
	e.sch.Reset()

	var (
		started int64
		stop    int32
	)

	g := new(errgroup.Group)
	for i := 0; i < e.numConcurrent; i++ {
		rsch := e.sch.GetRunScheduler()
		g.Go(func() error {
			for atomic.LoadInt32(&stop) == 0 {
				if atomic.AddInt64(&started, 1) > int64(e.maxRuns) {
					return nil
				}
				err := rsch.StartRun()
				if errors.Is(err, scheduler.NoRunsError) {
					return nil
				}
				if err != nil {
					atomic.StoreInt32(&stop, 1)
					return err
				}
				runErr := e.runOnce(rsch, body)
				rsch.EndRun()
				if runErr != nil {
					atomic.StoreInt32(&stop, 1)
					return runErr
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// runOnce executes body in a fresh Run and tears the run down afterwards.
func (e *Explorer) runOnce(rsch scheduler.RunScheduler, body func(*Run) error) error {
	r := newRun(rsch, e.maxDepth)

	var bodyErr error
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if p := recover(); p != nil {
				if _, ok := p.(runAborted); ok {
					return
				}
				r.fail(&PanicError{Thread: r.main.id, Value: p, Stack: debug.Stack()})
			}
		}()
		bodyErr = body(r)
		r.exitMain()
	}()

	<-r.done

	// Unwind the threads the run left behind, e.g. after a deadlock or a panic.
	r.aborting = true
	for _, t := range r.threads {
		if !t.exited {
			select {
			case t.wake <- struct{}{}:
			default:
			}
		}
	}
	r.wg.Wait()

	err := r.err
	if err == nil {
		err = bodyErr
	}
	switch err := err.(type) {
	case *PanicError:
		err.Schedule = slices.Clone(r.path)
	case *DeadlockError:
		err.Schedule = slices.Clone(r.path)
	case *DataRaceError:
		err.Schedule = slices.Clone(r.path)
	case *DepthError:
		err.Schedule = slices.Clone(r.path)
	}
	return err
}
