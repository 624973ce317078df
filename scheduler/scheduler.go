package scheduler

import "errors"

// A GlobalScheduler manages the exploration of an interleaving space.
// The global scheduler maintains the total exploration state across several runs.
// It communicates with several run schedulers in separate goroutines to ensure that the exploration remains consistent.
type GlobalScheduler interface {
	// Create a RunScheduler that will communicate with the global scheduler
	GetRunScheduler() RunScheduler

	// Reset the global state of the scheduler.
	// Prepare the scheduler for a new exploration.
	Reset()
}

// A RunScheduler drives the branch choices of a single run.
//
// A run is a sequence of choices. Each choice selects one branch out of the
// currently possible ones, e.g. which runnable thread takes the next step or
// which store a load observes.
// StartRun, Pick and EndRun will always be called from the same goroutine.
type RunScheduler interface {
	// Prepare for starting a new run.
	// Returns a NoRunsError if all possible runs have been completed.
	// May block until new runs are available.
	StartRun() error

	// Pick selects one of n possible branches at the current point in the run.
	// n must be at least 1. The returned value is in the interval [0, n).
	Pick(n int) (int, error)

	// Finish the current run and prepare for the next one.
	// Will always be called after a started run has been executed,
	// even if an error occurred during the execution of the run.
	EndRun()
}

var (
	NoRunsError = errors.New("scheduler: No available new runs to be started")
)

// Returned by deterministic schedulers when the program makes different
// choices than it did on the recorded run with the same prefix.
type NondeterminismError struct {
	Detail string
}

func (e *NondeterminismError) Error() string {
	return "scheduler: non-determinism detected: " + e.Detail
}
