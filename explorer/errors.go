package explorer

import (
	"fmt"
	"strings"
)

// A thread panicked while executing a run.
//
// These are often caused by faults in the implementation under exploration
// and are therefore reported to the caller instead of crashing the process.
type PanicError struct {
	// The id of the thread that panicked. Thread 0 is the coordinating thread.
	Thread int

	// The recovered panic value.
	Value any

	// The stack trace captured at the point of the panic.
	Stack []byte

	// The branch choices of the run, usable with a replay scheduler.
	Schedule []int
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("explorer: thread %v panicked while executing a run: %v", e.Thread, e.Value)
}

// Every live thread of a run is blocked and can never make progress again.
type DeadlockError struct {
	// The ids of the blocked threads. Thread 0 is the coordinating thread.
	Blocked []int

	// The branch choices of the run, usable with a replay scheduler.
	Schedule []int
}

func (e *DeadlockError) Error() string {
	ids := make([]string, 0, len(e.Blocked))
	for _, id := range e.Blocked {
		ids = append(ids, fmt.Sprintf("%v", id))
	}
	return fmt.Sprintf("explorer: deadlock detected: threads [%v] are blocked and no thread is runnable", strings.Join(ids, " "))
}

// Two threads accessed the same unsynchronized cell without ordering between the accesses.
type DataRaceError struct {
	// The id of the thread whose access completed the race.
	Thread int

	// Description of the conflicting pair of accesses.
	Conflict string

	// The branch choices of the run, usable with a replay scheduler.
	Schedule []int
}

func (e *DataRaceError) Error() string {
	return fmt.Sprintf("explorer: data race detected on thread %v: %v", e.Thread, e.Conflict)
}

// A run performed more scheduling steps than the configured maximum depth.
type DepthError struct {
	MaxDepth int

	// The branch choices of the run, usable with a replay scheduler.
	Schedule []int
}

func (e *DepthError) Error() string {
	return fmt.Sprintf("explorer: run exceeded the maximum depth of %v steps", e.MaxDepth)
}
