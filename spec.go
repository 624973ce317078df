package lincheck

import (
	"log"
	"reflect"

	"lincheck/checker"
	"lincheck/explorer"
	"lincheck/history"
	"lincheck/strategy"
)

// A Spec binds a concurrent implementation under test to the sequential
// reference that defines its intended behavior. Both sides share the same
// operation alphabet Op and return alphabet Ret.
//
// The concurrent side is shared: Observe is called from multiple worker
// threads at the same time. The sequential side is owned: Apply receives the
// reference exclusively and mutates it. The reference must be deterministic,
// i.e. the same operations from a fresh state must produce the same results.
type Spec[C, S, Op, Ret any] struct {
	// NewConcurrent constructs a fresh implementation under test. It is
	// called once per explored run and receives the run handle so the
	// implementation can build its instrumented primitives from it.
	NewConcurrent func(*explorer.Run) C

	// Observe executes op against the implementation under test.
	// It is called concurrently from the worker threads. A panic inside
	// Observe aborts the scenario and is reported, not swallowed.
	Observe func(C, Op) Ret

	// NewSequential constructs the reference in its initial state.
	// It is called once per linearization attempt.
	NewSequential func() S

	// Apply executes op against the reference, mutating it, and returns the
	// expected result.
	Apply func(S, Op) Ret

	// Clone returns an independent copy of the reference state. The
	// linearizability search clones the state at every node, so cloning
	// should be cheap value copying.
	Clone func(S) S

	// Equal compares an expected and an observed return value.
	// Defaults to reflect.DeepEqual.
	Equal func(Ret, Ret) bool

	// EqualState compares two reference states. The checker uses it to
	// recognize search nodes it has already explored.
	// Defaults to reflect.DeepEqual.
	EqualState func(S, S) bool

	// Format renders an operation and its return value for counterexample
	// tables. Defaults to the Stringer-based rendering of package history.
	Format func(Op, Ret) string

	// Ops is the operation alphabet scenarios are generated from.
	Ops strategy.Strategy[Op]
}

func (sp Spec[C, S, Op, Ret]) validate() {
	switch {
	case sp.NewConcurrent == nil:
		log.Panicf("lincheck: Spec.NewConcurrent must be provided")
	case sp.Observe == nil:
		log.Panicf("lincheck: Spec.Observe must be provided")
	case sp.NewSequential == nil:
		log.Panicf("lincheck: Spec.NewSequential must be provided")
	case sp.Apply == nil:
		log.Panicf("lincheck: Spec.Apply must be provided")
	case sp.Clone == nil:
		log.Panicf("lincheck: Spec.Clone must be provided")
	case sp.Ops == nil:
		log.Panicf("lincheck: Spec.Ops must be provided")
	}
}

func (sp Spec[C, S, Op, Ret]) retEqual() func(Ret, Ret) bool {
	if sp.Equal != nil {
		return sp.Equal
	}
	return func(a, b Ret) bool { return reflect.DeepEqual(a, b) }
}

func (sp Spec[C, S, Op, Ret]) format() func(Op, Ret) string {
	if sp.Format != nil {
		return sp.Format
	}
	return history.Format[Op, Ret]
}

func (sp Spec[C, S, Op, Ret]) model() checker.Model[S, Op, Ret] {
	return checker.Model[S, Op, Ret]{
		New:        sp.NewSequential,
		Apply:      sp.Apply,
		Clone:      sp.Clone,
		Equal:      sp.retEqual(),
		EqualState: sp.EqualState,
	}
}
