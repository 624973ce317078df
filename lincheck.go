// Package lincheck checks concurrent data structures for linearizability.
//
// The user provides two implementations of the same operation alphabet: a
// concurrent one, shared between threads, and a simpler sequential reference
// that defines the intended behavior. The harness generates random scenarios,
// executes every interleaving of each scenario inside a deterministic
// explorer, and verifies that every observed execution is equivalent to some
// sequential execution of the reference. Failing scenarios are automatically
// shrunk to a minimal counterexample.
package lincheck

import (
	"fmt"
	"log"
	"math/rand"
	"runtime"

	"lincheck/checker"
	"lincheck/explorer"
	"lincheck/scenario"
	"lincheck/scheduler"
)

// A Lincheck value configures the size of the generated scenarios.
type Lincheck struct {
	// The number of worker threads in the parallel section.
	NumThreads int

	// The soft budget for the total number of operations per scenario.
	NumOps int
}

const (
	defaultNumThreads = 2
	defaultNumOps     = 5
)

func (l Lincheck) withDefaults() Lincheck {
	if l.NumThreads == 0 {
		l.NumThreads = defaultNumThreads
	}
	if l.NumOps == 0 {
		l.NumOps = defaultNumOps
	}
	if l.NumThreads < 1 || l.NumOps < 1 {
		log.Panicf("lincheck: NumThreads and NumOps must be at least 1. Got: %v and %v", l.NumThreads, l.NumOps)
	}
	return l
}

type Option interface{}

type numScenariosOption struct{ n int }

// Configure the number of scenarios generated per verification.
//
// Default value is 100.
func NumScenarios(n int) Option {
	return numScenariosOption{n: n}
}

type maxRunsOption struct{ maxRuns int }

// Configure the maximum number of interleavings explored per scenario.
//
// Default value is 2000. When the bound is reached the remaining
// interleavings are not explored, so coverage becomes statistical.
func MaxRuns(maxRuns int) Option {
	return maxRunsOption{maxRuns: maxRuns}
}

type maxDepthOption struct{ maxDepth int }

// Configure the maximum number of scheduling steps in a single run.
//
// Default value is 1000.
func MaxDepth(maxDepth int) Option {
	return maxDepthOption{maxDepth: maxDepth}
}

type numConcurrentOption struct{ n int }

// Configure the number of interleavings that are executed concurrently.
//
// Default value is GOMAXPROCS.
func NumConcurrent(n int) Option {
	return numConcurrentOption{n: n}
}

type seedOption struct{ seed int64 }

// Configure the seed of the scenario generator.
//
// The default seed is fixed, so repeated verifications explore the same
// scenarios unless a seed is provided.
func Seed(seed int64) Option {
	return seedOption{seed: seed}
}

type schedulerOption struct{ newScheduler func() scheduler.GlobalScheduler }

// Use a random walk instead of the exhaustive search when exploring the
// interleavings of a scenario. Useful when the interleaving space is too
// large to drain within the run budget.
func RandomWalkScheduler(seed int64) Option {
	return schedulerOption{newScheduler: func() scheduler.GlobalScheduler {
		return scheduler.NewRandom(seed)
	}}
}

// Use the provided scheduler when exploring the interleavings of a scenario.
// The scheduler is reset before every scenario.
func WithScheduler(sch scheduler.GlobalScheduler) Option {
	return schedulerOption{newScheduler: func() scheduler.GlobalScheduler {
		return sch
	}}
}

type settings struct {
	numScenarios  int
	maxRuns       int
	maxDepth      int
	numConcurrent int
	seed          int64
	newScheduler  func() scheduler.GlobalScheduler
}

func newSettings(opts []Option) settings {
	st := settings{
		numScenarios:  100,
		maxRuns:       2000,
		maxDepth:      1000,
		numConcurrent: runtime.GOMAXPROCS(0),
		seed:          1,
		newScheduler: func() scheduler.GlobalScheduler {
			return scheduler.NewPrefix()
		},
	}
	for _, opt := range opts {
		switch t := opt.(type) {
		case numScenariosOption:
			st.numScenarios = t.n
		case maxRunsOption:
			st.maxRuns = t.maxRuns
		case maxDepthOption:
			st.maxDepth = t.maxDepth
		case numConcurrentOption:
			st.numConcurrent = t.n
		case seedOption:
			st.seed = t.seed
		case schedulerOption:
			st.newScheduler = t.newScheduler
		}
	}
	return st
}

// How often scenario generation is retried before giving up.
const generationRetries = 5

// Verify checks that the concurrent implementation of the spec is
// linearizable with respect to its sequential reference.
//
// Scenarios are generated and executed under the interleaving explorer until
// one fails or the scenario budget is exhausted. A failing scenario is shrunk
// to a minimal one that still fails the same way, re-executed
// deterministically, and returned as a Failure. Verify returns nil if no
// failure was found.
//
// Verify runs one scenario at a time; the concurrency happens inside the
// exploration of each scenario.
func Verify[C, S, Op, Ret any](cfg Lincheck, sp Spec[C, S, Op, Ret], opts ...Option) *Failure[Op, Ret] {
	cfg = cfg.withDefaults()
	sp.validate()
	st := newSettings(opts)

	rng := rand.New(rand.NewSource(st.seed))
	gen := scenario.Generator[Op]{
		NumThreads: cfg.NumThreads,
		NumOps:     cfg.NumOps,
		Ops:        sp.Ops,
	}

	for i := 0; i < st.numScenarios; i++ {
		sc, err := sample(gen, rng)
		if err != nil {
			return &Failure[Op, Ret]{
				Kind:      GenerationExhausted,
				Diagnosis: fmt.Sprintf("strategy exhausted: %v", err),
				format:    sp.format(),
			}
		}

		fail := checkScenario(sp, sc, st, st.numConcurrent)
		if fail == nil {
			continue
		}

		min := shrinkScenario(sp, sc, fail.Kind, st)

		// Re-execute the minimized scenario with a single-threaded
		// exploration, so that the reported interleaving and its rendering
		// are reproducible.
		if final := checkScenario(sp, min, st, 1); final != nil {
			return final
		}
		return fail
	}
	return nil
}

// VerifyScenario explores every interleaving of one specific scenario instead
// of generating random ones. Useful for pinning a known counterexample as a
// regression test. It returns nil if every interleaving passes; no shrinking
// is performed.
func VerifyScenario[C, S, Op, Ret any](sp Spec[C, S, Op, Ret], sc scenario.Scenario[Op], opts ...Option) *Failure[Op, Ret] {
	sp.validate()
	st := newSettings(opts)
	return checkScenario(sp, sc, st, st.numConcurrent)
}

// MustVerify is like Verify but panics with the rendered counterexample,
// which makes it convenient to call directly from a test.
func MustVerify[C, S, Op, Ret any](cfg Lincheck, sp Spec[C, S, Op, Ret], opts ...Option) {
	if f := Verify(cfg, sp, opts...); f != nil {
		panic(f.Error())
	}
}

func sample[Op any](gen scenario.Generator[Op], rng *rand.Rand) (scenario.Scenario[Op], error) {
	var err error
	for i := 0; i < generationRetries; i++ {
		var sc scenario.Scenario[Op]
		sc, err = gen.Sample(rng)
		if err == nil {
			return sc, nil
		}
	}
	return scenario.Scenario[Op]{}, err
}

// checkScenario explores every interleaving of the scenario and checks each
// observed execution. It returns nil if all interleavings pass.
func checkScenario[C, S, Op, Ret any](sp Spec[C, S, Op, Ret], sc scenario.Scenario[Op], st settings, numConcurrent int) *Failure[Op, Ret] {
	exp := explorer.New(st.newScheduler(), st.maxRuns, st.maxDepth, numConcurrent)
	model := sp.model()

	err := exp.Explore(func(r *explorer.Run) error {
		x := runScenario(r, sp, sc)
		if !checker.Check(model, x) {
			return &nonLinearizableError[Op, Ret]{exec: x}
		}
		return nil
	})
	if err == nil {
		return nil
	}

	f := &Failure[Op, Ret]{Scenario: sc, format: sp.format()}
	switch err := err.(type) {
	case *nonLinearizableError[Op, Ret]:
		f.Kind = NonLinearizable
		f.Execution = err.exec
	case *explorer.PanicError:
		f.Kind = PanicInObserve
		if oa, ok := err.Value.(*observeAbort[Op, Ret]); ok {
			f.Thread = oa.thread
			f.Op = oa.op
			f.PanicValue = oa.value
			f.Execution = oa.transcript
		} else {
			// a panic outside Observe, e.g. in NewConcurrent
			f.Thread = err.Thread - 1
			f.PanicValue = err.Value
		}
	default:
		f.Kind = ExplorerDiagnosed
		f.Diagnosis = err.Error()
	}
	return f
}

// shrinkScenario repeatedly replaces the scenario with the first smaller
// candidate that still fails the same way, until no candidate does.
func shrinkScenario[C, S, Op, Ret any](sp Spec[C, S, Op, Ret], sc scenario.Scenario[Op], kind Kind, st settings) scenario.Scenario[Op] {
	for {
		improved := false
		for _, cand := range sc.Candidates(sp.Ops) {
			if f := checkScenario(sp, cand, st, st.numConcurrent); f != nil && f.Kind == kind {
				sc = cand
				improved = true
				break
			}
		}
		if !improved {
			return sc
		}
	}
}
