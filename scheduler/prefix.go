package scheduler

import (
	"fmt"
	"sync"

	"golang.org/x/exp/slices"
)

type run []int

// Explores the interleaving space by maintaining a stack of unexplored prefixes.
// When a new run is started it follows the prefix and begins exploring from there,
// adding the prefixes of the branches it did not take as it executes choices.
//
// The exploration is a depth first search of the choice tree.
// It stops when the entire space is explored and will not schedule identical runs.
type Prefix struct {
	// unexplored prefixes
	r []run

	// Used to wait for a change in p.ongoing or p.r. The condition is len(p.r) == 0 and p.ongoing > 0
	cond *sync.Cond

	// Number of runSchedulers currently exploring a run, i.e. runSchedulers not waiting for a new prefix
	ongoing int
}

func NewPrefix() *Prefix {
	return &Prefix{
		r:    []run{{}},
		cond: sync.NewCond(new(sync.Mutex)),
	}
}

func (p *Prefix) GetRunScheduler() RunScheduler {
	return newPrefixRun(p)
}

func (p *Prefix) Reset() {
	p.cond.L.Lock()
	defer p.cond.L.Unlock()

	p.r = []run{{}}
	p.ongoing = 0
}

func (p *Prefix) addRun(r run) {
	p.cond.L.Lock()
	defer p.cond.L.Unlock()

	p.r = append(p.r, r)

	if len(p.r) == 1 {
		p.cond.Broadcast()
	}
}

func (p *Prefix) endRun() {
	p.cond.L.Lock()
	defer p.cond.L.Unlock()

	p.ongoing--
	p.cond.Broadcast()
}

func (p *Prefix) getRun() run {
	p.cond.L.Lock()
	defer p.cond.L.Unlock()

	// If there are no available prefixes wait until there are.
	// If at the same time no runScheduler is exploring a run then there will never be a new prefix,
	// since only an ongoing run can add one.
	// All possible runs have therefore been explored and we return nil.
	for len(p.r) == 0 && p.ongoing > 0 {
		p.cond.Wait()
	}
	if len(p.r) == 0 {
		return nil
	}

	// Pop the latest prefix
	r := p.r[len(p.r)-1]
	p.r = p.r[:len(p.r)-1]

	p.ongoing++
	return r
}

// Drives a single run for the Prefix scheduler.
//
// Follows the assigned prefix for as long as it lasts.
// After that it always takes the first branch and registers the prefixes of
// the remaining branches with the global scheduler.
type prefixRun struct {
	p *Prefix

	// the choices made so far in the current run
	path run

	// the prefix assigned to the current run
	prefix run

	index int
}

func newPrefixRun(p *Prefix) *prefixRun {
	return &prefixRun{
		p: p,
	}
}

func (pr *prefixRun) StartRun() error {
	r := pr.p.getRun()
	if r == nil {
		return NoRunsError
	}
	pr.prefix = r
	pr.path = make(run, 0, len(r))
	pr.index = 0
	return nil
}

func (pr *prefixRun) Pick(n int) (int, error) {
	if n < 1 {
		return 0, fmt.Errorf("scheduler: Pick called with %v branches", n)
	}

	if pr.index < len(pr.prefix) {
		// Follow the assigned prefix until it has no more choices
		c := pr.prefix[pr.index]
		if c >= n {
			return 0, &NondeterminismError{
				Detail: fmt.Sprintf("Pick(%d) during replay of a prefix, but the recorded choice was %d", n, c),
			}
		}
		pr.index++
		pr.path = append(pr.path, c)
		return c, nil
	}

	// Exploration mode. Take the first branch and register the alternatives as new prefixes.
	for c := 1; c < n; c++ {
		alt := slices.Clone(pr.path)
		pr.p.addRun(append(alt, c))
	}
	pr.index++
	pr.path = append(pr.path, 0)
	return 0, nil
}

func (pr *prefixRun) EndRun() {
	pr.p.endRun()
}
