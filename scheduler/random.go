package scheduler

import (
	"fmt"
	"math/rand"
	"sync"
)

// A scheduler that randomly picks the next branch from the available branches.
//
// It is useful for sampling the interleaving space when the space is too large
// to perform an exhaustive search.
// It provides no guarantee that all interleavings have been explored,
// nor that the same interleaving will not be explored multiple times.
// It does not have a designated stop point, so the exploration must be bounded
// by a maximum number of runs.
type Random struct {
	sync.Mutex
	rand *rand.Rand
}

// Create a new Random scheduler.
//
// Initialized with a seed which is used to generate the seeds of the run-specific schedulers.
func NewRandom(seed int64) *Random {
	return &Random{
		rand: rand.New(rand.NewSource(seed)),
	}
}

func (r *Random) GetRunScheduler() RunScheduler {
	r.Lock()
	defer r.Unlock()
	return newRandomRun(r.rand.Int63())
}

func (r *Random) Reset() {
}

type randomRun struct {
	rand *rand.Rand
}

func newRandomRun(seed int64) *randomRun {
	return &randomRun{
		rand: rand.New(rand.NewSource(seed)),
	}
}

func (rr *randomRun) StartRun() error {
	return nil
}

func (rr *randomRun) Pick(n int) (int, error) {
	if n < 1 {
		return 0, fmt.Errorf("scheduler: Pick called with %v branches", n)
	}
	return rr.rand.Intn(n), nil
}

func (rr *randomRun) EndRun() {
}
