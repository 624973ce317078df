package scheduler

import (
	"fmt"

	"golang.org/x/exp/slices"
)

// Replays a single recorded run.
//
// The run is represented as the sequence of branch choices made during the
// original execution. The scheduler returns an error if it is unable to
// reproduce the run, which happens if the program under exploration behaves
// nondeterministically.
type Replay struct {
	choices []int
}

func NewReplay(choices []int) *Replay {
	return &Replay{
		choices: slices.Clone(choices),
	}
}

func (r *Replay) GetRunScheduler() RunScheduler {
	return &replayRun{choices: r.choices}
}

func (r *Replay) Reset() {
}

type replayRun struct {
	choices []int
	index   int
	done    bool
}

func (rr *replayRun) StartRun() error {
	if rr.done {
		return NoRunsError
	}
	rr.done = true
	rr.index = 0
	return nil
}

func (rr *replayRun) Pick(n int) (int, error) {
	if n < 1 {
		return 0, fmt.Errorf("scheduler: Pick called with %v branches", n)
	}
	if rr.index >= len(rr.choices) {
		return 0, &NondeterminismError{
			Detail: fmt.Sprintf("run made more choices than the %d recorded ones", len(rr.choices)),
		}
	}
	c := rr.choices[rr.index]
	if c >= n {
		return 0, &NondeterminismError{
			Detail: fmt.Sprintf("Pick(%d), but the recorded choice was %d", n, c),
		}
	}
	rr.index++
	return c, nil
}

func (rr *replayRun) EndRun() {
}
