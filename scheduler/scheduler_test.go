package scheduler

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"golang.org/x/exp/slices"
)

// Drains the scheduler by repeatedly starting runs and making choices.
// Each run makes one choice per level, with the branch widths given per level.
// Returns the explored runs in the order they were completed.
func drainScheduler(rs RunScheduler, widths []int, maxRuns int) ([][]int, error) {
	runs := [][]int{}
	for i := 0; i < maxRuns; i++ {
		err := rs.StartRun()
		if errors.Is(err, NoRunsError) {
			return runs, nil
		}
		if err != nil {
			return nil, fmt.Errorf("starting a run: %w", err)
		}
		path := []int{}
		for _, n := range widths {
			c, err := rs.Pick(n)
			if err != nil {
				return nil, fmt.Errorf("picking a branch: %w", err)
			}
			if c < 0 || c >= n {
				return nil, fmt.Errorf("Pick(%v) returned out of range choice %v", n, c)
			}
			path = append(path, c)
		}
		runs = append(runs, path)
		rs.EndRun()
	}
	return runs, nil
}

func requireDistinct(t *testing.T, runs [][]int) {
	t.Helper()
	for i, a := range runs {
		for j, b := range runs {
			if i != j && slices.Equal(a, b) {
				t.Errorf("Explored the same run twice: %v", a)
			}
		}
	}
}

func TestPrefixExploresAllRuns(t *testing.T) {
	widths := []int{2, 3, 2}
	sch := NewPrefix()
	runs, err := drainScheduler(sch.GetRunScheduler(), widths, 100)
	if err != nil {
		t.Fatalf("Unexpected error while draining: %v", err)
	}

	if len(runs) != 12 {
		t.Errorf("Expected to explore 12 runs. Got: %v", len(runs))
	}
	requireDistinct(t, runs)
}

func TestPrefixReset(t *testing.T) {
	widths := []int{2, 2}
	sch := NewPrefix()
	first, err := drainScheduler(sch.GetRunScheduler(), widths, 100)
	if err != nil {
		t.Fatalf("Unexpected error while draining: %v", err)
	}

	sch.Reset()
	second, err := drainScheduler(sch.GetRunScheduler(), widths, 100)
	if err != nil {
		t.Fatalf("Unexpected error while draining: %v", err)
	}

	if len(first) != 4 || len(second) != 4 {
		t.Errorf("Expected 4 runs before and after Reset. Got: %v and %v", len(first), len(second))
	}
}

func TestPrefixConcurrentRunSchedulers(t *testing.T) {
	widths := []int{2, 2, 2}
	sch := NewPrefix()

	var wg sync.WaitGroup
	var mut sync.Mutex
	runs := [][]int{}
	errs := []error{}
	for i := 0; i < 3; i++ {
		rs := sch.GetRunScheduler()
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := drainScheduler(rs, widths, 100)
			mut.Lock()
			defer mut.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			runs = append(runs, got...)
		}()
	}
	wg.Wait()

	if len(errs) > 0 {
		t.Fatalf("Unexpected errors while draining: %v", errs)
	}
	if len(runs) != 8 {
		t.Errorf("Expected to explore 8 runs. Got: %v", len(runs))
	}
	requireDistinct(t, runs)
}

func TestRandomStaysInRange(t *testing.T) {
	sch := NewRandom(42)
	runs, err := drainScheduler(sch.GetRunScheduler(), []int{3, 1, 4}, 25)
	if err != nil {
		t.Fatalf("Unexpected error while draining: %v", err)
	}
	if len(runs) != 25 {
		t.Errorf("Expected the random scheduler to provide 25 runs. Got: %v", len(runs))
	}
}

func TestRandomIsDeterministicForSeed(t *testing.T) {
	a, err := drainScheduler(NewRandom(7).GetRunScheduler(), []int{2, 3, 2}, 10)
	if err != nil {
		t.Fatalf("Unexpected error while draining: %v", err)
	}
	b, err := drainScheduler(NewRandom(7).GetRunScheduler(), []int{2, 3, 2}, 10)
	if err != nil {
		t.Fatalf("Unexpected error while draining: %v", err)
	}
	for i := range a {
		if !slices.Equal(a[i], b[i]) {
			t.Errorf("Expected the same seed to produce the same runs. Got: %v and %v", a[i], b[i])
		}
	}
}

func TestReplayFollowsRecordedRun(t *testing.T) {
	recorded := []int{1, 0, 2}
	sch := NewReplay(recorded)
	runs, err := drainScheduler(sch.GetRunScheduler(), []int{2, 2, 3}, 10)
	if err != nil {
		t.Fatalf("Unexpected error while draining: %v", err)
	}

	if len(runs) != 1 {
		t.Fatalf("Expected the replay scheduler to provide exactly one run. Got: %v", len(runs))
	}
	if !slices.Equal(runs[0], recorded) {
		t.Errorf("Expected the replayed run to match the recorded one. Got: %v", runs[0])
	}
}

func TestReplayDetectsNondeterminism(t *testing.T) {
	sch := NewReplay([]int{3})
	rs := sch.GetRunScheduler()
	if err := rs.StartRun(); err != nil {
		t.Fatalf("Unexpected error when starting a run: %v", err)
	}

	// the recorded choice does not fit in the provided branch width
	_, err := rs.Pick(2)
	var nondet *NondeterminismError
	if !errors.As(err, &nondet) {
		t.Errorf("Expected a NondeterminismError. Got: %v", err)
	}
}

func TestReplayDetectsTooManyChoices(t *testing.T) {
	sch := NewReplay([]int{0})
	rs := sch.GetRunScheduler()
	if err := rs.StartRun(); err != nil {
		t.Fatalf("Unexpected error when starting a run: %v", err)
	}
	if _, err := rs.Pick(1); err != nil {
		t.Fatalf("Unexpected error on the recorded choice: %v", err)
	}

	_, err := rs.Pick(2)
	var nondet *NondeterminismError
	if !errors.As(err, &nondet) {
		t.Errorf("Expected a NondeterminismError. Got: %v", err)
	}
}

func BenchmarkPrefixScheduler(b *testing.B) {
	widths := []int{2, 2, 2, 2, 2, 2, 2}
	for i := 0; i < b.N; i++ {
		sch := NewPrefix()
		if _, err := drainScheduler(sch.GetRunScheduler(), widths, 1<<10); err != nil {
			b.Fatalf("Unexpected error while draining: %v", err)
		}
	}
}
