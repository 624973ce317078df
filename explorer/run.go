package explorer

import (
	"runtime/debug"
	"sync"

	"lincheck/scheduler"
)

// Sentinel panic value used to unwind thread goroutines when a run is torn down.
type runAborted struct{}

// IsRunAborted reports whether a recovered panic value is the explorer's
// internal run-teardown signal. Code that wraps panics escaping from
// instrumented operations must rethrow these values unchanged.
func IsRunAborted(p any) bool {
	_, ok := p.(runAborted)
	return ok
}

// A cooperative thread inside a run.
//
// Each thread is backed by a goroutine, but at most one thread of a run
// executes at any moment. Control is handed from thread to thread through the
// wake channels, and the run scheduler decides who runs next.
type thread struct {
	id      int
	wake    chan struct{}
	clock   vclock
	lastIdx map[*location]int
	exited  bool
}

func (t *thread) park(r *Run) {
	<-t.wake
	if r.aborting {
		panic(runAborted{})
	}
}

// A Run is a single execution of the body function under exploration.
//
// The body executes on the coordinating thread (thread 0). It spawns worker
// threads with Go and waits for them with Join. Every instrumented operation
// is a scheduling point where the run scheduler selects the next thread to
// execute, so that repeated runs cover the possible interleavings.
//
// All methods must be called from inside the run. A Run must not be retained
// after the body returns.
type Run struct {
	sch scheduler.RunScheduler

	cur      *thread
	main     *thread
	threads  []*thread
	runnable []*thread
	nextID   int

	liveWorkers int
	joinWaiting bool
	exitClocks  []vclock

	depth    int
	maxDepth int

	// the branch choices made so far, usable with a replay scheduler
	path []int

	err      error
	done     chan struct{}
	finished bool
	aborting bool

	wg sync.WaitGroup
}

func newRun(sch scheduler.RunScheduler, maxDepth int) *Run {
	r := &Run{
		sch:      sch,
		maxDepth: maxDepth,
		done:     make(chan struct{}),
	}
	r.main = r.addThread()
	r.cur = r.main
	r.runnable = append(r.runnable, r.main)
	return r
}

func (r *Run) addThread() *thread {
	t := &thread{
		id:      r.nextID,
		wake:    make(chan struct{}, 1),
		lastIdx: map[*location]int{},
	}
	r.nextID++
	r.threads = append(r.threads, t)
	return t
}

// Go spawns a new worker thread executing f.
//
// Spawning establishes a happens-before relation between the spawning thread
// and the new thread, so everything written before the spawn is visible to it.
func (r *Run) Go(f func()) {
	t := r.addThread()
	t.clock = r.cur.clock.clone()
	t.clock.tick(t.id)
	r.liveWorkers++
	r.runnable = append(r.runnable, t)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if p := recover(); p != nil {
				if _, ok := p.(runAborted); ok {
					return
				}
				r.fail(&PanicError{Thread: t.id, Value: p, Stack: debug.Stack()})
			}
		}()
		t.park(r)
		f()
		r.exitWorker(t)
	}()
	r.sched()
}

// Join blocks the coordinating thread until every spawned worker has finished.
//
// Joining establishes a happens-before relation between the workers and the
// coordinating thread, so everything the workers wrote is visible after Join.
func (r *Run) Join() {
	if r.cur != r.main {
		panic("explorer: Join must be called from the coordinating thread")
	}
	if r.liveWorkers > 0 {
		r.joinWaiting = true
		r.block()
	}
	for _, c := range r.exitClocks {
		r.main.clock.join(c)
	}
	r.exitClocks = r.exitClocks[:0]
}

// Sched is an explicit scheduling point.
func (r *Run) Sched() {
	r.sched()
}

// Path returns the branch choices made so far in this run.
func (r *Run) Path() []int {
	out := make([]int, len(r.path))
	copy(out, r.path)
	return out
}

func (r *Run) sched() {
	if r.aborting {
		panic(runAborted{})
	}
	r.depth++
	if r.depth > r.maxDepth {
		r.abort(&DepthError{MaxDepth: r.maxDepth})
	}
	next := r.runnable[r.pick(len(r.runnable))]
	if next == r.cur {
		return
	}
	prev := r.cur
	r.cur = next
	next.wake <- struct{}{}
	prev.park(r)
}

// block removes the current thread from the runnable set and hands control to
// another thread. It returns when some thread has called unblock on the
// current thread and the scheduler has selected it again.
func (r *Run) block() {
	t := r.cur
	r.removeRunnable(t)
	if len(r.runnable) == 0 {
		r.abort(&DeadlockError{Blocked: r.blockedIDs()})
	}
	next := r.runnable[r.pick(len(r.runnable))]
	r.cur = next
	next.wake <- struct{}{}
	t.park(r)
}

func (r *Run) unblock(t *thread) {
	r.runnable = append(r.runnable, t)
}

func (r *Run) exitWorker(t *thread) {
	t.exited = true
	r.removeRunnable(t)
	r.liveWorkers--
	r.exitClocks = append(r.exitClocks, t.clock)
	if r.liveWorkers == 0 && r.joinWaiting {
		r.joinWaiting = false
		r.unblock(r.main)
	}

	if len(r.runnable) == 0 {
		// This thread is gone and every remaining thread is blocked.
		r.fail(&DeadlockError{Blocked: r.blockedIDs()})
		return
	}
	next := r.runnable[r.pick(len(r.runnable))]
	r.cur = next
	next.wake <- struct{}{}
}

func (r *Run) exitMain() {
	r.main.exited = true
	r.removeRunnable(r.main)
	r.finish()
}

func (r *Run) removeRunnable(t *thread) {
	for i, other := range r.runnable {
		if other == t {
			r.runnable = append(r.runnable[:i], r.runnable[i+1:]...)
			return
		}
	}
}

func (r *Run) blockedIDs() []int {
	ids := []int{}
	for _, t := range r.threads {
		if !t.exited {
			ids = append(ids, t.id)
		}
	}
	return ids
}

// pick makes a branch choice through the run scheduler.
// Choices with a single branch are not reported to the scheduler.
func (r *Run) pick(n int) int {
	if n <= 1 {
		return 0
	}
	c, err := r.sch.Pick(n)
	if err != nil {
		r.abort(err)
	}
	r.path = append(r.path, c)
	return c
}

// advance increments the logical clock of the current thread.
// Called at the start of every instrumented operation.
func (r *Run) advance() {
	r.cur.clock.tick(r.cur.id)
}

// fail records the first failure of the run and ends it.
// Runs are single-threaded in the cooperative sense, so no locking is needed.
func (r *Run) fail(err error) {
	if r.finished {
		return
	}
	r.err = err
	r.finish()
}

func (r *Run) finish() {
	if r.finished {
		return
	}
	r.finished = true
	close(r.done)
}

// abort fails the run and unwinds the calling thread.
func (r *Run) abort(err error) {
	r.fail(err)
	panic(runAborted{})
}
