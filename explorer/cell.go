package explorer

import "fmt"

// A Cell is an instrumented unsynchronized memory cell.
//
// Accesses are checked for data races with vector clocks, in the style of the
// FastTrack race detectors: a write must be ordered after every previous
// access, and a read must be ordered after the previous write. An unordered
// pair of accesses aborts the run with a DataRaceError.
//
// A Cell read always observes the newest value. Stale reads are the domain of
// the atomic types; unsynchronized code that could observe them is reported
// as racy instead.
type Cell[V any] struct {
	r *Run
	v V

	writer    int
	writeTick int
	readers   vclock
}

func NewCell[V any](r *Run, v V) *Cell[V] {
	r.advance()
	return &Cell[V]{
		r:         r,
		v:         v,
		writer:    r.cur.id,
		writeTick: r.cur.clock.get(r.cur.id),
	}
}

func (c *Cell[V]) Load() V {
	r := c.r
	t := r.cur
	r.advance()
	if c.writeTick > t.clock.get(c.writer) {
		r.abort(&DataRaceError{
			Thread:   t.id,
			Conflict: fmt.Sprintf("read on thread %v is not ordered with a write on thread %v", t.id, c.writer),
		})
	}
	c.readers.set(t.id, t.clock.get(t.id))
	v := c.v
	r.sched()
	return v
}

func (c *Cell[V]) Store(v V) {
	r := c.r
	t := r.cur
	r.advance()
	if c.writeTick > t.clock.get(c.writer) {
		r.abort(&DataRaceError{
			Thread:   t.id,
			Conflict: fmt.Sprintf("write on thread %v is not ordered with a write on thread %v", t.id, c.writer),
		})
	}
	for id, tick := range c.readers {
		if tick > t.clock.get(id) {
			r.abort(&DataRaceError{
				Thread:   t.id,
				Conflict: fmt.Sprintf("write on thread %v is not ordered with a read on thread %v", t.id, id),
			})
		}
	}
	c.v = v
	c.writer = t.id
	c.writeTick = t.clock.get(t.id)
	c.readers = nil
	r.sched()
}
