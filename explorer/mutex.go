package explorer

// An instrumented mutex.
//
// Unlocking hands the mutex directly to one of the waiting threads. Which
// waiter is woken is a branch choice, so unfair wake orders are explored too.
// Lock and Unlock synchronize: everything written before an Unlock is visible
// after the next Lock.
type Mutex struct {
	r       *Run
	locked  bool
	waiters []*thread
	clock   vclock
}

func NewMutex(r *Run) *Mutex {
	return &Mutex{r: r}
}

func (m *Mutex) Lock() {
	r := m.r
	r.advance()
	if m.locked {
		m.waiters = append(m.waiters, r.cur)
		r.block()
		// the unlocking thread handed the mutex over to us, locked stays set
	} else {
		m.locked = true
	}
	if m.clock != nil {
		r.cur.clock.join(m.clock)
	}
	r.sched()
}

func (m *Mutex) Unlock() {
	r := m.r
	if !m.locked {
		panic("explorer: Unlock of an unlocked Mutex")
	}
	r.advance()
	m.clock = r.cur.clock.clone()
	if len(m.waiters) == 0 {
		m.locked = false
	} else {
		// Pick an arbitrary waiter to hand the mutex to.
		i := r.pick(len(m.waiters))
		t := m.waiters[i]
		m.waiters[i] = m.waiters[len(m.waiters)-1]
		m.waiters = m.waiters[:len(m.waiters)-1]
		r.unblock(t)
	}
	r.sched()
}
