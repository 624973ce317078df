package explorer

// Instrumented atomic values.
//
// These replace the sync/atomic types in code under exploration. Every
// operation is a scheduling point, and loads may observe stale values
// according to the requested memory ordering and the weak-memory model.

// An instrumented atomic boolean.
type AtomicBool struct {
	loc *location
}

func NewAtomicBool(r *Run, v bool) *AtomicBool {
	return &AtomicBool{loc: r.newLocation(v)}
}

func (a *AtomicBool) Load(ord Ordering) bool {
	return a.loc.load(ord).(bool)
}

func (a *AtomicBool) Store(v bool, ord Ordering) {
	a.loc.store(v, ord)
}

func (a *AtomicBool) Swap(v bool, ord Ordering) bool {
	return a.loc.rmw(func(old any) (any, bool) {
		return v, true
	}).(bool)
}

func (a *AtomicBool) CompareAndSwap(old, new bool, ord Ordering) bool {
	swapped := false
	a.loc.rmw(func(cur any) (any, bool) {
		if cur.(bool) == old {
			swapped = true
			return new, true
		}
		return cur, false
	})
	return swapped
}

// An instrumented atomic integer.
type AtomicInt struct {
	loc *location
}

func NewAtomicInt(r *Run, v int) *AtomicInt {
	return &AtomicInt{loc: r.newLocation(v)}
}

func (a *AtomicInt) Load(ord Ordering) int {
	return a.loc.load(ord).(int)
}

func (a *AtomicInt) Store(v int, ord Ordering) {
	a.loc.store(v, ord)
}

// Add atomically adds delta and returns the new value.
func (a *AtomicInt) Add(delta int, ord Ordering) int {
	old := a.loc.rmw(func(cur any) (any, bool) {
		return cur.(int) + delta, true
	}).(int)
	return old + delta
}

func (a *AtomicInt) Swap(v int, ord Ordering) int {
	return a.loc.rmw(func(old any) (any, bool) {
		return v, true
	}).(int)
}

func (a *AtomicInt) CompareAndSwap(old, new int, ord Ordering) bool {
	swapped := false
	a.loc.rmw(func(cur any) (any, bool) {
		if cur.(int) == old {
			swapped = true
			return new, true
		}
		return cur, false
	})
	return swapped
}

// An instrumented atomic reference to a value of type V.
// V must be comparable so that CompareAndSwap is meaningful.
type AtomicRef[V comparable] struct {
	loc *location
}

func NewAtomicRef[V comparable](r *Run, v V) *AtomicRef[V] {
	return &AtomicRef[V]{loc: r.newLocation(v)}
}

func (a *AtomicRef[V]) Load(ord Ordering) V {
	return a.loc.load(ord).(V)
}

func (a *AtomicRef[V]) Store(v V, ord Ordering) {
	a.loc.store(v, ord)
}

func (a *AtomicRef[V]) Swap(v V, ord Ordering) V {
	return a.loc.rmw(func(old any) (any, bool) {
		return v, true
	}).(V)
}

func (a *AtomicRef[V]) CompareAndSwap(old, new V, ord Ordering) bool {
	swapped := false
	a.loc.rmw(func(cur any) (any, bool) {
		if cur.(V) == old {
			swapped = true
			return new, true
		}
		return cur, false
	})
	return swapped
}
