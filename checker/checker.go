// Package checker decides whether an observed execution is linearizable with
// respect to a sequential reference model.
package checker

import (
	"reflect"

	"github.com/bits-and-blooms/bitset"

	"lincheck/history"
)

// A Model is the sequential reference a concurrent execution is checked
// against.
//
// The model must be deterministic: applying the same operations from the
// initial state must produce the same results.
type Model[S, Op, Ret any] struct {
	// New returns the reference in its initial state.
	New func() S

	// Apply executes op against the reference, mutating it, and returns the
	// expected result.
	Apply func(S, Op) Ret

	// Clone returns an independent copy of the reference state.
	// The search clones the state at every node, so cloning should be cheap.
	Clone func(S) S

	// Equal compares an expected and an observed return value.
	Equal func(Ret, Ret) bool

	// EqualState compares two reference states when deciding whether a
	// search node was already explored. Defaults to reflect.DeepEqual.
	EqualState func(S, S) bool
}

// Check reports whether the execution admits a linearization: a total order
// of the parallel invocations that respects every thread's program order and,
// replayed between the init and post segments against a fresh model,
// reproduces every observed return value.
//
// The search explores the per-thread cursor space depth first, expanding
// threads in increasing id order so that the accepted linearization is
// deterministic. A search node is identified by the set of already
// linearized invocations together with the reference state they produced;
// nodes that admit no extension are memoized and skipped when the same set
// reaches the same state again through a different order. The set alone is
// not a sound key: two orders over the same invocations can leave a
// non-commutative reference in different states, and a dead end from one
// state says nothing about the other.
func Check[S, Op, Ret any](m Model[S, Op, Ret], x *history.Execution[Op, Ret]) bool {
	if m.EqualState == nil {
		m.EqualState = func(a, b S) bool { return reflect.DeepEqual(a, b) }
	}

	s := m.New()
	for _, inv := range x.Init {
		if !m.Equal(m.Apply(s, inv.Op), inv.Ret) {
			return false
		}
	}

	parts := x.ThreadParts()
	offsets := make([]uint, len(parts))
	total := 0
	for t, part := range parts {
		offsets[t] = uint(total)
		total += len(part)
	}

	c := &search[S, Op, Ret]{
		m:          m,
		parts:      parts,
		offsets:    offsets,
		post:       x.Post,
		cursors:    make([]int, len(parts)),
		total:      total,
		linearized: bitset.New(uint(total)),
		cache:      map[uint64][]cacheEntry[S]{},
	}
	return c.linearize(s)
}

// A memoized dead end: the set of linearized invocations together with the
// reference state it produced. Both must match for a node to count as
// already explored.
type cacheEntry[S any] struct {
	linearized *bitset.BitSet
	state      S
}

type search[S, Op, Ret any] struct {
	m Model[S, Op, Ret]

	parts   [][]history.ParallelInvocation[Op, Ret]
	offsets []uint
	post    []history.Invocation[Op, Ret]

	cursors []int
	placed  int
	total   int

	// the set of already linearized invocations, identifying the search node
	// together with the reference state
	linearized *bitset.BitSet

	// dead-end nodes, bucketed by the hash of the invocation set
	cache map[uint64][]cacheEntry[S]
}

func (c *search[S, Op, Ret]) linearize(s S) bool {
	if c.placed == c.total {
		return c.replayPost(s)
	}
	if c.seen(s) {
		return false
	}

	for t := range c.parts {
		if c.cursors[t] == len(c.parts[t]) {
			continue
		}
		inv := c.parts[t][c.cursors[t]]
		next := c.m.Clone(s)
		if !c.m.Equal(c.m.Apply(next, inv.Op), inv.Ret) {
			continue
		}

		id := c.offsets[t] + uint(c.cursors[t])
		c.cursors[t]++
		c.placed++
		c.linearized.Set(id)

		if c.linearize(next) {
			return true
		}

		c.cursors[t]--
		c.placed--
		c.linearized.Clear(id)
	}

	c.remember(s)
	return false
}

func (c *search[S, Op, Ret]) replayPost(s S) bool {
	// The post segment may fail for this linearization while another one
	// still succeeds, so it replays against a copy.
	s = c.m.Clone(s)
	for _, inv := range c.post {
		if !c.m.Equal(c.m.Apply(s, inv.Op), inv.Ret) {
			return false
		}
	}
	return true
}

func (c *search[S, Op, Ret]) seen(s S) bool {
	for _, cached := range c.cache[hashBits(c.linearized)] {
		if cached.linearized.Equal(c.linearized) && c.m.EqualState(cached.state, s) {
			return true
		}
	}
	return false
}

func (c *search[S, Op, Ret]) remember(s S) {
	// s is owned by this node (the parent applied the op to its own clone),
	// so it is safe to retain in the cache.
	h := hashBits(c.linearized)
	c.cache[h] = append(c.cache[h], cacheEntry[S]{
		linearized: c.linearized.Clone(),
		state:      s,
	})
}

func hashBits(b *bitset.BitSet) uint64 {
	// FNV-1a over the words of the set
	h := uint64(14695981039346656037)
	for _, w := range b.Bytes() {
		h ^= w
		h *= 1099511628211
	}
	return h
}
