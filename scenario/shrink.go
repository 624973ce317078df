package scenario

import (
	"sort"

	"golang.org/x/exp/slices"

	"lincheck/strategy"
)

// Candidates proposes smaller scenarios, in the order the shrinking tactics
// try them:
//
//  1. drop a single operation, from the longest segment first;
//  2. replace a single operation with a simpler one, as proposed by the
//     operation strategy;
//  3. merge two adjacent parallel threads by interleaving their sequences.
//
// The caller keeps a candidate only if it still reproduces the failure, and
// restarts shrinking from the kept candidate. When no candidate reproduces
// the failure the current scenario is minimal with respect to these tactics.
func (s Scenario[Op]) Candidates(ops strategy.Strategy[Op]) []Scenario[Op] {
	out := []Scenario[Op]{}
	out = append(out, s.dropCandidates()...)
	out = append(out, s.replaceCandidates(ops)...)
	out = append(out, s.mergeCandidates()...)
	return out
}

// A segment of a scenario. Thread is the worker index, or initSegment and
// postSegment for the serial parts.
const (
	initSegment = -1
	postSegment = -2
)

func (s Scenario[Op]) segment(id int) []Op {
	switch id {
	case initSegment:
		return s.Init
	case postSegment:
		return s.Post
	}
	return s.Parallel[id]
}

func (s Scenario[Op]) withSegment(id int, ops []Op) Scenario[Op] {
	out := s.Clone()
	switch id {
	case initSegment:
		out.Init = ops
	case postSegment:
		out.Post = ops
	default:
		out.Parallel[id] = ops
	}
	return out
}

func (s Scenario[Op]) segmentIDs() []int {
	ids := []int{initSegment}
	for t := range s.Parallel {
		ids = append(ids, t)
	}
	return append(ids, postSegment)
}

func (s Scenario[Op]) dropCandidates() []Scenario[Op] {
	ids := s.segmentIDs()
	sort.SliceStable(ids, func(i, j int) bool {
		return len(s.segment(ids[i])) > len(s.segment(ids[j]))
	})

	out := []Scenario[Op]{}
	for _, id := range ids {
		ops := s.segment(id)
		for i := range ops {
			dropped := slices.Clone(ops)
			dropped = append(dropped[:i], dropped[i+1:]...)
			out = append(out, s.withSegment(id, dropped))
		}
	}
	return out
}

func (s Scenario[Op]) replaceCandidates(strat strategy.Strategy[Op]) []Scenario[Op] {
	out := []Scenario[Op]{}
	for _, id := range s.segmentIDs() {
		ops := s.segment(id)
		for i, op := range ops {
			for _, simpler := range strat.Shrink(op) {
				replaced := slices.Clone(ops)
				replaced[i] = simpler
				out = append(out, s.withSegment(id, replaced))
			}
		}
	}
	return out
}

func (s Scenario[Op]) mergeCandidates() []Scenario[Op] {
	out := []Scenario[Op]{}
	for t := 0; t+1 < len(s.Parallel); t++ {
		merged := s.Clone()
		merged.Parallel[t] = interleave(merged.Parallel[t], merged.Parallel[t+1])
		merged.Parallel = append(merged.Parallel[:t+1], merged.Parallel[t+2:]...)
		out = append(out, merged)
	}
	return out
}

// interleave zips the two sequences, alternating their operations for as long
// as both last.
func interleave[Op any](a, b []Op) []Op {
	out := make([]Op, 0, len(a)+len(b))
	for i := 0; i < len(a) || i < len(b); i++ {
		if i < len(a) {
			out = append(out, a[i])
		}
		if i < len(b) {
			out = append(out, b[i])
		}
	}
	return out
}
