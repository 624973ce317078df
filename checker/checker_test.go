package checker

import (
	"testing"

	"golang.org/x/exp/slices"

	"lincheck/history"
)

// A stack is the usual example of a structure whose linearizations are easy
// to reason about by hand.

type stackOp struct {
	push bool
	v    int
}

func push(v int) stackOp { return stackOp{push: true, v: v} }
func pop() stackOp       { return stackOp{} }

type stackRet struct {
	v  int
	ok bool
}

type seqStack struct {
	values []int
}

func stackModel() Model[*seqStack, stackOp, stackRet] {
	return Model[*seqStack, stackOp, stackRet]{
		New: func() *seqStack { return &seqStack{} },
		Apply: func(s *seqStack, op stackOp) stackRet {
			if op.push {
				s.values = append(s.values, op.v)
				return stackRet{}
			}
			if len(s.values) == 0 {
				return stackRet{}
			}
			v := s.values[len(s.values)-1]
			s.values = s.values[:len(s.values)-1]
			return stackRet{v: v, ok: true}
		},
		Clone: func(s *seqStack) *seqStack {
			return &seqStack{values: slices.Clone(s.values)}
		},
		Equal: func(a, b stackRet) bool { return a == b },
	}
}

func serial(ops []stackOp, rets []stackRet) []history.Invocation[stackOp, stackRet] {
	invs := []history.Invocation[stackOp, stackRet]{}
	for i := range ops {
		invs = append(invs, history.Invocation[stackOp, stackRet]{Op: ops[i], Ret: rets[i]})
	}
	return invs
}

func TestInitAndPostPartsAreSequential(t *testing.T) {
	x := &history.Execution[stackOp, stackRet]{
		Init: serial(
			[]stackOp{push(1), push(2)},
			[]stackRet{{}, {}},
		),
		Post: serial(
			[]stackOp{pop(), pop()},
			[]stackRet{{v: 2, ok: true}, {v: 1, ok: true}},
		),
	}
	if !Check(stackModel(), x) {
		t.Errorf("Expected the sequential execution to be linearizable")
	}
}

func TestInitMismatchRejectsImmediately(t *testing.T) {
	x := &history.Execution[stackOp, stackRet]{
		Init: serial(
			[]stackOp{push(1), pop()},
			[]stackRet{{}, {v: 2, ok: true}},
		),
	}
	if Check(stackModel(), x) {
		t.Errorf("Expected the execution with a wrong init result to be rejected")
	}
}

func TestParallelPartOverlapping(t *testing.T) {
	// Two overlapping pops may resolve in either order.
	x := &history.Execution[stackOp, stackRet]{
		Init: serial(
			[]stackOp{push(1), push(2)},
			[]stackRet{{}, {}},
		),
		Parallel: []history.ParallelInvocation[stackOp, stackRet]{
			{Thread: 0, Call: 0, Return: 2, Op: pop(), Ret: stackRet{v: 2, ok: true}},
			{Thread: 1, Call: 1, Return: 3, Op: pop(), Ret: stackRet{v: 1, ok: true}},
		},
	}
	if !Check(stackModel(), x) {
		t.Errorf("Expected the overlapping pops to be linearizable")
	}

	// The reversed observation is just as valid.
	x.Parallel[0].Ret, x.Parallel[1].Ret = x.Parallel[1].Ret, x.Parallel[0].Ret
	if !Check(stackModel(), x) {
		t.Errorf("Expected the overlapping pops to be linearizable in the other order as well")
	}
}

func TestPerThreadOrderIsRespected(t *testing.T) {
	// On a single thread a pop cannot observe a value pushed later by the
	// same thread.
	x := &history.Execution[stackOp, stackRet]{
		Parallel: []history.ParallelInvocation[stackOp, stackRet]{
			{Thread: 0, Call: 0, Return: 1, Op: pop(), Ret: stackRet{v: 1, ok: true}},
			{Thread: 0, Call: 2, Return: 3, Op: push(1), Ret: stackRet{}},
		},
	}
	if Check(stackModel(), x) {
		t.Errorf("Expected the execution violating program order to be rejected")
	}
}

func TestRejectsValueNeverPushed(t *testing.T) {
	x := &history.Execution[stackOp, stackRet]{
		Parallel: []history.ParallelInvocation[stackOp, stackRet]{
			{Thread: 0, Call: 0, Return: 2, Op: push(1), Ret: stackRet{}},
			{Thread: 1, Call: 1, Return: 3, Op: pop(), Ret: stackRet{v: 2, ok: true}},
		},
	}
	if Check(stackModel(), x) {
		t.Errorf("Expected the pop of a never-pushed value to be rejected")
	}
}

func TestAcceptsBothOrdersOfConcurrentPushAndPop(t *testing.T) {
	base := []history.ParallelInvocation[stackOp, stackRet]{
		{Thread: 0, Call: 0, Return: 2, Op: push(1), Ret: stackRet{}},
		{Thread: 1, Call: 1, Return: 3, Op: pop(), Ret: stackRet{v: 1, ok: true}},
	}

	x := &history.Execution[stackOp, stackRet]{Parallel: base}
	if !Check(stackModel(), x) {
		t.Errorf("Expected pop observing the concurrent push to be linearizable")
	}

	// The pop may just as well be ordered before the push.
	empty := slices.Clone(base)
	empty[1].Ret = stackRet{}
	x = &history.Execution[stackOp, stackRet]{Parallel: empty}
	if !Check(stackModel(), x) {
		t.Errorf("Expected pop of the empty stack to be linearizable")
	}
}

func TestSameInvocationSetReachedInDifferentStates(t *testing.T) {
	// Both orders of the two pushes complete the same set of invocations but
	// leave the stack in different states, and only one of them lets the pop
	// succeed. The first-explored order is a dead end, which must not prune
	// the other.
	x := &history.Execution[stackOp, stackRet]{
		Parallel: []history.ParallelInvocation[stackOp, stackRet]{
			{Thread: 0, Call: 0, Return: 5, Op: push(2), Ret: stackRet{}},
			{Thread: 1, Call: 1, Return: 2, Op: push(1), Ret: stackRet{}},
			{Thread: 1, Call: 3, Return: 4, Op: pop(), Ret: stackRet{v: 2, ok: true}},
		},
	}
	if !Check(stackModel(), x) {
		t.Errorf("Expected the pop observing the other thread's push to be linearizable")
	}

	// The mirrored observation linearizes through the opposite push order.
	x.Parallel[2].Ret = stackRet{v: 1, ok: true}
	if !Check(stackModel(), x) {
		t.Errorf("Expected the pop observing its own thread's push to be linearizable")
	}
}

func TestCustomStateEquality(t *testing.T) {
	m := stackModel()
	equalCalls := 0
	m.EqualState = func(a, b *seqStack) bool {
		equalCalls++
		return slices.Equal(a.values, b.values)
	}

	x := &history.Execution[stackOp, stackRet]{
		Parallel: []history.ParallelInvocation[stackOp, stackRet]{
			{Thread: 0, Call: 0, Return: 5, Op: push(2), Ret: stackRet{}},
			{Thread: 1, Call: 1, Return: 2, Op: push(1), Ret: stackRet{}},
			{Thread: 1, Call: 3, Return: 4, Op: pop(), Ret: stackRet{v: 2, ok: true}},
		},
	}
	if !Check(m, x) {
		t.Errorf("Expected the execution to be linearizable with a custom state equality")
	}
	if equalCalls == 0 {
		t.Errorf("Expected the custom state equality to be consulted")
	}
}

func TestPostMismatchRejects(t *testing.T) {
	x := &history.Execution[stackOp, stackRet]{
		Init: serial([]stackOp{push(1)}, []stackRet{{}}),
		Parallel: []history.ParallelInvocation[stackOp, stackRet]{
			{Thread: 0, Call: 0, Return: 1, Op: pop(), Ret: stackRet{v: 1, ok: true}},
		},
		Post: serial([]stackOp{pop()}, []stackRet{{v: 1, ok: true}}),
	}
	if Check(stackModel(), x) {
		t.Errorf("Expected the execution with a wrong post result to be rejected")
	}
}

func TestEmptyExecutionIsLinearizable(t *testing.T) {
	x := &history.Execution[stackOp, stackRet]{}
	if !Check(stackModel(), x) {
		t.Errorf("Expected the empty execution to be linearizable")
	}
}

func TestLargerSymmetricHistory(t *testing.T) {
	// Many equivalent interleavings. This exercises the memoization: the
	// search must terminate quickly even though the number of orderings of
	// the pushes is large.
	parallel := []history.ParallelInvocation[stackOp, stackRet]{}
	for th := 0; th < 4; th++ {
		for i := 0; i < 3; i++ {
			parallel = append(parallel, history.ParallelInvocation[stackOp, stackRet]{
				Thread: th,
				Call:   2 * (3*th + i),
				Return: 2*(3*th+i) + 1,
				Op:     push(1),
				Ret:    stackRet{},
			})
		}
	}
	x := &history.Execution[stackOp, stackRet]{Parallel: parallel}
	if !Check(stackModel(), x) {
		t.Errorf("Expected the all-pushes history to be linearizable")
	}

	// An impossible pop forces the search to exhaust the whole space.
	x.Parallel = append(x.Parallel, history.ParallelInvocation[stackOp, stackRet]{
		Thread: 0, Call: 100, Return: 101, Op: pop(), Ret: stackRet{v: 9, ok: true},
	})
	if Check(stackModel(), x) {
		t.Errorf("Expected the pop of a never-pushed value to be rejected")
	}
}
