package lincheck

import (
	"fmt"
	"strings"

	"lincheck/history"
	"lincheck/scenario"
)

// Kind classifies why a verification failed.
type Kind int

const (
	// The checker rejected an observed execution.
	NonLinearizable Kind = iota

	// User code panicked inside Observe.
	PanicInObserve

	// The explorer diagnosed the run itself: a deadlock, a data race or an
	// excessive depth.
	ExplorerDiagnosed

	// The operation strategy produced no valid scenario within the retry
	// budget.
	GenerationExhausted
)

func (k Kind) String() string {
	switch k {
	case NonLinearizable:
		return "NonLinearizable"
	case PanicInObserve:
		return "PanicInObserve"
	case ExplorerDiagnosed:
		return "ExplorerDiagnosed"
	case GenerationExhausted:
		return "GenerationExhausted"
	}
	return "Unknown"
}

// A Failure describes why a verification failed. It reports the minimized
// scenario found by shrinking, together with the offending execution.
//
// Failure implements error. The Error text contains the full counterexample
// as a banded table, so it can be handed directly to the test framework.
type Failure[Op, Ret any] struct {
	Kind Kind

	// The minimized failing scenario.
	Scenario scenario.Scenario[Op]

	// The offending execution. For PanicInObserve this is the transcript of
	// the operations completed before the panic. Nil for GenerationExhausted.
	Execution *history.Execution[Op, Ret]

	// The worker thread the panic occurred on, or -1 for the coordinating
	// thread. Only meaningful for PanicInObserve.
	Thread int

	// The operation Observe was executing when it panicked.
	// Only meaningful for PanicInObserve.
	Op Op

	// The recovered panic value. Only meaningful for PanicInObserve.
	PanicValue any

	// The explorer's diagnosis for ExplorerDiagnosed, or the generation
	// error for GenerationExhausted.
	Diagnosis string

	format func(Op, Ret) string
}

func (f *Failure[Op, Ret]) Error() string {
	var b strings.Builder
	switch f.Kind {
	case NonLinearizable:
		b.WriteString("Non-linearizable execution:\n\n")
		b.WriteString(f.Execution.Render(f.format))
	case PanicInObserve:
		thread := "the main thread"
		if f.Thread >= 0 {
			thread = fmt.Sprintf("thread %v", f.Thread)
		}
		fmt.Fprintf(&b, "Panic while executing %s on %s: %v\n", history.RenderValue(f.Op), thread, f.PanicValue)
		if f.Execution != nil && f.transcriptNonEmpty() {
			b.WriteString("\nExecution until the panic:\n\n")
			b.WriteString(f.Execution.Render(f.format))
		}
	case ExplorerDiagnosed:
		fmt.Fprintf(&b, "Execution aborted: %s\n", f.Diagnosis)
		if f.Execution != nil && f.transcriptNonEmpty() {
			b.WriteString("\nExecution until the abort:\n\n")
			b.WriteString(f.Execution.Render(f.format))
		}
	case GenerationExhausted:
		fmt.Fprintf(&b, "No scenario could be generated: %s\n", f.Diagnosis)
	}
	return b.String()
}

func (f *Failure[Op, Ret]) transcriptNonEmpty() bool {
	return len(f.Execution.Init)+len(f.Execution.Parallel)+len(f.Execution.Post) > 0
}
