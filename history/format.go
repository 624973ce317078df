package history

import (
	"fmt"
	"strings"

	"github.com/davecgh/go-spew/spew"
)

// Format renders an operation and its return value the way the
// counterexample tables quote them.
//
// Values implementing fmt.Stringer render themselves. Everything else is
// rendered by go-spew, which follows pointers instead of printing addresses,
// so the rendering stays stable across runs.
func Format[Op, Ret any](op Op, ret Ret) string {
	return render(op) + " : " + render(ret)
}

func render(v any) string {
	if s, ok := v.(fmt.Stringer); ok {
		return s.String()
	}
	return spew.Sprintf("%v", v)
}

// RenderValue renders a single operation or return value the way Format does.
func RenderValue(v any) string {
	return render(v)
}

// Render produces the three-band table representation of the execution:
//
//	INIT PART:     one column, MAIN THREAD
//	PARALLEL PART: one column per worker thread, rows ordered by completion
//	POST PART:     one column, MAIN THREAD
//
// Cells render as "Op : Ret" with format, column widths adapt to the longest
// cell, and empty sections are omitted. The layout is part of the reporting
// contract and is kept stable.
func (x *Execution[Op, Ret]) Render(format func(Op, Ret) string) string {
	if format == nil {
		format = Format[Op, Ret]
	}
	var b strings.Builder
	if len(x.Init) > 0 {
		b.WriteString("INIT PART:\n")
		b.WriteString(renderSerial(x.Init, format))
		b.WriteString("\n")
	}
	if len(x.Parallel) > 0 {
		b.WriteString("PARALLEL PART:\n")
		b.WriteString(renderParallel(x, format))
		b.WriteString("\n")
	}
	if len(x.Post) > 0 {
		b.WriteString("POST PART:\n")
		b.WriteString(renderSerial(x.Post, format))
		b.WriteString("\n")
	}
	return b.String()
}

func renderSerial[Op, Ret any](invs []Invocation[Op, Ret], format func(Op, Ret) string) string {
	spans := make([]cellsSpan, 0, len(invs))
	for _, inv := range invs {
		spans = append(spans, contentSpan(2, format(inv.Op, inv.Ret)))
	}
	return renderTable([]column{{header: "MAIN THREAD", spans: spans}})
}

func renderParallel[Op, Ret any](x *Execution[Op, Ret], format func(Op, Ret) string) string {
	parts := x.ThreadParts()

	// The columns are padded to the latest completion, so that every column
	// spans the same number of rows.
	maxReturn := 0
	for _, part := range parts {
		if len(part) > 0 && part[len(part)-1].Return > maxReturn {
			maxReturn = part[len(part)-1].Return
		}
	}

	cols := make([]column, 0, len(parts))
	for t, part := range parts {
		spans := []cellsSpan{}
		prev := -1
		for _, inv := range part {
			if inv.Call > prev+1 {
				spans = append(spans, gapSpan(inv.Call-prev-1))
			}
			spans = append(spans, contentSpan(inv.Return-inv.Call+1, format(inv.Op, inv.Ret)))
			prev = inv.Return
		}
		if prev < maxReturn {
			spans = append(spans, gapSpan(maxReturn-prev))
		}
		cols = append(cols, column{header: fmt.Sprintf("THREAD %v", t), spans: spans})
	}
	return renderTable(cols)
}

// A span covering one or more vertically adjacent cells of a column.
// Gap spans have no content and render blank.
type cellsSpan struct {
	lenInCells int
	content    string
	hasContent bool
}

func contentSpan(cells int, content string) cellsSpan {
	return cellsSpan{lenInCells: cells, content: content, hasContent: true}
}

func gapSpan(cells int) cellsSpan {
	return cellsSpan{lenInCells: cells}
}

// Every cell is cellHeight lines tall, sharing one separator line with the
// next span.
const cellHeight = 2

func (s cellsSpan) lenInLines() int {
	return s.lenInCells*cellHeight - 1
}

type column struct {
	header string
	spans  []cellsSpan
}

type spanState int

const (
	stateNextSpan spanState = iota
	stateSeparator
	stateInSpan
	stateFinished
)

type columnState struct {
	current   int
	state     spanState
	remaining int
}

func renderTable(cols []column) string {
	widths := make([]int, len(cols))
	for i, col := range cols {
		w := len(col.header) + 2
		for _, s := range col.spans {
			if s.hasContent && len(s.content)+2 > w {
				w = len(s.content) + 2
			}
		}
		widths[i] = w
	}

	var b strings.Builder

	headerSeparator := func() {
		b.WriteString("|")
		for _, w := range widths {
			b.WriteString(strings.Repeat("=", w))
			b.WriteString("|")
		}
		b.WriteString("\n")
	}

	headerSeparator()
	b.WriteString("|")
	for i, col := range cols {
		b.WriteString(center(col.header, widths[i]))
		b.WriteString("|")
	}
	b.WriteString("\n")
	headerSeparator()

	states := make([]columnState, len(cols))
	for i, col := range cols {
		if len(col.spans) == 0 {
			states[i].state = stateFinished
		}
	}

	unfinished := func() bool {
		for _, st := range states {
			if st.state != stateFinished {
				return true
			}
		}
		return false
	}

	for unfinished() {
		b.WriteString("|")
		for i := range cols {
			st := &states[i]
			col := &cols[i]
			w := widths[i]

			for {
				if st.state == stateNextSpan {
					st.remaining = col.spans[st.current].lenInLines()
					st.state = stateInSpan
					continue
				}
				if st.state == stateInSpan && st.remaining == 0 {
					st.state = stateSeparator
					continue
				}

				switch st.state {
				case stateSeparator:
					b.WriteString(strings.Repeat("-", w))
					st.current++
					if st.current == len(col.spans) {
						st.state = stateFinished
					} else {
						st.state = stateNextSpan
					}
				case stateInSpan:
					span := col.spans[st.current]
					content := ""
					// the content goes on the middle line of the span
					if span.hasContent && st.remaining == (span.lenInLines()+1)/2 {
						content = span.content
					}
					b.WriteString(center(content, w))
					st.remaining--
				case stateFinished:
					b.WriteString(strings.Repeat(" ", w))
				}
				break
			}
			b.WriteString("|")
		}
		b.WriteString("\n")
	}
	return b.String()
}

func center(s string, w int) string {
	pad := w - len(s)
	if pad <= 0 {
		return s
	}
	left := pad / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", pad-left)
}
