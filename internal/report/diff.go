package report

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// LineOp classifies a line in a diff.
type LineOp int

const (
	LineEqual LineOp = iota
	LineInsert
	LineDelete
	LineElided
)

// DiffLine is one rendered line of a line-oriented diff.
type DiffLine struct {
	Op   LineOp
	Text string
}

// LineDiff computes a line-level diff between before and after. Unchanged
// runs longer than 2*context lines are collapsed into a single LineElided
// entry. A negative context keeps every line.
func LineDiff(before, after string, context int) []DiffLine {
	if before == after {
		return nil
	}
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var out []DiffLine
	for _, d := range diffs {
		op := LineEqual
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			op = LineInsert
		case diffmatchpatch.DiffDelete:
			op = LineDelete
		}
		for _, line := range splitLines(d.Text) {
			out = append(out, DiffLine{Op: op, Text: line})
		}
	}
	if context < 0 {
		return out
	}
	return collapse(out, context)
}

func collapse(lines []DiffLine, context int) []DiffLine {
	var out []DiffLine
	for i := 0; i < len(lines); {
		if lines[i].Op != LineEqual {
			out = append(out, lines[i])
			i++
			continue
		}
		j := i
		for j < len(lines) && lines[j].Op == LineEqual {
			j++
		}
		run := lines[i:j]
		head, tail := context, context
		if i == 0 {
			head = 0
		}
		if j == len(lines) {
			tail = 0
		}
		if len(run) <= head+tail {
			out = append(out, run...)
		} else {
			out = append(out, run[:head]...)
			out = append(out, DiffLine{Op: LineElided})
			out = append(out, run[len(run)-tail:]...)
		}
		i = j
	}
	return out
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}

// UnifiedText renders diff lines using +/- prefixes.
func UnifiedText(lines []DiffLine) string {
	var b strings.Builder
	for _, line := range lines {
		switch line.Op {
		case LineInsert:
			b.WriteString("+" + line.Text)
		case LineDelete:
			b.WriteString("-" + line.Text)
		case LineElided:
			b.WriteString("@@ … @@")
		default:
			b.WriteString(" " + line.Text)
		}
		b.WriteString("\n")
	}
	return b.String()
}
