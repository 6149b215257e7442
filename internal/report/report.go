// Package report renders patch results for operators.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/asynkron/whippatch/pkg/patch"
)

// Printer writes human readable status lines. Output is advisory only.
type Printer struct {
	out      io.Writer
	header   lipgloss.Style
	success  lipgloss.Style
	warning  lipgloss.Style
	failure  lipgloss.Style
	faint    lipgloss.Style
	inserted lipgloss.Style
	deleted  lipgloss.Style
}

// New creates a Printer whose colour support is detected from w.
func New(w io.Writer) *Printer {
	return newPrinter(w, lipgloss.NewRenderer(w))
}

// NewPlain creates a Printer that never emits ANSI escape sequences.
func NewPlain(w io.Writer) *Printer {
	r := lipgloss.NewRenderer(w)
	r.SetColorProfile(termenv.Ascii)
	return newPrinter(w, r)
}

func newPrinter(w io.Writer, r *lipgloss.Renderer) *Printer {
	return &Printer{
		out:      w,
		header:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("63")),
		success:  r.NewStyle().Foreground(lipgloss.Color("70")),
		warning:  r.NewStyle().Foreground(lipgloss.Color("214")),
		failure:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
		faint:    r.NewStyle().Foreground(lipgloss.Color("244")),
		inserted: r.NewStyle().Foreground(lipgloss.Color("70")),
		deleted:  r.NewStyle().Foreground(lipgloss.Color("196")),
	}
}

// Result prints the fixed summary for a patch run: a headline, one numbered
// line per applied step in report order followed by the notes of applied
// steps, and one warning line per skipped step.
func (p *Printer) Result(steps []patch.Step, result patch.Result) {
	byName := make(map[string]patch.Step, len(steps))
	for _, s := range steps {
		byName[s.Name] = s
	}

	switch {
	case result.Written:
		fmt.Fprintln(p.out, p.success.Render("✅ Patch applied to "+result.Path))
	case result.Changed:
		fmt.Fprintln(p.out, p.header.Render("🔍 Dry run: "+result.Path+" was not modified"))
	default:
		fmt.Fprintln(p.out, p.warning.Render("No changes made to "+result.Path))
	}
	if result.BackupPath != "" {
		fmt.Fprintln(p.out, p.faint.Render("Original saved to "+result.BackupPath))
	}

	var done []patch.Outcome
	for _, o := range result.Outcomes {
		if o.Applied() {
			done = append(done, o)
		}
	}
	sort.SliceStable(done, func(i, j int) bool {
		return reportOrder(byName[done[i].Step], done[i]) < reportOrder(byName[done[j].Step], done[j])
	})
	var applied, notes []string
	for _, o := range done {
		step := byName[o.Step]
		applied = append(applied, describe(step, o))
		notes = append(notes, step.Notes...)
	}
	if len(applied) > 0 {
		fmt.Fprintln(p.out, "Changes:")
		n := 0
		for _, line := range append(applied, notes...) {
			n++
			fmt.Fprintf(p.out, "  %d. %s\n", n, line)
		}
	}

	for _, o := range result.Outcomes {
		if o.Applied() {
			continue
		}
		step := byName[o.Step]
		reason := "no match"
		if o.Status == patch.StatusAlreadyApplied {
			reason = "already applied"
		}
		fmt.Fprintln(p.out, p.warning.Render(fmt.Sprintf("  ⚠ skipped %s: %s", describe(step, o), reason)))
	}
}

func reportOrder(step patch.Step, o patch.Outcome) int {
	if step.ReportOrder > 0 {
		return step.ReportOrder
	}
	return o.Number
}

func describe(step patch.Step, o patch.Outcome) string {
	if s := strings.TrimSpace(step.Summary); s != "" {
		return s
	}
	return o.Step
}

// Diff prints a coloured line diff between the original and patched text.
func (p *Printer) Diff(result patch.Result, context int) {
	lines := LineDiff(result.Original, result.Patched, context)
	if len(lines) == 0 {
		return
	}
	fmt.Fprintln(p.out, p.header.Render("--- a/"+result.Path))
	fmt.Fprintln(p.out, p.header.Render("+++ b/"+result.Path))
	for _, line := range lines {
		switch line.Op {
		case LineInsert:
			fmt.Fprintln(p.out, p.inserted.Render("+"+line.Text))
		case LineDelete:
			fmt.Fprintln(p.out, p.deleted.Render("-"+line.Text))
		case LineElided:
			fmt.Fprintln(p.out, p.faint.Render("@@ … @@"))
		default:
			fmt.Fprintln(p.out, " "+line.Text)
		}
	}
}

// Error prints a formatted failure.
func (p *Printer) Error(err error) {
	fmt.Fprintln(p.out, p.failure.Render("❌ "+patch.FormatError(err)))
}
