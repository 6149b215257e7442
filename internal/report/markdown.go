package report

import (
	"fmt"
	"strings"

	glam "github.com/charmbracelet/glamour"

	"github.com/asynkron/whippatch/pkg/patch"
)

// PlanMarkdown describes the ordered step list as a markdown table.
func PlanMarkdown(target string, steps []patch.Step) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Patch plan for `%s`\n\n", target)
	b.WriteString("| # | Step | Matcher | Cardinality | Change |\n")
	b.WriteString("|---|------|---------|-------------|--------|\n")
	for i, s := range steps {
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %s |\n", i+1, s.Name, s.Kind, s.Cardinality, escapeCell(s.Summary))
	}
	b.WriteString("\nSteps run in this order; a step that finds nothing is skipped.\n")
	return b.String()
}

// ResultMarkdown describes a computed result and its diff for review.
func ResultMarkdown(steps []patch.Step, result patch.Result, context int) string {
	byName := make(map[string]patch.Step, len(steps))
	for _, s := range steps {
		byName[s.Name] = s
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Review changes to `%s`\n\n", result.Path)
	for _, o := range result.Outcomes {
		box := "[x]"
		if !o.Applied() {
			box = "[ ]"
		}
		fmt.Fprintf(&b, "- %s **%s** %s (%s)\n", box, o.Step, describe(byName[o.Step], o), o.Status)
	}
	if !result.Changed {
		b.WriteString("\nNo step changed the file.\n")
		return b.String()
	}
	b.WriteString("\n```diff\n")
	b.WriteString(UnifiedText(LineDiff(result.Original, result.Patched, context)))
	b.WriteString("```\n")
	return b.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// RenderMarkdown renders markdown for the terminal. plain selects a style
// without colours for non-interactive output.
func RenderMarkdown(md string, width int, plain bool) (string, error) {
	if width < 10 {
		width = 10
	}
	style := "dark" // fixed style to avoid OSC queries
	if plain {
		style = "notty"
	}
	r, err := glam.NewTermRenderer(
		glam.WithStylePath(style),
		glam.WithWordWrap(width),
	)
	if err != nil {
		return "", err
	}
	return r.Render(md)
}
