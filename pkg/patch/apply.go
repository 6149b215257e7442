package patch

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// CompiledStep is a validated Step ready to be applied.
type CompiledStep struct {
	Step
	re *regexp.Regexp
}

// Compile validates a step and prepares its matcher.
func Compile(step Step) (*CompiledStep, error) {
	name := strings.TrimSpace(step.Name)
	if name == "" {
		return nil, &Error{Message: "step is missing a name", Code: CodeInvalidStep}
	}
	if step.Match == "" {
		return nil, &Error{Message: fmt.Sprintf("step %s has an empty matcher", name), Code: CodeInvalidStep, FailedStep: name}
	}
	switch step.Cardinality {
	case "":
		step.Cardinality = CardinalityAll
	case CardinalityFirst, CardinalityAll:
	default:
		return nil, &Error{Message: fmt.Sprintf("step %s has unsupported cardinality %q", name, step.Cardinality), Code: CodeInvalidStep, FailedStep: name}
	}

	compiled := &CompiledStep{Step: step}
	switch step.Kind {
	case MatchLiteral:
		if step.Expand {
			return nil, &Error{Message: fmt.Sprintf("step %s: literal matchers cannot expand templates", name), Code: CodeInvalidStep, FailedStep: name}
		}
	case MatchPattern:
		expr := step.Match
		if step.Multiline {
			expr = "(?s)" + expr
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, &Error{Message: fmt.Sprintf("step %s: invalid pattern: %v", name, err), Code: CodeInvalidStep, FailedStep: name, Err: err}
		}
		compiled.re = re
	default:
		return nil, &Error{Message: fmt.Sprintf("step %s has unsupported matcher kind %q", name, step.Kind), Code: CodeInvalidStep, FailedStep: name}
	}
	return compiled, nil
}

// ApplyStep applies a single compiled step to text. A step that matches
// nothing returns text unchanged with StatusNoMatch.
func ApplyStep(text string, step *CompiledStep) (string, Outcome) {
	if step == nil {
		return text, Outcome{Status: StatusNoMatch}
	}
	outcome := Outcome{Step: step.Name, Status: StatusNoMatch}

	switch step.Kind {
	case MatchLiteral:
		count := strings.Count(text, step.Match)
		if count == 0 {
			return text, outcome
		}
		if step.Cardinality == CardinalityFirst {
			outcome.Status, outcome.Matches = StatusApplied, 1
			return strings.Replace(text, step.Match, step.Replace, 1), outcome
		}
		outcome.Status, outcome.Matches = StatusApplied, count
		return strings.ReplaceAll(text, step.Match, step.Replace), outcome
	case MatchPattern:
		if step.Cardinality == CardinalityFirst {
			loc := step.re.FindStringSubmatchIndex(text)
			if loc == nil {
				return text, outcome
			}
			replacement := step.Replace
			if step.Expand {
				replacement = string(step.re.ExpandString(nil, step.Replace, text, loc))
			}
			outcome.Status, outcome.Matches = StatusApplied, 1
			return text[:loc[0]] + replacement + text[loc[1]:], outcome
		}
		matches := step.re.FindAllStringIndex(text, -1)
		if len(matches) == 0 {
			return text, outcome
		}
		outcome.Status, outcome.Matches = StatusApplied, len(matches)
		if step.Expand {
			return step.re.ReplaceAllString(text, step.Replace), outcome
		}
		return step.re.ReplaceAllLiteralString(text, step.Replace), outcome
	}
	return text, outcome
}

// alreadyApplied reports whether a guarded step's replacement is present verbatim.
func alreadyApplied(text string, step *CompiledStep) bool {
	if !step.Guard || step.Expand || step.Replace == "" {
		return false
	}
	return strings.Contains(text, step.Replace)
}

func compileAll(steps []Step) ([]*CompiledStep, error) {
	compiled := make([]*CompiledStep, 0, len(steps))
	for _, step := range steps {
		c, err := Compile(step)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, c)
	}
	return compiled, nil
}

func apply(ctx context.Context, steps []Step, text string, opts Options) (string, []Outcome, error) {
	compiled, err := compileAll(steps)
	if err != nil {
		return "", nil, err
	}

	outcomes := make([]Outcome, 0, len(compiled))
	for index, step := range compiled {
		if ctx.Err() != nil {
			return "", nil, &Error{
				Message:    ctx.Err().Error(),
				Code:       CodeCancelled,
				Outcomes:   outcomes,
				FailedStep: step.Name,
				Err:        ctx.Err(),
			}
		}
		number := index + 1
		if opts.Guard && alreadyApplied(text, step) {
			outcomes = append(outcomes, Outcome{Number: number, Step: step.Name, Status: StatusAlreadyApplied})
			continue
		}
		var outcome Outcome
		text, outcome = ApplyStep(text, step)
		outcome.Number = number
		outcomes = append(outcomes, outcome)
	}
	return text, outcomes, nil
}

// Summarize renders one line per step outcome.
func Summarize(outcomes []Outcome) string {
	lines := make([]string, 0, len(outcomes))
	for _, o := range outcomes {
		switch o.Status {
		case StatusApplied:
			noun := "matches"
			if o.Matches == 1 {
				noun = "match"
			}
			lines = append(lines, fmt.Sprintf("Step %d (%s) applied: %d %s.", o.Number, o.Step, o.Matches, noun))
		case StatusAlreadyApplied:
			lines = append(lines, fmt.Sprintf("Step %d (%s) already applied.", o.Number, o.Step))
		default:
			lines = append(lines, fmt.Sprintf("No match for step %d (%s).", o.Number, o.Step))
		}
	}
	return strings.Join(lines, "\n")
}

// FormatError renders Error values into a human readable message suitable for
// surfacing to end users.
func FormatError(err error) string {
	if err == nil {
		return "Unknown error occurred."
	}
	var pe *Error
	if !errors.As(err, &pe) {
		return err.Error()
	}
	message := pe.Message
	if message == "" {
		message = "Unknown error occurred."
	}
	parts := []string{message}
	if pe.Path != "" && !strings.Contains(message, pe.Path) {
		parts = append(parts, fmt.Sprintf("File: %s", pe.Path))
	}
	if summary := Summarize(pe.Outcomes); summary != "" {
		parts = append(parts, "", summary)
	}
	if pe.FailedStep != "" {
		parts = append(parts, "", fmt.Sprintf("Stopped at step: %s", pe.FailedStep))
	}
	return strings.Join(parts, "\n")
}
